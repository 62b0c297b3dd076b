package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Ask 知识库问答
// POST /api/v1/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.chatService.Ask(c.Request.Context(), &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}
