package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

type SessionHandler struct {
	sessionRepo *repository.SessionRepository
}

func NewSessionHandler(sessionRepo *repository.SessionRepository) *SessionHandler {
	return &SessionHandler{
		sessionRepo: sessionRepo,
	}
}

// List 会话历史（分页）
// GET /api/v1/sessions?page=1&page_size=20
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sessions, total, err := h.sessionRepo.ListByUserID(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, sessions)
}

// Get 会话详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	session, err := h.sessionRepo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundError(c, "会话记录不存在")
			return
		}
		response.ServerError(c, "")
		return
	}

	if session.UserID != userID {
		response.PermissionError(c, "")
		return
	}

	response.Success(c, session)
}
