package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// ExportSessions 导出会话历史 CSV
// POST /api/v1/export/sessions
func (h *ExportHandler) ExportSessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.exportService.ExportSessions(userID)
	if err != nil {
		if errors.Is(err, service.ErrNothingToExport) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "导出失败")
		return
	}

	response.SuccessWithMessage(c, "导出完成", resp)
}
