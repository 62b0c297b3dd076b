package handler

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func TestExportHandler_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	handler := NewExportHandler(service.NewExportService(repository.NewSessionRepository(db), nil))

	router := gin.New()
	router.POST("/export", handler.ExportSessions)

	w := performRequest(router, "POST", "/export", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestExportHandler_OSSNotConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	handler := NewExportHandler(service.NewExportService(repository.NewSessionRepository(db), nil))
	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/export", authAs(user.ID), handler.ExportSessions)

	w := performRequest(router, "POST", "/export", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeServerError, resp.Code)
}
