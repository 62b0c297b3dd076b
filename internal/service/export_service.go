package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/oss"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

var ErrNothingToExport = errors.New("没有可导出的会话记录")

// ExportService 会话历史导出为 CSV 并上传 OSS
type ExportService struct {
	sessionRepo *repository.SessionRepository
	ossClient   *oss.Client
}

func NewExportService(sessionRepo *repository.SessionRepository, ossClient *oss.Client) *ExportService {
	return &ExportService{
		sessionRepo: sessionRepo,
		ossClient:   ossClient,
	}
}

// ExportSessions 导出用户全部会话记录，返回下载地址
func (s *ExportService) ExportSessions(userID int64) (*dto.ExportResponse, error) {
	if s.ossClient == nil {
		return nil, errors.New("OSS 客户端未配置")
	}

	// 一次取全量，导出不分页
	sessions, _, err := s.sessionRepo.ListByUserID(userID, 1, 10000)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNothingToExport
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"session_id", "plan_id", "language", "topic", "duration_seconds", "summary", "created_at"}); err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		record := []string{
			sess.ID,
			sess.PlanID,
			sess.Language,
			sess.Topic,
			strconv.Itoa(sess.DurationSeconds),
			sess.Summary,
			sess.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	url, err := s.ossClient.UploadExport(userID, buf.Bytes())
	if err != nil {
		return nil, err
	}

	return &dto.ExportResponse{
		URL:          url,
		SessionCount: len(sessions),
	}, nil
}
