package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.ConversationSession) error {
	return r.db.Create(session).Error
}

func (r *SessionRepository) CreateTx(tx *gorm.DB, session *model.ConversationSession) error {
	return tx.Create(session).Error
}

func (r *SessionRepository) GetByID(id string) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) ListByUserID(userID int64, page, pageSize int) ([]model.ConversationSession, int64, error) {
	var sessions []model.ConversationSession
	var total int64

	query := r.db.Model(&model.ConversationSession{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *SessionRepository) ListByPlanID(planID string) ([]model.ConversationSession, error) {
	var sessions []model.ConversationSession
	err := r.db.Where("plan_id = ?", planID).Order("created_at ASC").Find(&sessions).Error
	return sessions, err
}

// CountByPlanID 计划下的会话总数（重算计数时以此为准）
func (r *SessionRepository) CountByPlanID(planID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ConversationSession{}).Where("plan_id = ?", planID).Count(&count).Error
	return count, err
}

// CountByUserSince 某用户在 since 之后的会话数
func (r *SessionRepository) CountByUserSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ConversationSession{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) UpdateSummary(id string, summary string) error {
	return r.db.Model(&model.ConversationSession{}).Where("id = ?", id).
		Update("summary", summary).Error
}
