package model

import (
	"time"
)

// 摘要任务状态
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type SummaryJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	SessionID      string     `gorm:"size:36;not null;index" json:"session_id"`
	PlanID         string     `gorm:"size:36;index" json:"plan_id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	WeekFocus      string     `gorm:"size:200" json:"week_focus"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"` // queued, processing, completed, failed
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (SummaryJob) TableName() string {
	return "summary_jobs"
}
