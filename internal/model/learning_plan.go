package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 每周固定 2 次会话，周序号与周内序号均由 completed_sessions 推导
const SessionsPerWeek = 2

// 学习计划状态
const (
	PlanNotStarted = "not_started"
	PlanInProgress = "in_progress"
	PlanCompleted  = "completed"
)

// SessionDetail 单次会话的摘要记录
type SessionDetail struct {
	SessionNumber int       `json:"session_number"` // 周内序号，1 或 2
	Summary       string    `json:"summary"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Week 周计划，嵌入 weekly_schedule JSON 列
type Week struct {
	Focus             string          `json:"focus"`
	Activities        []string        `json:"activities"`
	SessionsCompleted int             `json:"sessions_completed"`
	TotalSessions     int             `json:"total_sessions"`
	SessionDetails    []SessionDetail `json:"session_details,omitempty"`
}

// WeekList 用于 weekly_schedule JSON 字段
type WeekList []Week

func (w WeekList) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	return json.Marshal(w)
}

func (w *WeekList) Scan(value interface{}) error {
	if value == nil {
		*w = WeekList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, w)
}

type LearningPlan struct {
	ID                 string      `gorm:"primaryKey;size:36" json:"id"`
	UserID             int64       `gorm:"not null;index" json:"user_id"`
	Language           string      `gorm:"size:20;not null" json:"language"`
	ProficiencyLevel   string      `gorm:"size:20;not null" json:"proficiency_level"` // A1..C2
	Goals              StringArray `gorm:"type:json" json:"goals"`
	DurationMonths     int         `gorm:"not null" json:"duration_months"`
	TotalSessions      int         `gorm:"not null" json:"total_sessions"`
	CompletedSessions  int         `gorm:"default:0" json:"completed_sessions"`
	ProgressPercentage float64     `gorm:"default:0" json:"progress_percentage"`
	WeeklySchedule     WeekList    `gorm:"type:json" json:"weekly_schedule"`
	SessionSummaries   StringArray `gorm:"type:json" json:"session_summaries"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (LearningPlan) TableName() string {
	return "learning_plans"
}

// Status 由会话计数推导的计划状态
func (p *LearningPlan) Status() string {
	switch {
	case p.CompletedSessions == 0:
		return PlanNotStarted
	case p.TotalSessions > 0 && p.CompletedSessions >= p.TotalSessions:
		return PlanCompleted
	default:
		return PlanInProgress
	}
}

// CurrentWeek 当前周序号（1-based），completed_sessions/2 + 1
func (p *LearningPlan) CurrentWeek() int {
	return p.CompletedSessions/SessionsPerWeek + 1
}
