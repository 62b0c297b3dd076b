package dto

// CreatePlanRequest 基于评估结果创建学习计划
type CreatePlanRequest struct {
	Language         string   `json:"language" binding:"required,max=20"`
	ProficiencyLevel string   `json:"proficiency_level" binding:"required,oneof=A1 A2 B1 B2 C1 C2"`
	Goals            []string `json:"goals" binding:"omitempty,max=10,dive,max=100"`
	DurationMonths   int      `json:"duration_months" binding:"required,min=1,max=12"`
}

// UpdateProgressRequest 直接校正已完成会话数（管理/修复入口）
type UpdateProgressRequest struct {
	CompletedSessions int `json:"completed_sessions" binding:"min=0"`
}

// CompleteSessionRequest 会话完成上报
type CompleteSessionRequest struct {
	Topic           string           `json:"topic" binding:"omitempty,max=200"`
	Messages        []SessionMessage `json:"messages" binding:"omitempty,dive"`
	DurationSeconds int              `json:"duration_seconds" binding:"omitempty,min=0"`
}

// SessionMessage 会话消息
type SessionMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// CompleteSessionResponse 会话完成响应
type CompleteSessionResponse struct {
	SessionID          string  `json:"session_id"`
	CompletedSessions  int     `json:"completed_sessions"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CurrentWeek        int     `json:"current_week"`
	SessionInWeek      int     `json:"session_in_week"`
	PlanStatus         string  `json:"plan_status"`
	SummaryQueued      bool    `json:"summary_queued"`
}

// PlanListItem 学习计划列表项
type PlanListItem struct {
	ID                 string  `json:"id"`
	Language           string  `json:"language"`
	ProficiencyLevel   string  `json:"proficiency_level"`
	TotalSessions      int     `json:"total_sessions"`
	CompletedSessions  int     `json:"completed_sessions"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
}
