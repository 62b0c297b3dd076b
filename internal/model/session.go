package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Message 会话消息（role: user / assistant）
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageList 用于 messages JSON 字段
type MessageList []Message

func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	return json.Marshal(m)
}

func (m *MessageList) Scan(value interface{}) error {
	if value == nil {
		*m = MessageList{}
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
	return json.Unmarshal(bytes, m)
}

// ConversationSession 会话记录，只追加不修改（摘要字段除外）。
// 计数修复工具以这张表为准重算用量与进度。
type ConversationSession struct {
	ID              string      `gorm:"primaryKey;size:36" json:"id"`
	UserID          int64       `gorm:"not null;index" json:"user_id"`
	PlanID          string      `gorm:"size:36;index" json:"plan_id,omitempty"`
	Language        string      `gorm:"size:20" json:"language"`
	Topic           string      `gorm:"size:200" json:"topic"`
	Messages        MessageList `gorm:"type:json" json:"messages"`
	Summary         string      `gorm:"type:text" json:"summary,omitempty"`
	DurationSeconds int         `json:"duration_seconds"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
}

func (ConversationSession) TableName() string {
	return "conversation_sessions"
}
