package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSummaryProgress = "summary_progress"
)

// ProgressMessage 摘要生成进度消息
type ProgressMessage struct {
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
	PlanID    string `json:"plan_id,omitempty"`
	JobID     int64  `json:"job_id"`
	Status    string `json:"status"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Error     string `json:"error,omitempty"`
}

// 进度阶段常量
const (
	StepLoading    = "loading"
	StepGenerating = "generating"
	StepSaving     = "saving"
	StepDone       = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepLoading:    20,
	StepGenerating: 60,
	StepSaving:     80,
	StepDone:       100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepLoading:    "正在加载会话记录",
	StepGenerating: "正在生成会话摘要",
	StepSaving:     "正在保存结果",
	StepDone:       "摘要已生成",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息，未配置 Redis 时静默跳过
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	if p == nil || p.client == nil {
		return nil
	}

	msg.Type = "summary_progress"

	// 自动填充进度和消息
	if msg.Progress == 0 && msg.Step != "" {
		if progress, ok := StepProgress[msg.Step]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Step != "" {
		if message, ok := StepMessages[msg.Step]; ok {
			msg.Message = message
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelSummaryProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelSummaryProgress)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
