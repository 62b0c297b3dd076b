package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/kb"
)

func testKnowledgeBase() *kb.KnowledgeBase {
	return kb.New(&config.KnowledgeConfig{
		Docs: []config.KnowledgeDoc{
			{
				ID:      "pricing",
				Title:   "套餐与价格",
				Content: "Fluency Builder 每月 30 次练习会话，Team Mastery 不限量。",
				Tags:    []string{"pricing", "subscription"},
			},
			{
				ID:      "progress",
				Title:   "学习进度说明",
				Content: "每周安排 2 次会话，完成后自动推进进度。",
				Tags:    []string{"progress"},
			},
		},
	})
}

// AI 客户端为 nil 时退化为直接返回命中文档
func TestChatService_Ask_FallbackWithDocs(t *testing.T) {
	svc := NewChatService(testKnowledgeBase(), nil)

	resp, err := svc.Ask(context.Background(), &dto.ChatRequest{Question: "subscription pricing"})
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "套餐与价格")
	assert.Contains(t, resp.Sources, "套餐与价格")
}

func TestChatService_Ask_FallbackNoMatch(t *testing.T) {
	svc := NewChatService(testKnowledgeBase(), nil)

	resp, err := svc.Ask(context.Background(), &dto.ChatRequest{Question: "weather forecast tomorrow"})
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "换个问法")
	assert.Empty(t, resp.Sources)
}

func TestFallbackAnswer(t *testing.T) {
	assert.Contains(t, fallbackAnswer(nil), "换个问法")

	answer := fallbackAnswer([]kb.Doc{
		{Title: "标题甲", Content: "内容甲"},
		{Title: "标题乙", Content: "内容乙"},
	})
	assert.Contains(t, answer, "标题甲")
	assert.Contains(t, answer, "内容乙")
}
