package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/ai"
	"github.com/qs3c/lingo_go_server/internal/pkg/kb"
)

// ChatService 知识库问答。知识库启动时注入且只读，
// 检索命中的文档作为上下文交给 AI 生成回答。
type ChatService struct {
	kb       *kb.KnowledgeBase
	aiClient *ai.Client
}

func NewChatService(knowledgeBase *kb.KnowledgeBase, aiClient *ai.Client) *ChatService {
	return &ChatService{
		kb:       knowledgeBase,
		aiClient: aiClient,
	}
}

// Ask 检索知识库并生成回答，AI 不可用时退化为直接返回命中文档
func (s *ChatService) Ask(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	docs := s.kb.Search(req.Question, 3)

	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, d.Title)
	}

	answer, err := s.complete(ctx, req.Question, docs)
	if err != nil {
		log.Printf("chat completion failed, falling back to kb docs: %v", err)
		answer = fallbackAnswer(docs)
	}

	return &dto.ChatResponse{
		Answer:  answer,
		Sources: sources,
	}, nil
}

func (s *ChatService) complete(ctx context.Context, question string, docs []kb.Doc) (string, error) {
	if s.aiClient == nil {
		return "", ai.ErrEmptyCompletion
	}

	var contextBuilder strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&contextBuilder, "【%s】\n%s\n\n", d.Title, d.Content)
	}

	system := "你是语言学习平台的学习助手，请基于提供的资料回答用户问题，资料不足时如实说明。"
	if contextBuilder.Len() > 0 {
		system += "\n\n参考资料：\n" + contextBuilder.String()
	}

	return s.aiClient.Complete(ctx, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	})
}

// fallbackAnswer AI 失败时的降级回答
func fallbackAnswer(docs []kb.Doc) string {
	if len(docs) == 0 {
		return "暂时没有找到相关资料，换个问法试试？"
	}

	var b strings.Builder
	b.WriteString("为您找到以下相关内容：\n\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "【%s】%s\n", d.Title, d.Content)
	}
	return b.String()
}
