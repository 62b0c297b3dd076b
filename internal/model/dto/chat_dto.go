package dto

// ChatRequest 知识库问答请求
type ChatRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
}

// ChatResponse 知识库问答响应
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"` // 命中的知识库文档标题
}

// ExportResponse 导出结果
type ExportResponse struct {
	URL          string `json:"url"`
	SessionCount int    `json:"session_count"`
}
