package kb

import (
	"sort"
	"strings"
	"unicode"

	"github.com/qs3c/lingo_go_server/config"
)

// Doc 知识库文档
type Doc struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

// KnowledgeBase 启动时从配置构建的只读知识库。
// 不暴露任何修改入口，注入到需要它的服务中。
type KnowledgeBase struct {
	docs []Doc
}

// New 从配置构建知识库
func New(cfg *config.KnowledgeConfig) *KnowledgeBase {
	docs := make([]Doc, 0, len(cfg.Docs))
	for _, d := range cfg.Docs {
		docs = append(docs, Doc{
			ID:      d.ID,
			Title:   d.Title,
			Content: d.Content,
			Tags:    append([]string(nil), d.Tags...),
		})
	}
	return &KnowledgeBase{docs: docs}
}

// Size 文档数
func (k *KnowledgeBase) Size() int {
	return len(k.docs)
}

type scoredDoc struct {
	doc   Doc
	score int
}

// Search 按词项重叠度返回最相关的 topN 篇文档
func (k *KnowledgeBase) Search(query string, topN int) []Doc {
	terms := tokenize(query)
	if len(terms) == 0 || topN <= 0 {
		return nil
	}

	var scored []scoredDoc
	for _, d := range k.docs {
		score := scoreDoc(d, terms)
		if score > 0 {
			scored = append(scored, scoredDoc{doc: d, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}

	result := make([]Doc, 0, len(scored))
	for _, s := range scored {
		result = append(result, s.doc)
	}
	return result
}

func scoreDoc(d Doc, terms []string) int {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content)

	score := 0
	for _, term := range terms {
		// 标题命中权重高于正文
		if strings.Contains(title, term) {
			score += 3
		}
		if strings.Contains(content, term) {
			score++
		}
		for _, tag := range d.Tags {
			if strings.EqualFold(tag, term) {
				score += 2
			}
		}
	}
	return score
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var terms []string
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
