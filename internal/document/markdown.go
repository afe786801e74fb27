package document

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Topic 文档中的一个标题
type Topic struct {
	Title  string // 标题文本
	Level  int    // 标题级别(1-6)
	Offset int    // 标题在文档中的rune偏移
}

// TopicIndex 文档标题索引
// 用于为切分出的块标注其所属的主题
type TopicIndex struct {
	topics []Topic
}

// NewTopicIndex 解析Markdown文档并构建标题索引
func NewTopicIndex(text string) *TopicIndex {
	index := &TopicIndex{}
	if strings.TrimSpace(text) == "" {
		return index
	}

	p := parser.New()
	doc := p.Parse([]byte(text))

	var titles []Topic
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if heading, ok := node.(*ast.Heading); ok {
			title := headingText(heading)
			if title != "" {
				titles = append(titles, Topic{Title: title, Level: heading.Level})
			}
			return ast.SkipChildren
		}
		return ast.GoToNext
	})

	// 解析器不保留源文本位置，按出现顺序在原文中定位标题
	runes := []rune(text)
	searchFrom := 0
	for _, t := range titles {
		idx := indexRunes(runes, []rune(t.Title), searchFrom)
		if idx < 0 {
			continue
		}
		t.Offset = idx
		index.topics = append(index.topics, t)
		searchFrom = idx + len([]rune(t.Title))
	}

	return index
}

// TopicAt 返回给定rune偏移处生效的标题
// 即偏移之前最近的标题，没有时返回空字符串
func (ti *TopicIndex) TopicAt(offset int) string {
	topic := ""
	for _, t := range ti.topics {
		if t.Offset > offset {
			break
		}
		topic = t.Title
	}
	return topic
}

// Topics 返回文档中的所有标题
func (ti *TopicIndex) Topics() []Topic {
	return ti.topics
}

// headingText 提取标题节点下的纯文本
func headingText(heading *ast.Heading) string {
	var sb strings.Builder
	ast.WalkFunc(heading, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if text, ok := node.(*ast.Text); ok {
			sb.Write(text.Literal)
		}
		if code, ok := node.(*ast.Code); ok {
			sb.Write(code.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(sb.String())
}

// indexRunes 在runes中从from位置开始查找子串needle
func indexRunes(runes []rune, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(runes); i++ {
		match := true
		for j := range needle {
			if runes[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
