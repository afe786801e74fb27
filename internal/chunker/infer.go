package chunker

import (
	"regexp"
	"strings"
)

// 问答对模式：Q:/A:及其韩语等价形式（질문:/답변:、문:/답:）
var (
	questionLineRe = regexp.MustCompile(`(?m)^\s*(?:Q|질문|문)\s*[:：]`)
	answerLineRe   = regexp.MustCompile(`(?m)^\s*(?:A|답변|답)\s*[:：]`)
)

// Markdown ATX标题：1到6个#后跟空格
var headerLineRe = regexp.MustCompile(`^#{1,6}\s`)

// Markdown表格分隔行：| --- | --- |形式
var tableSeparatorRe = regexp.MustCompile(`(?m)^\s*\|?\s*:?-{3,}:?\s*(?:\|\s*:?-+:?\s*)+\|?\s*$`)

// 列表项：-、*、+或数字编号开头
var listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s`)

// typeRule 类型推断规则
// 按声明顺序逐条匹配，先命中者生效
type typeRule struct {
	chunkType ChunkType
	match     func(content string) bool
}

// 类型推断规则表，顺序即优先级
// 代码块检测在列表之前，保证代码块内形似列表的行不会被误判为列表
var typeRules = []typeRule{
	{TypeQA, isQAPair},
	{TypeHeader, isHeader},
	{TypeCode, isCodeBlock},
	{TypeTable, isTable},
	{TypeList, isList},
}

// InferChunkType 推断分块内容类型
// 纯模式匹配，单次遍历规则表，全部未命中时归为普通段落
func InferChunkType(content string) ChunkType {
	for _, rule := range typeRules {
		if rule.match(content) {
			return rule.chunkType
		}
	}
	return TypeParagraph
}

// isQAPair 判断内容是否为问答对
// 要求问题行和答案行成对出现
func isQAPair(content string) bool {
	return questionLineRe.MatchString(content) && answerLineRe.MatchString(content)
}

// isHeader 判断内容的第一个非空行是否为Markdown标题
func isHeader(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return headerLineRe.MatchString(line)
	}
	return false
}

// isCodeBlock 判断内容是否为代码块
// 围栏代码块（```开头结尾）或多数非空行缩进4个空格以上
func isCodeBlock(content string) bool {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") &&
		strings.HasSuffix(trimmed, "```") &&
		strings.Count(trimmed, "```") >= 2 {
		return true
	}

	total := 0
	indented := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			indented++
		}
	}
	return total > 0 && indented*2 > total
}

// isTable 判断内容是否包含Markdown表格分隔行
func isTable(content string) bool {
	return tableSeparatorRe.MatchString(content)
}

// isList 判断内容是否以列表行为主
// 多数非空行以列表标记开头时视为列表
func isList(content string) bool {
	total := 0
	items := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if listItemRe.MatchString(line) {
			items++
		}
	}
	return total > 0 && items*2 > total
}
