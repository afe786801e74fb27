package chunker

import "strings"

// 质量评分各信号的常量
// 基准分从中位开始，各独立信号叠加后截断到[0,100]
const (
	scoreBase = 50 // 基准分

	scoreTopicBonus    = 10 // 主题非空加分
	scoreBoundaryBonus = 10 // 在自然句尾结束加分

	// 长度信号的分段阈值（字符数）
	lengthTiny   = 10   // 过短下限
	lengthShort  = 50   // 偏短下限
	lengthIdeal  = 800  // 理想区间上限
	lengthLong   = 1500 // 偏长上限
	scoreMin     = 0
	scoreMax     = 100
)

// 各内容类型的加分
// 结构化内容（问答对）更利于检索，加分必须严格高于普通段落
var typeBonuses = map[ChunkType]int{
	TypeQA:        15,
	TypeTable:     8,
	TypeHeader:    5,
	TypeList:      5,
	TypeCode:      3,
	TypeParagraph: 0,
}

// CalculateSemanticQualityScore 计算分块的语义质量评分（0-100）
// 由长度、主题、类型、边界自然度四个独立信号叠加后截断得出。
// 纯函数，无副作用，同一输入结果确定。
func CalculateSemanticQualityScore(chunk *Chunk) int {
	if chunk == nil {
		return scoreMin
	}

	score := scoreBase +
		lengthScore(len([]rune(chunk.Content))) +
		topicScore(chunk.Topic) +
		typeScore(chunk.Type) +
		boundaryScore(chunk.Content)

	if score < scoreMin {
		return scoreMin
	}
	if score > scoreMax {
		return scoreMax
	}
	return score
}

// lengthScore 长度信号
// 理想区间内得分最高，过短重罚，超长适度减分但不低于下限
func lengthScore(length int) int {
	switch {
	case length == 0:
		return -50
	case length < lengthTiny:
		return -35
	case length < lengthShort:
		return -15
	case length <= lengthIdeal:
		return 15
	case length <= lengthLong:
		return 5
	default:
		return -10
	}
}

// topicScore 主题信号：主题非空时加固定分
func topicScore(topic string) int {
	if strings.TrimSpace(topic) != "" {
		return scoreTopicBonus
	}
	return 0
}

// typeScore 类型信号
func typeScore(chunkType ChunkType) int {
	return typeBonuses[chunkType]
}

// boundaryScore 边界自然度信号
// 内容以句末标点或韩语句尾语尾结束时加分
func boundaryScore(content string) int {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}

	runes := []rune(trimmed)

	// 跳过结尾的引号、括号等收尾符号
	i := len(runes) - 1
	for i >= 0 && closingRunes[runes[i]] {
		i--
	}
	if i < 0 {
		return 0
	}

	if terminalRunes[runes[i]] {
		return scoreBoundaryBonus
	}
	if isHangul(runes[i]) && hasKoreanEnding(runes, i) {
		return scoreBoundaryBonus
	}
	return 0
}
