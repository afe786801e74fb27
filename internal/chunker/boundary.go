package chunker

import (
	"strings"
	"unicode"
)

// 西文与CJK句末标点
var terminalRunes = map[rune]bool{
	'.': true, '?': true, '!': true,
	'。': true, '？': true, '！': true,
}

// 句末标点之后允许出现的收尾符号（引号、括号等）
var closingRunes = map[rune]bool{
	'"': true, '\'': true, '”': true, '’': true,
	'」': true, '』': true, ')': true, '）': true, ']': true, '〉': true,
}

// 韩语句尾语尾（합쇼체/해요체等敬语形）
// 句子以这些语尾结束且后面紧跟空白时，即使没有句末标点也视为句子边界
var koreanEndings = []string{
	"습니다", "ㅂ니다", "습니까", "십시오",
	"니다", "니까",
	"세요", "어요", "아요", "에요", "예요",
	"지요", "죠", "네요", "군요", "는다",
}

// FindSentenceBoundaries 基于规则检测句子边界
// 返回每个句子结束位置的字符（rune）偏移，偏移指向句末标点及其后连续空白之后的位置。
// 返回序列严格递增且已去重；检测不到任何边界时返回空序列（而不是[0]或[len]）。
// 同一输入的结果是确定性的。
func FindSentenceBoundaries(text string) []int {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	var boundaries []int
	i := 0
	for i < n {
		c := runes[i]

		// 句末标点：必须后跟（可选的收尾符号加）空白或文本结尾
		// 这同时排除了"a.b"、"3.14"这类缩写/小数中的点号
		if terminalRunes[c] {
			j := i + 1
			for j < n && closingRunes[runes[j]] {
				j++
			}
			if j >= n || unicode.IsSpace(runes[j]) {
				for j < n && unicode.IsSpace(runes[j]) {
					j++
				}
				boundaries = appendBoundary(boundaries, j)
				i = j
				continue
			}
			i++
			continue
		}

		// 无标点的韩语句尾：语尾匹配且后跟空白或文本结尾
		if isHangul(c) && hasKoreanEnding(runes, i) {
			j := i + 1
			for j < n && closingRunes[runes[j]] {
				j++
			}
			if j >= n || unicode.IsSpace(runes[j]) {
				for j < n && unicode.IsSpace(runes[j]) {
					j++
				}
				boundaries = appendBoundary(boundaries, j)
				i = j
				continue
			}
		}

		i++
	}

	return boundaries
}

// SentencesFromBoundaries 根据边界偏移将文本切分为句子列表
// 空白句子会被过滤；没有任何边界时返回整段文本作为单个句子。
func SentencesFromBoundaries(text string, boundaries []int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string

	prev := 0
	for _, b := range boundaries {
		if b < prev || b > len(runes) {
			continue
		}
		s := strings.TrimSpace(string(runes[prev:b]))
		if s != "" {
			sentences = append(sentences, s)
		}
		prev = b
	}

	// 最后一个边界之后的剩余文本
	if prev < len(runes) {
		s := strings.TrimSpace(string(runes[prev:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		sentences = append(sentences, trimmed)
	}

	return sentences
}

// appendBoundary 追加边界偏移并去重
func appendBoundary(boundaries []int, offset int) []int {
	if len(boundaries) > 0 && boundaries[len(boundaries)-1] == offset {
		return boundaries
	}
	return append(boundaries, offset)
}

// hasKoreanEnding 判断以runes[i]结尾的词是否匹配韩语句尾语尾
func hasKoreanEnding(runes []rune, i int) bool {
	for _, ending := range koreanEndings {
		er := []rune(ending)
		start := i - len(er) + 1
		if start < 0 {
			continue
		}
		if string(runes[start:i+1]) == ending {
			return true
		}
	}
	return false
}

// isHangul 判断字符是否为谚文音节或字母
func isHangul(c rune) bool {
	return (c >= 0xAC00 && c <= 0xD7A3) || // 谚文音节
		(c >= 0x1100 && c <= 0x11FF) || // 谚文字母
		(c >= 0x3130 && c <= 0x318F) // 谚文兼容字母
}
