package chunker

import (
	"strings"
	"unicode"
)

// hardCutWindowRatio 硬切分时向前回溯寻找空白的窗口占预算的比例
const hardCutWindowRatio = 5 // 即预算的1/5（20%）

// SplitByNaturalBoundaries 按自然边界将文本分割为不超过maxSize的分段
// 优先在段落边界（连续两个以上换行）切分，段落过长时退到句子边界，
// 完全没有句子边界时退到空白对齐的硬切分。
// 单个句子超过maxSize时保留为独立分段，不做句内切分。
func SplitByNaturalBoundaries(text string, maxSize int) []string {
	segments := SplitSegments(text, maxSize)
	if len(segments) == 0 {
		return nil
	}

	result := make([]string, 0, len(segments))
	for _, seg := range segments {
		result = append(result, seg.Text)
	}
	return result
}

// SplitSegments 按自然边界分割并返回带偏移信息的分段
// 句子边界使用默认的规则检测
func SplitSegments(text string, maxSize int) []Segment {
	return SplitSegmentsUsing(text, maxSize, FindSentenceBoundaries)
}

// SplitSegmentsUsing 按自然边界分割文本，句子边界由boundaryFn提供
// 偏移量为相对于规范化后文本（\r\n统一为\n）的字符偏移
func SplitSegmentsUsing(text string, maxSize int, boundaryFn BoundaryFunc) []Segment {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if boundaryFn == nil {
		boundaryFn = FindSentenceBoundaries
	}

	// 规范化换行符
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	runes := []rune(normalized)

	// 整体长度未超出预算时直接返回单个分段
	start, end := trimSpan(runes, 0, len(runes))
	if end-start <= maxSize {
		return []Segment{newSegment(runes, start, end)}
	}

	var segments []Segment
	for _, p := range paragraphSpans(runes) {
		ps, pe := trimSpan(runes, p[0], p[1])
		if pe-ps == 0 {
			continue
		}

		if pe-ps <= maxSize {
			segments = append(segments, newSegment(runes, ps, pe))
			continue
		}

		paragraph := string(runes[ps:pe])
		boundaries := boundaryFn(paragraph)
		if len(boundaries) == 0 {
			// 段落内没有句子边界，退到硬切分
			segments = append(segments, hardCut(runes, ps, pe, maxSize)...)
			continue
		}

		segments = append(segments, accumulateSentences(runes, ps, pe, boundaries, maxSize)...)
	}

	return segments
}

// ParagraphSegments 按段落边界（连续两个以上换行）分割文本
// 用于smart/late等不做句级切分的分块策略
func ParagraphSegments(text string) []Segment {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	runes := []rune(normalized)
	var segments []Segment
	for _, p := range paragraphSpans(runes) {
		ps, pe := trimSpan(runes, p[0], p[1])
		if pe-ps > 0 {
			segments = append(segments, newSegment(runes, ps, pe))
		}
	}
	return segments
}

// paragraphSpans 返回段落的偏移区间，段落之间以两个以上连续换行分隔
func paragraphSpans(runes []rune) [][2]int {
	var spans [][2]int
	n := len(runes)

	start := 0
	i := 0
	for i < n {
		if runes[i] != '\n' {
			i++
			continue
		}
		// 统计连续换行数量（忽略换行之间的空格）
		j := i
		newlines := 0
		for j < n && (runes[j] == '\n' || runes[j] == ' ' || runes[j] == '\t') {
			if runes[j] == '\n' {
				newlines++
			}
			j++
		}
		if newlines >= 2 {
			spans = append(spans, [2]int{start, i})
			start = j
		}
		i = j
	}
	if start < n {
		spans = append(spans, [2]int{start, n})
	}
	return spans
}

// accumulateSentences 在句子边界处贪心累积句子，直到再加一句会超出maxSize
// boundaries为相对于段落起点的偏移，基准偏移为base
func accumulateSentences(runes []rune, base, end int, boundaries []int, maxSize int) []Segment {
	// 构造句子区间（绝对偏移）
	var spans [][2]int
	prev := base
	for _, b := range boundaries {
		abs := base + b
		if abs <= prev || abs > end {
			continue
		}
		ss, se := trimSpan(runes, prev, abs)
		if se-ss > 0 {
			spans = append(spans, [2]int{ss, se})
		}
		prev = abs
	}
	if prev < end {
		ss, se := trimSpan(runes, prev, end)
		if se-ss > 0 {
			spans = append(spans, [2]int{ss, se})
		}
	}

	var segments []Segment
	curStart, curEnd := -1, -1
	flush := func() {
		if curStart >= 0 {
			segments = append(segments, newSegment(runes, curStart, curEnd))
			curStart, curEnd = -1, -1
		}
	}

	for _, span := range spans {
		if curStart < 0 {
			curStart, curEnd = span[0], span[1]
			// 单个句子超出预算时保留为独立分段
			if curEnd-curStart > maxSize {
				flush()
			}
			continue
		}
		// 扩展到该句会超出预算时先关闭当前分段
		if span[1]-curStart > maxSize {
			flush()
			curStart, curEnd = span[0], span[1]
			if curEnd-curStart > maxSize {
				flush()
			}
			continue
		}
		curEnd = span[1]
	}
	flush()

	return segments
}

// hardCut 在没有任何句子边界时按长度硬切分
// 优先在预算最后20%范围内的空白处断开，避免切断单词
func hardCut(runes []rune, start, end, maxSize int) []Segment {
	var segments []Segment

	window := maxSize / hardCutWindowRatio
	if window < 1 {
		window = 1
	}

	i := start
	for i < end {
		cut := i + maxSize
		if cut >= end {
			cut = end
		} else {
			for k := cut; k > cut-window && k > i; k-- {
				if unicode.IsSpace(runes[k]) {
					cut = k
					break
				}
			}
		}

		ss, se := trimSpan(runes, i, cut)
		if se-ss > 0 {
			segments = append(segments, newSegment(runes, ss, se))
		}

		i = cut
		for i < end && unicode.IsSpace(runes[i]) {
			i++
		}
	}

	return segments
}

// trimSpan 收缩区间两端的空白，返回新的区间
func trimSpan(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}

// newSegment 根据偏移区间构造分段
func newSegment(runes []rune, start, end int) Segment {
	return Segment{
		Text:  string(runes[start:end]),
		Start: start,
		End:   end,
	}
}
