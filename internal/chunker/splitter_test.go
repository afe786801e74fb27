package chunker

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripWhitespace 移除文本中的所有空白字符
func stripWhitespace(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

// TestSplitByNaturalBoundaries 测试自然边界分割
func TestSplitByNaturalBoundaries(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, SplitByNaturalBoundaries("", 100), "空输入应返回空序列")
		assert.Empty(t, SplitByNaturalBoundaries("   \n\n   ", 100), "空白输入应返回空序列")
	})

	t.Run("text within budget", func(t *testing.T) {
		text := "  짧은 텍스트입니다.  "
		segments := SplitByNaturalBoundaries(text, 100)

		require.Len(t, segments, 1, "未超出预算的文本应返回单个分段")
		assert.Equal(t, "짧은 텍스트입니다.", segments[0], "分段应去除首尾空白")
	})

	t.Run("paragraph boundaries preferred", func(t *testing.T) {
		text := "첫 번째 단락입니다.\n\n두 번째 단락입니다.\n\n세 번째 단락입니다."
		segments := SplitByNaturalBoundaries(text, 15)

		t.Logf("段落分段数量: %d", len(segments))
		for i, seg := range segments {
			t.Logf("分段 %d: '%s'", i, seg)
		}

		assert.Len(t, segments, 3, "应按段落边界分割成3个分段")
	})

	t.Run("korean sentences scenario", func(t *testing.T) {
		text := "첫 번째 문장입니다. 두 번째 문장입니다. 세 번째 문장입니다. " +
			"네 번째 문장입니다. 다섯 번째 문장입니다. 여섯 번째 문장입니다."
		segments := SplitByNaturalBoundaries(text, 40)

		t.Logf("韩语句子分段数量: %d", len(segments))
		for i, seg := range segments {
			t.Logf("分段 %d (长度=%d): '%s'", i, len([]rune(seg)), seg)
		}

		assert.Greater(t, len(segments), 1, "应分割成多个分段")
		for _, seg := range segments {
			assert.LessOrEqual(t, len([]rune(seg)), 50, "每个分段长度不应明显超出预算")
		}
	})

	t.Run("size respected at sentence boundaries", func(t *testing.T) {
		text := "One short sentence. Another short one. Third sentence here. " +
			"Fourth sentence follows. Fifth one ends. Sixth sentence closes."
		segments := SplitByNaturalBoundaries(text, 45)

		assert.Greater(t, len(segments), 1)
		for _, seg := range segments {
			assert.LessOrEqual(t, len([]rune(seg)), 45, "句子边界分割不应超出预算")
		}
	})

	t.Run("oversized sentence kept whole", func(t *testing.T) {
		// 单个句子超出预算时保留为独立分段，不做句内切分
		text := strings.Repeat("가", 50) + "다."
		segments := SplitByNaturalBoundaries(text, 20)

		require.Len(t, segments, 1, "超长句子应保留为独立分段")
		assert.Greater(t, len([]rune(segments[0])), 20)
	})

	t.Run("hard cut fallback without boundaries", func(t *testing.T) {
		// 完全没有句子边界时退到按长度硬切分
		text := strings.Repeat("가나다라마바사아자차", 10)
		segments := SplitByNaturalBoundaries(text, 30)

		assert.Greater(t, len(segments), 1, "无边界长文本应被硬切分")
		for _, seg := range segments {
			assert.LessOrEqual(t, len([]rune(seg)), 30, "硬切分不应超出预算")
		}
	})

	t.Run("hard cut aligns to whitespace", func(t *testing.T) {
		// 预算尾部范围内有空白时不应切断单词
		text := strings.TrimSpace(strings.Repeat("word ", 40))
		segments := SplitByNaturalBoundaries(text, 22)

		for i, seg := range segments {
			t.Logf("分段 %d: '%s'", i, seg)
			assert.NotContains(t, seg, "wo ", "不应在单词中间断开")
			for _, w := range strings.Fields(seg) {
				assert.Equal(t, "word", w, "每个单词应保持完整")
			}
		}
	})
}

// TestSplitRoundTrip 测试分割不丢失任何非空白字符
func TestSplitRoundTrip(t *testing.T) {
	texts := []string{
		"첫 문장입니다. 둘째 문장입니다.\n\n새 단락의 문장입니다. 마지막 문장입니다.",
		"A long paragraph with several sentences. Another sentence here. And one more to push it over.",
		strings.Repeat("무", 95),
		"# 제목\n\n- 항목 하나\n- 항목 둘\n\n본문 단락입니다.",
	}

	for _, text := range texts {
		segments := SplitByNaturalBoundaries(text, 30)
		joined := strings.Join(segments, "")
		assert.Equal(t, stripWhitespace(text), stripWhitespace(joined),
			"分割前后的非空白字符应完全一致")
	}
}

// TestSplitSegmentOffsets 测试分段偏移信息的正确性
func TestSplitSegmentOffsets(t *testing.T) {
	text := "하나입니다. 둘입니다. 셋입니다.\n\n넷입니다. 다섯입니다."
	segments := SplitSegments(text, 12)
	require.NotEmpty(t, segments)

	normalized := []rune(strings.ReplaceAll(text, "\r\n", "\n"))
	for _, seg := range segments {
		assert.GreaterOrEqual(t, seg.Start, 0)
		assert.LessOrEqual(t, seg.End, len(normalized))
		assert.Equal(t, string(normalized[seg.Start:seg.End]), seg.Text,
			"偏移区间应与分段文本一致")
	}
}

// TestParagraphSegments 测试按段落分段
func TestParagraphSegments(t *testing.T) {
	t.Run("basic paragraphs", func(t *testing.T) {
		text := "단락 하나.\n\n단락 둘.\n\n\n단락 셋."
		segments := ParagraphSegments(text)

		require.Len(t, segments, 3)
		assert.Equal(t, "단락 하나.", segments[0].Text)
		assert.Equal(t, "단락 둘.", segments[1].Text)
		assert.Equal(t, "단락 셋.", segments[2].Text)
	})

	t.Run("single newline is not a break", func(t *testing.T) {
		text := "첫 줄\n둘째 줄"
		segments := ParagraphSegments(text)
		assert.Len(t, segments, 1, "单个换行不应作为段落边界")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ParagraphSegments(""))
		assert.Empty(t, ParagraphSegments("\n\n\n"))
	})
}
