package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestInferChunkType 测试分块类型推断
func TestInferChunkType(t *testing.T) {
	t.Run("qa pairs", func(t *testing.T) {
		assert.Equal(t, TypeQA, InferChunkType("Q: What?\nA: This."))
		assert.Equal(t, TypeQA, InferChunkType("질문: 무엇입니까?\n답변: 이것입니다."))
		assert.Equal(t, TypeQA, InferChunkType("문: 뭐예요?\n답: 이거예요."))
	})

	t.Run("question without answer is not qa", func(t *testing.T) {
		// 问答必须成对出现
		assert.NotEqual(t, TypeQA, InferChunkType("Q: 답이 없는 질문?"))
	})

	t.Run("headers", func(t *testing.T) {
		assert.Equal(t, TypeHeader, InferChunkType("# Title"))
		assert.Equal(t, TypeHeader, InferChunkType("### 섹션 제목"))
		assert.Equal(t, TypeHeader, InferChunkType("\n\n## 첫 비어있지 않은 줄"))
		assert.NotEqual(t, TypeHeader, InferChunkType("####### 일곱 개는 제목이 아님"))
	})

	t.Run("fenced code blocks", func(t *testing.T) {
		assert.Equal(t, TypeCode, InferChunkType("```go\nfmt.Println(\"hi\")\n```"))
	})

	t.Run("indented code blocks", func(t *testing.T) {
		assert.Equal(t, TypeCode, InferChunkType("    x := 1\n    y := 2\n    z := x + y"))
	})

	t.Run("tables", func(t *testing.T) {
		table := "| 이름 | 값 |\n| --- | --- |\n| a | 1 |"
		assert.Equal(t, TypeTable, InferChunkType(table))
	})

	t.Run("lists", func(t *testing.T) {
		assert.Equal(t, TypeList, InferChunkType("- a\n- b"))
		assert.Equal(t, TypeList, InferChunkType("1. 첫째\n2. 둘째\n3. 셋째"))
		assert.Equal(t, TypeList, InferChunkType("* 항목\n* 항목"))
	})

	t.Run("paragraph fallback", func(t *testing.T) {
		assert.Equal(t, TypeParagraph, InferChunkType("plain text."))
		assert.Equal(t, TypeParagraph, InferChunkType("일반적인 본문 단락입니다."))
		assert.Equal(t, TypeParagraph, InferChunkType(""))
	})
}

// TestInferChunkTypePriority 测试规则优先级
func TestInferChunkTypePriority(t *testing.T) {
	t.Run("code beats list", func(t *testing.T) {
		// 代码块内形似列表的行仍应归为代码
		content := "```\n- a\n- b\n- c\n```"
		assert.Equal(t, TypeCode, InferChunkType(content))
	})

	t.Run("qa beats header", func(t *testing.T) {
		content := "Q: 제목처럼 보이나요?\nA: 아니요."
		assert.Equal(t, TypeQA, InferChunkType(content))
	})
}
