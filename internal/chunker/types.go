package chunker

// ChunkType 分块内容类型
type ChunkType string

const (
	// TypeQA 问答对内容
	TypeQA ChunkType = "qa"
	// TypeHeader 标题内容
	TypeHeader ChunkType = "header"
	// TypeCode 代码块内容
	TypeCode ChunkType = "code"
	// TypeTable 表格内容
	TypeTable ChunkType = "table"
	// TypeList 列表内容
	TypeList ChunkType = "list"
	// TypeParagraph 普通段落内容
	TypeParagraph ChunkType = "paragraph"
)

// DefaultMaxChunkSize 默认分块大小（字符数）
const DefaultMaxChunkSize = 1000

// Metadata 分块元数据
// 偏移量均为相对于规范化后原文的字符（rune）偏移
type Metadata struct {
	StartOffset          int `json:"start_offset"`           // 分块起始偏移
	EndOffset            int `json:"end_offset"`             // 分块结束偏移
	OriginalSegmentIndex int `json:"original_segment_index"` // 原始分段序号
}

// Chunk 检索单元分块
// 由分段、类型推断与质量评分流水线产出，创建后不再修改
type Chunk struct {
	Content  string    // 分块文本内容
	Type     ChunkType // 内容类型
	Topic    string    // 所属主题（可为空）
	Index    int       // 在同级分块中的位置（从0开始）
	Metadata Metadata  // 元数据
}

// Segment 带偏移信息的文本分段
// Text已去除首尾空白，Start/End为该分段在规范化原文中的字符偏移
type Segment struct {
	Text  string // 分段文本
	Start int    // 起始偏移
	End   int    // 结束偏移
}

// BoundaryFunc 句子边界检测函数类型
// 用于在分段时替换默认的规则检测（例如换成LLM辅助检测）
type BoundaryFunc func(text string) []int
