package parsers

import "errors"

// 解析失败的错误分类
var (
	// ErrUnsupportedFormat 容器无法按预期格式解析（或扩展名不受支持）
	ErrUnsupportedFormat = errors.New("不支持的文档格式")
	// ErrMalformedContainer 容器缺少必需的内部结构（清单、内容列表等）
	ErrMalformedContainer = errors.New("文档容器结构不完整")
)

// Metadata 书籍描述性元数据
// 提取后恒定存在，源容器缺失的字段填充固定缺省值
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Language    string `json:"language"`
	Description string `json:"description"`
}

// DefaultMetadata 元数据缺省值
func DefaultMetadata() Metadata {
	return Metadata{
		Title:       "Unknown",
		Author:      "Unknown",
		Language:    "Unknown",
		Description: "No description",
	}
}

// ExtractedContent 一次提取的产物：全文与元数据
// 入库流程内消费完即丢弃，不持久化
type ExtractedContent struct {
	Text     string
	Metadata Metadata
}

// CoverImage 封面图（可选产物）
type CoverImage struct {
	Data []byte
	Ext  string // 含点号的扩展名，如 ".jpg"
}

// Parser 文档解析器接口
type Parser interface {
	// Parse 从原始字节中提取全文与元数据
	Parse(data []byte) (*ExtractedContent, error)

	// SupportedExtensions 支持的文件扩展名列表（如 ".epub"）
	SupportedExtensions() []string

	// CanParse 是否支持指定扩展名
	CanParse(extension string) bool
}
