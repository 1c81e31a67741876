package parsers

import (
	"fmt"
	"strings"
)

// TextParser 纯文本文件解析器
// 支持: .txt, .md
type TextParser struct{}

// NewTextParser 创建文本解析器
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse 解析文本文件
func (p *TextParser) Parse(data []byte) (*ExtractedContent, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: 文件内容为空", ErrMalformedContainer)
	}

	return &ExtractedContent{
		Text:     text,
		Metadata: DefaultMetadata(),
	}, nil
}

// SupportedExtensions 支持的文件扩展名
func (p *TextParser) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

// CanParse 检查是否可以解析指定扩展名的文件
func (p *TextParser) CanParse(extension string) bool {
	extension = strings.ToLower(extension)
	for _, ext := range p.SupportedExtensions() {
		if ext == extension {
			return true
		}
	}
	return false
}
