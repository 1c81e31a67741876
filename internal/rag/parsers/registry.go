package parsers

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParserRegistry 按扩展名分发的解析器注册表
type ParserRegistry struct {
	parsers []Parser
}

// NewParserRegistry 创建注册表并登记默认解析器
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{
		parsers: make([]Parser, 0),
	}

	r.Register(NewEpubParser())
	r.Register(NewPDFParser())
	r.Register(NewTextParser())

	return r
}

// Register 登记解析器
func (r *ParserRegistry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Parse 选择合适的解析器并解析文档
func (r *ParserRegistry) Parse(fileName string, data []byte) (*ExtractedContent, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	for _, p := range r.parsers {
		if p.CanParse(ext) {
			return p.Parse(data)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// CanParse 是否有解析器支持该文件名
func (r *ParserRegistry) CanParse(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, p := range r.parsers {
		if p.CanParse(ext) {
			return true
		}
	}
	return false
}
