package parsers

import (
	"bytes"
	"fmt"
	"strings"

	"bookrag/internal/logger"

	"github.com/dslipak/pdf"
	"go.uber.org/zap"
)

// PDFParser PDF 文件解析器
// PDF 没有标准化的书目元数据，元数据保持缺省值
type PDFParser struct{}

// NewPDFParser 创建 PDF 解析器
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse 解析 PDF 文件
func (p *PDFParser) Parse(data []byte) (*ExtractedContent, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: 打开 PDF 失败: %v", ErrUnsupportedFormat, err)
	}

	var buf strings.Builder
	numPages := r.NumPage()

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 个别页面解析失败不致命，跳过继续
			logger.Warn("解析 PDF 页面失败", zap.Int("page", i), zap.Error(err))
			continue
		}

		buf.WriteString(text)
		buf.WriteString("\n\n")
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return nil, fmt.Errorf("%w: PDF 内容为空或无法提取文本", ErrMalformedContainer)
	}

	return &ExtractedContent{
		Text:     content,
		Metadata: DefaultMetadata(),
	}, nil
}

// SupportedExtensions 支持的扩展名
func (p *PDFParser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// CanParse 检查是否支持该扩展名
func (p *PDFParser) CanParse(ext string) bool {
	return strings.ToLower(ext) == ".pdf"
}
