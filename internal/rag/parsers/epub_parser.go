package parsers

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// EpubParser EPUB 电子书解析器
// EPUB 本质上是 ZIP 压缩包：META-INF/container.xml 指向 OPF 包描述文件，
// OPF 中记录 Dublin Core 元数据、资源清单（manifest）与阅读顺序（spine）
type EpubParser struct{}

// NewEpubParser 创建 EPUB 解析器
func NewEpubParser() *EpubParser {
	return &EpubParser{}
}

const containerPath = "META-INF/container.xml"

// containerXML container.xml 结构，只关心 rootfile 指针
type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// opfPackage OPF 包描述文件结构
type opfPackage struct {
	Metadata opfMetadata `xml:"metadata"`
	Manifest struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Refs []opfItemRef `xml:"itemref"`
	} `xml:"spine"`
}

// opfMetadata Dublin Core 元数据，字段可能重复，取第一个
type opfMetadata struct {
	Titles       []string `xml:"title"`
	Creators     []string `xml:"creator"`
	Languages    []string `xml:"language"`
	Descriptions []string `xml:"description"`
}

// opfItem manifest 资源项
type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfItemRef spine 阅读顺序项
type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// Parse 解析 EPUB，提取全文与元数据
// 容器清单缺失或不可读时返回 ErrMalformedContainer；
// 根本无法作为 ZIP 打开时返回 ErrUnsupportedFormat
func (p *EpubParser) Parse(data []byte) (*ExtractedContent, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: 打开 EPUB 容器失败: %v", ErrUnsupportedFormat, err)
	}

	opfPath, pkg, err := readPackage(zipReader)
	if err != nil {
		return nil, err
	}

	// 提取元数据，缺失字段填缺省值
	meta := extractMetadata(&pkg.Metadata)

	// 按 spine 顺序提取正文；spine 为空时退回到清单中的全部 XHTML 文档
	docs := p.contentDocuments(pkg, opfPath)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: OPF 清单中没有内容文档", ErrMalformedContainer)
	}

	var buf strings.Builder
	for _, href := range docs {
		raw, err := readZipEntry(zipReader, href)
		if err != nil {
			// 个别章节缺失不致命，跳过继续
			continue
		}
		text := htmlToText(string(raw))
		if text == "" {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}

	return &ExtractedContent{
		Text:     buf.String(),
		Metadata: meta,
	}, nil
}

// ExtractCover 尽力提取封面图
// 封面缺失或清单异常都返回 nil，绝不向上传播错误，不会中断入库
func (p *EpubParser) ExtractCover(data []byte) *CoverImage {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}

	opfPath, pkg, err := readPackage(zipReader)
	if err != nil {
		return nil
	}

	// 按 id = "cover" 或 properties 含 "cover-image" 查找封面项
	var coverHref string
	for _, item := range pkg.Manifest.Items {
		if item.ID == "cover" || hasProperty(item.Properties, "cover-image") {
			coverHref = item.Href
			break
		}
	}
	if coverHref == "" {
		return nil
	}

	imgData, err := readZipEntry(zipReader, resolveHref(opfPath, coverHref))
	if err != nil {
		return nil
	}

	ext := strings.ToLower(path.Ext(coverHref))
	if ext == "" {
		ext = ".jpg"
	}

	return &CoverImage{Data: imgData, Ext: ext}
}

// SupportedExtensions 支持的扩展名
func (p *EpubParser) SupportedExtensions() []string {
	return []string{".epub"}
}

// CanParse 检查是否支持该扩展名
func (p *EpubParser) CanParse(ext string) bool {
	for _, e := range p.SupportedExtensions() {
		if e == strings.ToLower(ext) {
			return true
		}
	}
	return false
}

// readPackage 读取 container.xml 并解析其指向的 OPF
// 返回 OPF 在压缩包内的路径与解析结果
func readPackage(zipReader *zip.Reader) (string, *opfPackage, error) {
	containerData, err := readZipEntry(zipReader, containerPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: 缺少 %s", ErrMalformedContainer, containerPath)
	}

	var container containerXML
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return "", nil, fmt.Errorf("%w: 解析 container.xml 失败: %v", ErrMalformedContainer, err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", nil, fmt.Errorf("%w: container.xml 未声明 rootfile", ErrMalformedContainer)
	}

	opfPath := container.Rootfiles[0].FullPath
	opfData, err := readZipEntry(zipReader, opfPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: 读取包描述文件 %s 失败", ErrMalformedContainer, opfPath)
	}

	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return "", nil, fmt.Errorf("%w: 解析包描述文件失败: %v", ErrMalformedContainer, err)
	}

	return opfPath, &pkg, nil
}

// contentDocuments 返回正文文档在压缩包内的路径列表（保持阅读顺序）
func (p *EpubParser) contentDocuments(pkg *opfPackage, opfPath string) []string {
	itemsByID := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		itemsByID[item.ID] = item
	}

	var hrefs []string
	for _, ref := range pkg.Spine.Refs {
		if item, ok := itemsByID[ref.IDRef]; ok && isDocumentItem(item) {
			hrefs = append(hrefs, resolveHref(opfPath, item.Href))
		}
	}
	if len(hrefs) > 0 {
		return hrefs
	}

	// 没有 spine 的残缺文件：退回到清单顺序
	for _, item := range pkg.Manifest.Items {
		if isDocumentItem(item) {
			hrefs = append(hrefs, resolveHref(opfPath, item.Href))
		}
	}
	return hrefs
}

// isDocumentItem 是否为正文文档资源
func isDocumentItem(item opfItem) bool {
	switch item.MediaType {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

// hasProperty properties 属性是否包含指定值（空格分隔）
func hasProperty(properties, want string) bool {
	for _, p := range strings.Fields(properties) {
		if p == want {
			return true
		}
	}
	return false
}

// resolveHref 将 OPF 内的相对 href 解析为压缩包内路径
func resolveHref(opfPath, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return path.Clean(path.Join(path.Dir(opfPath), href))
}

// readZipEntry 读取压缩包内指定路径的文件
func readZipEntry(zipReader *zip.Reader, name string) ([]byte, error) {
	for _, file := range zipReader.File {
		if file.Name == name {
			rc, err := file.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("压缩包内不存在 %s", name)
}

// extractMetadata 提取 Dublin Core 元数据，缺失字段填缺省值
func extractMetadata(m *opfMetadata) Metadata {
	meta := DefaultMetadata()
	if v := firstNonEmpty(m.Titles); v != "" {
		meta.Title = v
	}
	if v := firstNonEmpty(m.Creators); v != "" {
		meta.Author = v
	}
	if v := firstNonEmpty(m.Languages); v != "" {
		meta.Language = v
	}
	if v := firstNonEmpty(m.Descriptions); v != "" {
		meta.Description = v
	}
	return meta
}

// firstNonEmpty 取第一个非空白值
func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
