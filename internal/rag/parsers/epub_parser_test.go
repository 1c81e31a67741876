package parsers

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildEpub 在内存中构造一个最小可用的 EPUB
func buildEpub(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func testOPF(manifestExtra string) string {
	return `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0">
  <metadata>
    <dc:title>测试之书</dc:title>
    <dc:creator>王小明</dc:creator>
    <dc:language>zh</dc:language>
    <dc:description>一本用于测试的书</dc:description>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>` + manifestExtra + `
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`
}

func TestEpubParser_Parse(t *testing.T) {
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF(""),
		"OEBPS/ch1.xhtml":        `<html><body><p>第一章 开端</p><p>风起于青萍之末。</p></body></html>`,
		"OEBPS/ch2.xhtml":        `<html><body><p>第二章 转折</p></body></html>`,
	})

	p := NewEpubParser()
	content, err := p.Parse(data)
	require.NoError(t, err)

	require.Equal(t, "测试之书", content.Metadata.Title)
	require.Equal(t, "王小明", content.Metadata.Author)
	require.Equal(t, "zh", content.Metadata.Language)
	require.Equal(t, "一本用于测试的书", content.Metadata.Description)

	require.Contains(t, content.Text, "第一章 开端")
	require.Contains(t, content.Text, "风起于青萍之末。")
	require.Contains(t, content.Text, "第二章 转折")
	// 章节顺序必须跟随 spine
	require.Less(t,
		bytes.Index([]byte(content.Text), []byte("第一章")),
		bytes.Index([]byte(content.Text), []byte("第二章")))
}

func TestEpubParser_MetadataDefaults(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      opf,
		"OEBPS/ch1.xhtml":        `<html><body><p>hello</p></body></html>`,
	})

	content, err := NewEpubParser().Parse(data)
	require.NoError(t, err)
	require.Equal(t, "Unknown", content.Metadata.Title)
	require.Equal(t, "Unknown", content.Metadata.Author)
	require.Equal(t, "Unknown", content.Metadata.Language)
	require.Equal(t, "No description", content.Metadata.Description)
}

func TestEpubParser_NotAZip(t *testing.T) {
	_, err := NewEpubParser().Parse([]byte("definitely not a zip archive"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEpubParser_MissingContainer(t *testing.T) {
	data := buildEpub(t, map[string]string{
		"mimetype": "application/epub+zip",
	})
	_, err := NewEpubParser().Parse(data)
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestEpubParser_MissingRootfile(t *testing.T) {
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?><container><rootfiles/></container>`,
	})
	_, err := NewEpubParser().Parse(data)
	require.ErrorIs(t, err, ErrMalformedContainer)
}

func TestEpubParser_ExtractCoverByID(t *testing.T) {
	cover := "\xff\xd8\xff\xe0fake-jpeg"
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF(`<item id="cover" href="images/cover.jpg" media-type="image/jpeg"/>`),
		"OEBPS/ch1.xhtml":        `<html><body><p>x</p></body></html>`,
		"OEBPS/ch2.xhtml":        `<html><body><p>y</p></body></html>`,
		"OEBPS/images/cover.jpg": cover,
	})

	img := NewEpubParser().ExtractCover(data)
	require.NotNil(t, img)
	require.Equal(t, []byte(cover), img.Data)
	require.Equal(t, ".jpg", img.Ext)
}

func TestEpubParser_ExtractCoverByProperty(t *testing.T) {
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF(`<item id="img1" href="cover.png" properties="cover-image" media-type="image/png"/>`),
		"OEBPS/ch1.xhtml":        `<html><body><p>x</p></body></html>`,
		"OEBPS/ch2.xhtml":        `<html><body><p>y</p></body></html>`,
		"OEBPS/cover.png":        "png-bytes",
	})

	img := NewEpubParser().ExtractCover(data)
	require.NotNil(t, img)
	require.Equal(t, ".png", img.Ext)
}

func TestEpubParser_NoCoverIsNotAnError(t *testing.T) {
	data := buildEpub(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF(""),
		"OEBPS/ch1.xhtml":        `<html><body><p>x</p></body></html>`,
		"OEBPS/ch2.xhtml":        `<html><body><p>y</p></body></html>`,
	})

	require.Nil(t, NewEpubParser().ExtractCover(data))
	// 封面缺失时正文提取仍然成功
	_, err := NewEpubParser().Parse(data)
	require.NoError(t, err)
}

func TestRegistry_UnsupportedExtension(t *testing.T) {
	r := NewParserRegistry()
	_, err := r.Parse("book.mobi", []byte("xx"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_TextFallback(t *testing.T) {
	r := NewParserRegistry()
	content, err := r.Parse("notes.txt", []byte("  一段文字  "))
	require.NoError(t, err)
	require.Equal(t, "一段文字", content.Text)
	require.Equal(t, DefaultMetadata(), content.Metadata)
}

func TestHTMLToText(t *testing.T) {
	src := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><p>第一段&amp;实体</p><p>第二段</p><!-- 注释 --></body></html>`
	text := htmlToText(src)
	require.Equal(t, "第一段&实体\n\n第二段", text)
}
