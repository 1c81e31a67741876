package parsers

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptRegex  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRegex   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRegex = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockRegex   = regexp.MustCompile(`(?i)</(p|div|section|h[1-6]|li|tr|blockquote)[^>]*>|<(br|hr)[^>]*/?>`)
	tagRegex     = regexp.MustCompile(`<[^>]+>`)
	spaceRegex   = regexp.MustCompile(`[ \t]+`)
	newlineRegex = regexp.MustCompile(`\n\s*\n+`)
)

// htmlToText 将 XHTML/HTML 章节清理为纯文本
// 块级元素边界转换为空行，供后续按段落分块
func htmlToText(src string) string {
	// 移除 script、style 与注释
	src = scriptRegex.ReplaceAllString(src, "")
	src = styleRegex.ReplaceAllString(src, "")
	src = commentRegex.ReplaceAllString(src, "")

	// 将块级元素结束转换为段落分隔
	src = blockRegex.ReplaceAllString(src, "\n\n")

	// 移除所有剩余标签
	text := tagRegex.ReplaceAllString(src, " ")

	// 解码 HTML 实体
	text = html.UnescapeString(text)

	// 清理多余空白
	text = spaceRegex.ReplaceAllString(text, " ")
	text = newlineRegex.ReplaceAllString(text, "\n\n")

	// 去掉每行首尾空格
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
