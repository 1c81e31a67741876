package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestChunker_SplitByParagraph(t *testing.T) {
	c := NewChunker(100)
	text := "第一段。\n\n第二段。\n\n\n\n  \n\n第三段。"

	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	require.Equal(t, "第一段。", chunks[0].Text)
	require.Equal(t, "第二段。", chunks[1].Text)
	require.Equal(t, "第三段。", chunks[2].Text)

	// 序号连续且与位置一致
	for i, ch := range chunks {
		require.Equal(t, i, ch.Index)
	}
}

func TestChunker_LongParagraphWindows(t *testing.T) {
	c := NewChunker(10)
	para := strings.Repeat("甲乙丙丁戊", 5) // 25 字符
	chunks := c.Split(para)

	require.Len(t, chunks, 3)
	// 除最后一块外，每块长度恰好等于 MaxLength
	require.Equal(t, 10, utf8.RuneCountInString(chunks[0].Text))
	require.Equal(t, 10, utf8.RuneCountInString(chunks[1].Text))
	require.Equal(t, 5, utf8.RuneCountInString(chunks[2].Text))

	// 重新拼接不丢失任何字符
	require.Equal(t, para, chunks[0].Text+chunks[1].Text+chunks[2].Text)
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(50)
	text := "段落一内容若干。\n\n" + strings.Repeat("长段落", 40) + "\n\n段落三。"

	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, first, second)
}

func TestChunker_DropsWhitespaceOnly(t *testing.T) {
	c := NewChunker(500)
	chunks := c.Split("\n\n   \n\n\t\n\n实际内容\n\n  ")
	require.Len(t, chunks, 1)
	require.Equal(t, "实际内容", chunks[0].Text)
}

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker(500)
	require.Empty(t, c.Split(""))
}

func TestChunker_TrimsEachPiece(t *testing.T) {
	c := NewChunker(500)
	chunks := c.Split("  前后有空白的段落  ")
	require.Len(t, chunks, 1)
	require.Equal(t, "前后有空白的段落", chunks[0].Text)
}

func TestChunker_DefaultSize(t *testing.T) {
	c := NewChunker(0)
	require.Equal(t, DefaultChunkSize, c.MaxLength)
}

func TestTexts(t *testing.T) {
	chunks := []Chunk{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}
	require.Equal(t, []string{"a", "b"}, Texts(chunks))
}
