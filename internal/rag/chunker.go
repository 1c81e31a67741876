package rag

import "strings"

// DefaultChunkSize 默认分块字符数
const DefaultChunkSize = 500

// Chunk 检索的原子单元：一段有界长度的正文
// Index 为稳定序号，向量索引中第 i 行必须对应持久化分块序列的第 i 项
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文档分块器
// 按空行划分段落，超长段落再按固定窗口切分；相同输入产出恒定
type Chunker struct {
	MaxLength int // 单块最大字符数（按 rune 计）
}

// NewChunker 创建分块器
func NewChunker(maxLength int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultChunkSize
	}
	return &Chunker{MaxLength: maxLength}
}

// Split 对全文分块
// 规则：按空行切段；长段落切为连续的定长窗口（末窗可短）；
// 每块去除首尾空白，空块丢弃；顺序保持，决定分块与索引行的对应关系
func (c *Chunker) Split(text string) []Chunk {
	paragraphs := strings.Split(text, "\n\n")

	pieces := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		runes := []rune(para)
		if len(runes) > c.MaxLength {
			for start := 0; start < len(runes); start += c.MaxLength {
				end := start + c.MaxLength
				if end > len(runes) {
					end = len(runes)
				}
				pieces = append(pieces, string(runes[start:end]))
			}
		} else {
			pieces = append(pieces, para)
		}
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: trimmed})
	}
	return chunks
}

// Texts 提取分块正文列表（持久化与向量化共用的形态）
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return texts
}
