package rag

import (
	"errors"

	"bookrag/internal/rag/parsers"
	"bookrag/internal/security"
	"bookrag/internal/storage"
)

var (
	// ErrArtifactsNotFound 文档尚未完成摄取，索引或元数据工件缺失
	ErrArtifactsNotFound = errors.New("文档工件不存在")
	// ErrCorruptArtifacts 持久化工件解密或解析失败
	ErrCorruptArtifacts = errors.New("文档工件已损坏")
	// ErrEmptyContent 解析后没有可索引的文本
	ErrEmptyContent = errors.New("文档没有可索引的内容")
)

// bookPayload 加密元数据工件的载荷结构
// 与 <id>.json.enc 中的明文 JSON 一一对应
type bookPayload struct {
	Metadata parsers.Metadata `json:"metadata"`
	Chunks   []string         `json:"chunks"`
}

// Service 语义问答核心服务
// 负责文档摄取（解析→分块→向量化→建索引→加密落盘）
// 与问答检索（取回工件→向量检索→上下文拼装→生成回答）
type Service struct {
	registry *parsers.ParserRegistry
	chunker  *Chunker
	embedder EmbeddingProvider
	gateway  AnswerGateway
	cipher   *security.Cipher
	store    *storage.Store
	topK     int
}

// NewService 创建问答服务
func NewService(
	registry *parsers.ParserRegistry,
	chunker *Chunker,
	embedder EmbeddingProvider,
	gateway AnswerGateway,
	cipher *security.Cipher,
	store *storage.Store,
	topK int,
) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		registry: registry,
		chunker:  chunker,
		embedder: embedder,
		gateway:  gateway,
		cipher:   cipher,
		store:    store,
		topK:     topK,
	}
}

// DefaultTopK 检索返回的默认块数
const DefaultTopK = 10

// CanIngest 判断文件名对应的格式是否受支持
func (s *Service) CanIngest(fileName string) bool {
	return s.registry.CanParse(fileName)
}
