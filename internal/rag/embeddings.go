package rag

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmbeddingUnavailable 向量化后端不可用
// 对调用方流水线而言是致命错误，不存在部分向量化
var ErrEmbeddingUnavailable = errors.New("向量化服务不可用")

// EmbeddingProvider 向量化服务接口
// 固定模型版本下是纯函数：相同文本产出相同向量，维度恒为 D
type EmbeddingProvider interface {
	// Embed 单条文本向量化（查询侧）
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 批量向量化（入库侧）
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// GetDimension 向量维度
	GetDimension() int
	// GetModel 当前使用的模型
	GetModel() string
}

// OpenAIEmbeddingProvider OpenAI 兼容接口的向量化提供者
type OpenAIEmbeddingProvider struct {
	client *openai.Client
	model  string // 默认 text-embedding-3-small
}

// NewOpenAIEmbeddingProvider 创建向量化提供者
// baseURL 留空使用官方地址
func NewOpenAIEmbeddingProvider(apiKey, baseURL, model string) *OpenAIEmbeddingProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	return &OpenAIEmbeddingProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Embed 将单条文本转换为向量
func (p *OpenAIEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("文本不能为空")
	}

	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化文本
func (p *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// OpenAI API 限制每次请求最多 2048 个输入，超过则分批
	const batchSize = 2048
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := p.embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("批量向量化失败(batch %d-%d): %w", i, end, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// embed 调用 Embeddings API
func (p *OpenAIEmbeddingProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: 返回向量数量不匹配: 期望%d, 实际%d", ErrEmbeddingUnavailable, len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}
	return embeddings, nil
}

// GetDimension 获取向量维度
func (p *OpenAIEmbeddingProvider) GetDimension() int {
	// text-embedding-3-small: 1536 维
	// text-embedding-3-large: 3072 维
	switch p.model {
	case string(openai.LargeEmbedding3):
		return 3072
	default:
		return 1536
	}
}

// GetModel 获取当前使用的模型
func (p *OpenAIEmbeddingProvider) GetModel() string {
	return p.model
}
