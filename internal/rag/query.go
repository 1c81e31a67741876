package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/rag/parsers"
	"bookrag/internal/security"
	"bookrag/internal/storage"
)

// AnswerResult 一次问答的完整结果
// ContextChunks 为实际送入生成后端的分块，供调用方追溯
type AnswerResult struct {
	Metadata      parsers.Metadata
	ContextChunks []string
	Answer        string
	Degraded      bool // 生成后端失败时为降级回答
}

// Answer 针对指定文档回答问题
// 检索阶段失败直接返回错误；生成阶段失败降级为占位回答，不视为整体失败
func (s *Service) Answer(ctx context.Context, bookID, question string) (*AnswerResult, error) {
	result, err := s.answer(ctx, bookID, question)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	if result.Degraded {
		metrics.QuestionsTotal.WithLabelValues("degraded").Inc()
	} else {
		metrics.QuestionsTotal.WithLabelValues("success").Inc()
	}
	return result, nil
}

func (s *Service) answer(ctx context.Context, bookID, question string) (*AnswerResult, error) {
	// 1. 取回并解密元数据分块工件
	payload, err := s.loadPayload(bookID)
	if err != nil {
		return nil, err
	}

	// 2. 加载向量索引
	index, err := s.loadIndex(bookID)
	if err != nil {
		return nil, err
	}

	// 3. 向量化问题并检索
	start := time.Now()
	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("问题向量化失败: %w", err)
	}
	hits, err := index.Search(queryVec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	// 4. 命中行号映射回分块文本，越界行号丢弃
	chunks := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Row < len(payload.Chunks) {
			chunks = append(chunks, payload.Chunks[hit.Row])
		}
	}

	// 5. 拼装上下文并生成回答
	contextText := buildContext(payload.Metadata, chunks)
	answer, genErr := s.gateway.GenerateAnswer(ctx, question, contextText)
	degraded := false
	if genErr != nil {
		// 检索已成功，生成失败降级为占位回答
		logger.Warn("回答生成失败，返回降级结果",
			zap.String("bookId", bookID), zap.Error(genErr))
		answer = fmt.Sprintf("⚠️ 回答生成失败: %v", genErr)
		degraded = true
	}

	return &AnswerResult{
		Metadata:      payload.Metadata,
		ContextChunks: chunks,
		Answer:        answer,
		Degraded:      degraded,
	}, nil
}

// loadPayload 读取并解密 {metadata, chunks} 工件
func (s *Service) loadPayload(bookID string) (*bookPayload, error) {
	encMeta, err := s.store.Read(s.store.MetaPath(bookID))
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, ErrArtifactsNotFound
		}
		return nil, err
	}
	plain, err := s.cipher.Decrypt(encMeta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifacts, err)
	}
	var payload bookPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifacts, err)
	}
	return &payload, nil
}

// loadIndex 读取并解码向量索引工件
func (s *Service) loadIndex(bookID string) (*FlatIndex, error) {
	raw, err := s.store.Read(s.store.IndexPath(bookID))
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, ErrArtifactsNotFound
		}
		return nil, err
	}
	index, err := DecodeFlatIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifacts, err)
	}
	return index, nil
}

// buildContext 拼装生成回答所用的上下文
// 先是固定顺序的元数据行，再按相关性顺序追加分块
func buildContext(meta parsers.Metadata, chunks []string) string {
	var b strings.Builder
	b.WriteString("title: " + meta.Title + "\n")
	b.WriteString("author: " + meta.Author + "\n")
	b.WriteString("language: " + meta.Language + "\n")
	b.WriteString("description: " + meta.Description)
	if len(chunks) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(chunks, "\n\n"))
	}
	return b.String()
}

// Stream 读取并解密原始文档，整段返回明文字节
// 明文只存在于内存中，永不写回磁盘
func (s *Service) Stream(bookID, fileExt string) ([]byte, error) {
	enc, err := s.store.Read(s.store.FilePath(bookID, fileExt))
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, ErrArtifactsNotFound
		}
		return nil, err
	}
	plain, err := s.cipher.Decrypt(enc)
	if err != nil {
		if errors.Is(err, security.ErrAuthenticationFailed) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArtifacts, err)
		}
		return nil, err
	}
	return plain, nil
}

// Cover 读取封面图片原始字节
func (s *Service) Cover(bookID, coverExt string) ([]byte, error) {
	data, err := s.store.Read(s.store.CoverPath(bookID + coverExt))
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, ErrArtifactsNotFound
		}
		return nil, err
	}
	return data, nil
}
