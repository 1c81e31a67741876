package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/rag/parsers"
)

// IngestResult 摄取完成后的产出摘要
type IngestResult struct {
	Metadata   parsers.Metadata
	ChunkCount int
	CoverExt   string // 封面图片扩展名，空表示没有封面
}

// Ingest 摄取一本文档：解析、分块、向量化、建索引并加密落盘
// 三个核心工件（加密原文、加密元数据+分块、向量索引）要么全部发布要么全部不发布；
// 任一阶段失败时已写入的工件会被回收
func (s *Service) Ingest(ctx context.Context, bookID, fileName string, data []byte) (*IngestResult, error) {
	start := time.Now()
	result, err := s.ingest(ctx, bookID, fileName, data)
	metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.IngestionsTotal.WithLabelValues("success").Inc()
	metrics.ChunksIndexed.Add(float64(result.ChunkCount))
	return result, nil
}

func (s *Service) ingest(ctx context.Context, bookID, fileName string, data []byte) (*IngestResult, error) {
	// 1. 解析文档内容与元数据
	content, err := s.registry.Parse(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}

	// 2. 分块
	chunks := s.chunker.Split(content.Text)
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}
	texts := Texts(chunks)

	// 3. 向量化
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("文本向量化失败: %w", err)
	}

	// 4. 构建向量索引
	index, err := BuildFlatIndex(vectors)
	if err != nil {
		return nil, fmt.Errorf("构建向量索引失败: %w", err)
	}

	// 5. 加密元数据与分块
	payload := bookPayload{Metadata: content.Metadata, Chunks: texts}
	plainMeta, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化元数据失败: %w", err)
	}
	encMeta, err := s.cipher.Encrypt(plainMeta)
	if err != nil {
		return nil, fmt.Errorf("加密元数据失败: %w", err)
	}

	// 6. 加密原始文件
	encFile, err := s.cipher.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("加密原始文件失败: %w", err)
	}

	// 7. 发布工件：任一写入失败则整体回滚
	ext := strings.ToLower(filepath.Ext(fileName))
	published := make([]string, 0, 3)
	publish := func(path string, blob []byte) error {
		if err := s.store.WriteAtomic(path, blob); err != nil {
			return err
		}
		published = append(published, path)
		return nil
	}
	rollback := func() {
		for _, p := range published {
			if rmErr := s.store.Remove(p); rmErr != nil {
				logger.Warn("回滚摄取工件失败", zap.String("path", p), zap.Error(rmErr))
			}
		}
	}

	if err := publish(s.store.FilePath(bookID, ext), encFile); err != nil {
		rollback()
		return nil, fmt.Errorf("写入加密文件失败: %w", err)
	}
	if err := publish(s.store.MetaPath(bookID), encMeta); err != nil {
		rollback()
		return nil, fmt.Errorf("写入加密元数据失败: %w", err)
	}
	if err := publish(s.store.IndexPath(bookID), index.Encode()); err != nil {
		rollback()
		return nil, fmt.Errorf("写入向量索引失败: %w", err)
	}

	// 8. 封面提取为尽力而为：失败仅记录日志，不影响摄取结果
	coverExt := s.saveCover(bookID, fileName, data)

	logger.Info("文档摄取完成",
		zap.String("bookId", bookID),
		zap.String("fileName", fileName),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", index.Dimension()))

	return &IngestResult{
		Metadata:   content.Metadata,
		ChunkCount: len(chunks),
		CoverExt:   coverExt,
	}, nil
}

// saveCover 提取并保存封面图片，返回封面扩展名（无封面时为空）
func (s *Service) saveCover(bookID, fileName string, data []byte) string {
	if strings.ToLower(filepath.Ext(fileName)) != ".epub" {
		return ""
	}
	cover := parsers.NewEpubParser().ExtractCover(data)
	if cover == nil {
		return ""
	}
	if err := s.store.WriteAtomic(s.store.CoverPath(bookID+cover.Ext), cover.Data); err != nil {
		logger.Warn("保存封面失败", zap.String("bookId", bookID), zap.Error(err))
		return ""
	}
	return cover.Ext
}

// Delete 删除一本文档的全部持久化工件
// 工件缺失视为删除成功
func (s *Service) Delete(bookID, fileExt, coverExt string) error {
	paths := []string{
		s.store.FilePath(bookID, fileExt),
		s.store.MetaPath(bookID),
		s.store.IndexPath(bookID),
	}
	if coverExt != "" {
		paths = append(paths, s.store.CoverPath(bookID+coverExt))
	}
	for _, p := range paths {
		if err := s.store.Remove(p); err != nil {
			return fmt.Errorf("删除工件失败: %w", err)
		}
	}
	return nil
}
