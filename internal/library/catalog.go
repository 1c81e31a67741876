package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bookrag/internal/common"
	"bookrag/internal/logger"
	"bookrag/internal/rag"
)

var (
	// ErrBookNotFound 书籍不存在
	ErrBookNotFound = errors.New("书籍不存在")
	// ErrNotOwner 只有上传者可以执行该操作
	ErrNotOwner = errors.New("只有上传者可以执行该操作")
	// ErrUnsupportedFile 文件格式不受支持
	ErrUnsupportedFile = errors.New("文件格式不受支持")
)

// contentTypes 按扩展名映射下载内容类型
var contentTypes = map[string]string{
	".epub": "application/epub+zip",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// Catalog 书籍目录服务
// 目录行存数据库，正文工件交由问答服务管理；
// 上传先摄取后建目录行，保证目录里的书一定可问答
type Catalog struct {
	db  *gorm.DB
	rag *rag.Service
}

// NewCatalog 创建目录服务
func NewCatalog(db *gorm.DB, ragService *rag.Service) *Catalog {
	return &Catalog{db: db, rag: ragService}
}

// Upload 摄取一本书并登记到目录
// title 非空时覆盖从文档中提取的标题；摄取失败时不会留下目录行或任何工件
func (c *Catalog) Upload(ctx context.Context, ownerID, fileName, title string, data []byte) (*Book, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := contentTypes[ext]
	if !ok || !c.rag.CanIngest(fileName) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	bookID := uuid.New().String()
	result, err := c.rag.Ingest(ctx, bookID, fileName, data)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = result.Metadata.Title
	}
	book := &Book{
		ID:          bookID,
		OwnerID:     ownerID,
		Title:       title,
		Author:      result.Metadata.Author,
		Language:    result.Metadata.Language,
		Description: result.Metadata.Description,
		FileName:    fileName,
		FileExt:     ext,
		CoverExt:    result.CoverExt,
		ContentType: contentType,
		ChunkCount:  result.ChunkCount,
	}
	if err := c.db.Create(book).Error; err != nil {
		// 目录行写入失败则回收已发布的工件
		if cleanErr := c.rag.Delete(bookID, ext, result.CoverExt); cleanErr != nil {
			logger.Warn("回收工件失败", zap.String("bookId", bookID), zap.Error(cleanErr))
		}
		return nil, fmt.Errorf("登记书籍失败: %w", err)
	}

	return book, nil
}

// Get 按 ID 查询书籍
func (c *Catalog) Get(bookID string) (*Book, error) {
	var book Book
	if err := c.db.First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("查询书籍失败: %w", err)
	}
	return &book, nil
}

// List 分页列出全部书籍，按上传时间倒序
func (c *Catalog) List(page *common.PaginationRequest) ([]Book, int64, error) {
	var total int64
	if err := c.db.Model(&Book{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计书籍失败: %w", err)
	}

	var books []Book
	err := c.db.Order("created_at DESC").
		Offset(page.GetOffset()).
		Limit(page.GetPageSize()).
		Find(&books).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询书籍列表失败: %w", err)
	}

	return books, total, nil
}

// Delete 删除书籍及其全部工件，仅上传者可操作
func (c *Catalog) Delete(bookID, requesterID string) error {
	book, err := c.Get(bookID)
	if err != nil {
		return err
	}
	if book.OwnerID != requesterID {
		return ErrNotOwner
	}

	if err := c.rag.Delete(book.ID, book.FileExt, book.CoverExt); err != nil {
		return err
	}
	if err := c.db.Delete(&Book{}, "id = ?", bookID).Error; err != nil {
		return fmt.Errorf("删除书籍记录失败: %w", err)
	}
	return nil
}

// Ask 针对某本书回答问题
func (c *Catalog) Ask(ctx context.Context, bookID, question string) (*Book, *rag.AnswerResult, error) {
	book, err := c.Get(bookID)
	if err != nil {
		return nil, nil, err
	}

	answer, err := c.rag.Answer(ctx, bookID, question)
	if err != nil {
		return nil, nil, err
	}
	return book, answer, nil
}

// Stream 解密并返回原始书籍文件，附带内容类型
func (c *Catalog) Stream(bookID string) (*Book, []byte, error) {
	book, err := c.Get(bookID)
	if err != nil {
		return nil, nil, err
	}

	plain, err := c.rag.Stream(bookID, book.FileExt)
	if err != nil {
		return nil, nil, err
	}
	return book, plain, nil
}

// Cover 返回书籍封面图片
func (c *Catalog) Cover(bookID string) (*Book, []byte, error) {
	book, err := c.Get(bookID)
	if err != nil {
		return nil, nil, err
	}
	if book.CoverExt == "" {
		return nil, nil, ErrBookNotFound
	}

	data, err := c.rag.Cover(bookID, book.CoverExt)
	if err != nil {
		return nil, nil, err
	}
	return book, data, nil
}
