package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book 书籍目录条目
// 正文、分块与向量等工件不入库，由制品存储按 ID 管理，
// 目录行只在全部工件发布成功后才创建
type Book struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string    `gorm:"type:uuid;not null;index:idx_book_owner" json:"owner_id"`
	Title       string    `gorm:"type:varchar(500);not null" json:"title"`
	Author      string    `gorm:"type:varchar(255)" json:"author"`
	Language    string    `gorm:"type:varchar(50)" json:"language"`
	Description string    `gorm:"type:text" json:"description"`
	FileName    string    `gorm:"type:varchar(500);not null" json:"file_name"`
	FileExt     string    `gorm:"type:varchar(20);not null" json:"file_ext"`
	CoverExt    string    `gorm:"type:varchar(20)" json:"cover_ext"` // 空表示无封面
	ContentType string    `gorm:"type:varchar(100);not null" json:"content_type"`
	ChunkCount  int       `gorm:"type:int;default:0" json:"chunk_count"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate GORM 钩子：创建前设置 ID
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}
