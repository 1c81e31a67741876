package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArtifactNotFound 制品不存在
var ErrArtifactNotFound = errors.New("制品不存在")

// Store 本地制品存储
// 每本书有三份核心制品（加密原文件、加密元数据分块、向量索引），
// 外加可选的封面图，分目录存放，文件名均由书籍 ID 派生
type Store struct {
	filesDir  string // 加密原文件
	coversDir string // 封面图（不加密）
	metaDir   string // 加密的 {metadata, chunks} JSON
	indexDir  string // 向量索引（不加密）
	tempDir   string // 落盘中转目录
}

// NewStore 创建制品存储，保证各目录存在
func NewStore(basePath string) (*Store, error) {
	s := &Store{
		filesDir:  filepath.Join(basePath, "files"),
		coversDir: filepath.Join(basePath, "cover_images"),
		metaDir:   filepath.Join(basePath, "vectors_json"),
		indexDir:  filepath.Join(basePath, "vectors_index"),
		tempDir:   filepath.Join(basePath, "temp"),
	}

	for _, dir := range []string{s.filesDir, s.coversDir, s.metaDir, s.indexDir, s.tempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建存储目录失败: %w", err)
		}
	}
	return s, nil
}

// FilePath 加密原文件路径
func (s *Store) FilePath(bookID, ext string) string {
	return filepath.Join(s.filesDir, bookID+ext+".enc")
}

// MetaPath 加密元数据分块路径
func (s *Store) MetaPath(bookID string) string {
	return filepath.Join(s.metaDir, bookID+".json.enc")
}

// IndexPath 向量索引路径
func (s *Store) IndexPath(bookID string) string {
	return filepath.Join(s.indexDir, bookID+".idx")
}

// CoverPath 封面图路径
func (s *Store) CoverPath(coverFilename string) string {
	return filepath.Join(s.coversDir, coverFilename)
}

// TempPath 中转路径，与目标文件同盘，保证 rename 原子性
func (s *Store) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// WriteAtomic 原子写入目标路径
// 先写入临时文件再 rename，读取方永远不会看到写了一半的文件
func (s *Store) WriteAtomic(path string, data []byte) error {
	tmp := s.TempPath(filepath.Base(path) + ".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("发布文件失败: %w", err)
	}
	return nil
}

// Read 读取制品内容
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("读取制品失败: %w", err)
	}
	return data, nil
}

// Exists 制品是否存在
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Remove 删除制品，文件不存在视为成功
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除制品失败: %w", err)
	}
	return nil
}
