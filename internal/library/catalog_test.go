package library

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookrag/internal/common"
	"bookrag/internal/logger"
	"bookrag/internal/rag"
	"bookrag/internal/rag/parsers"
	"bookrag/internal/security"
	"bookrag/internal/storage"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stdout"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, _ := s.Embed(ctx, t)
		out = append(out, v)
	}
	return out, nil
}

func (stubEmbedder) GetDimension() int { return 2 }
func (stubEmbedder) GetModel() string  { return "stub" }

type stubGateway struct{}

func (stubGateway) GenerateAnswer(_ context.Context, _, _ string) (string, error) {
	return "回答", nil
}

func newTestCatalog(t *testing.T) (*Catalog, *storage.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Book{}))

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	cipher, err := security.NewCipher(bytes.Repeat([]byte{0x01}, security.KeySize))
	require.NoError(t, err)

	ragSvc := rag.NewService(parsers.NewParserRegistry(), rag.NewChunker(500), stubEmbedder{}, stubGateway{}, cipher, store, 10)
	return NewCatalog(db, ragSvc), store
}

func TestCatalog_UploadListGet(t *testing.T) {
	catalog, store := newTestCatalog(t)

	book, err := catalog.Upload(context.Background(), "owner-1", "notes.txt", "", []byte("一些正文内容"))
	require.NoError(t, err)
	require.NotEmpty(t, book.ID)
	require.Equal(t, "Unknown", book.Title)
	require.Equal(t, "text/plain", book.ContentType)
	require.Equal(t, 1, book.ChunkCount)
	require.True(t, store.Exists(store.MetaPath(book.ID)))

	got, err := catalog.Get(book.ID)
	require.NoError(t, err)
	require.Equal(t, book.ID, got.ID)

	page := common.DefaultPagination()
	books, total, err := catalog.List(&page)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, books, 1)
}

func TestCatalog_UploadTitleOverride(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	book, err := catalog.Upload(context.Background(), "owner-1", "notes.txt", "我的笔记", []byte("正文"))
	require.NoError(t, err)
	require.Equal(t, "我的笔记", book.Title)
}

func TestCatalog_UploadUnsupportedExtension(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	_, err := catalog.Upload(context.Background(), "owner-1", "malware.exe", "", []byte{0x4D, 0x5A})
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestCatalog_AskAndStream(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	content := []byte("第一段\n\n第二段")
	book, err := catalog.Upload(context.Background(), "owner-1", "notes.txt", "", content)
	require.NoError(t, err)

	gotBook, answer, err := catalog.Ask(context.Background(), book.ID, "问题")
	require.NoError(t, err)
	require.Equal(t, book.ID, gotBook.ID)
	require.Equal(t, "回答", answer.Answer)
	require.NotEmpty(t, answer.ContextChunks)

	_, plain, err := catalog.Stream(book.ID)
	require.NoError(t, err)
	require.Equal(t, content, plain)
}

func TestCatalog_AskUnknownBook(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	_, _, err := catalog.Ask(context.Background(), "no-such-id", "问题")
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestCatalog_DeleteOwnership(t *testing.T) {
	catalog, store := newTestCatalog(t)

	book, err := catalog.Upload(context.Background(), "owner-1", "notes.txt", "", []byte("正文"))
	require.NoError(t, err)

	err = catalog.Delete(book.ID, "someone-else")
	require.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, catalog.Delete(book.ID, "owner-1"))
	require.False(t, store.Exists(store.MetaPath(book.ID)))

	_, err = catalog.Get(book.ID)
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestCatalog_CoverMissing(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	book, err := catalog.Upload(context.Background(), "owner-1", "notes.txt", "", []byte("正文"))
	require.NoError(t, err)

	// 纯文本书没有封面
	_, _, err = catalog.Cover(book.ID)
	require.ErrorIs(t, err, ErrBookNotFound)
}
