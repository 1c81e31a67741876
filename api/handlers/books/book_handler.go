package books

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookrag/internal/auth"
	"bookrag/internal/common"
	"bookrag/internal/library"
	"bookrag/internal/rag"
	"bookrag/internal/rag/parsers"
)

// BookHandler 书籍相关接口
type BookHandler struct {
	catalog       *library.Catalog
	maxUploadSize int64 // 字节
}

// NewBookHandler 创建书籍处理器
func NewBookHandler(catalog *library.Catalog, maxUploadSize int64) *BookHandler {
	return &BookHandler{catalog: catalog, maxUploadSize: maxUploadSize}
}

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse 问答响应
type AskResponse struct {
	BookID      string           `json:"book_id"`
	Question    string           `json:"question"`
	Metadata    parsers.Metadata `json:"metadata"`
	ContextUsed []string         `json:"context_used"`
	Response    string           `json:"response"`
	Degraded    bool             `json:"degraded"`
}

// Upload 上传并摄取一本书
// POST /api/books
func (h *BookHandler) Upload(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.ResponseUnauthorized(c, "")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.ResponseBadRequest(c, "缺少上传文件")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		common.ResponseBadRequest(c, fmt.Sprintf("文件超过大小限制（%d 字节）", h.maxUploadSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.ResponseServerError(c, "读取上传文件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		common.ResponseServerError(c, "读取上传文件失败")
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		common.ResponseBadRequest(c, fmt.Sprintf("文件超过大小限制（%d 字节）", h.maxUploadSize))
		return
	}

	book, err := h.catalog.Upload(c.Request.Context(), userCtx.UserID, fileHeader.Filename, c.PostForm("title"), data)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrUnsupportedFile),
			errors.Is(err, parsers.ErrUnsupportedFormat),
			errors.Is(err, parsers.ErrMalformedContainer),
			errors.Is(err, rag.ErrEmptyContent):
			common.ResponseBadRequest(c, err.Error())
		default:
			common.ResponseServerError(c, "书籍摄取失败")
		}
		return
	}

	common.ResponseCreated(c, book)
}

// List 分页列出书籍
// GET /api/books
func (h *BookHandler) List(c *gin.Context) {
	page := common.DefaultPagination()
	if err := c.ShouldBindQuery(&page); err != nil {
		common.ResponseBadRequest(c, "分页参数错误")
		return
	}

	books, total, err := h.catalog.List(&page)
	if err != nil {
		common.ResponseServerError(c, "查询书籍列表失败")
		return
	}

	common.ResponseList(c, books, total, &page)
}

// Get 查询单本书籍
// GET /api/books/:id
func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, library.ErrBookNotFound) {
			common.ResponseNotFound(c, err.Error())
			return
		}
		common.ResponseServerError(c, "查询书籍失败")
		return
	}

	common.ResponseSuccess(c, book)
}

// Delete 删除书籍及其工件，仅上传者可操作
// DELETE /api/books/:id
func (h *BookHandler) Delete(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.ResponseUnauthorized(c, "")
		return
	}

	err := h.catalog.Delete(c.Param("id"), userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrBookNotFound):
			common.ResponseNotFound(c, err.Error())
		case errors.Is(err, library.ErrNotOwner):
			common.ResponseForbidden(c, err.Error())
		default:
			common.ResponseServerError(c, "删除书籍失败")
		}
		return
	}

	common.ResponseNoContent(c)
}

// Ask 针对某本书提问
// POST /api/books/:id/ask
func (h *BookHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	bookID := c.Param("id")
	book, answer, err := h.catalog.Ask(c.Request.Context(), bookID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrBookNotFound),
			errors.Is(err, rag.ErrArtifactsNotFound):
			common.ResponseNotFound(c, "书籍不存在或尚未完成摄取")
		case errors.Is(err, rag.ErrCorruptArtifacts):
			common.ResponseServerError(c, "书籍数据已损坏")
		default:
			common.ResponseServerError(c, "问答处理失败")
		}
		return
	}

	common.ResponseSuccess(c, AskResponse{
		BookID:   book.ID,
		Question: req.Question,
		Metadata: parsers.Metadata{
			Title:       book.Title,
			Author:      book.Author,
			Language:    book.Language,
			Description: book.Description,
		},
		ContextUsed: answer.ContextChunks,
		Response:    answer.Answer,
		Degraded:    answer.Degraded,
	})
}

// Stream 下载解密后的原始书籍文件
// GET /api/books/:id/stream
func (h *BookHandler) Stream(c *gin.Context) {
	book, plain, err := h.catalog.Stream(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, library.ErrBookNotFound),
			errors.Is(err, rag.ErrArtifactsNotFound):
			common.ResponseNotFound(c, "书籍不存在")
		case errors.Is(err, rag.ErrCorruptArtifacts):
			common.ResponseServerError(c, "书籍文件已损坏")
		default:
			common.ResponseServerError(c, "读取书籍失败")
		}
		return
	}

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": book.FileName})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, book.ContentType, plain)
}

// Cover 返回书籍封面图片
// GET /api/books/:id/cover
func (h *BookHandler) Cover(c *gin.Context) {
	book, data, err := h.catalog.Cover(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, library.ErrBookNotFound),
			errors.Is(err, rag.ErrArtifactsNotFound):
			common.ResponseNotFound(c, "封面不存在")
		default:
			common.ResponseServerError(c, "读取封面失败")
		}
		return
	}

	contentType := mime.TypeByExtension(book.CoverExt)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}
