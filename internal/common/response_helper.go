package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse(data))
}

// ResponseCreated 返回创建成功响应（201）
func ResponseCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, SuccessResponse(data))
}

// ResponseNoContent 返回无内容响应（204）
func ResponseNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ResponseList 返回分页列表响应
func ResponseList(c *gin.Context, items any, total int64, req *PaginationRequest) {
	if req == nil {
		defaultReq := DefaultPagination()
		req = &defaultReq
	}

	response := ListResponse{
		Items:      items,
		Pagination: NewPaginationMeta(req.Page, req.GetPageSize(), total),
	}

	c.JSON(http.StatusOK, SuccessResponse(response))
}

// ResponseError 返回错误响应
func ResponseError(c *gin.Context, code int, message string) {
	httpStatus := http.StatusOK // 业务错误也返回200

	// 特殊业务状态码映射到HTTP状态码
	switch code {
	case CodeUnauthorized:
		httpStatus = http.StatusUnauthorized
	case CodeForbidden:
		httpStatus = http.StatusForbidden
	case CodeNotFound:
		httpStatus = http.StatusNotFound
	case CodeInvalidRequest:
		httpStatus = http.StatusBadRequest
	case CodeConflict:
		httpStatus = http.StatusConflict
	case CodeInternalError:
		httpStatus = http.StatusInternalServerError
	}

	c.JSON(httpStatus, ErrorResponse(code, message))
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, message string) {
	ResponseError(c, CodeInvalidRequest, message)
}

// ResponseUnauthorized 返回未认证响应
func ResponseUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "未认证，请先登录"
	}
	ResponseError(c, CodeUnauthorized, message)
}

// ResponseForbidden 返回无权限响应
func ResponseForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "权限不足"
	}
	ResponseError(c, CodeForbidden, message)
}

// ResponseNotFound 返回资源不存在响应
func ResponseNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "资源不存在"
	}
	ResponseError(c, CodeNotFound, message)
}

// ResponseServerError 返回服务器错误响应
func ResponseServerError(c *gin.Context, message string) {
	if message == "" {
		message = "服务器内部错误"
	}
	ResponseError(c, CodeInternalError, message)
}
