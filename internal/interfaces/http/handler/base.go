// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/errors"
	"inkflow-ai-api/pkg/logger"
)

// replyError 将应用错误映射为统一错误响应
// 非 AppError 一律按内部错误处理, 不向客户端透出细节
func replyError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error: &dto.ErrorDetail{
				ErrorCode: string(appErr.Code),
				Details:   appErr.Detail,
			},
			TraceID: c.GetString("trace_id"),
		})
		return
	}
	logger.Error(ctx, "request failed", err)
	dto.InternalError(c, "internal server error")
}

// bindChapterNumber 解析路径中的章节号参数
func bindChapterNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("num"))
	if err != nil || number < 1 {
		dto.BadRequest(c, "invalid chapter number")
		return 0, false
	}
	return number, true
}
