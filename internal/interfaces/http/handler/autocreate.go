package handler

import (
	"context"
	"io"

	"inkflow-ai-api/internal/application/writer"
	"inkflow-ai-api/internal/interfaces/http/dto"
	"inkflow-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 事件通道缓冲量, 驱动协程不等待慢消费者
const runEventBuffer = 64

// AutoCreateHandler 连续创作处理器, 以 SSE 推送进度
type AutoCreateHandler struct {
	driver *writer.Driver
}

// NewAutoCreateHandler 创建连续创作处理器
func NewAutoCreateHandler(driver *writer.Driver) *AutoCreateHandler {
	return &AutoCreateHandler{
		driver: driver,
	}
}

// Start 启动连续创作并以 SSE 推送进度事件
// 客户端断开不终止创作, 运行只能通过停止接口协作式结束
// @Summary 启动连续创作
// @Tags AutoCreate
// @Accept json
// @Produce text/event-stream
// @Param pid path string true "项目 ID"
// @Param body body dto.AutoCreateRequest true "创作范围与选项"
// @Success 200 "SSE stream"
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/auto-create [post]
func (h *AutoCreateHandler) Start(c *gin.Context) {
	projectID := c.Param("pid")

	var req dto.AutoCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	events := make(chan *writer.RunEvent, runEventBuffer)
	done := make(chan error, 1)

	// 驱动协程不绑定请求上下文: 客户端断开后创作继续,
	// 只能通过停止接口协作式结束
	runCtx := context.WithoutCancel(c.Request.Context())
	go func() {
		defer close(events)
		done <- h.driver.Run(runCtx, projectID, req.ToAutoCreateOptions(), func(ev *writer.RunEvent) {
			if ev.Type == writer.EventProgress {
				// 缓冲满时只丢弃进度事件, 不阻塞创作
				select {
				case events <- ev:
				default:
				}
				return
			}
			// 章节结果与终止类事件不可丢弃
			events <- ev
		})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				if err := <-done; err != nil {
					c.SSEvent(string(writer.EventError), gin.H{
						"message": err.Error(),
					})
				}
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true

		case <-c.Request.Context().Done():
			logger.Warn(runCtx, "auto create client disconnected, run continues",
				"project_id", projectID)
			return false
		}
	})

	// 客户端断开后继续排空事件, 驱动协程不会卡在发送上
	go func() {
		for range events {
		}
	}()
}

// Stop 请求停止连续创作
// @Summary 停止连续创作
// @Tags AutoCreate
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StopRunResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/auto-create/stop [post]
func (h *AutoCreateHandler) Stop(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	lock, err := h.driver.Stop(ctx, projectID)
	if err != nil {
		replyError(c, err)
		return
	}

	dto.Success(c, &dto.StopRunResponse{
		RunID:   lock.RunID,
		Mode:    string(lock.Mode),
		Stopped: true,
	})
}
