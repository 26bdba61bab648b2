package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"

	"inkflow-ai-api/internal/domain/service"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks, 进程级一次
// recorder 可为 nil, 此时只上报指标与追踪, 不落流水
func Init(recorder service.LLMUsageRecorder) {
	initOnce.Do(func() {
		handler := cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler(recorder)).
			Handler()
		einocallbacks.AppendGlobalHandlers(handler)
	})
}
