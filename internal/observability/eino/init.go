package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var initOnce sync.Once

// Init 注册模型调用的全局回调，api-gateway、analysis-worker 与 bootstrap 在进程启动时各调用一次
func Init() {
	initOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(callbackHandler())
	})
}

// callbackHandler 只关心 ChatModel 组件
func callbackHandler() einocallbacks.Handler {
	return cbtemplate.NewHandlerHelper().
		ChatModel(newChatModelCallbackHandler()).
		Handler()
}
