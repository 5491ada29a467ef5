package platform

import "errors"

var (
	// ErrInvalidParameters 监听参数无效
	ErrInvalidParameters = errors.New("invalid listener parameters")

	// ErrAlreadyStarted 监听器已启动（不再处于 setup 状态）
	ErrAlreadyStarted = errors.New("listener already started")

	// ErrCancelled 监听器已取消
	ErrCancelled = errors.New("listener cancelled")

	// ErrQueueClosed 回调队列已关闭
	ErrQueueClosed = errors.New("callback queue closed")
)
