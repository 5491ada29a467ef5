package channel

import "errors"

var (
	// ErrIOOnClosedChannel 在已关闭的通道上操作
	ErrIOOnClosedChannel = errors.New("i/o on closed channel")

	// ErrUnsupportedOperation 通道不支持的操作（监听通道的写、关闭 auto-read 等）
	ErrUnsupportedOperation = errors.New("unsupported channel operation")

	// ErrNotPreConfigured 收养的监听器不处于初始 setup 状态
	ErrNotPreConfigured = errors.New("listener is not pre-configured")

	// ErrUnableToResolveEndpoint 绑定完成后无法解析本地端点
	ErrUnableToResolveEndpoint = errors.New("unable to resolve local endpoint")

	// ErrActivationPending 已有在途激活
	ErrActivationPending = errors.New("activation already in progress")

	// ErrAlreadyActivated 通道已处于活跃状态
	ErrAlreadyActivated = errors.New("channel already activated")

	// ErrSocketOptionUnset 读取未设置过的套接字选项
	ErrSocketOptionUnset = errors.New("socket option not set")
)

// PlatformError 包装来自平台监听原语的失败
//
// 平台侧错误经由通道关闭路径上报；调用方用 errors.As 取出原因。
type PlatformError struct {
	Err error
}

// Error 实现 error 接口
func (e *PlatformError) Error() string {
	return "platform listener error: " + e.Err.Error()
}

// Unwrap 返回底层错误
func (e *PlatformError) Unwrap() error {
	return e.Err
}
