package eventloop

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	pkgif "github.com/dep2p/go-netloop/pkg/interfaces"
	"github.com/dep2p/go-netloop/pkg/lib/log"
)

var logger = log.Logger("core/eventloop")

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrLoopClosed 事件循环已关闭
	ErrLoopClosed = errors.New("event loop closed")
)

// ============================================================================
//                              Loop 实现
// ============================================================================

// Loop 单线程事件循环
//
// 由恰好一个 goroutine 驱动；所有任务按投递顺序（FIFO）执行。
// 关闭时排空已入队任务，之后投递的任务被拒绝。
type Loop struct {
	id  string
	clk clock.Clock

	mu      sync.Mutex
	tasks   []func()
	closing bool

	notify chan struct{}
	done   chan struct{}

	// 循环 goroutine 的 id，用于 InLoop 判定
	gid atomic.Uint64
}

// 确保实现接口
var _ pkgif.EventLoop = (*Loop)(nil)

// NewLoop 创建并启动事件循环
//
// clk 为 nil 时使用真实时钟；测试可注入 clock.NewMock()。
func NewLoop(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	l := &Loop{
		id:     uuid.NewString(),
		clk:    clk,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// ID 返回循环唯一标识
func (l *Loop) ID() string {
	return l.id
}

// Clock 返回循环使用的时钟
func (l *Loop) Clock() clock.Clock {
	return l.clk
}

// run 循环主体
//
// 故意不 recover：任务 panic 是编程错误，按不可恢复处理。
func (l *Loop) run() {
	l.gid.Store(currentGoroutineID())

	for {
		l.mu.Lock()
		for len(l.tasks) == 0 {
			if l.closing {
				l.mu.Unlock()
				close(l.done)
				return
			}
			l.mu.Unlock()
			<-l.notify
			l.mu.Lock()
		}
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, task := range batch {
			task()
		}
	}
}

// InLoop 检查当前 goroutine 是否为循环自身
func (l *Loop) InLoop() bool {
	return currentGoroutineID() == l.gid.Load()
}

// Execute 将任务投递到循环上异步执行
//
// 永不阻塞调用方。循环已关闭时任务被丢弃（记录警告日志）。
func (l *Loop) Execute(task func()) {
	if !l.tryEnqueue(task) {
		logger.Warn("事件循环已关闭，任务被丢弃", "loop", l.id)
	}
}

// tryEnqueue 入队任务，循环已关闭时返回 false
func (l *Loop) tryEnqueue(task func()) bool {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

// Submit 将任务投递到循环上执行并返回其异步结果
//
// 循环已关闭时返回的 Future 以 ErrLoopClosed 失败。
func (l *Loop) Submit(task func() (any, error)) pkgif.Future {
	p := l.NewPromise()
	ok := l.tryEnqueue(func() {
		v, err := task()
		if err != nil {
			p.Fail(err)
		} else {
			p.Complete(v)
		}
	})
	if !ok {
		p.Fail(ErrLoopClosed)
	}
	return p
}

// Schedule 延迟指定时间后在循环上执行任务
//
// 返回取消函数；任务尚未投递时调用可取消。
func (l *Loop) Schedule(delay time.Duration, task func()) (cancel func()) {
	timer := l.clk.AfterFunc(delay, func() {
		l.Execute(task)
	})
	return func() { timer.Stop() }
}

// NewPromise 创建绑定到本循环的 Promise
func (l *Loop) NewPromise() *Promise {
	return newPromise(l)
}

// Close 关闭循环
//
// 排空已入队任务后停止；阻塞等待循环 goroutine 退出。
// 从循环自身调用时只发起关闭，不等待（避免死锁）。
func (l *Loop) Close() error {
	return l.CloseContext(context.Background())
}

// CloseContext 带上下文的关闭
func (l *Loop) CloseContext(ctx context.Context) error {
	l.mu.Lock()
	if !l.closing {
		l.closing = true
	}
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}

	// 在循环自身上等待退出会死锁
	if l.InLoop() {
		return nil
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回循环退出信号
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// ============================================================================
//                              goroutine 识别
// ============================================================================

// currentGoroutineID 返回当前 goroutine 的数字 id
//
// 解析 runtime.Stack 首行 "goroutine N [...]"。只在 Loop 创建与
// InLoop 判定时调用；单次调用开销在百纳秒级，对任务路由可以接受。
func currentGoroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	// 跳过前缀 "goroutine "
	var id uint64
	for _, c := range buf[10:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
