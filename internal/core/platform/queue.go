package platform

import "sync"

// ============================================================================
//                              Queue 实现
// ============================================================================

// Queue 专用串行回调队列
//
// 平台监听器的状态通知与接受通知都在 Queue 上投递，保证回调之间
// 互不并发、按投递顺序执行。Queue 不是通道的拥有循环：回调中
// 必须把状态变更重派发到拥有循环后再执行。
type Queue struct {
	mu      sync.Mutex
	tasks   []func()
	closing bool

	notify chan struct{}
	done   chan struct{}
}

// NewQueue 创建并启动回调队列
func NewQueue() *Queue {
	q := &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 {
			if q.closing {
				q.mu.Unlock()
				close(q.done)
				return
			}
			q.mu.Unlock()
			<-q.notify
			q.mu.Lock()
		}
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		for _, task := range batch {
			task()
		}
	}
}

// Dispatch 投递回调
//
// 永不阻塞；队列已关闭时回调被丢弃并返回 ErrQueueClosed，
// 调用方据此释放回调本应接管的资源。
func (q *Queue) Dispatch(task func()) error {
	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close 关闭队列
//
// 排空已投递回调后停止。
func (q *Queue) Close() {
	q.mu.Lock()
	q.closing = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	<-q.done
}
