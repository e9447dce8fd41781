// async_sink.go - 异步行落盘前端
// 生产者把日志行投入无锁队列后立即返回, 由单个后台 goroutine
// 统一取出并调用落盘器的 AppendLine, 适用于高并发日志场景。

package lockfree

import (
	"sync"
	"sync/atomic"
	"time"
)

// LineAppender 是异步前端下游的落盘接口, *logsinkx.LogSinkX 满足它。
type LineAppender interface {
	AppendLine(text string)
}

// AsyncSink 是落盘器的异步前端。
// 多个生产者通过 AppendLine 无锁入队, 后台消费者串行下刷,
// 落盘器锁上的竞争被收敛为单消费者的顺序调用。
type AsyncSink struct {
	// sink 是下游落盘器
	sink LineAppender

	// queue 是生产者与消费者之间的无锁行队列
	queue *LineQueue

	// notify 用于在入队后唤醒消费者, 容量为 1, 信号可合并
	notify chan struct{}

	// closeChan 通知消费者退出
	closeChan chan struct{}

	// wg 等待消费者 goroutine 结束
	wg sync.WaitGroup

	// 配置参数
	enqueueWait time.Duration // 队列满时的最长等待时间
	idlePoll    time.Duration // 消费者空闲时的兜底轮询间隔

	// 状态标志
	closed atomic.Bool

	// dropped 统计因队列持续占满而被丢弃的行数
	dropped atomic.Int64
}

// AsyncSinkConfig 异步前端配置。
type AsyncSinkConfig struct {
	QueueSize   int           // 队列容量(行数), 默认 8192
	EnqueueWait time.Duration // 队列满时的最长等待时间, 默认 5ms, 超时丢弃
	IdlePoll    time.Duration // 消费者兜底轮询间隔, 默认 10ms
}

// DefaultAsyncSinkConfig 返回默认配置。
func DefaultAsyncSinkConfig() *AsyncSinkConfig {
	return &AsyncSinkConfig{
		QueueSize:   8192,
		EnqueueWait: 5 * time.Millisecond,
		IdlePoll:    10 * time.Millisecond,
	}
}

// NewAsyncSink 创建异步前端并启动后台消费者。
//
// 参数:
//   - sink: 下游落盘器(必需)
//   - config: 配置(可选, 为 nil 时使用默认值)
//
// 返回值:
//   - *AsyncSink: 新的异步前端实例
func NewAsyncSink(sink LineAppender, config *AsyncSinkConfig) *AsyncSink {
	if sink == nil {
		panic("lockfree: sink cannot be nil")
	}
	if config == nil {
		config = DefaultAsyncSinkConfig()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 8192
	}
	if config.EnqueueWait <= 0 {
		config.EnqueueWait = 5 * time.Millisecond
	}
	if config.IdlePoll <= 0 {
		config.IdlePoll = 10 * time.Millisecond
	}

	a := &AsyncSink{
		sink:        sink,
		queue:       NewLineQueue(config.QueueSize),
		notify:      make(chan struct{}, 1),
		closeChan:   make(chan struct{}),
		enqueueWait: config.EnqueueWait,
		idlePoll:    config.IdlePoll,
	}

	a.wg.Add(1)
	go a.drainLoop()
	return a
}

// AppendLine 把一行文本投入队列后立即返回。
// 队列在 EnqueueWait 内始终没有空位时该行被丢弃并计数;
// 前端已关闭时为空操作。
//
// 参数:
//   - text: 不含行尾换行符的成品日志行
func (a *AsyncSink) AppendLine(text string) {
	if a.closed.Load() {
		return
	}

	if err := a.queue.Enqueue(text, a.enqueueWait); err != nil {
		if err != ErrQueueClosed {
			a.dropped.Add(1)
		}
		return
	}

	// 唤醒消费者, 信号已挂起时合并
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Dropped 返回因队列持续占满而被丢弃的行数。
func (a *AsyncSink) Dropped() int64 {
	return a.dropped.Load()
}

// drainLoop 是后台消费者主循环: 被唤醒或轮询到期时清空队列,
// 收到关闭信号后做最后一次彻底清空再退出。
func (a *AsyncSink) drainLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.idlePoll)
	defer ticker.Stop()

	for {
		select {
		case <-a.notify:
			a.drainAll()
		case <-ticker.C:
			a.drainAll()
		case <-a.closeChan:
			// 关闭前清空残留的行
			a.drainAll()
			return
		}
	}
}

// drainAll 把队列中当前可见的行全部下刷。
func (a *AsyncSink) drainAll() {
	for {
		line, ok := a.queue.Dequeue()
		if !ok {
			return
		}
		a.sink.AppendLine(line)
	}
}

// Close 关闭异步前端: 拒绝新的入队, 等待消费者把残留的行
// 全部下刷后返回。重复调用为空操作。不关闭下游落盘器。
func (a *AsyncSink) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.queue.Close()
	close(a.closeChan)
	a.wg.Wait()
}
