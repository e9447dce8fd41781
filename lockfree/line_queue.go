// Package lockfree 提供高并发日志生产场景下的无锁组件。
// 多个生产者 goroutine 可以在不竞争落盘器互斥锁的情况下把成品
// 日志行投入队列, 由单个后台消费者统一下刷到落盘器。
package lockfree

import (
	"errors"
	"sync/atomic"
	"time"
)

// LineQueue 是有界的多生产者/单消费者无锁行队列。
// 每个槽位携带一个序号, 生产者通过 CAS 认领写入位置, 序号的推进
// 同时充当数据可见性的发布屏障。容量固定为 2 的幂次方, 便于用
// 位运算取模。
//
// 注意: Dequeue 只允许单个消费者调用, 多个消费者会破坏序号推进。
type LineQueue struct {
	// slots 是槽位数组, 每个槽位一条日志行
	slots []queueSlot

	// mask 等于 len(slots)-1, 用于快速取模
	mask uint64

	// head 是生产者的写入位置
	head atomic.Uint64

	// tail 是消费者的读取位置, 只由单消费者推进
	tail atomic.Uint64

	// closed 标记队列是否已关闭, 关闭后拒绝新的入队
	closed atomic.Bool
}

// queueSlot 是队列中的单个槽位。
type queueSlot struct {
	// seq 是槽位序号: 等于写入位置时可写, 等于写入位置+1时可读
	seq atomic.Uint64

	// line 是槽位承载的日志行
	line string
}

// ErrQueueClosed 表示队列已关闭, 不再接受新的入队。
var ErrQueueClosed = errors.New("lockfree: line queue is closed")

// ErrEnqueueTimeout 表示在限定时间内队列始终没有空位。
var ErrEnqueueTimeout = errors.New("lockfree: enqueue timeout")

// NewLineQueue 创建一个新的行队列。
// capacity 必须是 2 的幂次方, 否则自动向上调整; 最小 64。
//
// 参数:
//   - capacity: 队列容量(行数)
//
// 返回值:
//   - *LineQueue: 新的行队列实例
func NewLineQueue(capacity int) *LineQueue {
	if capacity < 64 {
		capacity = 64
	}
	if capacity&(capacity-1) != 0 {
		capacity = nextPowerOfTwo(capacity)
	}

	q := &LineQueue{
		slots: make([]queueSlot, capacity),
		mask:  uint64(capacity) - 1,
	}
	// 初始序号等于槽位下标, 表示全部可写
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// nextPowerOfTwo 计算大于等于n的最小2的幂次方。
func nextPowerOfTwo(n int) int {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

// Cap 返回队列容量。
func (q *LineQueue) Cap() int {
	return len(q.slots)
}

// Len 返回当前排队的行数(近似值, 并发下仅供观测)。
func (q *LineQueue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	return int(head - tail)
}

// IsEmpty 检查队列是否为空。
func (q *LineQueue) IsEmpty() bool {
	return q.Len() <= 0
}

// Close 关闭队列, 此后的入队操作全部失败。
// 已入队的行仍可被消费者取走。
func (q *LineQueue) Close() {
	q.closed.Store(true)
}

// IsClosed 检查队列是否已关闭。
func (q *LineQueue) IsClosed() bool {
	return q.closed.Load()
}

// TryEnqueue 尝试入队一行, 立即返回, 不会阻塞。
//
// 参数:
//   - line: 要入队的日志行
//
// 返回值:
//   - error: nil 表示成功; 队列已满或已关闭时返回相应错误
func (q *LineQueue) TryEnqueue(line string) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	pos := q.head.Load()
	for {
		slot := &q.slots[pos&q.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			// 槽位可写, 尝试认领写入位置
			if q.head.CompareAndSwap(pos, pos+1) {
				slot.line = line
				// 序号推进发布数据, 消费者据此判定可读
				slot.seq.Store(pos + 1)
				return nil
			}
			// CAS 失败, 重新加载位置重试
			pos = q.head.Load()
		case diff < 0:
			// 槽位还未被消费者腾出, 队列已满
			return errors.New("lockfree: line queue is full")
		default:
			// 其他生产者已经越过该位置, 追上最新位置
			pos = q.head.Load()
		}
	}
}

// Enqueue 带超时的入队操作。
// 队列满时短暂休眠后重试, 超时则返回错误。
//
// 参数:
//   - line: 要入队的日志行
//   - timeout: 最长等待时间
//
// 返回值:
//   - error: nil 表示成功
func (q *LineQueue) Enqueue(line string, timeout time.Duration) error {
	startTime := time.Now()

	for {
		err := q.TryEnqueue(line)
		if err == nil || errors.Is(err, ErrQueueClosed) {
			return err
		}

		if time.Since(startTime) > timeout {
			return ErrEnqueueTimeout
		}

		// 短暂休眠后重试
		time.Sleep(10 * time.Microsecond)
	}
}

// Dequeue 取出队首的一行。只允许单个消费者调用。
//
// 返回值:
//   - string: 取出的日志行
//   - bool: false 表示队列当前为空
func (q *LineQueue) Dequeue() (string, bool) {
	pos := q.tail.Load()
	slot := &q.slots[pos&q.mask]
	seq := slot.seq.Load()

	// 序号未推进到 pos+1 说明该槽位还没有被生产者发布
	if int64(seq)-int64(pos+1) < 0 {
		return "", false
	}

	line := slot.line
	slot.line = ""
	// 腾出槽位: 序号跳到下一圈的可写值
	slot.seq.Store(pos + uint64(len(q.slots)))
	q.tail.Store(pos + 1)
	return line, true
}
