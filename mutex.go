// mutex.go 提供了轮转目标使用的互斥锁封装。

package logsinkx

import "sync"

// xMutex 是 sync.Mutex 的薄封装, 为目标锁提供统一的获取、尝试获取
// 和带回调的加锁形式。锁不可重入, 已持锁的调用方不得再次获取。
type xMutex struct {
	mu sync.Mutex
}

// acquire 阻塞获取锁。
func (m *xMutex) acquire() {
	m.mu.Lock()
}

// release 释放锁。
func (m *xMutex) release() {
	m.mu.Unlock()
}

// tryAcquire 尝试获取锁, 不阻塞。
//
// 返回值:
//   - bool: true 表示获取成功, 调用方负责 release
func (m *xMutex) tryAcquire() bool {
	return m.mu.TryLock()
}

// withLock 在锁内执行回调, 回调返回后无论成败都释放锁。
//
// 参数:
//   - fn: 在锁保护下执行的回调
//
// 返回值:
//   - error: 回调的返回值原样透传
func (m *xMutex) withLock(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}
