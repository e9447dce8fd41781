/*
buffered_writer.go - 带缓冲的批量行写入器
把多条日志行攒进内存缓冲, 通过三重条件触发整批下刷,
减少底层落盘器的写入次数。
*/
package logsinkx

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// 编译时接口实现检查
var _ io.WriteCloser = (*BufferedLineWriter)(nil)

// BufferedLineWriter 带缓冲的批量行写入器。
// 可以包装任何 io.WriteCloser(通常是 *LogSinkX), 整批下刷时只产生
// 一次底层 Write 调用; 落盘器的估算器把整批当作一次大写入记账,
// 估算语义不受影响。
type BufferedLineWriter struct {
	wc     io.WriteCloser // 底层写入+关闭器(必需)
	buffer *bytes.Buffer  // 行缓冲区
	mutex  sync.Mutex     // 保护缓冲区和状态

	// 三重刷新条件
	maxBufferSize int           // 最大缓冲区大小(字节), 0 表示禁用该条件
	maxLineCount  int           // 最大缓冲行数, 0 表示禁用该条件
	flushInterval time.Duration // 刷新间隔, 0 表示禁用该条件

	// 状态跟踪
	lineCount int       // 当前缓冲的行数
	lastFlush time.Time // 上次刷新时间
	closed    bool      // 是否已关闭
}

// BufCfg 缓冲写入器配置
type BufCfg struct {
	MaxBufferSize int           // 最大缓冲区大小, 默认64KB (0 表示禁用缓冲区大小触发条件)
	MaxLineCount  int           // 最大缓冲行数, 默认500行 (0 表示禁用行数触发条件)
	FlushInterval time.Duration // 刷新间隔, 默认1秒 (0 表示禁用刷新间隔触发条件)
}

// DefBufCfg 返回默认缓冲写入器配置。
//
// 注意:
//   - 默认缓冲区大小为64KB, 最大缓冲行数为500行, 刷新间隔为1秒
func DefBufCfg() *BufCfg {
	return &BufCfg{
		MaxBufferSize: 64 * 1024,       // 64KB缓冲区
		MaxLineCount:  500,             // 500行
		FlushInterval: 1 * time.Second, // 1秒刷新间隔
	}
}

// NewBufferedLineWriter 创建新的带缓冲批量行写入器。
//
// 注意: 写入器不会在缓冲超龄时自动刷新, 刷新只发生在后续的
// AppendLine/Write 调用中; 需要定时刷新时应另起 goroutine 周期性
// 调用 Flush。
//
// 参数:
//   - wc: 底层写入+关闭器(必需)
//   - config: 配置(可选, 为 nil 时使用默认值)
//
// 返回值:
//   - *BufferedLineWriter: 新的带缓冲批量行写入器实例
func NewBufferedLineWriter(wc io.WriteCloser, config *BufCfg) *BufferedLineWriter {
	if wc == nil {
		panic("logsinkx: WriteCloser cannot be nil")
	}
	if config == nil {
		config = DefBufCfg()
	}

	// 严格校验: 非法值直接 panic, 快速失败
	if config.MaxBufferSize < 0 {
		panic("logsinkx: MaxBufferSize must be >= 0")
	}
	if config.MaxLineCount < 0 {
		panic("logsinkx: MaxLineCount must be >= 0")
	}
	if config.FlushInterval < 0 {
		panic("logsinkx: FlushInterval must be >= 0")
	}

	return &BufferedLineWriter{
		wc:            wc,
		buffer:        bytes.NewBuffer(make([]byte, 0, config.MaxBufferSize)),
		maxBufferSize: config.MaxBufferSize,
		maxLineCount:  config.MaxLineCount,
		flushInterval: config.FlushInterval,
		lastFlush:     time.Now(),
	}
}

// AppendLine 把一行文本追加到缓冲区, 行尾补一个换行符。
// 达到任一刷新条件时整批下刷。
//
// 参数:
//   - text: 不含行尾换行符的成品日志行
//
// 返回值:
//   - error: 写入器已关闭或下刷失败时返回错误
func (bw *BufferedLineWriter) AppendLine(text string) error {
	bw.mutex.Lock()
	defer bw.mutex.Unlock()

	if bw.closed {
		return io.ErrClosedPipe
	}

	bw.buffer.WriteString(text)
	bw.buffer.WriteByte('\n')
	bw.lineCount++

	return bw.flushIfNeeded()
}

// Write 实现 io.Writer 接口, 按原样缓冲字节, 不补换行符。
//
// 参数:
//   - p: 要写入的数据
//
// 返回值:
//   - n: 实际缓冲的字节数
//   - err: 写入器已关闭或下刷失败时返回错误
func (bw *BufferedLineWriter) Write(p []byte) (n int, err error) {
	bw.mutex.Lock()
	defer bw.mutex.Unlock()

	if bw.closed {
		return 0, io.ErrClosedPipe
	}

	n, _ = bw.buffer.Write(p)
	bw.lineCount++

	return n, bw.flushIfNeeded()
}

// flushIfNeeded 检查三重刷新条件, 满足任一条件时下刷。
// 必须在持有 mutex 时调用。
func (bw *BufferedLineWriter) flushIfNeeded() error {
	need := false
	if bw.maxBufferSize > 0 && bw.buffer.Len() >= bw.maxBufferSize {
		need = true
	}
	if bw.maxLineCount > 0 && bw.lineCount >= bw.maxLineCount {
		need = true
	}
	if bw.flushInterval > 0 && time.Since(bw.lastFlush) >= bw.flushInterval {
		need = true
	}

	if !need {
		return nil
	}
	return bw.flushLocked()
}

// flushLocked 把缓冲区整批写入底层写入器并重置状态。
// 必须在持有 mutex 时调用。
func (bw *BufferedLineWriter) flushLocked() error {
	if bw.buffer.Len() == 0 {
		bw.lastFlush = time.Now()
		return nil
	}

	_, err := bw.wc.Write(bw.buffer.Bytes())
	bw.buffer.Reset()
	bw.lineCount = 0
	bw.lastFlush = time.Now()
	return err
}

// Flush 手动把缓冲区下刷到底层写入器。
//
// 返回值:
//   - error: 写入器已关闭或下刷失败时返回错误
func (bw *BufferedLineWriter) Flush() error {
	bw.mutex.Lock()
	defer bw.mutex.Unlock()

	if bw.closed {
		return io.ErrClosedPipe
	}
	return bw.flushLocked()
}

// Close 下刷剩余数据并关闭底层写入器。重复调用为空操作。
func (bw *BufferedLineWriter) Close() error {
	bw.mutex.Lock()
	defer bw.mutex.Unlock()

	if bw.closed {
		return nil
	}
	bw.closed = true

	flushErr := bw.flushLocked()
	closeErr := bw.wc.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
