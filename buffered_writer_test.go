// buffered_writer_test.go 包含了带缓冲批量行写入器的测试用例。
// 覆盖三重刷新条件、手动刷新、关闭语义和非法配置的快速失败。

package logsinkx

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestBufferedWriterHoldsUntilThreshold 验证未达到任何刷新条件时
// 数据只停留在缓冲区, 不触碰底层落盘器。
func TestBufferedWriterHoldsUntilThreshold(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, &BufCfg{
		MaxBufferSize: 1 << 20,
		MaxLineCount:  100,
		FlushInterval: time.Hour,
	})
	defer bw.Close()

	isNil(bw.AppendLine("buffered"), t)
	notExist(logPath, t)

	isNil(bw.Flush(), t)
	existsWithContent(logPath, []byte("buffered\n"), t)
}

// TestBufferedWriterFlushOnLineCount 验证行数达到上限触发整批下刷。
func TestBufferedWriterFlushOnLineCount(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, &BufCfg{
		MaxBufferSize: 1 << 20,
		MaxLineCount:  3,
		FlushInterval: time.Hour,
	})
	defer bw.Close()

	isNil(bw.AppendLine("one"), t)
	isNil(bw.AppendLine("two"), t)
	notExist(logPath, t)

	// 第三行触发下刷, 三行一次性落盘
	isNil(bw.AppendLine("three"), t)
	existsWithContent(logPath, []byte("one\ntwo\nthree\n"), t)
}

// TestBufferedWriterFlushOnSize 验证缓冲区字节数达到上限触发下刷。
func TestBufferedWriterFlushOnSize(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, &BufCfg{
		MaxBufferSize: 100,
		MaxLineCount:  1000,
		FlushInterval: time.Hour,
	})
	defer bw.Close()

	line := strings.Repeat("s", 60)
	isNil(bw.AppendLine(line), t)
	notExist(logPath, t)

	// 第二行使缓冲区超过 100 字节
	isNil(bw.AppendLine(line), t)
	equals(int64(2*(len(line)+1)), fileSize(logPath, t), t)
}

// TestBufferedWriterFlushOnInterval 验证距上次下刷超过间隔后,
// 下一次写入触发下刷。
func TestBufferedWriterFlushOnInterval(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, &BufCfg{
		MaxBufferSize: 1 << 20,
		MaxLineCount:  1000,
		FlushInterval: 10 * time.Millisecond,
	})
	defer bw.Close()

	isNil(bw.AppendLine("early"), t)
	time.Sleep(20 * time.Millisecond)

	// 间隔已过, 这次写入连同缓冲内容一起落盘
	isNil(bw.AppendLine("late"), t)
	existsWithContent(logPath, []byte("early\nlate\n"), t)
}

// TestBufferedWriterCloseFlushes 验证 Close 先下刷剩余数据再关闭
// 底层写入器, 重复关闭为空操作。
func TestBufferedWriterCloseFlushes(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, nil)

	isNil(bw.AppendLine("pending"), t)
	notExist(logPath, t)

	isNil(bw.Close(), t)
	existsWithContent(logPath, []byte("pending\n"), t)

	isNil(bw.Close(), t)
	notNil(bw.AppendLine("rejected"), t)
}

// TestBufferedWriterWriteRaw 验证 Write 按原样缓冲字节。
func TestBufferedWriterWriteRaw(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	s := New(logPath)
	bw := NewBufferedLineWriter(s, DefBufCfg())
	defer bw.Close()

	n, err := bw.Write([]byte("no newline"))
	isNil(err, t)
	equals(len("no newline"), n, t)

	isNil(bw.Flush(), t)
	existsWithContent(logPath, []byte("no newline"), t)
}

// TestBufferedWriterInvalidConfig 验证非法配置直接 panic。
func TestBufferedWriterInvalidConfig(t *testing.T) {
	defer func() {
		notNil(recover(), t)
	}()
	NewBufferedLineWriter(New(filepath.Join(t.TempDir(), "a.log")), &BufCfg{MaxBufferSize: -1})
}

// TestBufferedWriterNilSink 验证底层写入器为 nil 时直接 panic。
func TestBufferedWriterNilSink(t *testing.T) {
	defer func() {
		notNil(recover(), t)
	}()
	NewBufferedLineWriter(nil, nil)
}
