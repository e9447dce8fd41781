//go:build unix

// coordinate_unix.go 实现了基于 flock 的跨进程写入协调。
// 开启 UseExternalCoordination 时, 路径目标的每次写入步骤都裹在
// 日志目录下锁文件的排它锁内, 供多个进程共用同一日志路径的场景使用。

package logsinkx

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// acquireWriteCoordination 在指定目录的锁文件上获取排它锁。
//
// 参数:
//   - dir: 日志文件所在目录
//
// 返回值:
//   - func(): 释放锁并关闭锁文件的函数
//   - error: 获取失败时返回错误
func acquireWriteCoordination(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, coordLockName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err = unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
