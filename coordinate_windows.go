//go:build !unix

// coordinate_windows.go 是非 Unix 平台上的跨进程协调占位实现。
// 这些平台没有 flock 语义, UseExternalCoordination 退化为空操作,
// 写入仍由进程内的目标锁串行化。

package logsinkx

// acquireWriteCoordination 在不支持 flock 的平台上为空操作。
func acquireWriteCoordination(dir string) (func(), error) {
	_ = dir
	return func() {}, nil
}
