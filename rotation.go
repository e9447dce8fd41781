// rotation.go 实现了logsinkx包的大小核对与轮转核心逻辑。
// 该文件包含真实大小核对的触发、编号备份的重命名链、句柄目标的
// 原地截断以及最新备份的可选压缩。轮转过程中的任何 I/O 失败都只
// 上报诊断信息, 不会中断写入路径。

package logsinkx

import (
	"os"

	"gitee.com/MM-Q/comprx"
	"gitee.com/MM-Q/comprx/types"
)

// checkActualSize 对目标执行一次真实大小核对: 统计磁盘大小,
// 超限时执行轮转或截断, 最后用核对后的真实大小校准估算器。
// 必须在目标锁内调用。
//
// 统计失败时估算器保持原样不动: checksRemaining 已经递减到非正值,
// 后续每次写入都会重试核对, 直到统计成功为止。
func (s *LogSinkX) checkActualSize(t *rotateTarget) {
	actual, ok := s.statTarget(t)
	if !ok {
		return
	}

	maxSize := s.maxFileSize()
	if actual > maxSize {
		switch t.kind {
		case targetHandle:
			// 句柄目标没有路径可供重命名, 原地截断为零长度,
			// 截断后句柄保持打开且可继续写入
			if s.truncateHandle(t) {
				actual = 0
			}
		case targetPath:
			// 备份数为 1 时关闭轮转, 活动文件持续增长
			if s.backupCount() > 1 && s.rotateNumbered(t) {
				// 活动文件已被移走, 下一次写入惰性创建新文件
				actual = 0
			}
		}
	}

	t.est.reconcile(actual, maxSize)
}

// statTarget 获取目标的真实磁盘大小。
// 路径目标统计路径本身(路径可能被外部轮转, 不统计已打开的句柄);
// 路径不存在视作大小为 0。
//
// 返回值:
//   - int64: 真实大小(字节)
//   - bool: false 表示统计失败, 本次核对放弃
func (s *LogSinkX) statTarget(t *rotateTarget) (int64, bool) {
	switch t.kind {
	case targetHandle:
		info, err := t.handle.Stat()
		if err != nil {
			warnf("unable to stat log handle: %v", err)
			return 0, false
		}
		return info.Size(), true
	default:
		info, err := os.Stat(t.path)
		if os.IsNotExist(err) {
			return 0, true
		}
		if err != nil {
			warnf("unable to stat log file %s: %v", t.path, err)
			return 0, false
		}
		return info.Size(), true
	}
}

// rotateNumbered 执行编号备份的轮转: 将备份链整体后移一位,
// 删除最旧的备份, 再把活动文件重命名为 1 号备份。
//
// 备份从 1(最新)编号到 backupCount-1(最旧), 索引插入在扩展名
// 之前: app.log 的 2 号备份是 app.2.log。链条从最旧槽位向最新
// 槽位迭代: 最旧槽位上的文件被删除, 其余存在的备份重命名到下一个
// 槽位。活动文件此前已被关闭, 新的活动文件由下一次写入惰性创建。
//
// 任何一步失败都上报诊断并就地终止, 不向上抛错: 轮转失败时超限的
// 活动文件继续接收写入, 等待下一次核对重试。
//
// 返回值:
//   - bool: true 表示活动文件已成功移出原路径
func (s *LogSinkX) rotateNumbered(t *rotateTarget) bool {
	// 先关闭活动文件, 重命名在 Windows 上要求文件未被打开
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			warnf("failed to close log file before rotation: %v", err)
		}
		t.file = nil
	}

	name := t.path
	count := s.backupCount()

	// 压缩后缀只在启用压缩时参与槽位匹配
	var czExt string
	if s.Compress {
		czExt = compressExt(s.compressType())
	}

	// 从最旧槽位向最新槽位迭代: 最旧的删除, 其余后移一位
	for index := count - 1; index >= 1; index-- {
		src, packed := existingBackupSlot(name, index, czExt)
		if src == "" {
			continue
		}

		if index == count-1 {
			// 最旧槽位: 删除
			if err := os.Remove(src); err != nil {
				warnf("failed to remove oldest backup %s: %v", src, err)
				return false
			}
			continue
		}

		// 其余槽位: 后移一位, 保持压缩形态不变
		dst := backupSlotName(name, index+1)
		if packed {
			dst += czExt
		}
		if err := os.Rename(src, dst); err != nil {
			warnf("failed to shift backup %s: %v", src, err)
			return false
		}
	}

	// 活动文件进入 1 号槽位
	newest := backupSlotName(name, 1)
	if err := os.Rename(name, newest); err != nil {
		warnf("failed to rename log file %s: %v", name, err)
		return false
	}

	// 可选压缩最新备份; 压缩失败时保留未压缩形态, 链条两种形态都认
	if s.Compress {
		s.compressBackup(newest, newest+czExt)
	}

	return true
}

// compressBackup 将刚产生的备份文件压缩并删除原文件。
// 压缩在目标锁内同步执行: 重命名链要求每个槽位的形态稳定,
// 异步压缩会与下一次链条迭代竞争。
//
// 参数:
//   - src: 未压缩的备份文件路径
//   - dst: 压缩产物路径
func (s *LogSinkX) compressBackup(src, dst string) {
	opts := comprx.Options{
		CompressionLevel:      types.CompressionLevelDefault, // 默认压缩级别
		OverwriteExisting:     true,                          // 覆盖上次失败残留的压缩文件
		ProgressEnabled:       false,                         // 不显示进度条
		ProgressStyle:         types.ProgressStyleDefault,    // 默认进度条样式
		DisablePathValidation: false,                         // 保持路径验证
	}

	if err := comprx.PackOptions(dst, src, opts); err != nil {
		warnf("failed to compress backup %s: %v", src, err)
		return // 压缩失败就跳过, 保留原文件
	}

	if err := os.Remove(src); err != nil {
		warnf("failed to delete original backup %s: %v", src, err)
	}
}

// truncateHandle 将句柄目标的内容原地截断为零长度。
// 截断后把写入偏移拨回文件头: 句柄不一定以追加模式打开,
// 不回拨会在文件开头留下空洞。
//
// 返回值:
//   - bool: true 表示截断成功
func (s *LogSinkX) truncateHandle(t *rotateTarget) bool {
	if err := t.handle.Truncate(0); err != nil {
		warnf("failed to truncate log handle: %v", err)
		return false
	}
	if _, err := t.handle.Seek(0, 0); err != nil {
		warnf("failed to rewind log handle after truncation: %v", err)
		return false
	}
	return true
}
