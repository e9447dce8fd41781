// internal.go 包含了logsinkx包的内部实现细节和辅助函数。
// 该文件提供了默认值常量、轮转目标模型、备份文件命名
// 和诊断输出等支持核心功能的内部工具, 不对外暴露接口。

package logsinkx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitee.com/MM-Q/comprx"
)

const (
	// defaultMaxFileSize 是日志文件的默认大小上限(字节), 5 MiB。
	defaultMaxFileSize = 5 * 1024 * 1024

	// defaultBackupCount 是默认的备份槽位数量。
	// 1 表示关闭轮转: 只有一个持续增长的活动文件, 不保留备份。
	defaultBackupCount = 1

	// defaultLogSuffix 是默认日志文件的后缀名。
	defaultLogSuffix = "_logsinkx.log"

	// defaultFilePerm 是日志文件的默认权限模式。
	defaultFilePerm = 0600

	// defaultDirPerm 是日志目录的默认权限模式。
	defaultDirPerm = 0700

	// coordLockName 是启用跨进程协调时使用的锁文件名。
	coordLockName = ".logsinkx.lock"
)

// warnf 是包级诊断输出钩子。写入路径上的瞬时 I/O 失败(统计、
// 重命名、删除、写入、截断)都通过它上报, 不会向调用方抛出——
// 日志记录永远不能弄崩宿主程序。测试可替换该变量捕获诊断输出。
var warnf = func(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "logsinkx: "+format+"\n", v...)
}

// targetKind 标识轮转目标的类型。
type targetKind int

const (
	// targetPath 表示基于文件路径的目标, 超限时执行重命名链轮转。
	targetPath targetKind = iota

	// targetHandle 表示基于已打开句柄的目标, 无法重命名, 超限时原地截断。
	targetHandle
)

// rotateTarget 是单个轮转目标: 一把锁加一个估算器, 再加目标本体。
// 路径目标和句柄目标的大小跟踪相互独立(句柄可以在路径被外部轮转时
// 保持打开, 反之亦然), 因此各自持有独立的估算器和锁。
type rotateTarget struct {
	kind targetKind

	// mu 串行化对该目标的全部写入、核对与轮转。
	mu xMutex

	// est 是该目标的增长估算器, 只在 mu 保护下访问。
	est *growthEstimator

	// path 是路径目标的日志文件完整路径。
	path string

	// file 是路径目标惰性打开的文件句柄; 轮转之后置为 nil,
	// 新的活动文件由下一次写入惰性创建。
	file *os.File

	// handle 是句柄目标的文件句柄, 由调用方持有和关闭。
	handle *os.File
}

// getDefaultLogFilePath 生成默认的日志文件路径。
//
// 返回值:
//   - string: 系统临时目录下"程序名_logsinkx.log"的完整路径
func getDefaultLogFilePath() string {
	progName := filepath.Base(os.Args[0])
	if progName == "" || progName == "." || progName == "/" {
		progName = "logsinkx"
	}
	return filepath.Join(os.TempDir(), progName+defaultLogSuffix)
}

// backupSlotName 根据原始文件名和备份索引生成备份文件名。
// 索引插入在扩展名之前: app.log 加索引 2 得到 app.2.log;
// 无扩展名时直接追加: app 加索引 2 得到 app.2。
//
// 参数:
//   - name: 活动日志文件的完整路径
//   - index: 备份槽位索引, 1 为最新备份
//
// 返回值:
//   - string: 备份文件的完整路径
func backupSlotName(name string, index int) string {
	dir := filepath.Dir(name)
	filename := filepath.Base(name)

	// 一次性解析文件名各部分, 与扩展名解析保持一致的规则
	lastDot := strings.LastIndex(filename, ".")
	var prefix, ext string

	switch lastDot {
	case -1:
		// 没有扩展名
		prefix = filename
		ext = ""
	case 0:
		// 以点号开头的文件(如 .gitignore), 整体视作前缀
		prefix = filename
		ext = ""
	default:
		prefix = filename[:lastDot]
		ext = filename[lastDot:]
	}

	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", prefix, index, ext))
}

// compressExt 返回指定压缩类型对应的备份文件后缀, 如 ".zip"。
func compressExt(ct comprx.CompressType) string {
	return "." + ct.String()
}

// existingBackupSlot 返回指定备份槽位上实际存在的文件路径。
// 先检查未压缩形态, 再检查压缩形态; 都不存在时返回空串。
//
// 参数:
//   - name: 活动日志文件的完整路径
//   - index: 备份槽位索引
//   - czExt: 压缩后缀(含点号), 未启用压缩时为空串
//
// 返回值:
//   - string: 槽位上存在的文件路径, 不存在时为空串
//   - bool: 该文件是否为压缩形态
func existingBackupSlot(name string, index int, czExt string) (string, bool) {
	plain := backupSlotName(name, index)
	if _, err := os.Stat(plain); err == nil {
		return plain, false
	}
	if czExt != "" {
		packed := plain + czExt
		if _, err := os.Stat(packed); err == nil {
			return packed, true
		}
	}
	return "", false
}
