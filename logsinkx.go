// logsinkx 是日志记录栈底层的一个可插拔落盘组件: 把格式化好的
// 文本行追加到磁盘文件, 按大小自动轮转出一组有界的编号备份,
// 支持任意多个 goroutine 并发写入。
//
// logsinkx 不负责日志级别、着色或时间戳格式化——上层把一条已经
// 编码为 UTF-8 的成品日志行交给 AppendLine, 其余由本包处理。
//
// 为了避免每次写入都执行一次昂贵的 os.Stat, logsinkx 用每次写入的
// 字节数维护一个内存中的大小估值, 并根据观测到的增长速度自适应地
// 推算下一次真实核对的时机: 增长越慢, 核对越稀疏; 估算连续失准时
// 自动缩短核对间隔。文件确认超限后, 路径目标执行编号备份轮转
// (app.log -> app.1.log -> app.2.log, 最旧的删除), 句柄目标原地
// 截断为零长度。
//
// logsinkx 假定只有一个进程向同一个输出文件写入; 需要跨进程共用
// 同一路径时, 可开启 UseExternalCoordination 用文件锁包住写入步骤。
package logsinkx

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gitee.com/MM-Q/comprx"
)

// LogSinkX 同时实现了 io.WriteCloser, 可以直接接到标准库 log 包
// 或任何写 io.Writer 的日志库后面。
var _ io.WriteCloser = (*LogSinkX)(nil)

// LogSinkX 是一个按大小轮转的日志落盘器。
//
// 写入目标可以是文件路径、已打开的文件句柄, 或两者兼有; 每个目标
// 持有独立的增长估算器和互斥锁, 大小跟踪互不影响。首次写入时惰性
// 初始化: 打开或创建日志文件, 并强制执行一次真实大小核对, 以磁盘
// 上的实际状态重建内存估值。
//
// 所有公开方法都可以被任意多个 goroutine 并发调用。
type LogSinkX struct {
	// LogFilePath 是写入日志的文件路径, 备份文件保留在同一目录。
	// 为空且未提供 FileHandle 时, 使用临时目录下的 程序名_logsinkx.log。
	LogFilePath string `json:"logfilepath" yaml:"logfilepath"`

	// FileHandle 是可选的已打开可写句柄目标。句柄由调用方持有,
	// Close 不会关闭它。句柄目标超限时原地截断而不是轮转。
	FileHandle *os.File `json:"-" yaml:"-"`

	// MaxFileSize 是单个日志文件的大小上限(字节)。默认 5 MiB。
	MaxFileSize int64 `json:"maxfilesize" yaml:"maxfilesize"`

	// BackupCount 是文件总槽位数(活动文件加备份), 最小为 1。
	// 1 表示关闭轮转: 路径目标的活动文件持续增长, 不保留备份。
	// N > 1 时保留 1 到 N-1 号备份, 1 号最新, N-1 号最旧。
	BackupCount int `json:"backupcount" yaml:"backupcount"`

	// SyncEachWrite 决定是否在每次写入后把数据刷到稳定存储。
	SyncEachWrite bool `json:"synceachwrite" yaml:"synceachwrite"`

	// UseExternalCoordination 决定路径目标的写入是否用跨进程文件锁
	// 包住, 供多个进程共用同一日志路径的场景使用。默认关闭。
	UseExternalCoordination bool `json:"useexternalcoordination" yaml:"useexternalcoordination"`

	// Compress 决定轮转出的最新备份是否压缩。默认不压缩。
	Compress bool `json:"compress" yaml:"compress"`

	// CompressType 是备份压缩格式, 零值时使用 zip。
	CompressType comprx.CompressType `json:"compresstype" yaml:"compresstype"`

	// FilePerm 是惰性创建日志文件时使用的权限, 零值时为 0600。
	FilePerm os.FileMode `json:"fileperm" yaml:"fileperm"`

	// once 保证目标初始化只执行一次。
	once sync.Once

	// pathTgt 和 handleTgt 是两个相互独立的轮转目标, 按配置惰性创建。
	pathTgt   *rotateTarget
	handleTgt *rotateTarget

	// closed 标记落盘器是否已关闭。
	closed atomic.Bool
}

// New 创建一个写入指定路径的落盘器, 其余配置通过字段设置。
//
// 参数:
//   - path: 日志文件路径
//
// 返回值:
//   - *LogSinkX: 新的落盘器实例
func New(path string) *LogSinkX {
	return &LogSinkX{LogFilePath: path}
}

// NewWithHandle 创建一个写入已打开句柄的落盘器。
// 句柄由调用方持有和关闭; 超限时内容被原地截断, 句柄保持有效。
//
// 参数:
//   - handle: 已打开的可写文件句柄
//
// 返回值:
//   - *LogSinkX: 新的落盘器实例
func NewWithHandle(handle *os.File) *LogSinkX {
	return &LogSinkX{FileHandle: handle}
}

// Default 创建一个全默认配置的落盘器, 写入临时目录下的默认日志文件。
func Default() *LogSinkX {
	return &LogSinkX{}
}

// initTargets 惰性构建轮转目标并夹紧配置, 只执行一次。
func (s *LogSinkX) initTargets() {
	s.once.Do(func() {
		// 防御性夹紧: 配置合法性是调用方责任, 这里只兜底
		if s.MaxFileSize < 1 {
			s.MaxFileSize = defaultMaxFileSize
		}
		if s.BackupCount < 1 {
			s.BackupCount = defaultBackupCount
		}
		if s.FilePerm == 0 {
			s.FilePerm = os.FileMode(defaultFilePerm)
		}
		if s.CompressType.String() == "" {
			s.CompressType = comprx.CompressTypeZip
		}

		if s.FileHandle != nil {
			s.handleTgt = &rotateTarget{
				kind:   targetHandle,
				est:    newGrowthEstimator(),
				handle: s.FileHandle,
			}
		}

		// 没有任何目标时回落到默认路径, 保证落盘器总是可用
		if s.LogFilePath != "" || s.FileHandle == nil {
			path := s.LogFilePath
			if path != "" {
				if err := validateLogPath(path); err != nil {
					// 不安全的路径不会弄崩宿主, 回落到默认路径
					warnf("invalid log path, falling back to default: %v", err)
					path = ""
				}
			}
			if path == "" {
				path = getDefaultLogFilePath()
			}
			s.LogFilePath = filepath.Clean(path)
			s.pathTgt = &rotateTarget{
				kind: targetPath,
				est:  newGrowthEstimator(),
				path: s.LogFilePath,
			}
		}
	})
}

// targets 返回固定顺序的目标列表, 锁的获取顺序以此为准。
func (s *LogSinkX) targets() []*rotateTarget {
	s.initTargets()
	tgts := make([]*rotateTarget, 0, 2)
	if s.pathTgt != nil {
		tgts = append(tgts, s.pathTgt)
	}
	if s.handleTgt != nil {
		tgts = append(tgts, s.handleTgt)
	}
	return tgts
}

// AppendLine 把一行文本追加到所有目标, 行尾补一个换行符。
//
// 每个目标在自己的锁内依次完成: 记录本次写入的估计字节数
// (文本的 UTF-8 长度加 1 个换行符)、消耗一次核对倒数、必要时
// 执行真实核对与轮转, 最后写入字节。写入失败只上报诊断信息,
// 永远不会抛给调用方。
//
// 参数:
//   - text: 不含行尾换行符的成品日志行
func (s *LogSinkX) AppendLine(text string) {
	if s.closed.Load() {
		return
	}

	data := make([]byte, 0, len(text)+1)
	data = append(data, text...)
	data = append(data, '\n')

	s.appendBytes(data, int64(len(data)))
}

// Write 实现 io.Writer 接口, 按原样追加字节, 不补换行符。
// 与 AppendLine 走同一条估算、核对与轮转路径。
//
// 遵循"日志不弄崩宿主"的约定, 写入失败不会反映在返回值上;
// 只有落盘器已关闭时返回 io.ErrClosedPipe。
func (s *LogSinkX) Write(p []byte) (n int, err error) {
	if s.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	s.appendBytes(p, int64(len(p)))
	return len(p), nil
}

// appendBytes 把一段字节依次写入每个目标。
func (s *LogSinkX) appendBytes(data []byte, estimatedBytes int64) {
	for _, t := range s.targets() {
		_ = t.mu.withLock(func() error {
			t.est.recordWrite(estimatedBytes)
			if t.est.shouldCheck() {
				s.checkActualSize(t)
			}
			s.writeToTarget(t, data)
			return nil
		})
	}
}

// writeToTarget 在目标锁内执行实际的字节写入。
// 路径目标在此惰性创建文件和父目录; 创建失败时本次写入被静默丢弃,
// 只上报诊断信息。
func (s *LogSinkX) writeToTarget(t *rotateTarget, data []byte) {
	if t.kind == targetHandle {
		if _, err := t.handle.Write(data); err != nil {
			warnf("failed to write to log handle: %v", err)
			return
		}
		if s.SyncEachWrite {
			if err := t.handle.Sync(); err != nil {
				warnf("failed to sync log handle: %v", err)
			}
		}
		return
	}

	// 路径目标: 惰性打开或创建活动文件
	if t.file == nil {
		if err := s.openPathFile(t); err != nil {
			warnf("dropping log write: %v", err)
			return
		}
	}

	// 跨进程协调: 写入步骤整体裹在文件锁内
	var release func()
	if s.UseExternalCoordination {
		var err error
		release, err = acquireWriteCoordination(filepath.Dir(t.path))
		if err != nil {
			warnf("failed to acquire write coordination lock: %v", err)
			release = nil
		}
	}

	if _, err := t.file.Write(data); err != nil {
		warnf("failed to write to log file %s: %v", t.path, err)
	} else if s.SyncEachWrite {
		if err := t.file.Sync(); err != nil {
			warnf("failed to sync log file %s: %v", t.path, err)
		}
	}

	if release != nil {
		release()
	}
}

// openPathFile 打开或创建路径目标的活动文件, 以追加模式写入。
// 父目录不存在时一并创建。
func (s *LogSinkX) openPathFile(t *rotateTarget) error {
	if err := os.MkdirAll(filepath.Dir(t.path), defaultDirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.FilePerm)
	if err != nil {
		return err
	}
	t.file = f
	return nil
}

// DeleteLogFile 删除路径目标的活动日志文件。
// 删除成功或文件本就不存在时返回 true, I/O 失败时返回 false。
// 删除后估算器的大小基准归零, 下一次写入重新惰性建档。
//
// 返回值:
//   - bool: 是否已确认文件不存在
func (s *LogSinkX) DeleteLogFile() bool {
	s.initTargets()
	if s.pathTgt == nil {
		return true
	}

	t := s.pathTgt
	removed := false
	_ = t.mu.withLock(func() error {
		if t.file != nil {
			if err := t.file.Close(); err != nil {
				warnf("failed to close log file before delete: %v", err)
			}
			t.file = nil
		}

		err := os.Remove(t.path)
		if err != nil && !os.IsNotExist(err) {
			warnf("failed to delete log file %s: %v", t.path, err)
			return nil
		}

		// 外部真实值已经消失, 大小基准跟着归零
		t.est.estimatedSize = 0
		t.est.lastActualSize = 0
		removed = true
		return nil
	})
	return removed
}

// ResetRotationState 重置所有目标的估算器校准状态。
// 直接修改 MaxFileSize 或 BackupCount 字段之后必须调用本方法,
// 避免旧配置下推算的核对间隔泄漏到新配置; 使用 SetMaxFileSize /
// SetBackupCount 时无需额外调用。
func (s *LogSinkX) ResetRotationState() {
	for _, t := range s.targets() {
		_ = t.mu.withLock(func() error {
			t.est.reset()
			return nil
		})
	}
}

// SetMaxFileSize 修改文件大小上限并重置估算器。
// 重置是显式步骤: 新上限下旧的核对间隔不再可信。
//
// 参数:
//   - maxSize: 新的大小上限(字节), 小于 1 时回落到默认值
func (s *LogSinkX) SetMaxFileSize(maxSize int64) {
	if maxSize < 1 {
		maxSize = defaultMaxFileSize
	}
	tgts := s.targets()
	for _, t := range tgts {
		t.mu.acquire()
	}
	s.MaxFileSize = maxSize
	for _, t := range tgts {
		t.est.reset()
	}
	for _, t := range tgts {
		t.mu.release()
	}
}

// SetBackupCount 修改备份槽位数量并重置估算器。
//
// 参数:
//   - count: 新的槽位总数, 小于 1 时夹紧为 1(关闭轮转)
func (s *LogSinkX) SetBackupCount(count int) {
	if count < 1 {
		count = 1
	}
	tgts := s.targets()
	for _, t := range tgts {
		t.mu.acquire()
	}
	s.BackupCount = count
	for _, t := range tgts {
		t.est.reset()
	}
	for _, t := range tgts {
		t.mu.release()
	}
}

// Close 关闭落盘器。路径目标的文件句柄被关闭; FileHandle 由调用方
// 持有, 不在此关闭。关闭后的写入调用为空操作。
func (s *LogSinkX) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	var closeErr error
	if s.pathTgt != nil {
		t := s.pathTgt
		_ = t.mu.withLock(func() error {
			if t.file != nil {
				closeErr = t.file.Close()
				t.file = nil
			}
			return nil
		})
	}
	return closeErr
}

// maxFileSize 返回当前生效的文件大小上限, 带防御性兜底。
func (s *LogSinkX) maxFileSize() int64 {
	if s.MaxFileSize < 1 {
		return defaultMaxFileSize
	}
	return s.MaxFileSize
}

// backupCount 返回当前生效的备份槽位数量, 最小为 1。
func (s *LogSinkX) backupCount() int {
	if s.BackupCount < 1 {
		return 1
	}
	return s.BackupCount
}

// compressType 返回当前生效的压缩格式, 零值回落到 zip。
func (s *LogSinkX) compressType() comprx.CompressType {
	if s.CompressType.String() == "" {
		return comprx.CompressTypeZip
	}
	return s.CompressType
}
