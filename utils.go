// utils.go 提供了日志路径的安全校验。
// 日志路径通常来自配置文件或环境变量, 落盘前做一轮防御性检查,
// 拦截路径遍历、编码绕过和超长路径等明显不安全的输入。

package logsinkx

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// maxPathLength 是日志路径的长度上限(字符)。
	maxPathLength = 4096

	// maxPathDepth 是日志路径的目录深度上限。
	maxPathDepth = 20
)

// validateLogPath 校验配置的日志文件路径是否可以安全使用。
//
// 检查项:
//  1. 路径非空且不含空字节、控制字符
//  2. 清理后不残留 ".." 路径遍历元素
//  3. 不含 URL 编码字符(防止编码绕过)
//  4. 长度和目录深度在限制内
//  5. 路径不以分隔符结尾(必须指向文件而不是目录)
//
// 参数:
//   - path: 待校验的日志文件路径
//
// 返回值:
//   - error: 路径不安全时返回具体原因
func validateLogPath(path string) error {
	if path == "" {
		return fmt.Errorf("logsinkx: log path is empty")
	}

	for _, r := range path {
		if r == 0 || r < 0x20 {
			return fmt.Errorf("logsinkx: log path contains control character: %q", path)
		}
	}

	if strings.Contains(path, "%") {
		return fmt.Errorf("logsinkx: log path contains URL-encoded characters: %s", path)
	}

	cleanPath := filepath.Clean(path)

	// Clean 之后仍然残留的 ".." 会逃出预期目录
	for _, elem := range strings.Split(cleanPath, string(filepath.Separator)) {
		if elem == ".." {
			return fmt.Errorf("logsinkx: log path escapes its base directory: %s", path)
		}
	}

	if len(cleanPath) > maxPathLength {
		return fmt.Errorf("logsinkx: log path exceeds %d characters: %d", maxPathLength, len(cleanPath))
	}

	if strings.Count(cleanPath, string(filepath.Separator)) > maxPathDepth {
		return fmt.Errorf("logsinkx: log path exceeds %d directory levels", maxPathDepth)
	}

	if strings.HasSuffix(path, string(filepath.Separator)) {
		return fmt.Errorf("logsinkx: log path must name a file, not a directory: %s", path)
	}

	return nil
}
