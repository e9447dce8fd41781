// gin_test.go 包含了与 gin 框架对接的功能测试。
// 验证 LogSinkX 作为 gin 访问日志的 io.Writer 后端时, 请求日志
// 逐行落盘并正常参与大小轮转。

package logsinkx

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestGinAccessLogLandsInFile 验证 gin 的访问日志通过 Write 适配
// 写入日志文件, 每个请求一行。
func TestGinAccessLogLandsInFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")

	s := New(logPath)
	defer s.Close()

	router := gin.New()
	router.Use(gin.LoggerWithWriter(s))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		equals(http.StatusOK, w.Code, t)
	}

	data, err := os.ReadFile(logPath)
	isNil(err, t)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	equals(3, len(lines), t)
	for _, line := range lines {
		assert(strings.Contains(line, "/ping"), t, "访问日志缺少请求路径: %s", line)
		assert(strings.Contains(line, "200"), t, "访问日志缺少状态码: %s", line)
	}
}

// TestGinAccessLogRotates 验证访问日志写满后照常轮转出编号备份。
func TestGinAccessLogRotates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")

	s := New(logPath)
	s.MaxFileSize = 512
	s.BackupCount = 2
	defer s.Close()

	router := gin.New()
	router.Use(gin.LoggerWithWriter(s))
	router.GET("/busy", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 200; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/busy", nil))
	}

	exists(backupSlotName(logPath, 1), t)
	exists(logPath, t)
	fileCount(dir, 2, t)
}
