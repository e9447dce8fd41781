// testing_test.go 提供了logsinkx包测试用的断言辅助函数。

package logsinkx

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

// assert 函数用于在条件为 false 时记录给定的消息。
func assert(condition bool, t testing.TB, msg string, v ...interface{}) {
	assertUp(condition, t, 1, msg, v...)
}

// assertUp 函数与 assert 类似, 但用于辅助函数内部, 确保失败报告的文件和行号对应调用栈中更高层级。
func assertUp(condition bool, t testing.TB, caller int, msg string, v ...interface{}) {
	if !condition {
		_, file, line, _ := runtime.Caller(caller + 1)
		v = append([]interface{}{filepath.Base(file), line}, v...)
		fmt.Printf("%s:%d: "+msg+"\n", v...)
		t.FailNow()
	}
}

// equals 函数根据 reflect.DeepEqual 测试两个值是否相等。
func equals(exp, act interface{}, t testing.TB) {
	equalsUp(exp, act, t, 1)
}

// equalsUp 函数与 equals 类似, 但用于辅助函数内部, 确保失败报告的文件和行号对应调用栈中更高层级。
func equalsUp(exp, act interface{}, t testing.TB, caller int) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(caller + 1)
		fmt.Printf("%s:%d: exp: %v (%T), got: %v (%T)\n",
			filepath.Base(file), line, exp, exp, act, act)
		t.FailNow()
	}
}

// isNil 函数在给定值不为 nil 时报告失败。
func isNil(obtained interface{}, t testing.TB) {
	isNilUp(obtained, t, 1)
}

// isNilUp 函数与 isNil 类似, 但用于辅助函数内部。
func isNilUp(obtained interface{}, t testing.TB, caller int) {
	if !_isNil(obtained) {
		_, file, line, _ := runtime.Caller(caller + 1)
		fmt.Printf("%s:%d: expected nil, got: %v\n", filepath.Base(file), line, obtained)
		t.FailNow()
	}
}

// notNil 函数在给定值为 nil 时报告失败。
func notNil(obtained interface{}, t testing.TB) {
	notNilUp(obtained, t, 1)
}

// notNilUp 函数与 notNil 类似, 但用于辅助函数内部。
func notNilUp(obtained interface{}, t testing.TB, caller int) {
	if _isNil(obtained) {
		_, file, line, _ := runtime.Caller(caller + 1)
		fmt.Printf("%s:%d: expected non-nil, got: %v\n", filepath.Base(file), line, obtained)
		t.FailNow()
	}
}

// _isNil 是 isNil 和 notNil 函数的辅助函数, 不应直接使用。
func _isNil(obtained interface{}) bool {
	if obtained == nil {
		return true
	}

	switch v := reflect.ValueOf(obtained); v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}

	return false
}

// existsWithContent 检查指定文件是否存在, 并且其内容是否与预期内容一致。
func existsWithContent(path string, content []byte, t testing.TB) {
	info, err := os.Stat(path)
	isNilUp(err, t, 1)
	equalsUp(int64(len(content)), info.Size(), t, 1)

	b, err := os.ReadFile(path)
	isNilUp(err, t, 1)
	equalsUp(content, b, t, 1)
}

// exists 检查指定文件是否存在。
func exists(path string, t testing.TB) {
	_, err := os.Stat(path)
	assertUp(err == nil, t, 1, "expected file to exist: %s (%v)", path, err)
}

// notExist 检查指定文件确实不存在。
func notExist(path string, t testing.TB) {
	_, err := os.Stat(path)
	assertUp(os.IsNotExist(err), t, 1, "expected file to not exist: %s (err=%v)", path, err)
}

// fileSize 返回指定文件的大小, 文件不存在时报告失败。
func fileSize(path string, t testing.TB) int64 {
	info, err := os.Stat(path)
	isNilUp(err, t, 1)
	return info.Size()
}

// fileCount 检查指定目录下的文件数量是否与预期数量一致。
func fileCount(dir string, exp int, t testing.TB) {
	files, err := os.ReadDir(dir)
	isNilUp(err, t, 1)
	equalsUp(exp, len(files), t, 1)
}

// quietWarnings 在测试期间把诊断输出重定向到收集器, 返回恢复函数。
func quietWarnings(t testing.TB) *[]string {
	var captured []string
	orig := warnf
	warnf = func(format string, v ...interface{}) {
		captured = append(captured, fmt.Sprintf(format, v...))
	}
	t.Cleanup(func() { warnf = orig })
	return &captured
}
