package log

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type formatter struct {
	pattern string
	time    string
}

// Format supports unified log output format that has %time, %level, %field, %msg, %caller, %func, %goroutine.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	output := f.pattern
	output = strings.Replace(output, "%time", entry.Time.Format(f.time), 1)
	output = strings.Replace(output, "%level", entry.Level.String(), 1)
	output = strings.Replace(output, "%field", buildFields(entry), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	if strings.Contains(output, "%caller") || strings.Contains(output, "%func") {
		frame, ok := callerFrame()
		output = strings.Replace(output, "%caller", formatCaller(frame, ok), 1)
		output = strings.Replace(output, "%func", formatFunc(frame, ok), 1)
	}
	output = strings.Replace(output, "%goroutine", getGoroutineID(), 1)
	return []byte(output), nil
}

// callerFrame finds the first frame outside logrus and this package.
func callerFrame() (runtime.Frame, bool) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isLoggingFrame(frame.Function) {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func isLoggingFrame(function string) bool {
	return strings.Contains(function, "github.com/sirupsen/logrus") ||
		strings.Contains(function, "/internal/log.")
}

// package/file.go:line
func formatCaller(frame runtime.Frame, ok bool) string {
	if !ok {
		return "unknown"
	}
	file := frame.File
	if idx := strings.LastIndex(file, "/"); idx != -1 && idx+1 < len(file) {
		file = file[idx+1:]
	}
	pkg := ""
	if frame.Function != "" {
		fn := frame.Function
		if idx := strings.LastIndex(fn, "/"); idx != -1 {
			fn = fn[idx+1:]
		}
		if idx := strings.Index(fn, "."); idx != -1 {
			pkg = fn[:idx]
		}
	}
	return fmt.Sprintf("%s/%s:%d", pkg, file, frame.Line)
}

// 只保留方法或函数名
func formatFunc(frame runtime.Frame, ok bool) string {
	if !ok || frame.Function == "" {
		return "unknown"
	}
	funcName := frame.Function
	if dotIdx := strings.LastIndex(funcName, "."); dotIdx != -1 && dotIdx+1 < len(funcName) {
		return funcName[dotIdx+1:]
	}
	return funcName
}

// 获取当前 goroutine ID
func getGoroutineID() string {
	// 通过 runtime.Stack hack 获取 goroutine id
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	stack := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	idField := strings.Fields(stack)
	if len(idField) > 0 {
		return idField[0]
	}
	return "unknown"
}

// key=value pairs sorted by key so lines are stable.
func buildFields(entry *logrus.Entry) string {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, key := range keys {
		val := entry.Data[key]
		stringVal, ok := val.(string)
		if !ok {
			stringVal = fmt.Sprint(val)
		}
		fields = append(fields, key+"="+stringVal)
	}
	return strings.Join(fields, ",")
}
