// Package logger 包装 logrus：统一格式、按组件命名、日志轮转。
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogEntry 暴露底层类型，避免调用方直接依赖 logrus 包。
type LogEntry = logrus.Entry

// DefaultLogPath 默认日志文件路径。
const DefaultLogPath = "logs/narrative-cli.log"

// 单个日志文件上限与保留份数。
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
)

// 这些字段已经体现在行首，不再重复输出。
var reservedFields = map[string]bool{"component": true, "caller": true}

var rootLogger = logrus.StandardLogger()

func root() *logrus.Logger {
	if rootLogger == nil {
		rootLogger = logrus.StandardLogger()
	}
	return rootLogger
}

// Configure 设置全局日志格式与 caller 输出。
func Configure() {
	root().SetReportCaller(true)
	root().SetFormatter(PlainFormatter{})
}

// SetupFile 将全局日志输出重定向到 logPath（空时为 DefaultLogPath）。
// TUI 占用终端，因此日志只写文件。
func SetupFile(logPath string) (io.Closer, string, error) {
	w, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, "", err
	}
	root().SetOutput(w)
	return w, resolved, nil
}

// SetupComponentFile 为单个组件创建独立的 logger 与日志文件。
// 独立文件记录 debug 及以上级别，不受全局级别影响。
func SetupComponentFile(component, logPath string) (*LogEntry, io.Closer, string, error) {
	w, resolved, err := openLogFile(logPath)
	if err != nil {
		return nil, nil, "", err
	}
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(PlainFormatter{})
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	return withComponent(logrus.NewEntry(l), component), w, resolved, nil
}

// SetLevel 按名称（debug/info/warn/error）设置全局日志级别。
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return err
	}
	root().SetLevel(lvl)
	return nil
}

// Named 为组件创建入口。包级变量在 Configure 之前创建也没关系，
// 入口只持有 logger 指针，格式与输出在写日志时才读取。
func Named(component string) *LogEntry {
	return withComponent(logrus.NewEntry(root()), component)
}

func withComponent(entry *LogEntry, component string) *LogEntry {
	if component == "" {
		return entry
	}
	return entry.WithField("component", component)
}

// PlainFormatter 输出 `caller [ts] [LEVEL] [component] message k=v ...`。
type PlainFormatter struct{}

func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return []byte{}, nil
	}
	var b strings.Builder
	if caller := formatCaller(entry); caller != "" {
		b.WriteString(caller)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] [%s] ", entry.Time.UTC().Format(time.RFC3339Nano), strings.ToUpper(entry.Level.String()))
	if component, _ := entry.Data["component"].(string); component != "" {
		fmt.Fprintf(&b, "[%s] ", component)
	}
	b.WriteString(entry.Message)
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if reservedFields[k] {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func formatCaller(entry *logrus.Entry) string {
	if entry.HasCaller() && entry.Caller != nil {
		return fmt.Sprintf("%s:%d", shortenFilePath(entry.Caller.File), entry.Caller.Line)
	}
	caller, _ := entry.Data["caller"].(string)
	return caller
}

// shortenFilePath 保留模块内的相对路径。
func shortenFilePath(file string) string {
	file = filepath.ToSlash(file)
	for _, marker := range []string{"/internal/", "/cmd/"} {
		if idx := strings.Index(file, marker); idx != -1 {
			return file[idx+1:]
		}
	}
	if _, rest, ok := strings.Cut(file, "/narrative-cli/"); ok {
		return rest
	}
	return filepath.Base(file)
}

func openLogFile(logPath string) (io.WriteCloser, string, error) {
	if logPath == "" {
		logPath = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, "", err
	}
	// lumberjack 延迟打开文件；这里先探测一次可写性，错误尽早返回。
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	_ = f.Close()
	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}, logPath, nil
}
