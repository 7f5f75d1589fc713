package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	Level   string
	OutType int
)

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"

	infoFileOutName  = "channel"
	errorFileOutName = "error"

	// ConsoleOut 控制台输出
	ConsoleOut OutType = 1
	// InfoFileOut 一般日志
	InfoFileOut OutType = 2
	// ErrorFileOut 只记录warn以上
	ErrorFileOut OutType = 4

	// NormalOut 一般文件输出
	NormalOut = InfoFileOut | ErrorFileOut
)

var (
	levelMapping = map[Level]zapcore.Level{
		LevelDebug: zap.DebugLevel,
		LevelInfo:  zap.InfoLevel,
		LevelWarn:  zap.WarnLevel,
		LevelError: zap.ErrorLevel,
	}
	aliasMap = map[string]OutType{
		"console": ConsoleOut,
		"file":    NormalOut,
		"info":    InfoFileOut,
		"error":   ErrorFileOut,
	}
	proxy     atomic.Pointer[loggerProxy]
	setupLock sync.Mutex
)

// OutTypeAlias 文本配置，用|分割，如 "console|file"
func OutTypeAlias(name string) OutType {
	names := strings.Split(strings.ToLower(name), "|")
	var r OutType
	for _, s := range names {
		r |= aliasMap[strings.TrimSpace(s)]
	}
	return lo.Ternary(r == 0, ConsoleOut, r)
}

// ParseLevel 未知的级别按info处理
func ParseLevel(s string) Level {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelMapping[l]; ok {
		return l
	}
	return LevelInfo
}

// Options 日志输出配置
type Options struct {
	Name       string
	Path       string
	Level      Level
	Out        OutType
	Rotate     bool
	MaxSize    int //单位Mb
	MaxAge     int //单位天
	MaxBackups int
}

type loggerProxy struct {
	zapLevel zap.AtomicLevel
	debug    atomic.Bool
	dLogger  *zap.SugaredLogger
	nLogger  *zap.SugaredLogger
	closers  []io.Closer
}

func (lp *loggerProxy) current() *zap.SugaredLogger {
	if lp.debug.Load() {
		return lp.dLogger
	}
	return lp.nLogger
}

func (lp *loggerProxy) changeLevel(level Level) {
	zl, ok := levelMapping[level]
	if !ok {
		zl = zap.InfoLevel
	}
	lp.zapLevel.SetLevel(zl)
	lp.debug.Store(zl == zap.DebugLevel)
}

// Setup 按配置重建logger，可以多次调用，旧的文件句柄会被关闭
func Setup(opt Options) error {
	setupLock.Lock()
	defer setupLock.Unlock()

	if opt.Out == 0 {
		opt.Out = ConsoleOut
	}
	if opt.Level == "" {
		opt.Level = LevelInfo
	}
	if opt.Out&NormalOut > 0 {
		if opt.Path == "" {
			opt.Path = "./log"
		}
		if err := os.MkdirAll(opt.Path, 0755); err != nil {
			return fmt.Errorf("create log directory %s: %w", opt.Path, err)
		}
	}

	p := &loggerProxy{zapLevel: zap.NewAtomicLevelAt(levelMapping[opt.Level])}
	// 高优先级
	hp := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.WarnLevel
	})
	all := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return p.zapLevel.Enabled(lvl)
	})
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := make([]zapcore.Core, 0, 3)
	if opt.Out&ConsoleOut > 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), all))
	}
	if opt.Out&InfoFileOut > 0 {
		filename := lo.Ternary(opt.Name == "", infoFileOutName, opt.Name) + ".log"
		w, err := p.writer(opt, filename)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), all))
	}
	if opt.Out&ErrorFileOut > 0 {
		filename := lo.Ternary(opt.Name == "", errorFileOutName, opt.Name+"-"+errorFileOutName) + ".log"
		w, err := p.writer(opt, filename)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), hp))
	}
	lg := zap.New(zapcore.NewTee(cores...))
	p.nLogger = lg.Sugar()
	// debug模式下打印caller
	p.dLogger = lg.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	p.changeLevel(opt.Level)

	if old := proxy.Swap(p); old != nil {
		_ = old.nLogger.Sync()
		for _, c := range old.closers {
			_ = c.Close()
		}
	}
	return nil
}

func (lp *loggerProxy) writer(opt Options, name string) (io.Writer, error) {
	fullName := filepath.Join(opt.Path, name)
	if !opt.Rotate {
		f, err := os.OpenFile(fullName, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", fullName, err)
		}
		lp.closers = append(lp.closers, f)
		return f, nil
	}
	w := &lumberjack.Logger{
		Filename:   fullName,
		MaxSize:    opt.MaxSize,
		MaxAge:     opt.MaxAge,
		MaxBackups: opt.MaxBackups,
	}
	lp.closers = append(lp.closers, w)
	return w, nil
}

// ChangeLogLevel 运行时切换日志级别
func ChangeLogLevel(level Level) {
	proxy.Load().changeLevel(level)
}

// IsDebugEnabled 是否打开了debug
func IsDebugEnabled() bool {
	return proxy.Load().zapLevel.Enabled(zapcore.DebugLevel)
}

// Debug 调试模式下打印caller
func Debug(format string, a ...any) {
	proxy.Load().current().Debugf(format, a...)
}

func Info(format string, a ...any) {
	proxy.Load().current().Infof(format, a...)
}

func Warn(format string, a ...any) {
	proxy.Load().current().Warnf(format, a...)
}

func Error(format string, a ...any) {
	proxy.Load().current().Errorf(format, a...)
}

// Fatal 只允许在进程启动阶段使用
func Fatal(format string, a ...any) {
	proxy.Load().current().Fatalf(format, a...)
}

// PanicStack 从panic中恢复并打印日志
// 注意recover必须在当前函数调用
func PanicStack(prefix string, r any) {
	buf := make([]byte, 2048)
	l := runtime.Stack(buf, false)
	Error("%s: %v-> %s", prefix, r, buf[:l])
}

func Flush() {
	p := proxy.Load()
	_ = p.dLogger.Sync()
	_ = p.nLogger.Sync()
}

func init() {
	// 默认只输出到控制台，方便测试
	p := &loggerProxy{zapLevel: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return p.zapLevel.Enabled(lvl)
		}))
	lg := zap.New(core)
	p.nLogger = lg.Sugar()
	p.dLogger = lg.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	p.debug.Store(true)
	proxy.Store(p)
}
