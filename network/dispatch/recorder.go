package dispatch

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/MapleGits/MapleGame/base/util/byteutil"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "RECV"
	}
	return "SEND"
}

// Record 一条收发记录
type Record struct {
	Time      time.Time
	Direction Direction
	Title     string
	Name      string
	Opcode    uint16
	Data      []byte
}

// Recorder 离线调试用的包记录，goroutine safe
type Recorder interface {
	Record(r Record) error
	Close() error
}

// WriterRecorder 每条记录一行文本
// 2006-01-02T15:04:05.000 RECV [Client] Ping(0x0011) 11 00 01
type WriterRecorder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterRecorder(w io.Writer) *WriterRecorder {
	return &WriterRecorder{w: w}
}

// NewFileRecorder 记录写入文件，按大小滚动
func NewFileRecorder(path string, maxSizeMb, maxBackups int) *WriterRecorder {
	return NewWriterRecorder(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMb,
		MaxBackups: maxBackups,
	})
}

func formatRecord(r Record) string {
	var sb strings.Builder
	sb.WriteString(r.Time.Format("2006-01-02T15:04:05.000"))
	fmt.Fprintf(&sb, " %s [%s] %s(0x%04X)", r.Direction, r.Title, r.Name, r.Opcode)
	if len(r.Data) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(byteutil.BytesToHexString(r.Data, " "))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (wr *WriterRecorder) Record(r Record) error {
	line := formatRecord(r)
	wr.mu.Lock()
	defer wr.mu.Unlock()
	_, err := io.WriteString(wr.w, line)
	return err
}

func (wr *WriterRecorder) Close() error {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if c, ok := wr.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
