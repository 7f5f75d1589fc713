package dispatch

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/network/metrics"
)

// LogLevel 收发包的日志详细程度
type LogLevel int

const (
	LogOff LogLevel = iota
	LogName
	LogFull
)

// ParseLogLevel 接受 off|name|full 以及 name-only|full-hex
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return LogOff, nil
	case "name", "name-only":
		return LogName, nil
	case "full", "full-hex", "hex":
		return LogFull, nil
	}
	return LogOff, fmt.Errorf("dispatch: unknown packet log level %q", s)
}

func (l LogLevel) String() string {
	switch l {
	case LogName:
		return "name"
	case LogFull:
		return "full"
	}
	return "off"
}

const unknownName = "Unknown"

// Tracer 收发两个方向共用的日志、记录、统计
// 零值的日志级别为LogOff，运行中可以通过SetLevel切换
type Tracer struct {
	Recorder Recorder
	Metrics  *metrics.Metrics
	level    atomic.Int32
}

func NewTracer(level LogLevel, recorder Recorder, m *metrics.Metrics) *Tracer {
	t := &Tracer{Recorder: recorder, Metrics: m}
	t.SetLevel(level)
	return t
}

func (t *Tracer) Level() LogLevel {
	return LogLevel(t.level.Load())
}

func (t *Tracer) SetLevel(level LogLevel) {
	if old := LogLevel(t.level.Swap(int32(level))); old != level {
		log.Info("packet log level %s -> %s", old, level)
	}
}

func metricDirection(dir Direction) string {
	if dir == Inbound {
		return metrics.DirectionIn
	}
	return metrics.DirectionOut
}

// Known 已知opcode的包
func (t *Tracer) Known(dir Direction, title string, name string, opcode uint16, data []byte) {
	verb, prep := "Received", "from"
	if dir == Outbound {
		verb, prep = "Sent", "to"
	}
	switch t.Level() {
	case LogName:
		log.Info("%s %s packet %s %s.", verb, name, prep, title)
	case LogFull:
		log.Hex(data, "%s %s packet %s %s: ", verb, name, prep, title)
	}
	t.record(dir, title, name, opcode, data)
}

func (t *Tracer) record(dir Direction, title string, name string, opcode uint16, data []byte) {
	if t.Recorder == nil {
		return
	}
	err := t.Recorder.Record(Record{
		Time:      time.Now(),
		Direction: dir,
		Title:     title,
		Name:      name,
		Opcode:    opcode,
		Data:      data,
	})
	if err != nil {
		log.Warn("record %s packet of %s: %v", name, title, err)
	}
}

// Unknown 不在集合里的opcode只打日志
func (t *Tracer) Unknown(dir Direction, title string, opcode uint16, data []byte) {
	t.Metrics.Unknown(metricDirection(dir))
	if dir == Inbound {
		log.Hex(data, "Received unknown (0x%04X) packet from %s: ", opcode, title)
	} else {
		log.Hex(data, "Sent unknown (0x%04X) packet to %s: ", opcode, title)
	}
	t.record(dir, title, unknownName, opcode, data)
}
