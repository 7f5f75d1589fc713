package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/network/packet"
)

const instrumentationName = "github.com/MapleGits/MapleGame/network/dispatch"

var ErrHandlerPanic = errors.New("dispatch: handler panic")

// NoticeFunc 根据handler的错误生成发给客户端的通用失败提示，返回nil表示不发送
type NoticeFunc func(err error) *packet.Packet

// Dispatcher 多个session共享，只读，goroutine safe
type Dispatcher struct {
	Recv     OpcodeSet
	Send     OpcodeSet
	Registry *Registry
	Tracer   *Tracer
	Notice   NoticeFunc
	// Spans 每次handler调用一个span，默认使用全局的provider
	Spans trace.Tracer
}

func NewDispatcher(recv, send OpcodeSet, registry *Registry, tracer *Tracer) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	if tracer == nil {
		tracer = &Tracer{}
	}
	return &Dispatcher{
		Recv:     recv,
		Send:     send,
		Registry: registry,
		Tracer:   tracer,
		Spans:    otel.Tracer(instrumentationName),
	}
}

// Dispatch 未知opcode只记录日志，handler的错误和panic都在这里吸收
func (d *Dispatcher) Dispatch(a Agent, p *packet.Packet) {
	op := p.Opcode()
	name, known := d.Recv.Name(op)
	if !known {
		d.Tracer.Unknown(Inbound, a.Title(), op, p.Bytes())
		return
	}
	d.Tracer.Known(Inbound, a.Title(), name, op, p.Bytes())

	e, ok := d.Registry.lookup(op)
	if !ok {
		log.Debug("no handler for %s packet from %s", name, a.Title())
		return
	}
	_, span := d.Spans.Start(context.Background(), e.name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("packet.opcode", int(op)),
			attribute.Int("packet.size", p.Len()),
			attribute.String("session.id", a.ID()),
			attribute.String("session.title", a.Title()),
		))
	defer span.End()
	if err := invoke(e.handler, a, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("handler %s (0x%04X) failed for %s %v: %v", e.name, op, a.Title(), a.RemoteAddr(), err)
		d.Tracer.Metrics.HandlerFailure(e.name)
		d.notify(a, err)
	}
}

// TraceSend 发送成功后由session调用
func (d *Dispatcher) TraceSend(a Agent, p *packet.Packet) {
	op := p.Opcode()
	if name, ok := d.Send.Name(op); ok {
		d.Tracer.Known(Outbound, a.Title(), name, op, p.Bytes())
	} else {
		d.Tracer.Unknown(Outbound, a.Title(), op, p.Bytes())
	}
}

func (d *Dispatcher) notify(a Agent, cause error) {
	if d.Notice == nil {
		return
	}
	notice := d.Notice(cause)
	if notice == nil {
		return
	}
	if err := a.Send(notice); err != nil {
		log.Warn("send failure notice to %s: %v", a.Title(), err)
	}
}

func invoke(h Handler, a Agent, p *packet.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(fmt.Sprintf("handler panic on %s", a.Title()), r)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.Handle(a, p)
}
