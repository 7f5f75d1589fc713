package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MapleGits/MapleGame/config"
	"github.com/MapleGits/MapleGame/module"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/gate"
	"github.com/MapleGits/MapleGame/network/metrics"
	"github.com/MapleGits/MapleGame/network/packet"
)

type agentStub struct {
	data any
	sent []*packet.Packet
}

func (a *agentStub) ID() string {
	return "stub"
}

func (a *agentStub) Title() string {
	return "Client"
}

func (a *agentStub) RemoteAddr() net.Addr {
	return nil
}

func (a *agentStub) Close() {}

func (a *agentStub) UserData() any {
	return a.data
}

func (a *agentStub) SetUserData(data any) {
	a.data = data
}

func (a *agentStub) Send(p *packet.Packet) error {
	a.sent = append(a.sent, p)
	return nil
}

func TestPongUpdatesState(t *testing.T) {
	d, err := newDispatcher(&dispatch.Tracer{})
	require.NoError(t, err)
	a := &agentStub{}
	pong, err := packet.Parse([]byte{byte(recvPong), byte(recvPong >> 8)})
	require.NoError(t, err)

	// 没有状态时handler失败，客户端收到通知
	d.Dispatch(a, pong)
	require.Len(t, a.sent, 1)
	assert.Equal(t, sendServerNotice, a.sent[0].Opcode())

	st := &clientState{}
	a.SetUserData(st)
	pong.Rewind()
	d.Dispatch(a, pong)
	assert.WithinDuration(t, time.Now(), st.lastPong.Load(), time.Second)
	assert.Len(t, a.sent, 1)
}

func TestAdminRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("channel", reg)
	require.NoError(t, err)
	m.SessionOpened()

	cfg, _, err := config.Load("", nil)
	require.NoError(t, err)
	d, err := newDispatcher(&dispatch.Tracer{Metrics: m})
	require.NoError(t, err)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	a := newAdmin("127.0.0.1:0", reg, gate.FromConfig(cfg, d, m), tp)
	router := a.router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "channel_session_active")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	var body struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Client", body.Title)
	assert.Equal(t, 0, body.Count)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "/healthz", spans[0].Name())
	assert.Equal(t, "/sessions", spans[2].Name())
}

func TestPacketLogReload(t *testing.T) {
	cfg, v, err := config.Load("", nil)
	require.NoError(t, err)
	sc := config.NewSafeConfig(cfg)
	tracer := dispatch.NewTracer(cfg.PacketLogLevel(), nil, nil)
	require.Equal(t, dispatch.LogName, tracer.Level())

	v.Set("packet.log_level", "full")
	config.Reload(v, sc, packetLogReloader(tracer))
	assert.Equal(t, dispatch.LogFull, tracer.Level())

	// 解析失败时保持原来的级别
	v.Set("packet.log_level", "verbose")
	config.Reload(v, sc, packetLogReloader(tracer))
	assert.Equal(t, dispatch.LogFull, tracer.Level())
}

type recorderStub struct {
	mu      sync.Mutex
	closed  bool
	late    int
	records int
}

func (r *recorderStub) Record(dispatch.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.late++
	}
	r.records++
	return nil
}

func (r *recorderStub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// sender 销毁时还在发包，模拟gate关闭过程中的会话
type sender struct {
	tracer *dispatch.Tracer
}

func (s *sender) Name() string {
	return "sender"
}

func (s *sender) OnInit() error {
	return nil
}

func (s *sender) Run(ctx context.Context) {
	<-ctx.Done()
}

func (s *sender) OnDestroy() {
	s.tracer.Known(dispatch.Outbound, "Client", "Ping", sendPing, []byte{byte(sendPing), 0})
}

func TestRecorderClosedAfterLaterModules(t *testing.T) {
	rec := &recorderStub{}
	tracer := dispatch.NewTracer(dispatch.LogOff, rec, nil)
	require.NoError(t, module.StaticLoad([]module.Module{
		newCloser("recorder", rec.Close),
		&sender{tracer: tracer},
	}))
	module.Destroy()

	assert.True(t, rec.closed)
	assert.Equal(t, 1, rec.records)
	assert.Equal(t, 0, rec.late)
}
