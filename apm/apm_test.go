package apm

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProviderRequiresName(t *testing.T) {
	_, err := InitProvider(TraceParam{ServiceVersion: "1"}, false)
	assert.Error(t, err)
	_, err = InitProvider(TraceParam{ServiceName: "channel"}, false)
	assert.Error(t, err)
}

func TestInitProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitProvider(TraceParam{
		ServiceName:    "channel",
		ServiceVersion: "test",
		SampleRate:     1,
		Writer:         &buf,
	}, false)
	require.NoError(t, err)

	_, span := tp.Tracer("apm_test").Start(context.Background(), "handshake")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "handshake")
	assert.Contains(t, buf.String(), "channel")
}

func TestSetGinTracer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	router := gin.New()
	SetGinTracer("admin", router, tp)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "/healthz", spans[0].Name())
}
