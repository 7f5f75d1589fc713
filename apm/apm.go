// Package apm opentelemetry链路追踪的初始化
package apm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/base/util/byteutil"
)

type TraceParam struct {
	ServiceName     string  // 服务名称
	ServiceVersion  string  // 版本号
	ServiceInstance string  // 实例标识，为空时随机生成
	Environment     string  // dev, test, prod之类
	Endpoint        string  // otlp http的host:port，为空时输出到Writer
	EnableTLS       bool    // 是否使用https
	SampleRate      float64 // 0~1
	// Writer Endpoint为空时的输出，默认stdout
	Writer io.Writer
}

// InitProvider 初始化并返回provider，asGlobal时同时设置为全局的provider
func InitProvider(param TraceParam, asGlobal bool) (*sdktrace.TracerProvider, error) {
	if param.ServiceName == "" || param.ServiceVersion == "" {
		return nil, errors.New("apm: service name and version are required")
	}
	if param.ServiceInstance == "" {
		param.ServiceInstance = byteutil.SimpleUUID4()
	}
	//默认是生产环境
	if param.Environment == "" {
		param.Environment = "prod"
	}
	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(param.ServiceName),
			semconv.ServiceVersion(param.ServiceVersion),
			semconv.ServiceInstanceID(param.ServiceInstance),
			semconv.DeploymentEnvironment(param.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithSchemaURL(semconv.SchemaURL),
	)
	if err != nil {
		return nil, fmt.Errorf("apm: create resource: %w", err)
	}
	exporter, err := newExporter(ctx, param)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(
			sdktrace.ParentBased(sdktrace.TraceIDRatioBased(param.SampleRate)),
		),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	if asGlobal {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
			log.Warn("apm error: %v", err)
		}))
	}
	return tp, nil
}

func newExporter(ctx context.Context, param TraceParam) (sdktrace.SpanExporter, error) {
	if param.Endpoint == "" {
		//兜底策略，控制台输出
		w := param.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("apm: create stdout exporter: %w", err)
		}
		return exporter, nil
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(param.Endpoint)}
	if param.EnableTLS {
		opts = append(opts, otlptracehttp.WithTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	} else {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("apm: create http exporter: %w", err)
	}
	return exporter, nil
}

// SetGinTracer 为gin的每个请求创建span，tp为nil时使用全局provider
func SetGinTracer(serviceName string, server *gin.Engine, tp trace.TracerProvider) {
	if tp == nil {
		server.Use(otelgin.Middleware(serviceName))
		return
	}
	server.Use(otelgin.Middleware(serviceName, otelgin.WithTracerProvider(tp)))
}
