package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-grocery-backend/internal/config"
)

func preserveGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func tracingConfig(insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "grocery-test",
		SampleRatio: 1.0,
	}
}

func TestSetup_Disabled_NoOp(t *testing.T) {
	preserveGlobals(t)

	prevTP := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("disabled setup must not replace the tracer provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}

func TestSetup_InstallsProviderAndPropagator(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		t.Run(map[bool]string{true: "insecure", false: "tls"}[insecure], func(t *testing.T) {
			preserveGlobals(t)

			shutdown, err := Setup(context.Background(), tracingConfig(insecure), "v1.2.3")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Fatalf("expected *sdktrace.TracerProvider")
			}

			// Propagator round-trips without panicking.
			carrier := propagation.MapCarrier{}
			ctx, span := otel.Tracer("test").Start(context.Background(), "span")
			span.End()
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			_ = otel.GetTextMapPropagator().Extract(context.Background(), carrier)
		})
	}
}

func TestSetup_ExporterError_LeavesGlobalsIntact(t *testing.T) {
	preserveGlobals(t)

	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter down")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	if _, err := Setup(context.Background(), tracingConfig(true), "v0"); err == nil {
		t.Fatalf("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatalf("globals changed on failed setup")
	}
}

func TestSetup_ResourceError_LeavesGlobalsIntact(t *testing.T) {
	preserveGlobals(t)

	orig := newServiceResource
	t.Cleanup(func() { newServiceResource = orig })
	newServiceResource = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource boom")
	}

	prevTP := otel.GetTracerProvider()

	if _, err := Setup(context.Background(), tracingConfig(true), "v0"); err == nil {
		t.Fatalf("expected resource error")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("tracer provider changed on failed setup")
	}
}

func TestSetup_ShutdownIsCallable(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := Setup(context.Background(), tracingConfig(true), "v1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}
