package scheduler

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/observability"
)

func TestRun_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	g := dag.NewGraph("traced")
	add(t, g, "a", constWork(nil))
	add(t, g, "b", func(ctx context.Context, in *dag.Inputs) (dag.Artifact, error) {
		return nil, in.Pool.SubmitAndAwait(ctx,
			func(context.Context) error { return nil },
			func(context.Context) error { return nil },
		)
	}, "a")

	s := newScheduler(t, Config{Parallelism: 2}, WithTracing())
	if _, err := runWithTimeout(t, s, context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[string]int{}
	var runSpan, actionB sdktrace.ReadOnlySpan
	for _, span := range exporter.GetSpans().Snapshots() {
		counts[span.Name()]++
		if span.Name() == observability.SpanRun {
			runSpan = span
		}
		if span.Name() == observability.SpanAction {
			for _, kv := range span.Attributes() {
				if string(kv.Key) == observability.AttrActionID && kv.Value.AsString() == "b" {
					actionB = span
				}
			}
		}
	}
	if counts[observability.SpanRun] != 1 || counts[observability.SpanAction] != 2 || counts[observability.SpanTask] != 2 {
		t.Fatalf("unexpected spans %v", counts)
	}
	for _, span := range exporter.GetSpans().Snapshots() {
		if span.Name() == observability.SpanAction && span.Parent().SpanID() != runSpan.SpanContext().SpanID() {
			t.Errorf("action span not parented to the run span")
		}
		if span.Name() == observability.SpanTask && span.Parent().SpanID() != actionB.SpanContext().SpanID() {
			t.Errorf("task span not parented to its submitting action")
		}
	}
}

func TestRun_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := observability.NewMetrics(mp.Meter("scheduler-test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	g := dag.NewGraph("metered")
	add(t, g, "ok", func(ctx context.Context, in *dag.Inputs) (dag.Artifact, error) {
		return nil, in.Pool.SubmitAndAwait(ctx, func(context.Context) error { return nil })
	})
	add(t, g, "bad", func(context.Context, *dag.Inputs) (dag.Artifact, error) {
		return nil, stderrors.New("boom")
	}, "ok")

	s := newScheduler(t, Config{Parallelism: 2}, WithMetrics(metrics))
	if _, err := runWithTimeout(t, s, context.Background(), g); err == nil {
		t.Fatal("expected failure")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	if sums["action.total"] != 2 {
		t.Errorf("expected 2 actions recorded, got %d", sums["action.total"])
	}
	if sums["task.total"] != 1 {
		t.Errorf("expected 1 task recorded, got %d", sums["task.total"])
	}
	if sums["worker.busy"] != 0 {
		t.Errorf("expected no busy workers after the run, got %d", sums["worker.busy"])
	}
	if sums["error.total"] < 1 {
		t.Errorf("expected errors recorded, got %d", sums["error.total"])
	}
}

func TestRun_WorkerBusyBoundedByParallelism(t *testing.T) {
	const p = 2
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := observability.NewMetrics(mp.Meter("scheduler-test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	var mu sync.Mutex
	var peak int64
	busy := func() {
		mu.Lock()
		defer mu.Unlock()
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Errorf("Collect: %v", err)
			return
		}
		if n := sumOf(rm, "worker.busy"); n > peak {
			peak = n
		}
	}

	g := dag.NewGraph("busy")
	for _, id := range []dag.ActionID{"cgo:net", "cgo:os", "cgo:user"} {
		add(t, g, id, func(ctx context.Context, in *dag.Inputs) (dag.Artifact, error) {
			tasks := make([]dag.Task, 6)
			for i := range tasks {
				tasks[i] = func(context.Context) error {
					busy()
					time.Sleep(time.Millisecond)
					return nil
				}
			}
			return nil, in.Pool.SubmitAndAwait(ctx, tasks...)
		})
	}

	s := newScheduler(t, Config{Parallelism: p}, WithMetrics(metrics))
	if _, err := runWithTimeout(t, s, context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak < 1 || peak > p {
		t.Errorf("expected worker.busy to peak between 1 and %d, got %d", p, peak)
	}
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var n int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				for _, dp := range data.DataPoints {
					n += dp.Value
				}
			}
		}
	}
	return n
}

func TestRun_Logging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "parbuild", &buf)

	g := dag.NewGraph("logged")
	add(t, g, "compile", constWork(nil))
	add(t, g, "link", func(context.Context, *dag.Inputs) (dag.Artifact, error) {
		return nil, stderrors.New("undefined: main")
	}, "compile")

	s := newScheduler(t, Config{Parallelism: 1}, WithLogger(log))
	res, err := runWithTimeout(t, s, context.Background(), g)
	if err == nil {
		t.Fatal("expected failure")
	}

	out := buf.String()
	for _, want := range []string{
		`"message":"run started"`,
		`"message":"action done"`,
		`"message":"action failed"`,
		`"action":"link"`,
		`"run_id":"` + res.RunID + `"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log output:\n%s", want, out)
		}
	}
}
