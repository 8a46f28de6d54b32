package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// Each category: its setter, its accessor, a custom value, and a check that
// the accessor is back on the no-op default.
var registryCases = []struct {
	name   string
	set    func()
	setNil func()
	custom func() any
	get    func() any
	isNoop func() bool
}{
	{
		name:   "pipeline",
		set:    func() { SetPipelineHooks(customPipeline) },
		setNil: func() { SetPipelineHooks(nil) },
		custom: func() any { return customPipeline },
		get:    func() any { return Pipeline() },
		isNoop: func() bool { _, ok := Pipeline().(NoopPipelineHooks); return ok },
	},
	{
		name:   "simulation",
		set:    func() { SetSimulationHooks(customSimulation) },
		setNil: func() { SetSimulationHooks(nil) },
		custom: func() any { return customSimulation },
		get:    func() any { return Simulation() },
		isNoop: func() bool { _, ok := Simulation().(NoopSimulationHooks); return ok },
	},
	{
		name:   "cache",
		set:    func() { SetCacheHooks(customCache) },
		setNil: func() { SetCacheHooks(nil) },
		custom: func() any { return customCache },
		get:    func() any { return Cache() },
		isNoop: func() bool { _, ok := Cache().(NoopCacheHooks); return ok },
	},
	{
		name:   "http",
		set:    func() { SetHTTPHooks(customHTTP) },
		setNil: func() { SetHTTPHooks(nil) },
		custom: func() any { return customHTTP },
		get:    func() any { return HTTP() },
		isNoop: func() bool { _, ok := HTTP().(NoopHTTPHooks); return ok },
	},
}

var (
	customPipeline   = &testPipelineHooks{}
	customSimulation = &testSimulationHooks{}
	customCache      = &testCacheHooks{}
	customHTTP       = &testHTTPHooks{}
)

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)
	for _, tc := range registryCases {
		t.Run(tc.name, func(t *testing.T) {
			Reset()
			if !tc.isNoop() {
				t.Fatal("default is not the no-op implementation")
			}
			tc.set()
			if tc.get() != tc.custom() {
				t.Fatal("setter did not register the hooks")
			}
			tc.setNil()
			if tc.get() != tc.custom() {
				t.Error("nil replaced the registered hooks")
			}
			Reset()
			if !tc.isNoop() {
				t.Error("Reset did not restore the no-op implementation")
			}
		})
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Cleanup(Reset)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetCacheHooks(customCache)
				Reset()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Cache().OnCacheHit(ctx, "layout")
			}
		}()
	}
	wg.Wait()
}

func TestNoopHooksAcceptEveryEvent(t *testing.T) {
	ctx := context.Background()
	var p PipelineHooks = NoopPipelineHooks{}
	p.OnGenerateStart(ctx, 42)
	p.OnGenerateComplete(ctx, 17, 24, time.Second, errors.New("x"))
	p.OnLayoutStart(ctx, 17)
	p.OnLayoutComplete(ctx, 120, true, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	var s SimulationHooks = NoopSimulationHooks{}
	s.OnSimulationStart("canvas", 1, 17)
	s.OnSimulationEnd("canvas", 1, 300, false, true, time.Second)
}

func TestLogHooks(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	NewLogHooks(logger).Install()

	ctx := context.Background()
	Pipeline().OnLayoutComplete(ctx, 42, true, time.Millisecond, nil)
	Cache().OnCacheMiss(ctx, "idea")
	HTTP().OnError(ctx, "POST", "example.com", "/idea", errors.New("boom"))
	Simulation().OnSimulationEnd("c1", 3, 10, false, true, time.Millisecond)

	out := buf.String()
	for _, want := range []string{"layout complete", "steps=42", "cache miss", "http error", "boom", "simulation end", "canvas=c1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksRespectLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	h := NewLogHooks(logger)

	h.OnCacheHit(context.Background(), "layout")
	if buf.Len() != 0 {
		t.Errorf("debug events should be filtered at info level: %q", buf.String())
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testSimulationHooks struct{ NoopSimulationHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
