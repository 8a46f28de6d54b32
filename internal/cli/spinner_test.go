package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func quietSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinner(ctx, msg)
	s.out = &buf
	return s, &buf
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "Relaxing 5 nodes...")
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Relaxing 5 nodes...") {
		t.Errorf("output lacks the message: %q", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("spinner should end by clearing its line")
	}
	if s.Cancelled() {
		t.Error("Stop is not a cancellation")
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			s, _ := quietSpinner(ctx, "Generating architecture...")
			s.Start()
			cancel()

			select {
			case <-s.stopped:
			case <-time.After(time.Second):
				t.Fatal("spinner kept running after its context ended")
			}
			if !s.Cancelled() {
				t.Error("Cancelled() = false")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Rendering svg...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "never shown")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
	if strings.Contains(buf.String(), "never shown") {
		t.Error("unstarted spinner drew a frame")
	}
}

func TestSpinnerStopWithStatus(t *testing.T) {
	out := captureStdout(t)
	s, _ := quietSpinner(context.Background(), "Relaxing...")
	s.Start()
	s.StopWithSuccess("Relaxed 3 nodes")
	s2, _ := quietSpinner(context.Background(), "Relaxing...")
	s2.StopWithError("Layout failed")

	for _, w := range []string{"Relaxed 3 nodes", "Layout failed"} {
		if !strings.Contains(out.String(), w) {
			t.Errorf("stdout %q lacks %q", out.String(), w)
		}
	}
}

func TestSpinnerShowsElapsed(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "Generating...")
	s.draw(s.kind.Frames[0], 3*time.Second)
	if !strings.Contains(buf.String(), "(3s)") {
		t.Errorf("expected elapsed time in %q", buf.String())
	}

	buf.Reset()
	s.draw(s.kind.Frames[0], 500*time.Millisecond)
	if strings.Contains(buf.String(), "(") {
		t.Errorf("elapsed shown before one second: %q", buf.String())
	}
}
