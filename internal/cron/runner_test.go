package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_RunsWithBaseContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "base"))
	defer cancel()
	r := New(nil, ctx)
	got := make(chan string, 1)
	if _, err := r.Add("probe", "@every 1s", func(ctx context.Context) {
		v, _ := ctx.Value(ctxKey{}).(string)
		select {
		case got <- v:
		default:
		}
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	defer r.Stop()

	select {
	case v := <-got:
		if v != "base" {
			t.Fatalf("ctx value=%q", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := New(nil, context.Background())
	var runs atomic.Int32
	if _, err := r.Add("boom", "@every 1s", func(context.Context) {
		runs.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	deadline := time.Now().Add(4 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	r.Stop()
	if runs.Load() < 2 {
		t.Fatalf("runs=%d, scheduler died after panic", runs.Load())
	}
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background())
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected parse error")
	}
	if r.Entries() != 0 {
		t.Fatalf("entries=%d", r.Entries())
	}
}

type ctxKey struct{}
