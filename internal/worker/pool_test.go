package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	pos int
	err error
}

func (r *mockResult) Index() int { return r.pos }
func (r *mockResult) Err() error { return r.err }

type mockJob struct {
	pos       int
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *mockJob) Index() int { return j.pos }

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{pos: j.pos, err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{pos: j.pos, err: errors.New("job error")}
	}
	return &mockResult{pos: j.pos}
}

func collect(p *Pool) []Result {
	var out []Result
	for r := range p.Results() {
		out = append(out, r)
	}
	return out
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{{5, 5}, {0, 1}, {-1, 1}}
	for _, tt := range tests {
		if got := NewPool(context.Background(), tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	count := 10
	go func() {
		defer pool.Close()
		for i := 0; i < count; i++ {
			pool.Submit(&mockJob{pos: i, executed: &executed})
		}
	}()

	results := collect(pool)
	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
	seen := make(map[int]bool)
	for _, r := range results {
		seen[r.Index()] = true
	}
	if len(seen) != count {
		t.Errorf("expected %d distinct indexes, got %d", count, len(seen))
	}
}

func TestPool_Errors(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()
	go func() {
		defer pool.Close()
		for i := 0; i < 6; i++ {
			pool.Submit(&mockJob{pos: i, shouldErr: i%2 == 0})
		}
	}()

	failed := 0
	for _, r := range collect(pool) {
		if r.Err() != nil {
			failed++
		}
	}
	if failed != 3 {
		t.Errorf("expected 3 failures, got %d", failed)
	}
}

func TestPool_Concurrency(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	start := time.Now()
	go func() {
		defer pool.Close()
		for i := 0; i < 4; i++ {
			pool.Submit(&mockJob{pos: i, duration: 100 * time.Millisecond})
		}
	}()
	collect(pool)

	if elapsed := time.Since(start); elapsed > 350*time.Millisecond {
		t.Errorf("jobs did not run concurrently: took %v", elapsed)
	}
}

func TestPool_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	go func() {
		defer pool.Close()
		for i := 0; i < 20; i++ {
			if !pool.Submit(&mockJob{pos: i, duration: 50 * time.Millisecond}) {
				return
			}
		}
	}()

	time.AfterFunc(70*time.Millisecond, cancel)
	done := make(chan []Result)
	go func() { done <- collect(pool) }()

	select {
	case results := <-done:
		if len(results) >= 20 {
			t.Errorf("expected cancellation to cut the run short, got %d results", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancellation")
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&mockJob{pos: 0, duration: time.Second})

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Shutdown did not interrupt running jobs")
	}
	if pool.Submit(&mockJob{pos: 1}) {
		t.Error("Submit after Shutdown should report false")
	}
}
