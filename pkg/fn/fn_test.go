package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatal("wrong unwrap")
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
	if e.Error() == nil || e.Error().Error() != "fail" {
		t.Fatalf("Error() = %v", e.Error())
	}
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	if err == nil || err.Error() != "code 404" {
		t.Fatal("Errf wrong message")
	}
}

func TestOkEmptySliceIsNotErr(t *testing.T) {
	r := Ok([]string{})
	if !r.IsOk() {
		t.Fatal("empty Ok must stay distinguishable from Err")
	}
	if v, _ := r.Unwrap(); v == nil || len(v) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", v)
	}
}

func TestMapResult(t *testing.T) {
	r := MapResult(Ok(5), func(v int) string { return strconv.Itoa(v) })
	if v, _ := r.Unwrap(); v != "5" {
		t.Fatal("MapResult failed")
	}
	e := MapResult(Err[int](errors.New("boom")), func(v int) string { return "x" })
	if e.IsOk() || e.Error().Error() != "boom" {
		t.Fatal("MapResult on Err should propagate the error")
	}
}

func TestAndThen(t *testing.T) {
	r := AndThen(Ok("7"), func(s string) Result[int] { return FromPair(strconv.Atoi(s)) })
	if v, _ := r.Unwrap(); v != 7 {
		t.Fatal("AndThen failed")
	}
	bad := AndThen(Ok("nope"), func(s string) Result[int] { return FromPair(strconv.Atoi(s)) })
	if bad.IsOk() {
		t.Fatal("AndThen should surface the inner error")
	}
	skipped := AndThen(Err[string](errors.New("x")), func(s string) Result[int] {
		t.Fatal("f must not run on Err")
		return Ok(0)
	})
	if skipped.IsOk() {
		t.Fatal("AndThen on Err should stay Err")
	}
}

// --- Retry ---

func TestRetrySucceedsEventually(t *testing.T) {
	var calls int32
	r := Retry(context.Background(), FixedRetry(3, time.Millisecond), func(ctx context.Context) Result[string] {
		if atomic.AddInt32(&calls, 1) < 3 {
			return Err[string](errors.New("not yet"))
		}
		return Ok("done")
	})
	if v, _ := r.Unwrap(); v != "done" {
		t.Fatalf("expected done, got %v", r.Error())
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsFixedBudget(t *testing.T) {
	const delay = 20 * time.Millisecond
	var stamps []time.Time
	var failures []int

	opts := FixedRetry(3, delay)
	opts.OnFailure = func(attempt int, err error) { failures = append(failures, attempt) }

	r := Retry(context.Background(), opts, func(ctx context.Context) Result[int] {
		stamps = append(stamps, time.Now())
		return Err[int](errors.New("down"))
	})
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	if len(stamps) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < delay {
			t.Fatalf("gap %d = %v, want >= %v", i, gap, delay)
		}
	}
	if len(failures) != 3 || failures[0] != 1 || failures[2] != 3 {
		t.Fatalf("OnFailure attempts = %v", failures)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	r := Retry(ctx, FixedRetry(5, time.Hour), func(ctx context.Context) Result[int] {
		calls++
		cancel()
		return Err[int](errors.New("fail"))
	})
	if !errors.Is(r.Error(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", r.Error())
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	var calls int
	Retry(context.Background(), RetryOpts{}, func(ctx context.Context) Result[int] {
		calls++
		return Err[int](errors.New("x"))
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

// --- Slices ---

func TestMapNeverNil(t *testing.T) {
	out := Map([]int(nil), strconv.Itoa)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestFilterMap(t *testing.T) {
	out := FilterMap([]string{"1", "x", "3"}, func(s string) (int, bool) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	})
	if len(out) != 2 || out[0] != 1 || out[1] != 3 {
		t.Fatalf("got %v", out)
	}
}

func TestUnique(t *testing.T) {
	out := Unique([]string{"205/55R16", "225/45R17", "205/55R16"})
	if len(out) != 2 || out[0] != "205/55R16" || out[1] != "225/45R17" {
		t.Fatalf("got %v", out)
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	in := []int{5, 4, 3, 2, 1}
	for _, workers := range []int{0, 1, 3} {
		out := ParMap(in, workers, func(v int) int {
			time.Sleep(time.Duration(v) * time.Millisecond)
			return v * 10
		})
		for i, v := range in {
			if out[i] != v*10 {
				t.Fatalf("workers=%d: out[%d] = %d", workers, i, out[i])
			}
		}
	}
}

// --- Stages ---

func TestThenShortCircuits(t *testing.T) {
	parse := Stage[string, int](func(_ context.Context, s string) Result[int] {
		return FromPair(strconv.Atoi(s))
	})
	double := Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v * 2) })
	p := TracedStage("parse.double", Then(parse, double))

	if v, _ := p(context.Background(), "21").Unwrap(); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if p(context.Background(), "x").IsOk() {
		t.Fatal("expected parse error to propagate")
	}
}

func TestRetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	var calls int
	opts := FixedRetry(3, time.Millisecond)
	opts.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }
	r := Retry(context.Background(), opts, func(ctx context.Context) Result[int] {
		calls++
		return Err[int](permanent)
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(r.Error(), permanent) {
		t.Fatalf("unexpected error %v", r.Error())
	}
}
