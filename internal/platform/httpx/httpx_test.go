package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type codedErr struct{ code int }

func (e *codedErr) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e *codedErr) HTTPStatusCode() int { return e.code }

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatalf("nil error should not be retryable")
	}
	if IsRetryableError(errors.New("plain")) {
		t.Fatalf("plain error should not be retryable")
	}
	if !IsRetryableError(&codedErr{code: 429}) {
		t.Fatalf("429 should be retryable")
	}
	if !IsRetryableError(&codedErr{code: 503}) {
		t.Fatalf("503 should be retryable")
	}
	if IsRetryableError(&codedErr{code: 400}) {
		t.Fatalf("400 should not be retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	got := RetryAfterDuration(resp, time.Second, 10*time.Second)
	if got != 3*time.Second {
		t.Fatalf("want 3s got %s", got)
	}

	resp.Header.Set("Retry-After", "120")
	got = RetryAfterDuration(resp, time.Second, 10*time.Second)
	if got != 10*time.Second {
		t.Fatalf("cap: want 10s got %s", got)
	}

	got = RetryAfterDuration(nil, 2*time.Second, 10*time.Second)
	if got != 2*time.Second {
		t.Fatalf("fallback: want 2s got %s", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		v := JitterSleep(base)
		if v < 800*time.Millisecond || v > 1200*time.Millisecond {
			t.Fatalf("jitter out of bounds: %s", v)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatalf("zero base should sleep zero")
	}
}
