package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
)

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH-secretToken_42/sendMessage": timeout`)
	got := sanitizeErrorMessage(err)
	if got == err.Error() {
		t.Fatal("expected token to be redacted")
	}
	if want := "bot<redacted>"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in %q", want, got)
	}
}

func TestClassifyErrorKinds(t *testing.T) {
	if got := classifyError(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("deadline = %q, expected timeout", got)
	}
	if got := classifyError(&net.DNSError{IsTimeout: false}); got != "dns" {
		t.Fatalf("dns = %q, expected dns", got)
	}
	if got := classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}); got != "dial" {
		t.Fatalf("dial = %q, expected dial", got)
	}
	urlErr := &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}
	if got := classifyError(urlErr); got != "dial" {
		t.Fatalf("wrapped dial = %q, expected dial", got)
	}
	if got := classifyError(fmt.Errorf("telegram: Bad Request (400)")); got != "http_4xx" {
		t.Fatalf("400 = %q, expected http_4xx", got)
	}
	if got := classifyError(fmt.Errorf("telegram: Internal Server Error (502)")); got != "http_5xx" {
		t.Fatalf("502 = %q, expected http_5xx", got)
	}
	if got := classifyError(errors.New("mystery")); got != "unknown" {
		t.Fatalf("mystery = %q, expected unknown", got)
	}
}

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 4, Workers: 1})

	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-done
	d.Close()

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("enqueue after close = %v, expected ErrQueueClosed", err)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("error count = %d, expected 0", d.ErrorCount())
	}
}
