package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type capture struct {
	mu   sync.Mutex
	body []byte
	ct   string
	hits int
}

func upstream(t *testing.T, reply string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.body, c.ct = b, r.Header.Get("Content-Type")
		c.hits++
		c.mu.Unlock()
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestForwardVerbatim(t *testing.T) {
	srv, got := upstream(t, "accepted")
	f := NewForwarder(srv.URL, srv.Client(), nil)

	reply, err := f.Forward(context.Background(), []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if reply != "accepted" {
		t.Fatalf("reply: want=%q got=%q", "accepted", reply)
	}
	if string(got.body) != `{"a":1}` {
		t.Fatalf("forwarded body: want=%q got=%q", `{"a":1}`, got.body)
	}
	if got.ct != "application/json" {
		t.Fatalf("content type: got=%q", got.ct)
	}
}

func TestForwardArrayPayload(t *testing.T) {
	srv, got := upstream(t, "")
	f := NewForwarder(srv.URL, srv.Client(), nil)

	if _, err := f.Forward(context.Background(), []byte(`[{"a":1},2]`)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if string(got.body) != `[{"a":1},2]` {
		t.Fatalf("forwarded body: got=%q", got.body)
	}
}

func TestForwardEmptyReplyIsOK(t *testing.T) {
	srv, _ := upstream(t, "")
	f := NewForwarder(srv.URL, srv.Client(), nil)

	reply, err := f.Forward(context.Background(), []byte(`{"a":1}`))
	if err != nil || reply != "ok" {
		t.Fatalf("want ok,nil got %q,%v", reply, err)
	}
}

func TestForwardMalformedNeverCallsUpstream(t *testing.T) {
	srv, got := upstream(t, "x")
	f := NewForwarder(srv.URL, srv.Client(), nil)

	if _, err := f.Forward(context.Background(), []byte(`{"a":`)); !errors.Is(err, ErrMalformedJSON) {
		t.Fatalf("want ErrMalformedJSON got=%v", err)
	}
	if got.hits != 0 {
		t.Fatalf("upstream called %d times", got.hits)
	}
}

func TestForwardWithoutTarget(t *testing.T) {
	f := NewForwarder("", nil, nil)
	if _, err := f.Forward(context.Background(), []byte(`{}`)); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("want ErrNoTarget got=%v", err)
	}
}

func TestForwardUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewForwarder(url, nil, nil)
	if _, err := f.Forward(context.Background(), []byte(`{}`)); err == nil {
		t.Fatalf("want error for unreachable upstream")
	}
}
