package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/reqflow/internal/catalog"
	"github.com/samvad-hq/reqflow/pkg/httpclient"
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/request"
	"golang.org/x/time/rate"
)

func newEngine() *request.Engine {
	return request.New(
		request.WithTransport(httpclient.NewRestyTransport(2*time.Second)),
		request.WithPlugins(plugins.New[*request.Event]()),
	)
}

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
		case "/bad-json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{"))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunMixesCompletionStyles(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defs := []catalog.Definition{
		{ID: "cb-ok", URL: srv.URL + "/", Method: "GET", Decode: "json"},
		{ID: "p-ok", URL: srv.URL + "/", Method: "GET", Decode: "json", Promise: true},
		{ID: "cb-fail", URL: srv.URL + "/fail", Method: "GET", Decode: "json"},
		{ID: "p-fail", URL: srv.URL + "/fail", Method: "GET", Decode: "json", Promise: true},
	}

	results, err := NewService(newEngine(), nil, nil).Run(context.Background(), defs)
	if err == nil {
		t.Fatalf("expected joined error for failed requests")
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results[:2] {
		if r.Err != nil || r.Response == nil || r.Response.StatusCode != 200 {
			t.Fatalf("%s: unexpected result %#v", r.ID, r)
		}
	}
	for _, r := range results[2:] {
		if !errors.Is(r.Err, request.ErrStatus) {
			t.Fatalf("%s: expected status error, got %v", r.ID, r.Err)
		}
	}
	if atomic.LoadInt32(&hits) != 4 {
		t.Fatalf("expected 4 server hits, got %d", hits)
	}
}

func TestRunClassifiesCallbackFailures(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defs := []catalog.Definition{
		{ID: "decode", URL: srv.URL + "/bad-json", Method: "GET", Decode: "json"},
		{ID: "transport", URL: "http://127.0.0.1:1/", Method: "GET", Decode: "json"},
	}

	results, _ := NewService(newEngine(), nil, nil).Run(context.Background(), defs)
	if !errors.Is(results[0].Err, request.ErrDecode) {
		t.Fatalf("expected decode error, got %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, request.ErrTransport) {
		t.Fatalf("expected transport error, got %v", results[1].Err)
	}
}

func TestRunStopsWhenLimiterWaitFails(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	defs := []catalog.Definition{
		{ID: "a", URL: srv.URL + "/", Method: "GET", Decode: "json"},
		{ID: "b", URL: srv.URL + "/", Method: "GET", Decode: "json"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)

	results, err := NewService(newEngine(), limiter, nil).Run(ctx, defs)
	if err == nil {
		t.Fatalf("expected error from cancelled context")
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("%s: expected context.Canceled, got %v", r.ID, r.Err)
		}
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("no request should be dispatched, got %d", hits)
	}
}

func TestRunWaitsForListenersAfterCancel(t *testing.T) {
	arrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer srv.Close()

	bus := plugins.New[*request.Event]()
	var recorded int32
	bus.On(plugins.PhaseError, func(*request.Event) {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&recorded, 1)
	})
	engine := request.New(
		request.WithTransport(httpclient.NewRestyTransport(5*time.Second)),
		request.WithPlugins(bus),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-arrived
		cancel()
	}()

	defs := []catalog.Definition{{ID: "slow", URL: srv.URL + "/", Method: "GET", Decode: "json", Promise: true}}
	results, err := NewService(engine, nil, nil).Run(ctx, defs)
	if err == nil {
		t.Fatalf("expected error for cancelled request")
	}
	if atomic.LoadInt32(&recorded) != 1 {
		t.Fatalf("Run returned before the error listener finished")
	}
	if !errors.Is(results[0].Err, request.ErrTransport) {
		t.Fatalf("expected transport error, got %v", results[0].Err)
	}
}

func TestRunRequiresDefinitions(t *testing.T) {
	if _, err := NewService(newEngine(), nil, nil).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty definitions")
	}
	var s *Service
	if _, err := s.Run(context.Background(), []catalog.Definition{{ID: "a"}}); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
