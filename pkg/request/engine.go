package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/samvad-hq/reqflow/pkg/contenttype"
	"github.com/samvad-hq/reqflow/pkg/headers"
	"github.com/samvad-hq/reqflow/pkg/httpclient"
	"github.com/samvad-hq/reqflow/pkg/plugins"
)

// Event is handed to plugin listeners. Response is nil for the before and request phases;
// Call is nil when the URL could not be parsed. Kind is set on response and error
// events of failed requests.
type Event struct {
	Phase    plugins.Phase
	Call     httpclient.Call
	Config   *Config
	Response *Response
	Kind     ErrorKind
}

// Bus is the plugin bus type engines emit on.
type Bus = plugins.Bus[*Event]

// DefaultPlugins is the process-wide bus used by engines built without WithPlugins.
var DefaultPlugins = plugins.New[*Event]()

// Engine drives the request lifecycle: it normalizes configuration, dispatches
// through a Transport, decodes and classifies the response and notifies plugins.
// It is safe for concurrent use.
type Engine struct {
	transport httpclient.Transport
	plugins   *Bus
	defaults  DefaultsFunc
	log       Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransport sets the transport used to issue calls.
func WithTransport(t httpclient.Transport) Option {
	return func(e *Engine) { e.transport = t }
}

// WithPlugins gives the engine its own bus instead of DefaultPlugins.
func WithPlugins(b *Bus) Option {
	return func(e *Engine) { e.plugins = b }
}

// WithDefaults replaces the defaults provider. StandardDefaults always runs last.
func WithDefaults(fn DefaultsFunc) Option {
	return func(e *Engine) { e.defaults = fn }
}

// WithLogger attaches a debug logger to the engine.
func WithLogger(log Logger) Option {
	return func(e *Engine) { e.log = ensureLogger(log) }
}

// New constructs an Engine. Without WithTransport a resty-backed transport with no timeout is used.
func New(opts ...Option) *Engine {
	e := &Engine{
		plugins: DefaultPlugins,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = httpclient.NewRestyTransport(0)
	}
	if e.plugins == nil {
		e.plugins = plugins.New[*Event]()
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine { return New() })

// Default returns the lazily built process-wide engine bound to DefaultPlugins.
func Default() *Engine { return defaultEngine() }

// Do issues cfg on the default engine.
func Do(ctx context.Context, cfg Config) *Future { return Default().Request(ctx, cfg) }

// Plugins exposes the bus for listener registration.
func (e *Engine) Plugins() *Bus { return e.plugins }

// Request dispatches cfg without blocking on the network. When cfg.IsPromise is
// set it returns a Future and Success/Error are not called; otherwise it returns
// nil and exactly one of Success or Error receives the Response.
func (e *Engine) Request(ctx context.Context, cfg Config) *Future {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.defaults != nil {
		cfg = e.defaults(cfg)
	}
	cfg = StandardDefaults(cfg)

	var (
		fut  *Future
		sink completer
	)
	if cfg.IsPromise {
		fut = newFuture()
		sink = fut
	} else {
		sink = callbackCompleter{success: cfg.Success, failure: cfg.Error}
	}

	x := &exchange{
		engine:     e,
		cfg:        &cfg,
		href:       cfg.URL,
		sink:       sink,
		dispatched: make(chan struct{}),
	}

	t, err := parseTarget(cfg.URL)
	if err != nil {
		close(x.dispatched)
		x.failTransport(err)
		return fut
	}
	x.href = t.href

	x.call = e.transport.NewCall(httpclient.Options{
		Scheme:   t.scheme,
		Hostname: t.hostname,
		Port:     t.port,
		Path:     t.path,
		Method:   cfg.Method,
		Auth:     authString(cfg.User, cfg.Password),
		Agent:    cfg.Agent,
		Headers:  DropNonStringHeaders(cfg.Headers),
	})

	x.emit(plugins.PhaseBefore, nil, "")

	body, err := encodeBody(x.cfg)
	if err != nil {
		close(x.dispatched)
		x.failTransport(err)
		return fut
	}

	e.log.DebugObj("request dispatched", "request_meta", map[string]any{
		"request_id": cfg.ID,
		"method":     cfg.Method,
		"url":        x.href,
	})
	go x.run(ctx, []byte(body))

	// completion phases wait for this so request always precedes response
	defer close(x.dispatched)
	x.emit(plugins.PhaseRequest, nil, "")

	return fut
}

// Send issues cfg in promise style and waits for it to settle.
func (e *Engine) Send(ctx context.Context, cfg Config) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.IsPromise = true
	return e.Request(ctx, cfg).Await(ctx)
}

// Get issues a GET to target.
func (e *Engine) Get(ctx context.Context, target string, cfg Config) *Future {
	cfg.URL, cfg.Method = target, http.MethodGet
	return e.Request(ctx, cfg)
}

// Post issues a POST of data to target.
func (e *Engine) Post(ctx context.Context, target string, data any, cfg Config) *Future {
	cfg.URL, cfg.Method, cfg.Data = target, http.MethodPost, data
	return e.Request(ctx, cfg)
}

// Put issues a PUT of data to target.
func (e *Engine) Put(ctx context.Context, target string, data any, cfg Config) *Future {
	cfg.URL, cfg.Method, cfg.Data = target, http.MethodPut, data
	return e.Request(ctx, cfg)
}

// Delete issues a DELETE to target.
func (e *Engine) Delete(ctx context.Context, target string, cfg Config) *Future {
	cfg.URL, cfg.Method = target, http.MethodDelete
	return e.Request(ctx, cfg)
}

// exchange owns the mutable state of one in-flight request.
type exchange struct {
	engine     *Engine
	cfg        *Config
	call       httpclient.Call
	href       string
	sink       completer
	dispatched chan struct{}
}

func (x *exchange) emit(phase plugins.Phase, resp *Response, kind ErrorKind) {
	x.engine.plugins.Emit(phase, &Event{
		Phase:    phase,
		Call:     x.call,
		Config:   x.cfg,
		Response: resp,
		Kind:     kind,
	})
}

func (x *exchange) run(ctx context.Context, body []byte) {
	raw, err := x.call.End(ctx, body)
	if err != nil {
		x.failTransport(err)
		return
	}
	defer raw.Body.Close()

	text, err := readBody(raw.Body)
	if err != nil {
		x.failTransport(fmt.Errorf("read response body: %w", err))
		return
	}

	resp := &Response{
		URL:             x.href,
		Method:          x.cfg.Method,
		StatusCode:      raw.StatusCode,
		ResponseHeaders: headers.Normalize(raw.Header),
		RequestHeaders:  mergeHeaders(defaultRequestHeaders, x.cfg.Headers),
		Data:            nil,
	}

	if text != "" {
		switch {
		case x.cfg.TransformResponse != nil:
			resp.Data = x.cfg.TransformResponse(text)
			if _, failed := resp.Data.(error); failed {
				x.settle(resp, KindDecode)
				return
			}
		case contenttype.Of(resp.ResponseHeaders) == contenttype.JSON:
			var v any
			if err := json.Unmarshal([]byte(text), &v); err != nil {
				resp.Data = err
				x.settle(resp, KindDecode)
				return
			}
			resp.Data = v
		default:
			resp.Data = text
		}
	}

	if IsSuccessStatus(resp.StatusCode) {
		x.settle(resp, "")
		return
	}
	x.settle(resp, KindStatus)
}

// failTransport completes without a status. Only caller headers are reported.
func (x *exchange) failTransport(err error) {
	x.settle(&Response{
		URL:             x.href,
		Method:          x.cfg.Method,
		StatusCode:      0,
		ResponseHeaders: map[string]any{},
		RequestHeaders:  mergeHeaders(x.cfg.Headers),
		Data:            err,
	}, KindTransport)
}

func (x *exchange) settle(resp *Response, kind ErrorKind) {
	<-x.dispatched

	x.emit(plugins.PhaseResponse, resp, kind)
	if kind == "" {
		x.emit(plugins.PhaseLoad, resp, kind)
	} else {
		x.emit(plugins.PhaseError, resp, kind)
	}

	x.engine.log.DebugObj("request completed", "request_result", map[string]any{
		"request_id":  x.cfg.ID,
		"status_code": resp.StatusCode,
		"error_kind":  string(kind),
	})
	x.sink.complete(outcome{response: resp, kind: kind})
}

// readBody accumulates the body stream chunk by chunk until EOF.
func readBody(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		sb.Write(buf[:n])
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func authString(user, password string) string {
	if user == "" || password == "" {
		return ""
	}
	return user + ":" + password
}

type target struct {
	scheme   string
	hostname string
	port     int
	path     string
	href     string
}

const (
	defaultPort    = 80
	defaultTLSPort = 443
)

func parseTarget(raw string) (target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return target{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Hostname() == "" {
		return target{}, fmt.Errorf("url %q is not absolute", raw)
	}

	t := target{
		scheme:   strings.ToLower(u.Scheme),
		hostname: u.Hostname(),
		port:     defaultPort,
		path:     u.EscapedPath(),
		href:     u.String(),
	}
	if t.scheme == "https" {
		t.port = defaultTLSPort
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return target{}, fmt.Errorf("url %q has invalid port: %w", raw, err)
		}
		t.port = n
	}
	if t.path == "" {
		t.path = "/"
	}
	if u.RawQuery != "" {
		t.path += "?" + u.RawQuery
	}
	return t, nil
}
