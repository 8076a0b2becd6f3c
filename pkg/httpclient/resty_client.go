package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyTransport adapts resty.Client to the httpclient.Transport interface.
type RestyTransport struct {
	client  *resty.Client
	timeout time.Duration
}

// NewRestyTransport creates a transport with the specified timeout. Redirects are
// never followed; 3xx responses are returned to the caller as-is.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	return &RestyTransport{
		client:  newRestyBaseClient(timeout, nil),
		timeout: timeout,
	}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// newRestyBaseClient creates a resty.Client for the engine. A non-nil agent
// replaces the underlying round tripper.
func newRestyBaseClient(timeout time.Duration, agent http.RoundTripper) *resty.Client {
	var c *resty.Client
	if agent != nil {
		c = resty.NewWithClient(&http.Client{Transport: agent})
	} else {
		c = resty.New()
	}
	c.SetTimeout(timeout)
	c.SetAllowGetMethodPayload(true)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	c.SetPreRequestHook(stripImplicitHeaders)
	return c
}

type callerHeadersKey struct{}

// stripImplicitHeaders removes the Content-Type, Accept and User-Agent values
// resty or net/http would add on their own, unless the caller set them.
func stripImplicitHeaders(_ *resty.Client, req *http.Request) error {
	caller, ok := req.Context().Value(callerHeadersKey{}).(map[string]string)
	if !ok {
		return nil
	}
	set := make(map[string]bool, len(caller))
	for k := range caller {
		set[http.CanonicalHeaderKey(k)] = true
	}

	for _, name := range []string{"Content-Type", "Accept"} {
		if !set[name] {
			req.Header.Del(name)
		}
	}
	// An empty value keeps net/http from writing its default User-Agent.
	if !set["User-Agent"] {
		req.Header["User-Agent"] = []string{""}
	}
	return nil
}

// NewCall prepares a request for opts. Calls carrying an agent get their own client.
func (t *RestyTransport) NewCall(opts Options) Call {
	client := t.client
	if opts.Agent != nil {
		client = newRestyBaseClient(t.timeout, opts.Agent)
	}
	return &restyCall{client: client, opts: opts}
}

type restyCall struct {
	client *resty.Client
	opts   Options
}

func (c *restyCall) Options() Options { return c.opts }

// End performs the request and hands back the unparsed body stream.
func (c *restyCall) End(ctx context.Context, body []byte) (*RawResponse, error) {
	if c.opts.Headers == nil {
		ctx = context.WithValue(ctx, callerHeadersKey{}, map[string]string{})
	} else {
		ctx = context.WithValue(ctx, callerHeadersKey{}, c.opts.Headers)
	}
	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)

	if len(c.opts.Headers) > 0 {
		req.SetHeaders(c.opts.Headers)
	}
	if user, pass, ok := strings.Cut(c.opts.Auth, ":"); ok {
		req.SetBasicAuth(user, pass)
	}
	if len(body) > 0 {
		req.SetBody(body)
	}

	resp, err := req.Execute(c.opts.Method, c.opts.URL())
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, err
	}

	raw := resp.RawBody()
	if raw == nil {
		raw = http.NoBody
	}
	return &RawResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       raw,
	}, nil
}
