package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Options describes a single outgoing request at the transport level.
type Options struct {
	Scheme   string
	Hostname string
	Port     int
	Path     string
	Method   string
	// Auth is "user:password", or empty when no credentials apply.
	Auth    string
	Agent   http.RoundTripper
	Headers map[string]string
}

// URL reassembles the absolute target from the parsed parts. The port is left
// out when it is the scheme's default, so the Host header carries the bare name.
func (o Options) URL() string {
	scheme := o.Scheme
	if scheme == "" {
		scheme = "http"
	}
	path := o.Path
	if path == "" {
		path = "/"
	}
	host := o.Hostname
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if o.Port != 0 && o.Port != defaultPorts[scheme] {
		host = net.JoinHostPort(o.Hostname, strconv.Itoa(o.Port))
	}
	return scheme + "://" + host + path
}

var defaultPorts = map[string]int{"http": 80, "https": 443}

// RawResponse is the transport's view of a response: status, headers and an unread body.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Call is one prepared request. End sends body and blocks until response headers
// arrive or the transport fails. The caller owns and must close RawResponse.Body.
type Call interface {
	Options() Options
	End(ctx context.Context, body []byte) (*RawResponse, error)
}

// Transport builds calls so callers can inject fakes or different HTTP stacks.
type Transport interface {
	NewCall(opts Options) Call
}
