// Package observers provides ready-made plugin bus listeners for the request engine.
package observers

import (
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/request"
)

// Observer attaches its listeners to a bus.
type Observer interface {
	Register(bus *request.Bus)
}

// RegisterAll registers every non-nil observer on bus in order.
func RegisterAll(bus *request.Bus, obs ...Observer) {
	for _, o := range obs {
		if o != nil {
			o.Register(bus)
		}
	}
}

// Logger defines the logging surface observers rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

func outcomeOf(evt *request.Event) string {
	if evt.Phase == plugins.PhaseError || evt.Kind != "" {
		return "error"
	}
	return "success"
}

func statusOf(evt *request.Event) int {
	if evt.Response == nil {
		return 0
	}
	return evt.Response.StatusCode
}
