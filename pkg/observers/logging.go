package observers

import (
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/request"
)

// Logging writes one structured line per lifecycle milestone.
type Logging struct {
	log Logger
}

// NewLogging returns a logging observer.
func NewLogging(log Logger) *Logging {
	return &Logging{log: ensureLogger(log)}
}

// Register implements Observer.
func (l *Logging) Register(bus *request.Bus) {
	bus.On(plugins.PhaseRequest, func(evt *request.Event) {
		l.log.DebugObj("request dispatched", "request_dispatched", map[string]any{
			"request_id": evt.Config.ID,
			"method":     evt.Config.Method,
			"url":        evt.Config.URL,
		})
	})
	bus.On(plugins.PhaseLoad, func(evt *request.Event) {
		l.log.InfoObj("request succeeded", "request_succeeded", map[string]any{
			"request_id":  evt.Config.ID,
			"method":      evt.Response.Method,
			"url":         evt.Response.URL,
			"status_code": evt.Response.StatusCode,
		})
	})
	bus.On(plugins.PhaseError, func(evt *request.Event) {
		fields := map[string]any{
			"request_id":  evt.Config.ID,
			"method":      evt.Response.Method,
			"url":         evt.Response.URL,
			"status_code": evt.Response.StatusCode,
			"error_kind":  string(evt.Kind),
		}
		if err, ok := evt.Response.Data.(error); ok {
			fields["error"] = err.Error()
		}
		l.log.WarnObj("request failed", "request_failed", fields)
	})
}
