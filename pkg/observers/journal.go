package observers

import (
	"time"

	"github.com/samvad-hq/reqflow/internal/storage"
	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/request"
)

// Journal records the terminal outcome of every request into a storage journal.
type Journal struct {
	store storage.Journal
	log   Logger
}

// NewJournal returns an observer writing to store.
func NewJournal(store storage.Journal, log Logger) *Journal {
	return &Journal{store: store, log: ensureLogger(log)}
}

// Register implements Observer.
func (j *Journal) Register(bus *request.Bus) {
	if j.store == nil {
		return
	}
	bus.On(plugins.PhaseLoad, j.record)
	bus.On(plugins.PhaseError, j.record)
}

func (j *Journal) record(evt *request.Event) {
	entry := storage.Entry{
		RequestID:  evt.Config.ID,
		Method:     evt.Response.Method,
		URL:        evt.Response.URL,
		StatusCode: evt.Response.StatusCode,
		Outcome:    outcomeOf(evt),
		ErrorKind:  string(evt.Kind),
		RecordedAt: time.Now().UTC(),
	}
	if err := j.store.Record(entry); err != nil {
		j.log.ErrorObj("journal record failed", "journal_error", map[string]any{
			"request_id": entry.RequestID,
			"error":      err.Error(),
		})
	}
}
