package observers

import (
	"context"
	"time"

	"github.com/samvad-hq/reqflow/pkg/plugins"
	"github.com/samvad-hq/reqflow/pkg/publishers"
	"github.com/samvad-hq/reqflow/pkg/request"
)

const defaultPublishTimeout = 10 * time.Second

// Subscription binds a publisher to the phases it receives.
type Subscription struct {
	Publisher publishers.Publisher
	Phases    []plugins.Phase
}

// Subscriptions pairs built publishers with their configs' phase filters.
// pubs and cfgs must be index-aligned, as returned by publishers.BuildAll.
func Subscriptions(cfgs []publishers.PublisherConfig, pubs []publishers.Publisher) []Subscription {
	subs := make([]Subscription, 0, len(pubs))
	for i, pub := range pubs {
		if i >= len(cfgs) {
			break
		}
		var phases []plugins.Phase
		for _, p := range plugins.Phases() {
			if cfgs[i].Wants(string(p)) {
				phases = append(phases, p)
			}
		}
		subs = append(subs, Subscription{Publisher: pub, Phases: phases})
	}
	return subs
}

// Publishing forwards lifecycle events to downstream publishers.
type Publishing struct {
	routes  map[plugins.Phase]*publishers.Fanout
	all     *publishers.Fanout
	timeout time.Duration
	log     Logger
}

// NewPublishing builds a publishing observer from subscriptions.
func NewPublishing(subs []Subscription, log Logger) *Publishing {
	byPhase := make(map[plugins.Phase][]publishers.Publisher)
	var all []publishers.Publisher
	for _, s := range subs {
		if s.Publisher == nil {
			continue
		}
		all = append(all, s.Publisher)
		for _, p := range s.Phases {
			byPhase[p] = append(byPhase[p], s.Publisher)
		}
	}

	routes := make(map[plugins.Phase]*publishers.Fanout, len(byPhase))
	for phase, pubs := range byPhase {
		routes[phase] = publishers.NewFanout(pubs)
	}
	return &Publishing{
		routes:  routes,
		all:     publishers.NewFanout(all),
		timeout: defaultPublishTimeout,
		log:     ensureLogger(log),
	}
}

// Register implements Observer.
func (p *Publishing) Register(bus *request.Bus) {
	for phase, fanout := range p.routes {
		bus.On(phase, func(evt *request.Event) { p.publish(fanout, evt) })
	}
}

// Close releases every publisher.
func (p *Publishing) Close() error {
	return p.all.Close()
}

func (p *Publishing) publish(fanout *publishers.Fanout, evt *request.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	out := ToPublisherEvent(evt)
	delivered, err := fanout.Publish(ctx, out)
	if err != nil {
		p.log.ErrorObj("publish lifecycle event failed", "publish_error", map[string]any{
			"request_id": out.RequestID,
			"phase":      out.Phase,
			"delivered":  delivered,
			"error":      err.Error(),
		})
	}
}

// ToPublisherEvent maps a bus event onto the downstream event shape.
func ToPublisherEvent(evt *request.Event) publishers.Event {
	out := publishers.NewEvent(evt.Config.ID, string(evt.Phase))
	out.Method = evt.Config.Method
	out.URL = evt.Config.URL
	out.ErrorKind = string(evt.Kind)
	if evt.Response != nil {
		out.Method = evt.Response.Method
		out.URL = evt.Response.URL
		out.StatusCode = evt.Response.StatusCode
		if err, ok := evt.Response.Data.(error); ok {
			out.Error = err.Error()
		}
	}
	return out
}
