// Package dispatch replays catalog definitions through the request engine.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/reqflow/internal/catalog"
	"github.com/samvad-hq/reqflow/internal/logger"
	"github.com/samvad-hq/reqflow/pkg/request"
	"golang.org/x/time/rate"
)

// Requester is the engine surface the service needs.
type Requester interface {
	Request(ctx context.Context, cfg request.Config) *request.Future
}

// Result is the outcome of one dispatched definition.
type Result struct {
	ID       string
	Response *request.Response
	Err      error
}

// Service paces definitions onto the engine and waits for every outcome.
type Service struct {
	engine  Requester
	limiter *rate.Limiter
	log     logger.Logger
}

// NewService wires a dispatcher. A nil limiter disables pacing.
func NewService(engine Requester, limiter *rate.Limiter, log logger.Logger) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		engine:  engine,
		limiter: limiter,
		log:     log,
	}
}

// Run dispatches every definition and returns per-definition results in input
// order, plus the joined errors of the failed ones. It returns only after every
// dispatched request has settled, even when ctx is cancelled.
func (s *Service) Run(ctx context.Context, defs []catalog.Definition) ([]Result, error) {
	if s == nil || s.engine == nil {
		return nil, fmt.Errorf("dispatch service is not initialized")
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no requests configured for dispatch")
	}

	results := make([]Result, len(defs))
	var wg sync.WaitGroup
	for i, def := range defs {
		results[i].ID = def.ID
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				for j := i; j < len(defs); j++ {
					results[j] = Result{ID: defs[j].ID, Err: fmt.Errorf("dispatch %s: %w", defs[j].ID, err)}
				}
				break
			}
		}

		wg.Add(1)
		s.start(ctx, def, &results[i], wg.Done)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		errs = append(errs, r.Err)
		s.log.ErrorObj("request dispatch failed", "dispatch_error", map[string]any{
			"request_id": r.ID,
			"error":      r.Err.Error(),
		})
	}
	return results, errors.Join(errs...)
}

// start issues def and arranges for done to run once res is filled. Promise
// definitions are awaited in a goroutine; callback definitions complete through
// their Success and Error hooks.
func (s *Service) start(ctx context.Context, def catalog.Definition, res *Result, done func()) {
	cfg, err := def.ToConfig()
	if err != nil {
		res.Err = fmt.Errorf("build request %s: %w", def.ID, err)
		done()
		return
	}

	if cfg.IsPromise {
		fut := s.engine.Request(ctx, cfg)
		go func() {
			defer done()
			// settle first so completion listeners finish before Run returns
			<-fut.Done()
			res.Response, res.Err = fut.Await(context.Background())
			if res.Err != nil {
				res.Err = fmt.Errorf("request %s: %w", def.ID, res.Err)
			}
		}()
		return
	}

	var once sync.Once
	finish := func(resp *request.Response, err error) {
		once.Do(func() {
			res.Response, res.Err = resp, err
			done()
		})
	}
	cfg.Success = func(resp *request.Response) { finish(resp, nil) }
	cfg.Error = func(resp *request.Response) {
		finish(resp, fmt.Errorf("request %s: %w", def.ID, describe(resp)))
	}
	s.engine.Request(ctx, cfg)
}

// describe turns a callback-path failure into an error comparable to the
// promise path's rejection.
func describe(resp *request.Response) error {
	kind := request.KindStatus
	if _, failed := resp.Data.(error); failed {
		kind = request.KindDecode
	}
	if resp.StatusCode == 0 {
		kind = request.KindTransport
	}
	return &request.ResponseError{Kind: kind, Response: resp}
}
