package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/pkg/logger"
)

const persistTimeout = 5 * time.Second

// Runtime interprets session effects.
//
// Runtime never mutates State. Work that blocks (engine calls, handoffs,
// install dialogs) runs on its own goroutine and reports back through emit.
type Runtime struct {
	id           string
	engine       engine.Engine
	location     fragment.Location
	offline      offline.Target
	buildTimeout time.Duration
	clock        actor.Clock

	wg sync.WaitGroup
}

// NewRuntime returns a runtime for session id.
func NewRuntime(id string, eng engine.Engine, loc fragment.Location, target offline.Target, buildTimeout time.Duration, clock actor.Clock) *Runtime {
	if clock == nil {
		clock = actor.RealClock{}
	}
	return &Runtime{
		id:           id,
		engine:       eng,
		location:     loc,
		offline:      target,
		buildTimeout: buildTimeout,
		clock:        clock,
	}
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		// Persist even during shutdown: an acknowledged change is stored
		// once Close returns.
		if e, ok := eff.(effPersist); ok {
			r.persist(context.WithoutCancel(ctx), e)
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effBundle:
			r.bundle(ctx, e, emit)
		case effHandoff:
			r.handoff(ctx, e)
		case effShowPrompt:
			r.showPrompt(ctx, e, emit)
		default:
			// Unknown effect: ignore.
		}
	}
}

// Stop implements actor.Runtime. Background work observes the actor context,
// which is already canceled when Stop runs.
func (r *Runtime) Stop() {}

// Wait blocks until background work has returned.
func (r *Runtime) Wait() {
	r.wg.Wait()
}

// WatchReady emits EngineReady once the engine has loaded.
func (r *Runtime) WatchReady(ctx context.Context, emit func(actor.Input)) {
	if r.engine == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-r.engine.Ready():
			logger.Debugf("[session] %s engine ready", r.id)
			emit(EngineReady())
		case <-ctx.Done():
		}
	}()
}

// syncLocation writes the initial fragment unless the location already holds
// it.
func (r *Runtime) syncLocation(ctx context.Context, encoded string) {
	if r.location == nil {
		return
	}
	current, err := r.location.Fragment(ctx)
	if err == nil && current == encoded {
		return
	}
	r.persist(ctx, effPersist{Fragment: encoded})
}

// persist runs inline so fragment writes land in reducer order.
func (r *Runtime) persist(ctx context.Context, eff effPersist) {
	if r.location == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	err := r.location.SetFragment(pctx, eff.Fragment)
	metrics.RecordFragmentWrite(err == nil)
	if err != nil {
		logger.Warnf("[session] %s persist fragment: %v", r.id, err)
	}
}

func (r *Runtime) bundle(ctx context.Context, eff effBundle, emit func(actor.Input)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.engine == nil {
			emit(BuildFinished(eff.Gen, nil, engine.Errorf("no bundling engine configured")))
			return
		}

		bctx := ctx
		if r.buildTimeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(ctx, r.buildTimeout)
			defer cancel()
		}

		start := r.clock.Now()
		artifacts, err := r.engine.Bundle(bctx, eff.Files, eff.Options)
		elapsed := r.clock.Now().Sub(start)

		if ctx.Err() != nil {
			// The store stopped; nobody is left to observe the result.
			return
		}

		result := "success"
		if err != nil {
			result = "error"
			if errors.Is(bctx.Err(), context.DeadlineExceeded) {
				err = &BuildTimedOutError{After: r.buildTimeout}
				result = "timeout"
			}
			logger.Debugf("[session] %s build %d failed: %v", r.id, eff.Gen, err)
		} else {
			logger.Debugf("[session] %s build %d produced %d artifacts in %s", r.id, eff.Gen, len(artifacts), elapsed)
		}
		metrics.RecordBuild(result, elapsed)
		emit(BuildFinished(eff.Gen, artifacts, err))
	}()
}

func (r *Runtime) handoff(ctx context.Context, eff effHandoff) {
	if r.offline == nil || r.engine == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		msg, err := offline.Handoff(ctx, r.offline, r.id, r.engine.Snapshot, r.clock.Now())
		metrics.RecordHandoff(err == nil)
		if err != nil {
			logger.Warnf("[handoff] %s build %d: %v", r.id, eff.Gen, err)
			return
		}
		logger.Debugf("[handoff] %s build %d posted %s with %d files", r.id, eff.Gen, msg.ID, len(msg.Files))
	}()
}

func (r *Runtime) showPrompt(ctx context.Context, eff effShowPrompt, emit func(actor.Input)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := eff.Handle.Prompt(); err != nil {
			logger.Warnf("[session] %s install prompt: %v", r.id, err)
			emit(InstallResolved(eff.Gen, "", err))
			return
		}
		outcome, err := eff.Handle.UserChoice(ctx)
		if err != nil {
			return
		}
		if outcome == install.OutcomeAccepted {
			logger.Infof("[session] %s user accepted the install prompt", r.id)
		} else {
			logger.Infof("[session] %s user dismissed the install prompt", r.id)
		}
		emit(InstallResolved(eff.Gen, outcome, nil))
	}()
}
