// ABOUTME: The auto-fix loop: detect, fix, apply to a working cache, repeat until nothing is left to fix.
// ABOUTME: Bounded by MaxIterations; never touches the shared cache, only a private clone.
package autofix

import (
	"context"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
)

// MaxIterations bounds the number of detect-and-fix rounds of one run.
const MaxIterations = 5

const (
	outcomeConverged = "converged"
	outcomeExhausted = "exhausted"
	outcomeFailed    = "failed"
)

// DetectFunc produces the integrity errors of a cache.
type DetectFunc func(*cache.InfraCache) []detect.InfraError

// Engine computes the operations repairing an infrastructure.
type Engine struct {
	detect  DetectFunc
	newID   func() string
	metrics *Metrics
	log     *logrus.Entry
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDetector replaces the error detector.
func WithDetector(fn DetectFunc) Option {
	return func(e *Engine) { e.detect = fn }
}

// WithIDGenerator replaces the id generator used for created objects.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithMetrics records runs in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an engine using detect.GenerateErrors and random UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		detect: detect.GenerateErrors,
		newID:  uuid.NewString,
		log:    logging.Component("autofix"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SuggestFixes computes the repair operations of an infrastructure without
// committing them. The shared cache is only read, long enough to clone it.
func (e *Engine) SuggestFixes(ctx context.Context, reg *cache.Registry, src cache.ObjectSource, infraID ulid.ULID) ([]schema.Operation, error) {
	guard, err := reg.GetOrLoad(ctx, src, infraID)
	if err != nil {
		return nil, err
	}
	working := guard.Cache().Clone()
	guard.Release()

	ops, err := e.Run(working)
	if err != nil {
		e.log.WithFields(logrus.Fields{"action": "suggest", "infra_id": infraID.String()}).WithError(err).Warn("auto-fix failed")
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"action":     "suggest",
		"infra_id":   infraID.String(),
		"operations": len(ops),
	}).Info("auto-fix computed")
	return ops, nil
}

// Run repairs working in place and returns the operations applied, in
// iteration order. working must not be shared.
func (e *Engine) Run(working *cache.InfraCache) ([]schema.Operation, error) {
	var ops []schema.Operation
	for i := 1; i <= MaxIterations; i++ {
		fixes, err := e.FixInfra(working, e.detect(working))
		if err != nil {
			e.metrics.observeRun(outcomeFailed, i)
			return nil, err
		}
		if len(fixes) == 0 {
			e.metrics.observeRun(outcomeConverged, i)
			return ops, nil
		}
		for _, fix := range fixes {
			ops = append(ops, fix.Operation)
			e.metrics.observeFix(fix.Operation)
		}
		e.log.WithFields(logrus.Fields{"action": "iteration", "iteration": i, "fixes": len(fixes)}).Debug("fixes applied")
	}
	e.metrics.observeRun(outcomeExhausted, MaxIterations)
	return nil, ErrMaximumIterationReached
}

// FixInfra turns errs into fixes, one policy call per erroring object, and
// applies them to working. Two fixes on the same object are a conflict.
func (e *Engine) FixInfra(working *cache.InfraCache, errs []detect.InfraError) ([]Fix, error) {
	var order []schema.ObjectRef
	grouped := make(map[schema.ObjectRef][]detect.InfraError)
	for _, ie := range errs {
		if _, seen := grouped[ie.ObjRef]; !seen {
			order = append(order, ie.ObjRef)
		}
		grouped[ie.ObjRef] = append(grouped[ie.ObjRef], ie)
	}

	fixes := newFixMap()
	for _, ref := range order {
		obj, ok := working.Get(ref)
		if !ok {
			return nil, &MissingErrorObjectError{Object: ref}
		}
		objFixes, err := e.fixObject(obj, grouped[ref])
		if err != nil {
			return nil, &FixTrialFailureError{Err: err}
		}
		for _, rf := range objFixes {
			if existing, ok := fixes.insert(rf.ref, rf.fix); !ok {
				return nil, &ConflictingFixesError{
					Object: rf.ref,
					Fixes:  []schema.Operation{existing.Operation, rf.fix.Operation},
				}
			}
		}
	}

	result := fixes.values()
	cacheOps := make([]cache.CacheOperation, 0, fixes.len())
	for _, fix := range result {
		cacheOps = append(cacheOps, fix.CacheOperation)
	}
	if err := working.ApplyOperations(cacheOps); err != nil {
		return nil, &FixTrialFailureError{Err: err}
	}
	return result, nil
}
