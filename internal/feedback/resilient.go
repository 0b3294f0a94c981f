package feedback

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ldl-target-server/internal/domain"
)

// BreakerSettings tunes the circuit breaker around a store
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings trips after 3+ requests with at least 60% failures
// and probes again after a minute.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// ResilientStore wraps a Store with a circuit breaker so a failing database
// fails fast instead of stalling every request.
type ResilientStore struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
}

var _ Store = (*ResilientStore)(nil)

// NewResilientStore wraps store with a circuit breaker
func NewResilientStore(store Store, settings BreakerSettings, logger *logrus.Logger) *ResilientStore {
	return &ResilientStore{
		store: store,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "feedback-store",
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= settings.MinRequests && failureRatio >= settings.FailureRatio
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
			IsSuccessful: func(err error) bool {
				if err == nil || errors.Is(err, domain.ErrFeedbackNotFound) {
					return true
				}
				_, invalid := domain.AsValidationError(err)
				return invalid
			},
		}),
	}
}

// IsUnavailable reports whether err came from an open or saturated breaker
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the breaker state name
func (r *ResilientStore) State() string {
	return r.breaker.State().String()
}

func (r *ResilientStore) do(fn func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (r *ResilientStore) Save(ctx context.Context, feedback *Feedback) error {
	return r.do(func() error { return r.store.Save(ctx, feedback) })
}

func (r *ResilientStore) Get(ctx context.Context, evaluationID string, region domain.Region) (*Feedback, error) {
	var fb *Feedback
	err := r.do(func() error {
		var err error
		fb, err = r.store.Get(ctx, evaluationID, region)
		return err
	})
	return fb, err
}

func (r *ResilientStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	var list []*Feedback
	err := r.do(func() error {
		var err error
		list, err = r.store.List(ctx, limit, offset)
		return err
	})
	return list, err
}

func (r *ResilientStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.do(func() error {
		var err error
		n, err = r.store.Count(ctx)
		return err
	})
	return n, err
}

func (r *ResilientStore) Delete(ctx context.Context, id int64) error {
	return r.do(func() error { return r.store.Delete(ctx, id) })
}

func (r *ResilientStore) ExportJSON(ctx context.Context, writer io.Writer) (int, error) {
	var count int
	err := r.do(func() error {
		var err error
		count, err = r.store.ExportJSON(ctx, writer)
		return err
	})
	return count, err
}

func (r *ResilientStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	var imported, skipped int
	err := r.do(func() error {
		var err error
		imported, skipped, err = r.store.ImportJSON(ctx, reader)
		return err
	})
	return imported, skipped, err
}

func (r *ResilientStore) Ping(ctx context.Context) error {
	return r.do(func() error { return r.store.Ping(ctx) })
}

// Close closes the wrapped store directly, bypassing the breaker.
func (r *ResilientStore) Close() error {
	return r.store.Close()
}
