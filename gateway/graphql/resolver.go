package graphql

//go:generate go run github.com/99designs/gqlgen generate

import (
	"context"
	"log/slog"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/gateway/graphql/generated"
	"github.com/c360/eventgraph/gateway/graphql/model"
	"github.com/c360/eventgraph/store"
)

// MetricsRecorder wraps a root resolver call to record its outcome.
type MetricsRecorder interface {
	RecordMetrics(ctx context.Context, operation string, fn func() error) error
}

// Resolver serves every operation from one Store and announces creations on Bus.
type Resolver struct {
	Store   *store.Store
	Bus     *bus.Bus
	Logger  *slog.Logger
	Metrics MetricsRecorder
}

var _ generated.ResolverRoot = (*Resolver)(nil)

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// record runs fn under the metrics recorder when one is set.
func (r *Resolver) record(ctx context.Context, operation string, fn func() error) error {
	if r.Metrics == nil {
		return fn()
	}
	return r.Metrics.RecordMetrics(ctx, operation, fn)
}

// announce publishes a created record. A failed publish is logged and
// otherwise ignored; the mutation has already succeeded.
func (r *Resolver) announce(ctx context.Context, topic bus.Topic, v any) {
	if r.Bus == nil {
		return
	}
	if err := r.Bus.Publish(ctx, topic, v); err != nil {
		r.logger().Warn("Notification not published", "topic", string(topic), "error", err)
	}
}

// lookup runs a single-record store call under the metrics recorder.
func lookup[T any](ctx context.Context, r *Resolver, operation string, fn func() (T, error)) (*T, error) {
	var out *T
	err := r.record(ctx, operation, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func listing[T any](ctx context.Context, r *Resolver, operation string, fn func() []T) ([]*T, error) {
	var out []*T
	err := r.record(ctx, operation, func() error {
		out = ptrs(fn())
		return nil
	})
	return out, err
}

func counting(ctx context.Context, r *Resolver, operation string, fn func() int) (*model.DeleteAllOutput, error) {
	var out model.DeleteAllOutput
	err := r.record(ctx, operation, func() error {
		out.Count = fn()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func ptrs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
