package docstore

import (
	"context"
	"time"
)

// ObserveFunc receives the duration and outcome of one store operation.
type ObserveFunc func(op string, took time.Duration, err error)

type instrumented struct {
	next    Store
	observe ObserveFunc
}

// Instrumented wraps next so every operation is reported to observe.
func Instrumented(next Store, observe ObserveFunc) Store {
	return &instrumented{next: next, observe: observe}
}

func (s *instrumented) track(op string, start time.Time, err error) {
	s.observe(op, time.Since(start), err)
}

func (s *instrumented) Get(ctx context.Context, p Path) (doc Document, err error) {
	defer func(start time.Time) { s.track("get", start, err) }(time.Now())
	return s.next.Get(ctx, p)
}

func (s *instrumented) List(ctx context.Context, parent Path) (out []Snapshot, err error) {
	defer func(start time.Time) { s.track("list", start, err) }(time.Now())
	return s.next.List(ctx, parent)
}

func (s *instrumented) Batch(ctx context.Context, writes ...Write) (err error) {
	defer func(start time.Time) { s.track("batch", start, err) }(time.Now())
	return s.next.Batch(ctx, writes...)
}

func (s *instrumented) SetMerge(ctx context.Context, p Path, fields ...FieldUpdate) (err error) {
	defer func(start time.Time) { s.track("set_merge", start, err) }(time.Now())
	return s.next.SetMerge(ctx, p, fields...)
}

func (s *instrumented) Delete(ctx context.Context, p Path) (err error) {
	defer func(start time.Time) { s.track("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, p)
}

func (s *instrumented) Close() error {
	return s.next.Close()
}
