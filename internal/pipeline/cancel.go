package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// Observer exposes a cancellation flag.
type Observer interface {
	Cancelled() bool
}

// Token is a write-once cancellation flag. The zero value is ready to use.
type Token struct {
	flag atomic.Bool
	once sync.Once
	done chan struct{}
	init sync.Once
}

// NewToken returns an unset token.
func NewToken() *Token {
	return &Token{}
}

func (t *Token) doneChan() chan struct{} {
	t.init.Do(func() { t.done = make(chan struct{}) })
	return t.done
}

// Cancel sets the flag. Repeated calls are no-ops.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.flag.Store(true)
		close(t.doneChan())
	})
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}

// Done returns a channel closed on Cancel. A nil token returns a nil channel,
// which never becomes ready, like context.Background().Done().
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.doneChan()
}

type contextObserver struct {
	ctx context.Context
}

// ContextObserver reports cancellation once ctx is done.
func ContextObserver(ctx context.Context) Observer {
	return contextObserver{ctx: ctx}
}

func (o contextObserver) Cancelled() bool {
	return o.ctx.Err() != nil
}

type never struct{}

func (never) Cancelled() bool { return false }

// Never is an Observer that is never cancelled.
var Never Observer = never{}

type anyObserver []Observer

func (a anyObserver) Cancelled() bool {
	for _, o := range a {
		if o != nil && o.Cancelled() {
			return true
		}
	}
	return false
}

// Any reports cancellation when any of observers does.
func Any(observers ...Observer) Observer {
	return anyObserver(observers)
}
