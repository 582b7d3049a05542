package services

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSerializerClosed is returned by Do after Close.
var ErrSerializerClosed = errors.New("serializer closed")

type task struct {
	fn   func() error
	done chan error
}

// Serializer runs tasks one at a time on a single worker goroutine, in the
// order they were submitted. A failing or panicking task does not stop the
// tasks queued behind it.
type Serializer struct {
	tasks chan task
	stop  chan struct{}
	once  sync.Once
}

// NewSerializer starts the worker. Call Close to stop it.
func NewSerializer() *Serializer {
	s := &Serializer{
		tasks: make(chan task),
		stop:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Serializer) loop() {
	for {
		select {
		case t := <-s.tasks:
			t.done <- run(t.fn)
		case <-s.stop:
			return
		}
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serialized task panicked: %v", r)
		}
	}()
	return fn()
}

// Do blocks until fn has run exclusively and returns its error.
func (s *Serializer) Do(fn func() error) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case s.tasks <- t:
	case <-s.stop:
		return ErrSerializerClosed
	}
	return <-t.done
}

// Close stops the worker. Tasks already running finish; waiting ones get
// ErrSerializerClosed.
func (s *Serializer) Close() {
	s.once.Do(func() { close(s.stop) })
}
