package ui

import (
	"context"
	"sync"
	"time"

	"github.com/amalg/go-dungeon/internal/game"
)

// Driver is how the UI reaches a session, in process or over the network.
// Requests are asynchronous; their effects arrive on Events.
type Driver interface {
	Initial() game.Event
	Events() <-chan game.Event
	Errors() <-chan error
	Do(cmd game.Command) error
	Reset() error
	Save() error
	Load() error
	GoTo(level int) error
	Close()
}

const saveTimeout = 5 * time.Second

// LocalDriver runs requests against an in-process session on a worker
// goroutine, so the UI loop never waits on the session or its store.
type LocalDriver struct {
	session  *game.Session
	initial  game.Event
	requests chan func() error
	eventCh  chan game.Event
	errCh    chan error
	done     chan struct{}
	once     sync.Once
}

// NewLocalDriver subscribes to the session's events and starts the worker.
// The session should already hold a player (see Session.Load).
func NewLocalDriver(session *game.Session) *LocalDriver {
	d := &LocalDriver{
		session:  session,
		initial:  session.View(),
		requests: make(chan func() error, 256),
		eventCh:  make(chan game.Event, 64),
		errCh:    make(chan error, 4),
		done:     make(chan struct{}),
	}
	session.OnEvent(d.forward)
	go d.run()
	return d
}

func (d *LocalDriver) Initial() game.Event { return d.initial }
func (d *LocalDriver) Events() <-chan game.Event { return d.eventCh }
func (d *LocalDriver) Errors() <-chan error { return d.errCh }

func (d *LocalDriver) Do(cmd game.Command) error {
	return d.enqueue(func() error {
		_, err := d.session.Apply(cmd)
		return err
	})
}

func (d *LocalDriver) Reset() error {
	return d.enqueue(func() error {
		d.session.Reset()
		return nil
	})
}

func (d *LocalDriver) Save() error {
	return d.enqueue(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return d.session.Save(ctx)
	})
}

func (d *LocalDriver) Load() error {
	return d.enqueue(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		d.session.Load(ctx)
		return nil
	})
}

func (d *LocalDriver) GoTo(level int) error {
	return d.enqueue(func() error {
		_, err := d.session.ChangeLevel(level)
		return err
	})
}

// Close stops the worker. Queued requests are dropped.
func (d *LocalDriver) Close() {
	d.once.Do(func() {
		d.session.OnEvent(nil)
		close(d.done)
	})
}

// enqueue drops the request if the buffer is full rather than block the UI.
func (d *LocalDriver) enqueue(fn func() error) error {
	select {
	case <-d.done:
		return errDriverClosed
	default:
	}
	select {
	case d.requests <- fn:
	default:
	}
	return nil
}

func (d *LocalDriver) run() {
	for {
		select {
		case <-d.done:
			return
		case fn := <-d.requests:
			if err := fn(); err != nil {
				d.reportError(err)
			}
		}
	}
}

// forward is the session callback. It may run on any goroutine.
func (d *LocalDriver) forward(ev game.Event) {
	select {
	case d.eventCh <- ev:
	case <-d.done:
	}
}

func (d *LocalDriver) reportError(err error) {
	select {
	case d.errCh <- err:
	default:
		select {
		case <-d.errCh:
		default:
		}
		select {
		case d.errCh <- err:
		default:
		}
	}
}
