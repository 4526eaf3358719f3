package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPoolExhausted is returned when no session becomes available within
// the pool's acquire timeout.
var ErrPoolExhausted = errors.New("session pool exhausted")

var ErrPoolClosed = errors.New("session pool closed")

// Session is one live driver handle owned by the pool. A session is
// leased to exactly one job at a time; the holder must hand it back
// through Release or Poison on every exit path.
type Session struct {
	Id       string
	drv      Driver
	lastUsed time.Time
}

func (s *Session) Driver() Driver {
	return s.drv
}

type PoolOptions struct {
	// Cap is the maximum number of live sessions. Sessions are created
	// lazily up to this bound and reused afterwards.
	Cap int
	// AcquireTimeout bounds how long Acquire blocks on an exhausted pool.
	AcquireTimeout time.Duration
	// IdleTTL discards sessions that sat unused for longer; stale portal
	// sessions carry expired cookies and fail in confusing ways.
	IdleTTL time.Duration
	// Factory builds a new driver handle.
	Factory func(ctx context.Context) (Driver, error)
}

// Pool owns every driver handle in the process. It is safe for
// concurrent use.
type Pool struct {
	opts  PoolOptions
	slots chan struct{}

	mu     sync.Mutex
	idle   []*Session
	leased int
	closed bool
}

func NewPool(opts PoolOptions) *Pool {
	if opts.Cap <= 0 {
		panic("pool cap must be positive")
	}
	if opts.Factory == nil {
		panic("pool requires a driver factory")
	}
	if opts.AcquireTimeout == 0 {
		opts.AcquireTimeout = time.Minute
	}
	if opts.IdleTTL == 0 {
		opts.IdleTTL = time.Minute * 10
	}

	slots := make(chan struct{}, opts.Cap)
	for i := 0; i < opts.Cap; i++ {
		slots <- struct{}{}
	}
	return &Pool{
		opts:  opts,
		slots: slots,
	}
}

// Acquire leases a session, creating one if the pool is below cap.
// It fails with ErrPoolExhausted once AcquireTimeout elapses.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	timer := time.NewTimer(p.opts.AcquireTimeout)
	defer timer.Stop()

	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrPoolExhausted
	}

	sess, err := p.checkout(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}
	return sess, nil
}

// checkout holds a slot token; it reuses a healthy idle session or
// builds a fresh one.
func (p *Pool) checkout(ctx context.Context) (*Session, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		var sess *Session
		if n := len(p.idle); n > 0 {
			sess = p.idle[n-1]
			p.idle = p.idle[:n-1]
		}
		p.mu.Unlock()

		if sess == nil {
			break
		}
		if time.Since(sess.lastUsed) > p.opts.IdleTTL {
			slog.DebugContext(ctx, "discarding stale session", "session", sess.Id)
			sess.drv.Close()
			continue
		}

		p.mu.Lock()
		p.leased++
		p.mu.Unlock()
		return sess, nil
	}

	drv, err := p.opts.Factory(ctx)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		Id:       uuid.NewString(),
		drv:      drv,
		lastUsed: time.Now(),
	}
	slog.DebugContext(ctx, "created session", "session", sess.Id)

	p.mu.Lock()
	p.leased++
	p.mu.Unlock()
	return sess, nil
}

// Release returns a session to the pool for reuse.
func (p *Pool) Release(sess *Session) {
	sess.lastUsed = time.Now()

	p.mu.Lock()
	p.leased--
	if p.closed {
		p.mu.Unlock()
		sess.drv.Close()
		p.slots <- struct{}{}
		return
	}
	p.idle = append(p.idle, sess)
	p.mu.Unlock()

	p.slots <- struct{}{}
}

// Poison destroys a session whose driver is in an indeterminate state.
// The freed slot allows a replacement to be created on the next Acquire.
func (p *Pool) Poison(sess *Session) {
	slog.Debug("poisoning session", "session", sess.Id)
	sess.drv.Close()

	p.mu.Lock()
	p.leased--
	p.mu.Unlock()

	p.slots <- struct{}{}
}

// Leased reports the number of sessions currently out on lease.
func (p *Pool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// Close tears down all idle sessions. Sessions still on lease are
// destroyed as they come back.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	for _, sess := range idle {
		sess.drv.Close()
	}
}
