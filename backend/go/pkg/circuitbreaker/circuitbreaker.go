package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every call through and counts consecutive failures.
	Closed State = iota
	// Open rejects calls until the timeout elapses.
	Open
	// HalfOpen lets trial calls through; enough successes close the circuit, one failure reopens it.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a Breaker.
type Settings struct {
	FailureThreshold uint32        // consecutive failures that open the circuit
	SuccessThreshold uint32        // consecutive half-open successes that close it
	Timeout          time.Duration // how long the circuit stays open
	// IsFailure decides whether an error counts against the circuit. Nil counts every error.
	IsFailure func(err error) bool
	// OnStateChange is called after each transition, outside the lock.
	OnStateChange func(from, to State)
	Now           func() time.Time
}

// Breaker is a consecutive-failure circuit breaker safe for concurrent use.
type Breaker struct {
	settings  Settings
	mutex     sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// New creates a Breaker with the given thresholds.
func New(failureThreshold, successThreshold uint32, timeout time.Duration) *Breaker {
	return NewWithSettings(Settings{
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Timeout:          timeout,
	})
}

// NewWithSettings creates a Breaker from Settings, filling in defaults.
func NewWithSettings(s Settings) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &Breaker{settings: s}
}

// State returns the current state, moving Open to HalfOpen when the timeout has passed.
func (b *Breaker) State() State {
	b.mutex.Lock()
	transition := b.refresh()
	state := b.state
	b.mutex.Unlock()
	b.notify(transition)
	return state
}

// Execute runs fn unless the circuit is open. The error returned by fn is passed through unchanged.
func (b *Breaker) Execute(fn func() error) error {
	b.mutex.Lock()
	transition := b.refresh()
	if b.state == Open {
		b.mutex.Unlock()
		b.notify(transition)
		return ErrCircuitOpen
	}
	b.mutex.Unlock()
	b.notify(transition)

	err := fn()

	b.mutex.Lock()
	if err != nil && b.countsAsFailure(err) {
		transition = b.onFailure()
	} else {
		transition = b.onSuccess()
	}
	b.mutex.Unlock()
	b.notify(transition)
	return err
}

type change struct {
	from, to State
	ok       bool
}

func (b *Breaker) notify(c change) {
	if c.ok && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(c.from, c.to)
	}
}

func (b *Breaker) countsAsFailure(err error) bool {
	if b.settings.IsFailure == nil {
		return true
	}
	return b.settings.IsFailure(err)
}

// refresh must be called with the lock held.
func (b *Breaker) refresh() change {
	if b.state == Open && b.settings.Now().Sub(b.openedAt) >= b.settings.Timeout {
		return b.setState(HalfOpen)
	}
	return change{}
}

func (b *Breaker) onSuccess() change {
	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			return b.setState(Closed)
		}
	case Closed:
		b.failures = 0
	}
	return change{}
}

func (b *Breaker) onFailure() change {
	switch b.state {
	case HalfOpen:
		return b.setState(Open)
	case Closed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			return b.setState(Open)
		}
	}
	return change{}
}

func (b *Breaker) setState(to State) change {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == Open {
		b.openedAt = b.settings.Now()
	}
	return change{from: from, to: to, ok: from != to}
}
