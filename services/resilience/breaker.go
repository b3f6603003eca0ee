package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"innkeeper/utils"

	"go.uber.org/zap"
)

// State captures circuit breaker states.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is in flight.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without invoking
// the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError wraps ErrCircuitOpen with the breaker identity and the time left
// until the next trial call is allowed.
type OpenError struct {
	Breaker    string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: circuit open, retry after %s", e.Breaker, e.RetryAfter)
}

func (e *OpenError) Unwrap() error { return ErrCircuitOpen }

// Breaker isolates a single external dependency. Only errors the classifier
// recognizes count toward tripping; everything else propagates untouched.
// Safe for concurrent use.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	isExpected       func(error) bool
	logger           *zap.Logger
	now              func() time.Time

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	trialInFlight   bool
}

// NewBreaker constructs a closed breaker for one logical dependency. The
// classifier decides which errors are "expected" dependency failures.
func NewBreaker(name string, failureThreshold int, recoveryTimeout time.Duration, isExpected func(error) bool, logger *zap.Logger) *Breaker {
	if isExpected == nil {
		isExpected = func(error) bool { return true }
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		isExpected:       isExpected,
		logger:           logger,
		now:              time.Now,
		state:            StateClosed,
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do executes fn under the breaker's state machine.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	entryState, err := b.admit()
	if err != nil {
		utils.BreakerCalls.WithLabelValues(b.name, entryState.String(), "rejected").Inc()
		return err
	}

	opErr := fn(ctx)

	// A caller-initiated cancellation says nothing about the dependency's
	// health; leave the state machine untouched.
	if ctx.Err() != nil && (errors.Is(opErr, context.Canceled) || errors.Is(opErr, context.DeadlineExceeded)) {
		b.settleNeutral(entryState)
		utils.BreakerCalls.WithLabelValues(b.name, entryState.String(), "canceled").Inc()
		return opErr
	}

	if opErr == nil {
		b.settleSuccess(entryState)
		utils.BreakerCalls.WithLabelValues(b.name, entryState.String(), "success").Inc()
		return nil
	}

	if !b.isExpected(opErr) {
		b.settleNeutral(entryState)
		utils.BreakerCalls.WithLabelValues(b.name, entryState.String(), "ignored").Inc()
		return opErr
	}

	b.settleFailure(entryState)
	utils.BreakerCalls.WithLabelValues(b.name, entryState.String(), "failure").Inc()
	return opErr
}

// admit decides whether the call may proceed and returns the state it was
// admitted under.
func (b *Breaker) admit() (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return StateClosed, nil
	case StateHalfOpen:
		// A trial is already in flight; only one caller gets the slot.
		return StateHalfOpen, &OpenError{Breaker: b.name, RetryAfter: b.recoveryTimeout}
	case StateOpen:
		elapsed := b.now().Sub(b.lastFailureTime)
		if elapsed < b.recoveryTimeout {
			return StateOpen, &OpenError{Breaker: b.name, RetryAfter: b.recoveryTimeout - elapsed}
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		b.logger.Info("circuit breaker entering half-open trial", zap.String("breaker", b.name))
		return StateHalfOpen, nil
	}
	return b.state, nil
}

func (b *Breaker) settleSuccess(entryState State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entryState == StateHalfOpen {
		b.logger.Info("circuit breaker closed after successful trial", zap.String("breaker", b.name))
	}
	b.state = StateClosed
	b.failureCount = 0
	b.trialInFlight = false
	b.publishGauges()
}

func (b *Breaker) settleFailure(entryState State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entryState == StateHalfOpen {
		b.state = StateOpen
		b.lastFailureTime = b.now()
		b.trialInFlight = false
		b.logger.Warn("circuit breaker reopened after failed trial", zap.String("breaker", b.name))
		b.publishGauges()
		return
	}

	b.failureCount++
	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		b.lastFailureTime = b.now()
		b.logger.Warn("circuit breaker opened",
			zap.String("breaker", b.name),
			zap.Int("failures", b.failureCount))
	}
	b.publishGauges()
}

// settleNeutral resolves a call that counts as neither success nor failure.
// A half-open trial goes back to open without refreshing the failure time, so
// the next caller can retry the trial immediately.
func (b *Breaker) settleNeutral(entryState State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entryState == StateHalfOpen {
		b.state = StateOpen
		b.trialInFlight = false
	}
	b.publishGauges()
}

// publishGauges refreshes the observability gauges. Callers must hold the mutex.
func (b *Breaker) publishGauges() {
	utils.BreakerFailureStreak.WithLabelValues(b.name).Set(float64(b.failureCount))
	open := 0.0
	if b.state == StateOpen {
		open = 1.0
	}
	utils.BreakerOpen.WithLabelValues(b.name).Set(open)
}
