// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/notewall/setupflow/pkg/action"
	"github.com/notewall/setupflow/pkg/verify"
)

const (
	DefaultForegroundSettleDelay = time.Second
	DefaultCompleteDisplayDelay  = 1500 * time.Millisecond
)

var ErrNoLauncher = errors.New("no external action launcher configured")

type (
	// Verifier is the part of verify.Service the machine drives
	Verifier interface {
		VerifyAsync(ctx context.Context, done func(verify.Result))
		MarkComplete(ctx context.Context) error
		IsComplete(ctx context.Context) (bool, error)
	}

	// Machine drives the guided setup flow: open the external handler, wait
	// for the user to come back, verify, and either complete or fail with the
	// list of missing checks. All methods are safe for concurrent use; every
	// mutation happens under one mutex and timer or verification callbacks
	// re-acquire it before touching state.
	Machine struct {
		mu sync.Mutex

		ctx              context.Context
		verifier         Verifier
		launcher         action.Launcher
		targetURL        string
		targetParams     map[string]string
		clock            Clock
		foregroundSettle time.Duration
		completeDisplay  time.Duration

		current          SetupState
		hasStartedSetup  bool
		shouldAutoVerify bool
		hasReturned      bool
		lastError        string

		// launching counts launches still in flight. Foreground returns that
		// arrive meanwhile are held back until the launch outcome is known.
		launching            int
		returnedDuringLaunch bool

		// seq is bumped on every transition. Deferred callbacks capture it
		// and are dropped if the machine moved on in the meantime.
		seq           uint64
		settleTimer   Timer
		completeTimer Timer

		listeners []Listener
		pending   []Transition
		notifying bool
	}

	MachineOpts struct {
		Context               context.Context
		Clock                 Clock
		ForegroundSettleDelay time.Duration
		CompleteDisplayDelay  time.Duration
		TargetParams          map[string]string
		Listeners             []Listener
	}
	MachineOpt func(*MachineOpts)
)

// WithContext sets the context handed to the launcher and the verifier
func WithContext(ctx context.Context) MachineOpt {
	return func(o *MachineOpts) {
		if ctx != nil {
			o.Context = ctx
		}
	}
}

func WithClock(clock Clock) MachineOpt {
	return func(o *MachineOpts) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

func WithForegroundSettleDelay(d time.Duration) MachineOpt {
	return func(o *MachineOpts) {
		if d >= 0 {
			o.ForegroundSettleDelay = d
		}
	}
}

func WithCompleteDisplayDelay(d time.Duration) MachineOpt {
	return func(o *MachineOpts) {
		if d >= 0 {
			o.CompleteDisplayDelay = d
		}
	}
}

// WithTargetParams adds query parameters to the external action URL
func WithTargetParams(params map[string]string) MachineOpt {
	return func(o *MachineOpts) {
		o.TargetParams = params
	}
}

func WithListener(l Listener) MachineOpt {
	return func(o *MachineOpts) {
		if l != nil {
			o.Listeners = append(o.Listeners, l)
		}
	}
}

// New creates a machine in Initial, or in Complete when the verifier reports
// that setup was already committed by an earlier run. targetURL is not
// validated here: a bad URL surfaces as a launch failure from StartAction.
func New(verifier Verifier, launcher action.Launcher, targetURL string, options ...MachineOpt) *Machine {
	opts := &MachineOpts{
		Context:               context.Background(),
		Clock:                 systemClock{},
		ForegroundSettleDelay: DefaultForegroundSettleDelay,
		CompleteDisplayDelay:  DefaultCompleteDisplayDelay,
	}
	for _, o := range options {
		o(opts)
	}
	m := &Machine{
		ctx:              opts.Context,
		verifier:         verifier,
		launcher:         launcher,
		targetURL:        targetURL,
		targetParams:     opts.TargetParams,
		clock:            opts.Clock,
		foregroundSettle: opts.ForegroundSettleDelay,
		completeDisplay:  opts.CompleteDisplayDelay,
		current:          SetupState{Kind: Initial},
		listeners:        opts.Listeners,
	}
	complete, err := verifier.IsComplete(m.ctx)
	if err != nil {
		slog.Warn("unable to read setup completion flag, starting from the beginning", "error", err)
	} else if complete {
		slog.Debug("setup already completed, skipping to Complete")
		m.current = SetupState{Kind: Complete}
	}
	return m
}

// Subscribe registers a listener for all subsequent transitions
func (m *Machine) Subscribe(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners[:len(m.listeners):len(m.listeners)], l)
}

// StartAction opens the external handler. Calling it again before Reset or
// ReopenAction is a no-op.
func (m *Machine) StartAction() {
	m.startAction(ReasonStart, false)
}

// ReopenAction restarts the external action cycle, typically from
// VerificationFailed.
func (m *Machine) ReopenAction() {
	m.startAction(ReasonReopen, true)
}

// OnForegroundReturn is called by the host whenever the app regains the
// foreground. Only the first call after an action was started matters; all
// other calls are ignored.
func (m *Machine) OnForegroundReturn() {
	m.mu.Lock()
	kind := m.current.Kind
	if !m.shouldAutoVerify || (kind != ActionStarted && kind != ReturnedFromAction) {
		slog.Debug("ignoring foreground return", "state", kind, "auto_verify", m.shouldAutoVerify)
		m.mu.Unlock()
		return
	}
	if m.launching > 0 {
		slog.Debug("foreground return while the external handler is opening, deferring")
		m.returnedDuringLaunch = true
		m.mu.Unlock()
		return
	}
	m.hasReturned = true
	if kind == ActionStarted {
		m.transitionLocked(SetupState{Kind: ReturnedFromAction}, ReasonForeground)
	}
	if m.settleTimer == nil {
		seq := m.seq
		m.settleTimer = m.clock.AfterFunc(m.foregroundSettle, func() { m.onSettled(seq) })
	}
	m.mu.Unlock()
	m.flush()
}

// Verify runs the checks asynchronously. It is ignored while a verification
// is already in progress.
func (m *Machine) Verify() {
	m.verify(ReasonVerify, false)
}

// Retry verifies again without reopening the external handler. It also
// disarms auto verification so a later foreground return stays quiet.
func (m *Machine) Retry() {
	m.verify(ReasonRetry, true)
}

// Reset returns to Initial and forgets everything about the current session.
// It does not clear the persisted completion flag.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.stopTimersLocked()
	m.hasStartedSetup = false
	m.shouldAutoVerify = false
	m.hasReturned = false
	m.returnedDuringLaunch = false
	m.lastError = ""
	if m.current.Kind != Initial {
		m.transitionLocked(SetupState{Kind: Initial}, ReasonReset)
	}
	m.mu.Unlock()
	m.flush()
}

// Close stops pending timers. Late verification results are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimersLocked()
	m.seq++
}

func (m *Machine) State() SetupState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CanProceed is true only once the flow reached Complete
func (m *Machine) CanProceed() bool {
	return m.State().Kind == Complete
}

// UserFacingErrorMessage lists the remediation of every missing check, one per
// line. It is empty unless the state is VerificationFailed.
func (m *Machine) UserFacingErrorMessage() string {
	s := m.State()
	if s.Kind != VerificationFailed || s.Result == nil {
		return ""
	}
	msgs := s.Result.Messages()
	for i := range msgs {
		msgs[i] = "• " + msgs[i]
	}
	return strings.Join(msgs, "\n")
}

func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Machine) HasStartedSetup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasStartedSetup
}

func (m *Machine) ShouldAutoVerify() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldAutoVerify
}

func (m *Machine) HasReturnedFromAction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasReturned
}

func (m *Machine) startAction(reason Reason, reopen bool) {
	m.mu.Lock()
	if !CanTransition(m.current.Kind, ActionStarted) {
		slog.Info("cannot start the setup action now", "state", m.current.Kind, "reason", reason)
		m.mu.Unlock()
		return
	}
	if reopen {
		m.hasStartedSetup = false
	}
	if m.hasStartedSetup {
		slog.Info("setup action already started, ignoring", "state", m.current.Kind)
		m.mu.Unlock()
		return
	}
	m.stopTimersLocked()
	m.transitionLocked(SetupState{Kind: ActionStarted}, reason)
	m.hasStartedSetup = true
	m.shouldAutoVerify = true
	m.hasReturned = false
	m.lastError = ""
	m.launching++
	seq := m.seq
	m.mu.Unlock()
	m.flush()

	err := m.launch()

	m.mu.Lock()
	m.launching--
	returned := m.returnedDuringLaunch && m.launching == 0
	if m.launching == 0 {
		m.returnedDuringLaunch = false
	}
	if err == nil {
		m.mu.Unlock()
		if returned {
			m.OnForegroundReturn()
		}
		return
	}
	slog.Warn("unable to open the external handler", "error", err)
	if seq != m.seq {
		slog.Debug("state changed while launching, dropping launch failure")
		m.mu.Unlock()
		return
	}
	result := verify.NewResult([]verify.Check{verify.LaunchFailed(err.Error())}, err.Error())
	m.transitionLocked(SetupState{Kind: VerificationFailed, Result: &result}, ReasonLaunchFailed)
	m.shouldAutoVerify = false
	m.lastError = result.PrimaryMessage()
	m.mu.Unlock()
	m.flush()
}

func (m *Machine) launch() error {
	if m.launcher == nil {
		return ErrNoLauncher
	}
	target, err := action.NewTarget(m.targetURL, m.targetParams)
	if err != nil {
		return err
	}
	return m.launcher.Launch(m.ctx, target)
}

func (m *Machine) onSettled(seq uint64) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	m.settleTimer = nil
	var done func(verify.Result)
	if m.shouldAutoVerify && m.current.Kind == ReturnedFromAction {
		done = m.beginVerifyLocked(ReasonAutoVerify)
	}
	m.mu.Unlock()
	m.flush()
	if done != nil {
		m.verifier.VerifyAsync(m.ctx, done)
	}
}

func (m *Machine) verify(reason Reason, disarm bool) {
	m.mu.Lock()
	if disarm {
		m.shouldAutoVerify = false
	}
	done := m.beginVerifyLocked(reason)
	m.mu.Unlock()
	m.flush()
	if done != nil {
		m.verifier.VerifyAsync(m.ctx, done)
	}
}

// beginVerifyLocked enters Verifying and returns the completion callback to
// hand to the verifier, or nil when verification must not start.
func (m *Machine) beginVerifyLocked(reason Reason) func(verify.Result) {
	if m.current.Kind == Verifying {
		slog.Info("verification already in progress, ignoring", "reason", reason)
		return nil
	}
	if !CanTransition(m.current.Kind, Verifying) {
		slog.Info("cannot verify now", "state", m.current.Kind, "reason", reason)
		return nil
	}
	if !m.transitionLocked(SetupState{Kind: Verifying}, reason) {
		return nil
	}
	m.stopTimersLocked()
	m.lastError = ""
	seq := m.seq
	return func(r verify.Result) { m.finishVerification(seq, r) }
}

func (m *Machine) finishVerification(seq uint64, result verify.Result) {
	m.mu.Lock()
	if seq != m.seq {
		slog.Debug("discarding stale verification result", "verified", result.Verified)
		m.mu.Unlock()
		return
	}
	if !result.Verified {
		m.transitionLocked(SetupState{Kind: VerificationFailed, Result: &result}, ReasonResult)
		m.lastError = result.PrimaryMessage()
		m.mu.Unlock()
		m.flush()
		return
	}
	m.transitionLocked(SetupState{Kind: Verified}, ReasonResult)
	seq = m.seq
	m.mu.Unlock()
	m.flush()

	// Commit before scheduling Complete so nobody observes Complete ahead of
	// the persisted flag.
	if err := m.verifier.MarkComplete(m.ctx); err != nil {
		slog.Error("failed to mark setup complete", "error", err)
	}

	m.mu.Lock()
	if seq == m.seq {
		m.completeTimer = m.clock.AfterFunc(m.completeDisplay, func() { m.onDisplayed(seq) })
	}
	m.mu.Unlock()
}

func (m *Machine) onDisplayed(seq uint64) {
	m.mu.Lock()
	if seq != m.seq || m.current.Kind != Verified {
		m.mu.Unlock()
		return
	}
	m.completeTimer = nil
	m.transitionLocked(SetupState{Kind: Complete}, ReasonAutoComplete)
	m.mu.Unlock()
	m.flush()
}

func (m *Machine) stopTimersLocked() {
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	if m.completeTimer != nil {
		m.completeTimer.Stop()
		m.completeTimer = nil
	}
}

func (m *Machine) transitionLocked(to SetupState, reason Reason) bool {
	if err := validateTransition(m.current.Kind, to.Kind); err != nil {
		slog.Error("ignoring setup state change", "error", err, "reason", reason)
		return false
	}
	t := Transition{From: m.current, To: to, Reason: reason, At: m.clock.Now()}
	m.current = to
	m.seq++
	m.pending = append(m.pending, t)
	slog.Debug("setup state changed", "from", t.From.Kind, "to", to.Kind, "reason", reason)
	return true
}

// flush delivers queued transitions outside the lock. Only one goroutine
// delivers at a time; transitions queued meanwhile, including those caused by
// listeners themselves, are picked up by that goroutine in order.
func (m *Machine) flush() {
	m.mu.Lock()
	if m.notifying {
		m.mu.Unlock()
		return
	}
	m.notifying = true
	for len(m.pending) > 0 {
		t := m.pending[0]
		m.pending = m.pending[1:]
		listeners := m.listeners
		m.mu.Unlock()
		for _, l := range listeners {
			l(t)
		}
		m.mu.Lock()
	}
	m.notifying = false
	m.mu.Unlock()
}
