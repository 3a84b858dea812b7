// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// autoAdvanceDelay is how long a freshly passed section stays visible
	// before the view auto-switches to the next unpassed one.
	autoAdvanceDelay = 700 * time.Millisecond

	// completionCountdownSeconds is the fixed countdown between the last
	// section passing and navigation to the next step.
	completionCountdownSeconds = 3
)

// ErrValidationInFlight is returned when a section is submitted while its
// own AI validation call is still pending.
var ErrValidationInFlight = errors.New("section validation already in flight")

// ErrStepComplete is returned when a section is submitted after every
// tracked section has already passed. Passed-all is terminal.
var ErrStepComplete = errors.New("all sections already passed")

// Orchestrator drives one multi-section step through the per-section
// lifecycle: local rules → draft save → remote AI validation → status
// update → auto-advance / completion countdown.
//
// It is constructed when the step view mounts and must be Closed when the
// view unmounts; Close cancels the pending auto-advance timer and the
// completion countdown. State changes are announced on the Bus; the
// orchestrator never calls into the UI.
//
// Submissions of the same section are serialized (ErrValidationInFlight).
// Submissions of different sections are not serialized against each other;
// the last resolved decision wins, matching the backend's own bookkeeping.
type Orchestrator struct {
	api  StepAPI
	ctrl *StepDataController
	bus  *Bus
	log  *slog.Logger
	code StepCode
	keys []string

	// Timer intervals, overridable in tests.
	advanceDelay time.Duration
	tickInterval time.Duration

	mu             sync.Mutex
	states         map[string]SectionState
	inflight       map[string]bool
	current        int
	allPassed      bool
	countdown      int
	advanceTimer   *time.Timer
	countdownTimer *time.Timer
	closed         bool
}

// NewOrchestrator builds an orchestrator for one step of one complaint.
// Call Restore before submitting sections.
func NewOrchestrator(api StepAPI, ctrl *StepDataController, bus *Bus, log *slog.Logger, code StepCode) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	keys := Sections(code)
	states := make(map[string]SectionState, len(keys))
	for _, k := range keys {
		states[k] = SectionState{Status: SectionIdle}
	}
	return &Orchestrator{
		api:          api,
		ctrl:         ctrl,
		bus:          bus,
		log:          log,
		code:         code,
		keys:         keys,
		states:       states,
		inflight:     make(map[string]bool, len(keys)),
		countdown:    -1,
		advanceDelay: autoAdvanceDelay,
		tickInterval: time.Second,
	}
}

// Keys returns the ordered section keys the orchestrator tracks.
func (o *Orchestrator) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Restore loads the step and seeds section statuses from the latest
// persisted validation decisions, then points the current section at the
// first one that hasn't passed. A step load failure is fatal to the view;
// a validation-history fetch failure degrades to idle statuses with a
// notice, since the user can still work the step.
func (o *Orchestrator) Restore(ctx context.Context, complaintID int64) (*Step, error) {
	step, err := o.ctrl.Load(ctx, complaintID, o.code)
	if err != nil {
		return nil, err
	}

	vals, err := o.api.GetSectionValidations(ctx, step.ID)
	if err != nil {
		o.log.Warn("could not restore section validations", "step_id", step.ID, "error", err)
		o.publish(Event{Kind: EventNotice, Message: "Previous validation results unavailable: " + err.Error()})
		vals = nil
	}

	byKey := make(map[string]*SectionValidation, len(vals))
	for i := range vals {
		v := vals[i]
		byKey[v.SectionKey] = &v
	}

	o.mu.Lock()
	passed := 0
	o.current = -1
	for i, k := range o.keys {
		st := RestoredState(byKey[k])
		o.states[k] = st
		if st.Status == SectionPassed {
			passed++
		} else if o.current < 0 {
			o.current = i
		}
	}
	if o.current < 0 {
		// Everything already passed; open on the first section read-only.
		o.current = 0
	}
	o.allPassed = passed == len(o.keys)
	current := o.current
	o.mu.Unlock()

	for _, k := range o.keys {
		st := o.State(k)
		o.publish(Event{Kind: EventSectionStatus, SectionKey: k, Status: st.Status, Validation: st.Last})
	}
	o.publish(Event{Kind: EventCurrentSection, Section: current, SectionKey: o.keys[current]})
	return step, nil
}

// SubmitSection runs the full submission pipeline for one section.
//
// Returned rule messages are non-empty when local validation blocked the
// submission; in that case no network call was made and the section status
// is unchanged. The outcome is non-nil only when the AI validator was
// reached and returned a decision.
func (o *Orchestrator) SubmitSection(ctx context.Context, key string) (ruleMsgs []string, outcome *SectionOutcome, err error) {
	idx := o.indexOf(key)
	if idx < 0 {
		return nil, nil, fmt.Errorf("unknown section %q for step %s", key, o.code)
	}

	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return nil, nil, errors.New("orchestrator closed")
	case o.allPassed:
		o.mu.Unlock()
		return nil, nil, ErrStepComplete
	case o.inflight[key] || o.states[key].Status == SectionValidating:
		o.mu.Unlock()
		return nil, nil, ErrValidationInFlight
	}
	// The in-flight mark covers the whole pipeline, draft save included,
	// so an overlapping submit of the same section is rejected even while
	// the status badge still reads idle.
	o.inflight[key] = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
	}()

	// 1. Local structural rules. A failure stops everything before the
	// network; the status badge does not flicker to validating.
	if msgs := ValidateSection(key, o.ctrl.Data()); len(msgs) > 0 {
		o.log.Debug("local rules rejected section", "section", key, "rules", len(msgs))
		o.publish(Event{Kind: EventNotice, SectionKey: key, Message: strings.Join(msgs, "; ")})
		return msgs, nil, nil
	}

	// 2. Persist the full snapshot and wait for it. The AI validator must
	// never see data newer or older than what was just saved.
	if err := o.ctrl.SaveDraft(ctx); err != nil {
		o.publish(Event{Kind: EventNotice, SectionKey: key, Message: err.Error()})
		return nil, nil, err
	}

	step := o.ctrl.Step()

	// 3. Mark validating.
	o.transition(key, EvSubmitAccepted, nil)

	// 4. Remote AI validation.
	outcome, err = o.api.SubmitSection(ctx, step.ID, key)
	if err != nil {
		// 7. Generic failure state; never stuck at validating.
		o.log.Error("section validation call failed", "section", key, "error", err)
		o.transition(key, EvRemoteError, nil)
		o.publish(Event{Kind: EventNotice, SectionKey: key, Message: "Validation failed: " + err.Error()})
		return nil, nil, err
	}

	v := outcome.Validation
	v.StepID = step.ID
	v.SectionKey = key

	if v.Decision == DecisionPass {
		// 5. Pass: store payload, then either finish the step or move the
		// user along to the next unpassed section.
		o.transition(key, EvDecisionPass, &v)
		if outcome.AllSectionsPassed || len(outcome.RemainingSections) == 0 {
			o.completeStep()
		} else {
			o.scheduleAdvance(outcome.RemainingSections[0])
		}
	} else {
		// 6. Fail: store payload for the coach, stay put.
		o.transition(key, EvDecisionFail, &v)
	}
	return nil, outcome, nil
}

// SelectSection switches the visible section without validating anything.
// Tab clicks land here.
func (o *Orchestrator) SelectSection(idx int) {
	if idx < 0 || idx >= len(o.keys) {
		return
	}
	o.mu.Lock()
	if o.closed || o.current == idx {
		o.mu.Unlock()
		return
	}
	o.current = idx
	o.mu.Unlock()
	o.publish(Event{Kind: EventCurrentSection, Section: idx, SectionKey: o.keys[idx]})
}

// State returns the current state of one section.
func (o *Orchestrator) State(key string) SectionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[key]
}

// CurrentIndex returns the index of the visible section.
func (o *Orchestrator) CurrentIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// CurrentKey returns the key of the visible section.
func (o *Orchestrator) CurrentKey() string {
	return o.keys[o.CurrentIndex()]
}

// AllPassed reports whether every tracked section's latest decision is a
// pass. Once true it never goes false for the lifetime of the view.
func (o *Orchestrator) AllPassed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.allPassed
}

// Countdown returns the remaining completion countdown seconds, or -1
// when no countdown is running.
func (o *Orchestrator) Countdown() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.countdown
}

// Validating reports whether any section currently has an AI call in
// flight. The TUI disables tab switching while this is true.
func (o *Orchestrator) Validating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, st := range o.states {
		if st.Status == SectionValidating {
			return true
		}
	}
	return false
}

// Close tears the orchestrator down: the pending auto-advance timer and
// the completion countdown are cancelled. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.advanceTimer != nil {
		o.advanceTimer.Stop()
		o.advanceTimer = nil
	}
	if o.countdownTimer != nil {
		o.countdownTimer.Stop()
		o.countdownTimer = nil
	}
}

// -----------------------------------------------------------------------------
// internals
// -----------------------------------------------------------------------------

func (o *Orchestrator) indexOf(key string) int {
	for i, k := range o.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) publish(ev Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) transition(key string, ev SectionEvent, v *SectionValidation) {
	o.mu.Lock()
	next := ReduceSection(o.states[key], ev, v)
	o.states[key] = next
	o.mu.Unlock()

	o.publish(Event{Kind: EventSectionStatus, SectionKey: key, Status: next.Status, Validation: next.Last})
	if v != nil {
		o.publish(Event{Kind: EventValidationStored, SectionKey: key, Validation: v})
	}
}

// scheduleAdvance switches the visible section to the first remaining
// unpassed one after a short delay, so the user sees the pass state land
// before the view moves on.
func (o *Orchestrator) scheduleAdvance(nextKey string) {
	idx := o.indexOf(nextKey)
	if idx < 0 {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.advanceTimer != nil {
		o.advanceTimer.Stop()
	}
	o.advanceTimer = time.AfterFunc(o.advanceDelay, func() {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		o.current = idx
		o.mu.Unlock()
		o.publish(Event{Kind: EventCurrentSection, Section: idx, SectionKey: nextKey})
	})
	o.mu.Unlock()
}

// completeStep marks the whole step passed and starts the fixed countdown
// to the next step code. D8 has no successor; the countdown still runs so
// the completion banner behaves the same, but no navigation is requested.
func (o *Orchestrator) completeStep() {
	o.mu.Lock()
	if o.closed || o.allPassed {
		o.mu.Unlock()
		return
	}
	o.allPassed = true
	o.countdown = completionCountdownSeconds
	o.mu.Unlock()

	o.publish(Event{Kind: EventStepCompleted})
	o.publish(Event{Kind: EventCountdownTick, Seconds: completionCountdownSeconds})
	o.armCountdown()
}

func (o *Orchestrator) armCountdown() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.countdownTimer = time.AfterFunc(o.tickInterval, o.countdownTick)
	o.mu.Unlock()
}

func (o *Orchestrator) countdownTick() {
	o.mu.Lock()
	if o.closed || o.countdown < 0 {
		o.mu.Unlock()
		return
	}
	o.countdown--
	remaining := o.countdown
	o.mu.Unlock()

	o.publish(Event{Kind: EventCountdownTick, Seconds: remaining})
	if remaining > 0 {
		o.armCountdown()
		return
	}
	if next, ok := o.code.Next(); ok {
		o.publish(Event{Kind: EventAdvanceStep, NextCode: next})
	}
}
