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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStepAPI records the order of backend calls and returns canned
// responses, so tests can verify both behavior and call sequencing.
type fakeStepAPI struct {
	mu    sync.Mutex
	calls []string

	step        *Step
	stepErr     error
	saveErr     error
	saveDelay   time.Duration
	validations []SectionValidation
	valsErr     error
	outcomes    map[string]*SectionOutcome
	outcomeErr  error
	submitRes   *SectionValidation
	submitErr   error
}

func (f *fakeStepAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStepAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeStepAPI) GetStepByCode(_ context.Context, _ int64, _ StepCode) (*Step, error) {
	f.record("get_step")
	if f.stepErr != nil {
		return nil, f.stepErr
	}
	cp := *f.step
	return &cp, nil
}

func (f *fakeStepAPI) SaveStepProgress(_ context.Context, _ int64, _ map[string]any) error {
	f.record("save_progress")
	if f.saveDelay > 0 {
		time.Sleep(f.saveDelay)
	}
	return f.saveErr
}

func (f *fakeStepAPI) SubmitStep(_ context.Context, _ int64) (*SectionValidation, error) {
	f.record("submit_step")
	return f.submitRes, f.submitErr
}

func (f *fakeStepAPI) GetSectionValidations(_ context.Context, _ int64) ([]SectionValidation, error) {
	f.record("get_validations")
	return f.validations, f.valsErr
}

func (f *fakeStepAPI) SubmitSection(_ context.Context, _ int64, key string) (*SectionOutcome, error) {
	f.record("submit_section:" + key)
	if f.outcomeErr != nil {
		return nil, f.outcomeErr
	}
	return f.outcomes[key], nil
}

// validContainmentData satisfies every local rule of both D3 sections.
func validContainmentData() map[string]any {
	return map[string]any{
		"containment_actions": "Blocked lot 4711 in the warehouse and sorted WIP.",
		"isolated":            true,
		"isolation_location":  "Quarantine cage B2",
		"quantity_blocked":    "1200",
		"alert_recipients":    []string{"Production", "Warehouse"},
		"restart_conditions":  "Restart after sorted stock is confirmed clean.",
		"restart_approved_by": "J. Meier",
		"restart_date":        "2026-09-01",
		"monitoring_plan":     "100% check for two shifts.",
	}
}

func newTestOrchestrator(t *testing.T, api *fakeStepAPI) (*Orchestrator, *Bus) {
	t.Helper()
	if api.step == nil {
		api.step = &Step{ID: 31, ComplaintID: 7, Code: StepD3, Status: StatusDraft, Data: validContainmentData()}
	}
	bus := NewBus()
	ctrl := NewStepDataController(api, nil)
	o := NewOrchestrator(api, ctrl, bus, nil, StepD3)
	o.advanceDelay = 10 * time.Millisecond
	o.tickInterval = 5 * time.Millisecond
	t.Cleanup(o.Close)

	_, err := o.Restore(context.Background(), 7)
	require.NoError(t, err)
	return o, bus
}

func TestSubmitSection_LocalRuleFailureMakesNoNetworkCall(t *testing.T) {
	api := &fakeStepAPI{
		step: &Step{ID: 31, ComplaintID: 7, Code: StepD3, Status: StatusDraft, Data: map[string]any{
			"containment_actions": "",
			"alert_recipients":    []string{},
		}},
	}
	o, _ := newTestOrchestrator(t, api)
	before := len(api.callLog())

	msgs, outcome, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, msgs, "Describe the containment actions taken")
	assert.Contains(t, msgs, "Check at least one alert recipient")

	assert.Equal(t, SectionIdle, o.State("containment").Status, "status must not change on a local rule failure")
	assert.Len(t, api.callLog(), before, "no network call may be issued")
}

func TestSubmitSection_IsolationLocationRequiredWhenIsolated(t *testing.T) {
	data := validContainmentData()
	data["isolation_location"] = ""
	api := &fakeStepAPI{step: &Step{ID: 31, ComplaintID: 7, Code: StepD3, Data: data}}
	o, _ := newTestOrchestrator(t, api)

	msgs, _, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
	assert.Contains(t, msgs, "Isolation location is required when suspect stock is isolated")

	// Unchecking the isolation flag lifts the cross-field rule.
	o.ctrl.SetField("isolated", false)
	api.outcomes = map[string]*SectionOutcome{"containment": {
		Validation:        SectionValidation{Decision: DecisionPass},
		RemainingSections: []string{"restart"},
	}}
	msgs, outcome, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NotNil(t, outcome)
}

func TestSubmitSection_PersistsStrictlyBeforeValidation(t *testing.T) {
	api := &fakeStepAPI{
		outcomes: map[string]*SectionOutcome{"containment": {
			Validation:        SectionValidation{Decision: DecisionPass},
			RemainingSections: []string{"restart"},
		}},
	}
	o, _ := newTestOrchestrator(t, api)

	_, _, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)

	calls := api.callLog()
	saveIdx, validateIdx := -1, -1
	for i, c := range calls {
		switch c {
		case "save_progress":
			saveIdx = i
		case "submit_section:containment":
			validateIdx = i
		}
	}
	require.GreaterOrEqual(t, saveIdx, 0)
	require.GreaterOrEqual(t, validateIdx, 0)
	assert.Less(t, saveIdx, validateIdx, "draft save must complete before the AI call")
}

func TestSubmitSection_PassWithRemainingAutoSwitches(t *testing.T) {
	api := &fakeStepAPI{
		outcomes: map[string]*SectionOutcome{"containment": {
			Validation:        SectionValidation{Decision: DecisionPass, OverallAssessment: "Solid containment."},
			RemainingSections: []string{"restart"},
		}},
	}
	o, _ := newTestOrchestrator(t, api)

	_, outcome, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, SectionPassed, o.State("containment").Status)
	assert.False(t, o.AllPassed())

	assert.Eventually(t, func() bool {
		return o.CurrentIndex() == 1 && o.CurrentKey() == "restart"
	}, time.Second, 2*time.Millisecond, "current section must auto-switch to the first remaining key")
}

func TestSubmitSection_AllPassedRunsCountdownThenAdvances(t *testing.T) {
	api := &fakeStepAPI{
		validations: []SectionValidation{{SectionKey: "containment", Decision: DecisionPass}},
		outcomes: map[string]*SectionOutcome{"restart": {
			Validation:        SectionValidation{Decision: DecisionPass},
			AllSectionsPassed: true,
		}},
	}
	o, bus := newTestOrchestrator(t, api)
	events, cancel := bus.Subscribe()
	defer cancel()

	_, _, err := o.SubmitSection(context.Background(), "restart")
	require.NoError(t, err)
	assert.True(t, o.AllPassed())
	assert.Equal(t, completionCountdownSeconds, o.Countdown())

	var ticks []int
	var advanced StepCode
	deadline := time.After(time.Second)
	for advanced == "" {
		select {
		case ev := <-events:
			switch ev.Kind {
			case EventCountdownTick:
				ticks = append(ticks, ev.Seconds)
			case EventAdvanceStep:
				advanced = ev.NextCode
			}
		case <-deadline:
			t.Fatal("timed out waiting for advance event")
		}
	}
	assert.Equal(t, []int{3, 2, 1, 0}, ticks, "countdown must start at 3 and reach 0 before navigating")
	assert.Equal(t, StepD4, advanced, "D3 advances to D4")
}

func TestSubmitSection_FailStoresPayloadAndStaysPut(t *testing.T) {
	api := &fakeStepAPI{
		outcomes: map[string]*SectionOutcome{"containment": {
			Validation: SectionValidation{
				Decision:      DecisionFail,
				MissingFields: []string{"quantity_blocked"},
				Suggestions:   []string{"State how many parts were blocked."},
			},
			RemainingSections: []string{"containment", "restart"},
		}},
	}
	o, _ := newTestOrchestrator(t, api)

	_, outcome, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
	require.NotNil(t, outcome)

	st := o.State("containment")
	assert.Equal(t, SectionFailed, st.Status)
	require.NotNil(t, st.Last)
	assert.Equal(t, []string{"quantity_blocked"}, st.Last.MissingFields)

	assert.False(t, o.AllPassed())
	assert.Equal(t, 0, o.CurrentIndex(), "a fail never moves the current section")

	// Give any stray timer a chance to misbehave before asserting.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, o.CurrentIndex())
	assert.Equal(t, -1, o.Countdown())
}

func TestSubmitSection_RemoteErrorBecomesGenericFailure(t *testing.T) {
	api := &fakeStepAPI{outcomeErr: errors.New("bad gateway")}
	o, _ := newTestOrchestrator(t, api)

	_, outcome, err := o.SubmitSection(context.Background(), "containment")
	require.Error(t, err)
	assert.Nil(t, outcome)

	st := o.State("containment")
	assert.Equal(t, SectionFailed, st.Status, "never stuck at validating")
	assert.Nil(t, st.Last, "transport errors carry no structured feedback")
}

func TestSubmitSection_RejectsWhileInFlight(t *testing.T) {
	api := &fakeStepAPI{}
	o, _ := newTestOrchestrator(t, api)

	o.mu.Lock()
	o.states["containment"] = SectionState{Status: SectionValidating}
	o.mu.Unlock()

	_, _, err := o.SubmitSection(context.Background(), "containment")
	assert.ErrorIs(t, err, ErrValidationInFlight)
}

func TestSubmitSection_RejectsOverlapDuringSaveWindow(t *testing.T) {
	api := &fakeStepAPI{
		saveDelay: 100 * time.Millisecond,
		outcomes: map[string]*SectionOutcome{"containment": {
			Validation:        SectionValidation{Decision: DecisionPass},
			RemainingSections: []string{"restart"},
		}},
	}
	o, _ := newTestOrchestrator(t, api)

	done := make(chan error, 1)
	go func() {
		_, _, err := o.SubmitSection(context.Background(), "containment")
		done <- err
	}()

	// Wait until the first submit is inside the slow draft save, before
	// its status has flipped to validating.
	require.Eventually(t, func() bool {
		for _, c := range api.callLog() {
			if c == "save_progress" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	_, _, err := o.SubmitSection(context.Background(), "containment")
	assert.ErrorIs(t, err, ErrValidationInFlight, "second submit during the save window must be rejected")
	require.NoError(t, <-done)

	aiCalls := 0
	for _, c := range api.callLog() {
		if c == "submit_section:containment" {
			aiCalls++
		}
	}
	assert.Equal(t, 1, aiCalls, "only one submission may reach the validator")

	// The mark clears on completion; the section can be submitted again.
	_, _, err = o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)
}

func TestSubmitSection_RejectsAfterStepComplete(t *testing.T) {
	api := &fakeStepAPI{
		validations: []SectionValidation{
			{SectionKey: "containment", Decision: DecisionPass},
			{SectionKey: "restart", Decision: DecisionPass},
		},
	}
	o, _ := newTestOrchestrator(t, api)
	require.True(t, o.AllPassed())

	_, _, err := o.SubmitSection(context.Background(), "containment")
	assert.ErrorIs(t, err, ErrStepComplete)
}

func TestRestore_SeedsStatusesAndCurrentSection(t *testing.T) {
	api := &fakeStepAPI{
		validations: []SectionValidation{
			{SectionKey: "containment", Decision: DecisionPass},
			{SectionKey: "restart", Decision: DecisionFail, MissingFields: []string{"restart_date"}},
		},
	}
	o, _ := newTestOrchestrator(t, api)

	assert.Equal(t, SectionPassed, o.State("containment").Status)
	assert.Equal(t, SectionFailed, o.State("restart").Status)
	assert.Equal(t, 1, o.CurrentIndex(), "opens on the first non-passed section")
	assert.False(t, o.AllPassed())
}

func TestRestore_AllPassedOpensOnFirstSection(t *testing.T) {
	api := &fakeStepAPI{
		validations: []SectionValidation{
			{SectionKey: "containment", Decision: DecisionPass},
			{SectionKey: "restart", Decision: DecisionPass},
		},
	}
	o, _ := newTestOrchestrator(t, api)

	assert.True(t, o.AllPassed())
	assert.Equal(t, 0, o.CurrentIndex())
}

func TestClose_CancelsPendingAutoAdvance(t *testing.T) {
	api := &fakeStepAPI{
		outcomes: map[string]*SectionOutcome{"containment": {
			Validation:        SectionValidation{Decision: DecisionPass},
			RemainingSections: []string{"restart"},
		}},
	}
	o, _ := newTestOrchestrator(t, api)
	o.advanceDelay = 50 * time.Millisecond

	_, _, err := o.SubmitSection(context.Background(), "containment")
	require.NoError(t, err)

	o.Close()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, o.CurrentIndex(), "unmount must cancel the pending auto-advance")
}

func TestClose_CancelsCountdown(t *testing.T) {
	api := &fakeStepAPI{
		validations: []SectionValidation{{SectionKey: "containment", Decision: DecisionPass}},
		outcomes: map[string]*SectionOutcome{"restart": {
			Validation:        SectionValidation{Decision: DecisionPass},
			AllSectionsPassed: true,
		}},
	}
	o, bus := newTestOrchestrator(t, api)
	o.tickInterval = 20 * time.Millisecond
	events, cancel := bus.Subscribe()
	defer cancel()

	_, _, err := o.SubmitSection(context.Background(), "restart")
	require.NoError(t, err)
	o.Close()

	time.Sleep(120 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			assert.NotEqual(t, EventAdvanceStep, ev.Kind, "no navigation after unmount")
		default:
			return
		}
	}
}

func TestSelectSection_NeverValidates(t *testing.T) {
	api := &fakeStepAPI{}
	o, _ := newTestOrchestrator(t, api)
	before := len(api.callLog())

	o.SelectSection(1)
	assert.Equal(t, 1, o.CurrentIndex())
	assert.Equal(t, "restart", o.CurrentKey())
	assert.Len(t, api.callLog(), before, "tab switches issue no network calls")
	assert.Equal(t, SectionIdle, o.State("restart").Status)
}
