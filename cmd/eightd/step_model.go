// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"eightd/pkg/workflow"
)

// stepAPI is the backend surface the step editor needs. *backend.Client
// satisfies it.
type stepAPI interface {
	workflow.StepAPI
	GetComplaint(ctx context.Context, id int64) (*workflow.Complaint, error)
	ListStepFiles(ctx context.Context, stepID int64) ([]workflow.StepFile, error)
}

// =============================================================================
// Messages
// =============================================================================

type stepLoadedMsg struct {
	step      *workflow.Step
	complaint *workflow.Complaint
	files     []workflow.StepFile
	err       error
}

type busEventMsg struct {
	ev workflow.Event
	ok bool
}

// =============================================================================
// Field widgets
// =============================================================================

// fieldWidget wraps one form field. Exactly one of the widget members is
// live, selected by spec.Kind.
type fieldWidget struct {
	spec     workflow.FieldSpec
	text     textinput.Model
	area     textarea.Model
	on       bool
	selected map[string]bool
	cursor   int
}

func newFieldWidget(spec workflow.FieldSpec, data map[string]any) *fieldWidget {
	w := &fieldWidget{spec: spec}
	switch spec.Kind {
	case workflow.FieldText:
		w.text = textinput.New()
		w.text.Prompt = ""
		w.text.SetValue(workflow.StringField(data, spec.Key))
	case workflow.FieldMultiline:
		w.area = textarea.New()
		w.area.SetHeight(3)
		w.area.SetValue(workflow.StringField(data, spec.Key))
	case workflow.FieldBool:
		w.on = workflow.BoolField(data, spec.Key)
	case workflow.FieldMultiSelect:
		w.selected = make(map[string]bool)
		for _, opt := range workflow.ListField(data, spec.Key) {
			w.selected[opt] = true
		}
	}
	return w
}

// value renders the widget state back into the step data representation.
func (w *fieldWidget) value() any {
	switch w.spec.Kind {
	case workflow.FieldText:
		return w.text.Value()
	case workflow.FieldMultiline:
		return w.area.Value()
	case workflow.FieldBool:
		return w.on
	case workflow.FieldMultiSelect:
		var picked []string
		for _, opt := range w.spec.Options {
			if w.selected[opt] {
				picked = append(picked, opt)
			}
		}
		if picked == nil {
			picked = []string{}
		}
		return picked
	}
	return nil
}

func (w *fieldWidget) setFocus(focused bool) {
	switch w.spec.Kind {
	case workflow.FieldText:
		if focused {
			w.text.Focus()
		} else {
			w.text.Blur()
		}
	case workflow.FieldMultiline:
		if focused {
			w.area.Focus()
		} else {
			w.area.Blur()
		}
	}
}

// =============================================================================
// Model
// =============================================================================

// stepModel is the bubbletea model for the step editor. The orchestrator
// does the actual work; the model renders its bus events and feeds key
// presses back in.
type stepModel struct {
	api stepAPI
	log *slog.Logger

	complaintID int64
	code        workflow.StepCode

	bus   *workflow.Bus
	evs   <-chan workflow.Event
	unsub func()
	ctrl  *workflow.StepDataController
	orch  *workflow.Orchestrator

	complaint *workflow.Complaint
	step      *workflow.Step
	keys      []string
	statuses  map[string]workflow.SectionState
	section   int
	widgets   []*fieldWidget
	focus     int

	files     []workflow.StepFile
	coach     []workflow.CoachEntry
	notice    string
	countdown int
	allPassed bool
	loading   bool
	spin      spinner.Model
	width     int
	err       error
}

func newStepModel(api stepAPI, log *slog.Logger, complaintID int64, code workflow.StepCode) stepModel {
	m := stepModel{
		api:         api,
		log:         log,
		complaintID: complaintID,
		countdown:   -1,
		loading:     true,
	}
	m.spin = spinner.New()
	m.spin.Spinner = spinner.Dot
	m.spin.Style = Styles.Subtitle
	m.mount(code)
	return m
}

// mount wires a fresh controller/orchestrator/bus trio for one step code.
// Called at construction and again on every step advance.
func (m *stepModel) mount(code workflow.StepCode) {
	if m.orch != nil {
		m.orch.Close()
	}
	if m.unsub != nil {
		m.unsub()
	}
	m.code = code
	m.bus = workflow.NewBus()
	m.evs, m.unsub = m.bus.Subscribe()
	m.ctrl = workflow.NewStepDataController(m.api, m.log)
	m.orch = workflow.NewOrchestrator(m.api, m.ctrl, m.bus, m.log, code)
	m.keys = m.orch.Keys()
	m.statuses = make(map[string]workflow.SectionState, len(m.keys))
	for _, k := range m.keys {
		m.statuses[k] = workflow.SectionState{Status: workflow.SectionIdle}
	}
	m.section = 0
	m.widgets = nil
	m.coach = nil
	m.notice = ""
	m.countdown = -1
	m.allPassed = false
	m.loading = true
	m.err = nil
}

func (m stepModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.listenCmd(), m.spin.Tick)
}

// loadCmd restores the orchestrator, then fans out for the complaint
// header and the evidence list. Step load failure is fatal to the view;
// the metadata fetches degrade silently.
func (m stepModel) loadCmd() tea.Cmd {
	orch, api, complaintID, log := m.orch, m.api, m.complaintID, m.log
	return func() tea.Msg {
		ctx := context.Background()
		step, err := orch.Restore(ctx, complaintID)
		if err != nil {
			return stepLoadedMsg{err: err}
		}

		var complaint *workflow.Complaint
		var files []workflow.StepFile
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			complaint, err = api.GetComplaint(gctx, complaintID)
			return err
		})
		g.Go(func() error {
			var err error
			files, err = api.ListStepFiles(gctx, step.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			log.Warn("step metadata fetch failed", "error", err)
		}
		return stepLoadedMsg{step: step, complaint: complaint, files: files}
	}
}

func (m stepModel) listenCmd() tea.Cmd {
	evs := m.evs
	return func() tea.Msg {
		ev, ok := <-evs
		return busEventMsg{ev: ev, ok: ok}
	}
}

func (m stepModel) submitCmd(key string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		// Outcomes and failures all surface as bus events.
		orch.SubmitSection(context.Background(), key)
		return nil
	}
}

func (m stepModel) saveCmd() tea.Cmd {
	ctrl, bus := m.ctrl, m.bus
	return func() tea.Msg {
		if err := ctrl.SaveDraft(context.Background()); err != nil {
			bus.Publish(workflow.Event{Kind: workflow.EventNotice, Message: err.Error()})
			return nil
		}
		bus.Publish(workflow.Event{Kind: workflow.EventNotice, Message: "Draft saved"})
		return nil
	}
}

// =============================================================================
// Update
// =============================================================================

func (m stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case stepLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.step = msg.step
		if msg.complaint != nil {
			m.complaint = msg.complaint
		}
		m.files = msg.files
		m.section = m.orch.CurrentIndex()
		m.allPassed = m.orch.AllPassed()
		for _, k := range m.keys {
			m.statuses[k] = m.orch.State(k)
		}
		m.rebuildWidgets()
		m.coach = workflow.CoachFeed(m.statuses[m.currentKey()].Last)
		return m, nil

	case busEventMsg:
		if !msg.ok {
			return m, nil
		}
		cmd := m.applyEvent(msg.ev)
		return m, tea.Batch(m.listenCmd(), cmd)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyEvent folds one orchestrator event into the view state.
func (m *stepModel) applyEvent(ev workflow.Event) tea.Cmd {
	switch ev.Kind {
	case workflow.EventSectionStatus:
		m.statuses[ev.SectionKey] = workflow.SectionState{Status: ev.Status, Last: ev.Validation}
		if ev.SectionKey == m.currentKey() {
			m.coach = workflow.CoachFeed(ev.Validation)
		}

	case workflow.EventValidationStored:
		if ev.SectionKey == m.currentKey() {
			m.coach = workflow.CoachFeed(ev.Validation)
		}

	case workflow.EventCurrentSection:
		m.section = ev.Section
		m.rebuildWidgets()
		m.coach = workflow.CoachFeed(m.statuses[ev.SectionKey].Last)
		m.notice = ""

	case workflow.EventStepCompleted:
		m.allPassed = true

	case workflow.EventCountdownTick:
		m.countdown = ev.Seconds

	case workflow.EventAdvanceStep:
		m.mount(ev.NextCode)
		return tea.Batch(m.loadCmd(), m.listenCmd())

	case workflow.EventNotice:
		m.notice = ev.Message
	}
	return nil
}

func (m stepModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.orch.Close()
		m.unsub()
		return m, tea.Quit

	case "ctrl+s":
		m.syncInputs()
		return m, m.saveCmd()

	case "ctrl+d":
		if m.loading || m.err != nil {
			return m, nil
		}
		m.syncInputs()
		return m, m.submitCmd(m.currentKey())

	case "ctrl+t":
		// Section switching is disabled while a validation is in flight.
		if len(m.keys) < 2 || m.orch.Validating() {
			return m, nil
		}
		m.syncInputs()
		m.orch.SelectSection((m.section + 1) % len(m.keys))
		return m, nil

	case "tab", "enter":
		if msg.String() == "enter" && m.focusedKind() == workflow.FieldMultiline {
			break // newline in the text area
		}
		if m.focusedKind() == workflow.FieldBool && msg.String() == "enter" {
			m.widgets[m.focus].on = !m.widgets[m.focus].on
			return m, nil
		}
		m.moveFocus(1)
		return m, nil

	case "shift+tab":
		m.moveFocus(-1)
		return m, nil

	case " ":
		switch m.focusedKind() {
		case workflow.FieldBool:
			m.widgets[m.focus].on = !m.widgets[m.focus].on
			return m, nil
		case workflow.FieldMultiSelect:
			w := m.widgets[m.focus]
			opt := w.spec.Options[w.cursor]
			w.selected[opt] = !w.selected[opt]
			return m, nil
		}

	case "up", "down":
		if m.focusedKind() == workflow.FieldMultiSelect {
			w := m.widgets[m.focus]
			if msg.String() == "up" && w.cursor > 0 {
				w.cursor--
			}
			if msg.String() == "down" && w.cursor < len(w.spec.Options)-1 {
				w.cursor++
			}
			return m, nil
		}
	}

	// Everything else feeds the focused text widget.
	if m.focus < len(m.widgets) {
		w := m.widgets[m.focus]
		var cmd tea.Cmd
		switch w.spec.Kind {
		case workflow.FieldText:
			w.text, cmd = w.text.Update(msg)
		case workflow.FieldMultiline:
			w.area, cmd = w.area.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// helpers
// =============================================================================

func (m stepModel) currentKey() string {
	if m.section < 0 || m.section >= len(m.keys) {
		return ""
	}
	return m.keys[m.section]
}

func (m stepModel) focusedKind() workflow.FieldKind {
	if m.focus < len(m.widgets) {
		return m.widgets[m.focus].spec.Kind
	}
	return workflow.FieldText
}

func (m *stepModel) rebuildWidgets() {
	data := m.ctrl.Data()
	specs := workflow.SectionFields(m.code, m.currentKey())
	m.widgets = make([]*fieldWidget, 0, len(specs))
	for _, spec := range specs {
		m.widgets = append(m.widgets, newFieldWidget(spec, data))
	}
	m.focus = 0
	if len(m.widgets) > 0 {
		m.widgets[0].setFocus(true)
	}
}

func (m *stepModel) moveFocus(delta int) {
	if len(m.widgets) == 0 {
		return
	}
	m.widgets[m.focus].setFocus(false)
	m.focus = (m.focus + delta + len(m.widgets)) % len(m.widgets)
	m.widgets[m.focus].setFocus(true)
}

// syncInputs copies every widget value of the visible section into the
// controller, so drafts and submissions see exactly what is on screen.
func (m *stepModel) syncInputs() {
	for _, w := range m.widgets {
		m.ctrl.SetField(w.spec.Key, w.value())
	}
}
