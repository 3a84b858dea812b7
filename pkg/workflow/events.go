// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import "sync"

// The orchestrator talks to its projections (section badges, coach panel,
// step sidebar) over a typed event bus instead of handing callbacks down
// through every view layer. Projections subscribe, render, and never call
// back into the orchestrator.

// EventKind discriminates bus events.
type EventKind int

const (
	// EventSectionStatus reports a section status transition.
	EventSectionStatus EventKind = iota

	// EventValidationStored reports that a new AI validation payload
	// superseded the previous one for a section.
	EventValidationStored

	// EventCurrentSection reports that the visible section changed,
	// whether by tab click or auto-advance.
	EventCurrentSection

	// EventStepCompleted reports that every tracked section passed.
	EventStepCompleted

	// EventCountdownTick carries the remaining seconds of the completion
	// countdown. Zero means navigate now.
	EventCountdownTick

	// EventAdvanceStep asks the view to navigate to the next step code.
	EventAdvanceStep

	// EventNotice carries a user-visible inline message (rule failures,
	// transport errors). Never fatal.
	EventNotice
)

// Event is one bus message. Only the fields relevant to the Kind are set.
type Event struct {
	Kind       EventKind
	SectionKey string
	Status     SectionStatus
	Validation *SectionValidation
	Section    int
	Seconds    int
	NextCode   StepCode
	Message    string
}

// Bus is a small fan-out pub-sub for orchestrator events. Publish never
// blocks: each subscriber has a buffered channel and the oldest event is
// dropped when a subscriber falls behind.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

const subscriberBuffer = 64

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func must be
// called when the subscriber goes away; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish fans the event out to all subscribers without blocking. A full
// subscriber drops its oldest buffered event to make room.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
