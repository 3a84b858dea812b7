// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	bus.Publish(Event{Kind: EventStepCompleted})

	assert.Equal(t, EventStepCompleted, (<-a).Kind)
	assert.Equal(t, EventStepCompleted, (<-b).Kind)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Kind: EventNotice})
	cancel() // double-cancel is safe
}

func TestBus_SlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(Event{Kind: EventCountdownTick, Seconds: i})
	}

	first := <-ch
	assert.Equal(t, 5, first.Seconds, "oldest events are dropped when the buffer is full")

	// Drain: the newest event must still be there.
	var last Event
	for i := 0; i < subscriberBuffer-1; i++ {
		last = <-ch
	}
	require.Equal(t, subscriberBuffer+4, last.Seconds)
}
