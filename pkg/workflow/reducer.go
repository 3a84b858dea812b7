// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

// The section lifecycle is an explicit state machine rather than scattered
// flags. States are exactly {Idle, Validating, Passed, Failed}; all
// transitions flow through ReduceSection so the table is testable in
// isolation from any I/O.
//
//	Idle/Passed/Failed --SubmitAccepted--> Validating
//	Validating         --DecisionPass----> Passed   (payload stored)
//	Validating         --DecisionFail----> Failed   (payload stored)
//	Validating         --RemoteError-----> Failed   (no payload)
//
// A local rule failure is not an event: it aborts before SubmitAccepted
// and the state is untouched.

// SectionEvent is a state machine input for one section.
type SectionEvent int

const (
	// EvSubmitAccepted fires after local rules pass and the draft save
	// completed. The remote AI call is about to be issued.
	EvSubmitAccepted SectionEvent = iota

	// EvDecisionPass fires when the AI validator returns decision=pass.
	EvDecisionPass

	// EvDecisionFail fires when the AI validator returns decision=fail.
	EvDecisionFail

	// EvRemoteError fires on a transport or unexpected backend error.
	// The section lands in Failed with no structured feedback so it can
	// never stick at Validating.
	EvRemoteError
)

// ReduceSection computes the next section state from the current state and
// an event. It is a pure function; the orchestrator owns when events fire.
func ReduceSection(cur SectionState, ev SectionEvent, v *SectionValidation) SectionState {
	switch ev {
	case EvSubmitAccepted:
		// Keep the previous payload visible while validating; it is only
		// superseded when the new decision arrives.
		return SectionState{Status: SectionValidating, Last: cur.Last}
	case EvDecisionPass:
		return SectionState{Status: SectionPassed, Last: v}
	case EvDecisionFail:
		return SectionState{Status: SectionFailed, Last: v}
	case EvRemoteError:
		return SectionState{Status: SectionFailed, Last: nil}
	default:
		return cur
	}
}

// RestoredState seeds a section state from a persisted decision on mount.
func RestoredState(v *SectionValidation) SectionState {
	if v == nil {
		return SectionState{Status: SectionIdle}
	}
	if v.Decision == DecisionPass {
		return SectionState{Status: SectionPassed, Last: v}
	}
	return SectionState{Status: SectionFailed, Last: v}
}
