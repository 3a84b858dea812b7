// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import "testing"

func TestReduceSection_TransitionTable(t *testing.T) {
	prev := &SectionValidation{Decision: DecisionFail, MissingFields: []string{"x"}}
	fresh := &SectionValidation{Decision: DecisionPass}

	tests := []struct {
		name       string
		cur        SectionState
		ev         SectionEvent
		payload    *SectionValidation
		wantStatus SectionStatus
		wantLast   *SectionValidation
	}{
		{"idle submit", SectionState{Status: SectionIdle}, EvSubmitAccepted, nil, SectionValidating, nil},
		{"failed resubmit keeps old payload while validating", SectionState{Status: SectionFailed, Last: prev}, EvSubmitAccepted, nil, SectionValidating, prev},
		{"passed resubmit", SectionState{Status: SectionPassed, Last: prev}, EvSubmitAccepted, nil, SectionValidating, prev},
		{"validating pass", SectionState{Status: SectionValidating, Last: prev}, EvDecisionPass, fresh, SectionPassed, fresh},
		{"validating fail supersedes", SectionState{Status: SectionValidating, Last: fresh}, EvDecisionFail, prev, SectionFailed, prev},
		{"validating remote error drops payload", SectionState{Status: SectionValidating, Last: prev}, EvRemoteError, nil, SectionFailed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReduceSection(tt.cur, tt.ev, tt.payload)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.Last != tt.wantLast {
				t.Errorf("last = %+v, want %+v", got.Last, tt.wantLast)
			}
		})
	}
}

func TestRestoredState(t *testing.T) {
	if st := RestoredState(nil); st.Status != SectionIdle {
		t.Errorf("nil decision should restore to idle, got %v", st.Status)
	}
	pass := &SectionValidation{Decision: DecisionPass}
	if st := RestoredState(pass); st.Status != SectionPassed || st.Last != pass {
		t.Errorf("pass decision should restore to passed with payload")
	}
	fail := &SectionValidation{Decision: DecisionFail}
	if st := RestoredState(fail); st.Status != SectionFailed || st.Last != fail {
		t.Errorf("fail decision should restore to failed with payload")
	}
}

func TestStepCode_NextOrdering(t *testing.T) {
	for i, code := range StepOrder[:len(StepOrder)-1] {
		next, ok := code.Next()
		if !ok {
			t.Fatalf("%s must have a successor", code)
		}
		if next != StepOrder[i+1] {
			t.Errorf("%s.Next() = %s, want %s", code, next, StepOrder[i+1])
		}
	}
	if _, ok := StepD8.Next(); ok {
		t.Error("D8 has no successor and must stay put")
	}
}

func TestParseStepCode(t *testing.T) {
	if code, err := ParseStepCode(" d3 "); err != nil || code != StepD3 {
		t.Errorf("ParseStepCode(\" d3 \") = %v, %v", code, err)
	}
	if _, err := ParseStepCode("D9"); err == nil {
		t.Error("D9 must be rejected")
	}
}
