// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"eightd/pkg/backend"
	"eightd/pkg/workflow"
)

// promptNewComplaint collects the complaint intake fields.
func promptNewComplaint() (*backend.CreateComplaintRequest, error) {
	var req backend.CreateComplaintRequest
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Title").
			Validate(nonEmpty("a title")).
			Value(&req.Title),
		huh.NewInput().Title("Customer").
			Validate(nonEmpty("a customer name")).
			Value(&req.CustomerName),
		huh.NewInput().Title("Product line").Value(&req.ProductLine),
		huh.NewSelect[string]().Title("Severity").
			Options(huh.NewOptions("low", "medium", "high", "critical")...).
			Value(&req.Severity),
		huh.NewText().Title("Description").Value(&req.Description),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}
	return &req, nil
}

// runQuickEdit loads the step, builds a form from its field schema, and
// saves the edited snapshot as a draft. Validation stays with the step TUI;
// this path is for fast data entry.
func runQuickEdit(ctx context.Context, complaintID int64, code workflow.StepCode) error {
	ctrl := workflow.NewStepDataController(api, logger.Logger)
	step, err := ctrl.Load(ctx, complaintID, code)
	if err != nil {
		return err
	}

	specs := workflow.Fields(code)
	strVals := make(map[string]*string, len(specs))
	boolVals := make(map[string]*bool, len(specs))
	listVals := make(map[string]*[]string, len(specs))

	var fields []huh.Field
	for _, f := range specs {
		switch f.Kind {
		case workflow.FieldText:
			v := workflow.StringField(step.Data, f.Key)
			strVals[f.Key] = &v
			fields = append(fields, huh.NewInput().Title(f.Label).Value(&v))
		case workflow.FieldMultiline:
			v := workflow.StringField(step.Data, f.Key)
			strVals[f.Key] = &v
			fields = append(fields, huh.NewText().Title(f.Label).Value(&v))
		case workflow.FieldBool:
			v := workflow.BoolField(step.Data, f.Key)
			boolVals[f.Key] = &v
			fields = append(fields, huh.NewConfirm().Title(f.Label).Value(&v))
		case workflow.FieldMultiSelect:
			v := workflow.ListField(step.Data, f.Key)
			listVals[f.Key] = &v
			fields = append(fields, huh.NewMultiSelect[string]().Title(f.Label).
				Options(huh.NewOptions(f.Options...)...).Value(&v))
		}
	}

	form := huh.NewForm(huh.NewGroup(fields...).
		Title(fmt.Sprintf("%s — %s", code, code.Title())))
	if err := form.Run(); err != nil {
		return err
	}

	for key, v := range strVals {
		ctrl.SetField(key, *v)
	}
	for key, v := range boolVals {
		ctrl.SetField(key, *v)
	}
	for key, v := range listVals {
		ctrl.SetField(key, *v)
	}
	if err := ctrl.SaveDraft(ctx); err != nil {
		return err
	}
	printOK("Draft saved for %s.", code)
	return nil
}

func nonEmpty(what string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("enter %s", what)
		}
		return nil
	}
}
