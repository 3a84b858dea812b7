// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		size    int64
		wantErr error
	}{
		{"png ok", "image/png", 1024, nil},
		{"pdf ok", "application/pdf", MaxFileSize, nil},
		{"mime case-insensitive", "Image/JPEG", 10, nil},
		{"svg rejected", "image/svg+xml", 1024, ErrUnsupportedType},
		{"executable rejected", "application/x-msdownload", 1024, ErrUnsupportedType},
		{"empty rejected", "image/png", 0, ErrEmptyFile},
		{"negative rejected", "image/png", -1, ErrEmptyFile},
		{"oversize rejected", "image/png", MaxFileSize + 1, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check("sample.bin", tt.mime, tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Check() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestIconFor(t *testing.T) {
	if IconFor("application/pdf") == IconFor("image/png") {
		t.Error("pdf and image glyphs must differ")
	}
	if !IsImage("image/webp") || IsImage("application/pdf") {
		t.Error("IsImage misclassifies")
	}
}
