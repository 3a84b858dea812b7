// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package evidence implements the client side of the evidence file
// contract: the acceptance gate that runs before any network call, the
// display helpers for size labels and icon glyphs, and the sequential
// upload manager with its simulated progress indicator.
package evidence

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFileSize is the upload limit. Files above it are rejected client
// side and never reach the backend.
const MaxFileSize = 25 << 20 // 25 MB

// acceptedMimeTypes is the closed set of evidence formats.
var acceptedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"image/bmp":       true,
	"image/tiff":      true,
	"application/pdf": true,
}

var (
	// ErrUnsupportedType rejects a file whose MIME type is outside the
	// accepted set.
	ErrUnsupportedType = errors.New("unsupported file type (accepted: jpeg, png, gif, webp, bmp, tiff, pdf)")

	// ErrEmptyFile rejects zero-byte files.
	ErrEmptyFile = errors.New("file is empty")

	// ErrTooLarge rejects files over MaxFileSize.
	ErrTooLarge = errors.New("file exceeds the 25 MB limit")
)

// Check is the client-side acceptance gate. It must be called before any
// upload; a non-nil error means the file is discarded without a network
// call.
func Check(filename, mimeType string, size int64) error {
	if !acceptedMimeTypes[strings.ToLower(mimeType)] {
		return fmt.Errorf("%s: %w", filename, ErrUnsupportedType)
	}
	if size <= 0 {
		return fmt.Errorf("%s: %w", filename, ErrEmptyFile)
	}
	if size > MaxFileSize {
		return fmt.Errorf("%s: %w", filename, ErrTooLarge)
	}
	return nil
}

// IsImage reports whether the MIME type renders as an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// HumanSize renders a byte count as a short human-readable label.
func HumanSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// IconFor picks the list glyph for a stored file.
func IconFor(mimeType string) string {
	switch {
	case mimeType == "application/pdf":
		return "📄"
	case IsImage(mimeType):
		return "🖼"
	default:
		return "📎"
	}
}
