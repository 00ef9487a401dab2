// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when no registered converter accepts
	// the input.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrConversionFailed matches every *ConversionError.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrRegistrySealed is returned by Register after the first dispatch.
	ErrRegistrySealed = errors.New("converter registry is sealed")

	// ErrArchiveDepth is returned when archives nest deeper than allowed.
	ErrArchiveDepth = errors.New("archive nesting limit exceeded")
)

// ConversionError reports a converter that recognised its input but could
// not convert it. Dispatch stops at the first one.
type ConversionError struct {
	Converter string
	Source    string
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s with %s: %v", e.Source, e.Converter, e.Err)
}

// Unwrap exposes both ErrConversionFailed and the converter's own error.
func (e *ConversionError) Unwrap() []error {
	return []error{ErrConversionFailed, e.Err}
}
