// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rastio

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned for malformed or inverted window bounds
	ErrInvalidWindow = errors.New("invalid window")
	// ErrIndexOutOfRange is returned when a band index is not present in the
	// dataset
	ErrIndexOutOfRange = errors.New("band index out of range")
	// ErrNoIndexes is returned for an empty band selection
	ErrNoIndexes = errors.New("empty band selection")
	// ErrMixedDTypes is returned when selected bands do not share a single
	// data type
	ErrMixedDTypes = errors.New("bands do not share a single data type")
	// ErrShapeMismatch is returned when a caller supplied buffer does not
	// match the computed window shape
	ErrShapeMismatch = errors.New("buffer shape mismatch")
	// ErrDTypeMismatch is returned when a caller supplied buffer does not
	// match the resolved data type
	ErrDTypeMismatch = errors.New("buffer data type mismatch")
	// ErrNoDataRange is returned when a nodata value lies outside the
	// representable range of its band's data type
	ErrNoDataRange = errors.New("nodata value out of data type range")
	// ErrClosedDataset is returned when operating on a closed handle
	ErrClosedDataset = errors.New("dataset is closed")
)

// TransferError wraps a failure reported by the storage backend's pixel
// transfer primitive. Backend failures are never retried or swallowed, they
// are surfaced as-is to the caller of the current operation.
type TransferError struct {
	Op  string
	Err error
}

// Error implements error
func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransferError) Unwrap() error {
	return e.Err
}

func transferErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransferError{Op: op, Err: err}
}

// WarningHandler receives non-fatal diagnostics emitted while an operation
// proceeds, e.g. the nodata/alpha shadow ambiguity of masked reads. When no
// handler is set, diagnostics are dropped.
type WarningHandler func(msg string)

// NodataShadowWarning is the diagnostic emitted when a per-band nodata value
// and an alpha band both claim authority over masking. The nodata value wins:
// masks derive from the nodata sentinel and the alpha band is ignored.
const NodataShadowWarning = "nodata value shadows the alpha band: masks derive from the nodata value"
