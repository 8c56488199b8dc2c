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
	"fmt"
	"math"
)

// Window is a rectangular pixel region of a raster, addressed by row/column
// offset and height/width. Offsets and sizes may be fractional, and a window
// may extend beyond the extent of the dataset it is applied to.
type Window struct {
	RowOff, ColOff float64
	Height, Width  float64
}

// NewWindow returns the window covering rows [rowOff, rowOff+height) and
// columns [colOff, colOff+width)
func NewWindow(rowOff, colOff, height, width float64) Window {
	return Window{RowOff: rowOff, ColOff: colOff, Height: height, Width: width}
}

// WindowFromRanges returns the window spanning [rowStart, rowStop) and
// [colStart, colStop)
func WindowFromRanges(rowStart, rowStop, colStart, colStop float64) Window {
	return Window{
		RowOff: rowStart,
		ColOff: colStart,
		Height: rowStop - rowStart,
		Width:  colStop - colStart,
	}
}

// Range is one half-open axis extent used when evaluating a window against a
// dataset shape. An unset start defaults to 0, an unset stop to the dataset
// dimension, and negative bounds count back from the far edge, mirroring
// array slice semantics.
type Range struct {
	start, stop       float64
	hasStart, hasStop bool
}

// R returns the range [start, stop)
func R(start, stop float64) Range {
	return Range{start: start, stop: stop, hasStart: true, hasStop: true}
}

// RFrom returns the range [start, dim)
func RFrom(start float64) Range {
	return Range{start: start, hasStart: true}
}

// RUntil returns the range [0, stop)
func RUntil(stop float64) Range {
	return Range{stop: stop, hasStop: true}
}

// RAll returns the range [0, dim)
func RAll() Range {
	return Range{}
}

func (r Range) eval(dim int, axis string) (start, stop float64, err error) {
	start = 0
	if r.hasStart {
		start = r.start
	}
	if start < 0 {
		if dim < 0 {
			return 0, 0, fmt.Errorf("%w: negative %s bound against unknown dimension", ErrInvalidWindow, axis)
		}
		start += float64(dim)
	}
	stop = float64(dim)
	if r.hasStop {
		stop = r.stop
	}
	if stop < 0 {
		if dim < 0 {
			return 0, 0, fmt.Errorf("%w: negative %s bound against unknown dimension", ErrInvalidWindow, axis)
		}
		stop += float64(dim)
	}
	if stop < start {
		return 0, 0, fmt.Errorf("%w: %s range (%g, %g)", ErrInvalidWindow, axis, start, stop)
	}
	return start, stop, nil
}

// EvalWindow resolves a pair of possibly negative or implicit ranges into a
// concrete window, in the context of a dataset of the given height and width.
// A dimension passed as a negative number is treated as unknown, in which
// case only fully explicit non-negative ranges can be evaluated.
func EvalWindow(rows, cols Range, height, width int) (Window, error) {
	rStart, rStop, err := rows.eval(height, "row")
	if err != nil {
		return Window{}, err
	}
	cStart, cStop, err := cols.eval(width, "col")
	if err != nil {
		return Window{}, err
	}
	return WindowFromRanges(rStart, rStop, cStart, cStop), nil
}

// Crop returns the window clamped to fall within a dataset of the given
// height and width
func (w Window) Crop(height, width int) Window {
	rStart := math.Min(math.Max(w.RowOff, 0), float64(height))
	rStop := math.Max(0, math.Min(w.RowOff+w.Height, float64(height)))
	cStart := math.Min(math.Max(w.ColOff, 0), float64(width))
	cStop := math.Max(0, math.Min(w.ColOff+w.Width, float64(width)))
	return WindowFromRanges(rStart, rStop, cStart, cStop)
}

// RoundLengths rounds the window's height and width to the nearest whole
// number of pixels, never rounding a positive length down to zero. Offsets
// are preserved so that sub-pixel accurate transfer requests stay possible.
func (w Window) RoundLengths() Window {
	w.Height = roundLength(w.Height)
	w.Width = roundLength(w.Width)
	return w
}

func roundLength(l float64) float64 {
	if l <= 0 {
		return 0
	}
	return math.Max(1, math.Round(l))
}

// Shape returns the window's height and width in whole pixels, as rounded by
// RoundLengths
func (w Window) Shape() (height, width int) {
	r := w.RoundLengths()
	return int(r.Height), int(r.Width)
}

// ContainedIn reports whether the window lies entirely inside a dataset of
// the given height and width
func (w Window) ContainedIn(height, width int) bool {
	return w.RowOff >= 0 && w.ColOff >= 0 &&
		w.RowOff+w.Height <= float64(height) &&
		w.ColOff+w.Width <= float64(width)
}

// Intersect returns the overlap of two windows. ok is false when the windows
// do not overlap, in which case the returned window is empty.
func (w Window) Intersect(o Window) (overlap Window, ok bool) {
	rStart := math.Max(w.RowOff, o.RowOff)
	rStop := math.Min(w.RowOff+w.Height, o.RowOff+o.Height)
	cStart := math.Max(w.ColOff, o.ColOff)
	cStop := math.Min(w.ColOff+w.Width, o.ColOff+o.Width)
	if rStop <= rStart || cStop <= cStart {
		return Window{}, false
	}
	return WindowFromRanges(rStart, rStop, cStart, cStop), true
}

// Union returns the smallest window covering both windows
func (w Window) Union(o Window) Window {
	rStart := math.Min(w.RowOff, o.RowOff)
	rStop := math.Max(w.RowOff+w.Height, o.RowOff+o.Height)
	cStart := math.Min(w.ColOff, o.ColOff)
	cStop := math.Max(w.ColOff+w.Width, o.ColOff+o.Width)
	return WindowFromRanges(rStart, rStop, cStart, cStop)
}

// Translate returns the window shifted by the given row and column offsets
func (w Window) Translate(rows, cols float64) Window {
	w.RowOff += rows
	w.ColOff += cols
	return w
}

// Empty reports whether the window covers no pixels
func (w Window) Empty() bool {
	return w.Height <= 0 || w.Width <= 0
}

// String implements Stringer
func (w Window) String() string {
	return fmt.Sprintf("Window(row_off=%g, col_off=%g, height=%g, width=%g)",
		w.RowOff, w.ColOff, w.Height, w.Width)
}
