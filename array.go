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
)

// Array is a band-major pixel buffer of a single data type, optionally
// carrying a validity mask. An Array may be a strided view into another
// Array's storage, so consumers must go through the indexed accessors or
// account for PixelStride/LineStride/BandStride when touching Data directly.
type Array struct {
	dtype                             DataType
	nbands, height, width             int
	ndim                              int
	data                              interface{}
	off                               int
	bandStride, lineStride, pixStride int

	// mask is indexed with the same offset/stride math as data.
	// nil means "no mask": every pixel is valid.
	mask    []bool
	fill    float64
	hasFill bool
}

// NewArray allocates a contiguous 3D array of shape (bands, height, width)
func NewArray(dtype DataType, bands, height, width int) *Array {
	return &Array{
		dtype:      dtype,
		nbands:     bands,
		height:     height,
		width:      width,
		ndim:       3,
		data:       dtype.makeSlice(bands * height * width),
		bandStride: height * width,
		lineStride: width,
		pixStride:  1,
	}
}

// NewArray2D allocates a contiguous 2D array of shape (height, width)
func NewArray2D(dtype DataType, height, width int) *Array {
	a := NewArray(dtype, 1, height, width)
	a.ndim = 2
	return a
}

// NewArrayFrom wraps a caller owned flat pixel slice as a 3D array of shape
// (bands, height, width). The slice must hold at least bands*height*width
// elements.
func NewArrayFrom(buffer interface{}, bands, height, width int) (*Array, error) {
	dtype, err := bufferType(buffer)
	if err != nil {
		return nil, err
	}
	if bufferLen(buffer) < bands*height*width {
		return nil, fmt.Errorf("%w: buffer len=%d smaller than %dx%dx%d",
			ErrShapeMismatch, bufferLen(buffer), bands, height, width)
	}
	return &Array{
		dtype:      dtype,
		nbands:     bands,
		height:     height,
		width:      width,
		ndim:       3,
		data:       buffer,
		bandStride: height * width,
		lineStride: width,
		pixStride:  1,
	}, nil
}

// DType returns the array's element type
func (a *Array) DType() DataType { return a.dtype }

// NDim returns 2 for single band arrays created through the 2D entry points,
// 3 otherwise
func (a *Array) NDim() int { return a.ndim }

// Shape returns (bands, height, width) for 3D arrays and (height, width) for
// 2D arrays
func (a *Array) Shape() []int {
	if a.ndim == 2 {
		return []int{a.height, a.width}
	}
	return []int{a.nbands, a.height, a.width}
}

// Bands returns the length of the leading band axis
func (a *Array) Bands() int { return a.nbands }

// Height returns the number of rows
func (a *Array) Height() int { return a.height }

// Width returns the number of columns
func (a *Array) Width() int { return a.width }

// Data returns the flat pixel slice starting at the array's origin. For
// strided views the slice covers more elements than the array's shape.
func (a *Array) Data() interface{} {
	return bufferSub(a.data, a.off)
}

func (a *Array) index(b, r, c int) int {
	return a.off + b*a.bandStride + r*a.lineStride + c*a.pixStride
}

// Value returns element (band, row, col) as a float64, collapsing complex
// elements to their real part. band is zero based.
func (a *Array) Value(b, r, c int) float64 {
	return loadValue(a.data, a.index(b, r, c))
}

// SetValue sets element (band, row, col), rounding and clamping into range
// for fixed point types
func (a *Array) SetValue(b, r, c int, v float64) {
	storeValue(a.data, a.index(b, r, c), v)
}

// Fill sets every element of the array to v
func (a *Array) Fill(v float64) {
	for b := 0; b < a.nbands; b++ {
		for r := 0; r < a.height; r++ {
			for c := 0; c < a.width; c++ {
				a.SetValue(b, r, c, v)
			}
		}
	}
}

// Band returns a 2D view over the zero based band b, sharing storage and
// mask with the receiver
func (a *Array) Band(b int) *Array {
	v := *a
	v.off = a.index(b, 0, 0)
	v.nbands = 1
	v.ndim = 2
	return &v
}

// Slice returns a view over the sub-rectangle of every band, sharing storage
// and mask with the receiver
func (a *Array) Slice(rowOff, colOff, height, width int) *Array {
	v := *a
	v.off = a.index(0, rowOff, colOff)
	v.height = height
	v.width = width
	return &v
}

// Contiguous reports whether the array's elements are laid out densely in
// band-major order
func (a *Array) Contiguous() bool {
	return a.pixStride == 1 && a.lineStride == a.width && a.bandStride == a.height*a.width
}

// Masked reports whether the array carries a validity mask
func (a *Array) Masked() bool { return a.mask != nil }

// EnsureMask allocates an all-valid mask when the array has none
func (a *Array) EnsureMask() {
	if a.mask == nil {
		a.mask = make([]bool, bufferLen(a.data))
	}
}

// ClearMask drops the array's mask: every element reads back valid
func (a *Array) ClearMask() {
	a.mask = nil
}

// MaskedAt reports whether element (band, row, col) is masked, i.e. invalid.
// Arrays without a mask report every element valid.
func (a *Array) MaskedAt(b, r, c int) bool {
	if a.mask == nil {
		return false
	}
	return a.mask[a.index(b, r, c)]
}

// SetMaskedAt marks element (band, row, col) invalid (masked=true) or valid,
// allocating the mask on first use
func (a *Array) SetMaskedAt(b, r, c int, masked bool) {
	a.EnsureMask()
	a.mask[a.index(b, r, c)] = masked
}

// AnyMasked reports whether at least one element is masked
func (a *Array) AnyMasked() bool {
	if a.mask == nil {
		return false
	}
	for b := 0; b < a.nbands; b++ {
		for r := 0; r < a.height; r++ {
			for c := 0; c < a.width; c++ {
				if a.MaskedAt(b, r, c) {
					return true
				}
			}
		}
	}
	return false
}

// FillValue returns the value that masked elements assume when the array is
// flattened to a plain buffer
func (a *Array) FillValue() (float64, bool) {
	return a.fill, a.hasFill
}

// SetFillValue sets the masked element fill value
func (a *Array) SetFillValue(v float64) {
	a.fill = v
	a.hasFill = true
}

// Filled returns a copy of the array with masked elements replaced by the
// array's fill value (or v0 when none is set) and no mask
func (a *Array) Filled(v0 float64) *Array {
	fill := v0
	if a.hasFill {
		fill = a.fill
	}
	return a.filledWith(fill)
}

func (a *Array) filledWith(fill float64) *Array {
	out := NewArray(a.dtype, a.nbands, a.height, a.width)
	out.ndim = a.ndim
	for b := 0; b < a.nbands; b++ {
		for r := 0; r < a.height; r++ {
			for c := 0; c < a.width; c++ {
				if a.MaskedAt(b, r, c) {
					out.SetValue(b, r, c, fill)
				} else {
					out.SetValue(b, r, c, a.Value(b, r, c))
				}
			}
		}
	}
	return out
}
