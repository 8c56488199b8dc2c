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
	"math"
)

// Plane transfer kernels for the in-memory driver. Each supported element
// type gets one monomorphic instantiation selected by a single type switch,
// so the per-pixel loops never inspect types. Transfers between differing
// element types fall back to a converting kernel.

// transferPlaneRead copies the source region (xoff, yoff, xsize, ysize) of a
// row-major plane into a strided buffer, nearest neighbour when shapes
// differ
func transferPlaneRead[T any](src []T, srcWidth, srcHeight int, xoff, yoff, xsize, ysize float64,
	dst []T, bufWidth, bufHeight, pixelStride, lineStride int) {
	if xsize == float64(bufWidth) && ysize == float64(bufHeight) &&
		xoff == math.Trunc(xoff) && yoff == math.Trunc(yoff) && pixelStride == 1 {
		x0, y0 := int(xoff), int(yoff)
		for r := 0; r < bufHeight; r++ {
			copy(dst[r*lineStride:r*lineStride+bufWidth], src[(y0+r)*srcWidth+x0:])
		}
		return
	}
	for r := 0; r < bufHeight; r++ {
		sr := srcIndex(yoff, ysize, r, bufHeight, srcHeight)
		for c := 0; c < bufWidth; c++ {
			sc := srcIndex(xoff, xsize, c, bufWidth, srcWidth)
			dst[r*lineStride+c*pixelStride] = src[sr*srcWidth+sc]
		}
	}
}

// transferPlaneWrite is the inverse of transferPlaneRead: it sets the target
// region of a row-major plane from a strided buffer
func transferPlaneWrite[T any](dst []T, dstWidth int, xoff, yoff, xsize, ysize float64,
	src []T, bufWidth, bufHeight, pixelStride, lineStride int) {
	if xsize == float64(bufWidth) && ysize == float64(bufHeight) &&
		xoff == math.Trunc(xoff) && yoff == math.Trunc(yoff) && pixelStride == 1 {
		x0, y0 := int(xoff), int(yoff)
		for r := 0; r < bufHeight; r++ {
			copy(dst[(y0+r)*dstWidth+x0:(y0+r)*dstWidth+x0+bufWidth], src[r*lineStride:])
		}
		return
	}
	y0, y1 := regionBounds(yoff, ysize)
	x0, x1 := regionBounds(xoff, xsize)
	for r := y0; r < y1; r++ {
		br := bufIndex(yoff, ysize, r, bufHeight)
		for c := x0; c < x1; c++ {
			bc := bufIndex(xoff, xsize, c, bufWidth)
			dst[r*dstWidth+c] = src[br*lineStride+bc*pixelStride]
		}
	}
}

// srcIndex maps buffer cell i of n onto the source region [off, off+size),
// clamped into [0, dim)
func srcIndex(off, size float64, i, n, dim int) int {
	s := int(math.Floor(off + (float64(i)+0.5)*size/float64(n)))
	if s < 0 {
		s = 0
	}
	if s >= dim {
		s = dim - 1
	}
	return s
}

// bufIndex maps plane pixel p inside the region [off, off+size) back onto a
// buffer axis of n cells, clamped into [0, n)
func bufIndex(off, size float64, p, n int) int {
	b := int(math.Floor((float64(p) + 0.5 - off) * float64(n) / size))
	if b < 0 {
		b = 0
	}
	if b >= n {
		b = n - 1
	}
	return b
}

// regionBounds returns the whole pixels covered by the half open region
// [off, off+size)
func regionBounds(off, size float64) (int, int) {
	return int(math.Floor(off)), int(math.Ceil(off + size))
}

// readPlane dispatches a plane read to the monomorphic kernel for the
// buffer's element type, or to the converting kernel for mixed-type
// transfers
func readPlane(data interface{}, srcWidth, srcHeight int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight, pixelStride, lineStride int) {
	switch src := data.(type) {
	case []uint8:
		if dst, ok := buffer.([]uint8); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int8:
		if dst, ok := buffer.([]int8); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []uint16:
		if dst, ok := buffer.([]uint16); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int16:
		if dst, ok := buffer.([]int16); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []uint32:
		if dst, ok := buffer.([]uint32); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int32:
		if dst, ok := buffer.([]int32); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []float32:
		if dst, ok := buffer.([]float32); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []float64:
		if dst, ok := buffer.([]float64); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []complex64:
		if dst, ok := buffer.([]complex64); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []complex128:
		if dst, ok := buffer.([]complex128); ok {
			transferPlaneRead(src, srcWidth, srcHeight, xoff, yoff, xsize, ysize, dst, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	}
	readPlaneConvert(data, srcWidth, srcHeight, xoff, yoff, xsize, ysize,
		buffer, bufWidth, bufHeight, pixelStride, lineStride)
}

// writePlane dispatches a plane write to the monomorphic kernel for the
// buffer's element type, or to the converting kernel for mixed-type
// transfers
func writePlane(data interface{}, dstWidth int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight, pixelStride, lineStride int) {
	switch dst := data.(type) {
	case []uint8:
		if src, ok := buffer.([]uint8); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int8:
		if src, ok := buffer.([]int8); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []uint16:
		if src, ok := buffer.([]uint16); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int16:
		if src, ok := buffer.([]int16); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []uint32:
		if src, ok := buffer.([]uint32); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []int32:
		if src, ok := buffer.([]int32); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []float32:
		if src, ok := buffer.([]float32); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []float64:
		if src, ok := buffer.([]float64); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []complex64:
		if src, ok := buffer.([]complex64); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	case []complex128:
		if src, ok := buffer.([]complex128); ok {
			transferPlaneWrite(dst, dstWidth, xoff, yoff, xsize, ysize, src, bufWidth, bufHeight, pixelStride, lineStride)
			return
		}
	}
	writePlaneConvert(data, dstWidth, xoff, yoff, xsize, ysize,
		buffer, bufWidth, bufHeight, pixelStride, lineStride)
}

func bothComplex(a, b interface{}) bool {
	adt, err := bufferType(a)
	if err != nil {
		return false
	}
	bdt, err := bufferType(b)
	if err != nil {
		return false
	}
	return adt.Complex() && bdt.Complex()
}

// readPlaneConvert is the converting read kernel: values pass through
// float64 (or complex128 when both sides are complex, preserving the
// imaginary part)
func readPlaneConvert(data interface{}, srcWidth, srcHeight int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight, pixelStride, lineStride int) {
	cplx := bothComplex(data, buffer)
	for r := 0; r < bufHeight; r++ {
		sr := srcIndex(yoff, ysize, r, bufHeight, srcHeight)
		for c := 0; c < bufWidth; c++ {
			sc := srcIndex(xoff, xsize, c, bufWidth, srcWidth)
			si := sr*srcWidth + sc
			di := r*lineStride + c*pixelStride
			if cplx {
				storeComplex(buffer, di, loadComplex(data, si))
			} else {
				storeValue(buffer, di, loadValue(data, si))
			}
		}
	}
}

// writePlaneConvert is the converting write kernel
func writePlaneConvert(data interface{}, dstWidth int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight, pixelStride, lineStride int) {
	cplx := bothComplex(data, buffer)
	y0, y1 := regionBounds(yoff, ysize)
	x0, x1 := regionBounds(xoff, xsize)
	for r := y0; r < y1; r++ {
		br := bufIndex(yoff, ysize, r, bufHeight)
		for c := x0; c < x1; c++ {
			bc := bufIndex(xoff, xsize, c, bufWidth)
			si := br*lineStride + bc*pixelStride
			di := r*dstWidth + c
			if cplx {
				storeComplex(data, di, loadComplex(buffer, si))
			} else {
				storeValue(data, di, loadValue(buffer, si))
			}
		}
	}
}

// loadComplex reads element idx of a complex pixel slice
func loadComplex(buffer interface{}, idx int) complex128 {
	switch buf := buffer.(type) {
	case []complex64:
		return complex128(buf[idx])
	case []complex128:
		return buf[idx]
	default:
		panic("not a complex buffer")
	}
}

// storeComplex writes v into element idx of a complex pixel slice
func storeComplex(buffer interface{}, idx int, v complex128) {
	switch buf := buffer.(type) {
	case []complex64:
		buf[idx] = complex64(v)
	case []complex128:
		buf[idx] = v
	default:
		panic("not a complex buffer")
	}
}
