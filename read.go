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

// ReadBands reads the selected 1-based bands into a 3D array of shape
// (len(indexes), height, width). indexes nil selects all bands in ascending
// order; selection order is preserved on the array's leading axis and
// duplicates are permitted. All selected bands must share one data type.
//
// The read covers the dataset's full extent unless restricted with
// Windowed(). Windows reaching outside the extent are cropped unless
// Boundless() is set, in which case outside pixels read back as the resolved
// fill value (explicit FillValue beats the bands' common nodata, zero when
// neither exists).
func (ds *Dataset) ReadBands(indexes []int, opts ...ReadOption) (*Array, error) {
	ro := readOpts{}
	for _, opt := range opts {
		opt.setReadOpt(&ro)
	}
	sel, err := ds.resolveBands(indexes)
	if err != nil {
		return nil, err
	}
	return ds.read(sel, ro)
}

// ReadBand reads one 1-based band into a 2D array of shape (height, width).
// ReadBand(i) is equivalent to ReadBands([]int{i}) with the leading band
// axis removed.
func (ds *Dataset) ReadBand(index int, opts ...ReadOption) (*Array, error) {
	arr, err := ds.ReadBands([]int{index}, opts...)
	if err != nil {
		return nil, err
	}
	arr.ndim = 2
	return arr, nil
}

func (ds *Dataset) read(sel bandSelection, ro readOpts) (*Array, error) {
	st := ds.Structure()
	win := Window{Height: float64(st.SizeY), Width: float64(st.SizeX)}
	if ro.window != nil {
		win = *ro.window
	}
	if ro.boundless && ro.window != nil && !win.ContainedIn(st.SizeY, st.SizeX) {
		return ds.readBoundless(sel, win, ro)
	}
	win = win.Crop(st.SizeY, st.SizeX)

	outHeight, outWidth := win.Shape()
	if ro.out != nil && ro.hasOutShape {
		return nil, fmt.Errorf("%w: Out and OutShape are mutually exclusive", ErrShapeMismatch)
	}
	if ro.hasOutShape {
		outHeight, outWidth = ro.outHeight, ro.outWidth
	}
	dtype := sel.dtype
	if ro.outDType != Unknown {
		dtype = ro.outDType
	}
	arr := ro.out
	if arr != nil {
		if arr.DType() != dtype {
			return nil, fmt.Errorf("%w: out array is %s, resolved type is %s", ErrDTypeMismatch, arr.DType(), dtype)
		}
		if arr.Bands() != len(sel.indexes) {
			return nil, fmt.Errorf("%w: out array has %d bands, selection has %d",
				ErrShapeMismatch, arr.Bands(), len(sel.indexes))
		}
		outHeight, outWidth = arr.Height(), arr.Width()
		// a reused out array must not carry a mask from a previous read
		arr.ClearMask()
	} else {
		arr = NewArray(dtype, len(sel.indexes), outHeight, outWidth)
	}

	for i, bidx := range sel.indexes {
		plane := arr.Band(i)
		band := Band{ds: ds, idx: bidx}
		err := band.IO(IORead, win.ColOff, win.RowOff, plane.Data(), outWidth, outHeight,
			SrcSize(win.Width, win.Height),
			Resampling(ro.resampling),
			PixelStride(plane.pixStride),
			LineStride(plane.lineStride))
		if err != nil {
			return nil, err
		}
	}
	if ro.masked {
		if err := ds.resolveReadMask(arr, sel, win, ro); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// WriteBands writes a 3D array into the selected 1-based bands, the inverse
// of ReadBands. The array's leading axis must match the selection.
//
// A masked array written with Masked() has its mask stored to the bands'
// mask planes alongside the raw data. Without Masked(), masked elements are
// replaced by the resolved fill value (explicit FillValue, else the array's
// fill value, else the bands' common nodata, else zero) before the raw
// write.
func (ds *Dataset) WriteBands(arr *Array, indexes []int, opts ...WriteOption) error {
	wo := writeOpts{}
	for _, opt := range opts {
		opt.setWriteOpt(&wo)
	}
	sel, err := ds.resolveBands(indexes)
	if err != nil {
		return err
	}
	if arr.Bands() != len(sel.indexes) {
		return fmt.Errorf("%w: array has %d bands, selection has %d", ErrShapeMismatch, arr.Bands(), len(sel.indexes))
	}
	st := ds.Structure()
	win := Window{Height: float64(st.SizeY), Width: float64(st.SizeX)}
	if wo.window != nil {
		win = wo.window.Crop(st.SizeY, st.SizeX)
	}

	src := arr
	if arr.Masked() && !wo.masked {
		fill := 0.0
		switch {
		case wo.hasFill:
			fill = wo.fill
		case arr.hasFill:
			fill = arr.fill
		case sel.commonNoData != nil:
			fill = *sel.commonNoData
		}
		src = arr.filledWith(fill)
	}
	for i, bidx := range sel.indexes {
		plane := src.Band(i)
		band := Band{ds: ds, idx: bidx}
		err := band.IO(IOWrite, win.ColOff, win.RowOff, plane.Data(), src.Width(), src.Height(),
			SrcSize(win.Width, win.Height),
			PixelStride(plane.pixStride),
			LineStride(plane.lineStride))
		if err != nil {
			return err
		}
	}
	if arr.Masked() && wo.masked {
		return ds.writeMasks(arr, sel, win)
	}
	return nil
}

// WriteBand writes a 2D array into one 1-based band, the inverse of ReadBand
func (ds *Dataset) WriteBand(arr *Array, index int, opts ...WriteOption) error {
	return ds.WriteBands(arr, []int{index}, opts...)
}

// writeMasks stores the array's inverted mask (255 valid, 0 invalid) to each
// selected band's mask plane, creating planes where missing
func (ds *Dataset) writeMasks(arr *Array, sel bandSelection, win Window) error {
	mbuf := make([]uint8, arr.Height()*arr.Width())
	for i, bidx := range sel.indexes {
		// re-fetch: CreateMask on an earlier band invalidates the cached flags
		flags := ds.bandMaskFlags()
		if flags[bidx-1]&(MaskAllValid|MaskNoData|MaskAlpha) != 0 {
			band := Band{ds: ds, idx: bidx}
			if err := band.CreateMask(0); err != nil {
				return err
			}
		}
		for r := 0; r < arr.Height(); r++ {
			for c := 0; c < arr.Width(); c++ {
				if arr.MaskedAt(i, r, c) {
					mbuf[r*arr.Width()+c] = 0
				} else {
					mbuf[r*arr.Width()+c] = 255
				}
			}
		}
		band := Band{ds: ds, idx: bidx}
		err := band.IO(IOWrite, win.ColOff, win.RowOff, mbuf, arr.Width(), arr.Height(),
			SrcSize(win.Width, win.Height), AsMask())
		if err != nil {
			return err
		}
	}
	return nil
}
