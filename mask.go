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

// resolveIndexes validates 1-based band indexes without requiring a common
// data type, defaulting to all bands. Mask planes share one element type
// regardless of the parent bands', so mask reads accept mixed-type
// selections.
func (ds *Dataset) resolveIndexes(indexes []int) ([]int, error) {
	nbands := ds.Structure().NBands
	if indexes == nil {
		indexes = make([]int, nbands)
		for i := range indexes {
			indexes[i] = i + 1
		}
	}
	if len(indexes) == 0 {
		return nil, ErrNoIndexes
	}
	for _, idx := range indexes {
		if idx < 1 || idx > nbands {
			return nil, fmt.Errorf("%w: band %d of %d", ErrIndexOutOfRange, idx, nbands)
		}
	}
	return indexes, nil
}

// allValid reports whether every listed band advertises the all-pixels-valid
// capability, in which case mask queries need no backend I/O at all
func (ds *Dataset) allValid(indexes []int) bool {
	flags := ds.bandMaskFlags()
	for _, idx := range indexes {
		if flags[idx-1]&MaskAllValid == 0 {
			return false
		}
	}
	return true
}

// warnNodataShadow emits the diagnostic for datasets where an alpha band and
// a nodata value both claim authority over masking. The mask/alpha result
// stays authoritative; the condition is not an error.
func (ds *Dataset) warnNodataShadow(indexes []int, warn WarningHandler) {
	if warn == nil {
		return
	}
	if ds.Structure().NBands != 4 || ds.bandColorInterps()[3] != CIAlpha {
		return
	}
	nodata := ds.bandNoData()
	for _, idx := range indexes {
		if nodata[idx-1] != nil {
			warn(NodataShadowWarning)
			return
		}
	}
}

// ReadMasks reads the validity mask planes of the selected 1-based bands
// into a 3D Byte array of shape (len(indexes), height, width), 0 marking
// invalid and 255 valid pixels. Selections spanning mixed data types are
// permitted: mask planes always carry the mask's native single byte type.
func (ds *Dataset) ReadMasks(indexes []int, opts ...ReadOption) (*Array, error) {
	ro := readOpts{}
	for _, opt := range opts {
		opt.setReadOpt(&ro)
	}
	idxs, err := ds.resolveIndexes(indexes)
	if err != nil {
		return nil, err
	}
	return ds.readMasks(idxs, ro)
}

func (ds *Dataset) readMasks(idxs []int, ro readOpts) (*Array, error) {
	st := ds.Structure()
	win := Window{Height: float64(st.SizeY), Width: float64(st.SizeX)}
	if ro.window != nil {
		win = *ro.window
	}
	if ro.boundless && ro.window != nil && !win.ContainedIn(st.SizeY, st.SizeX) {
		return ds.readMasksBoundless(idxs, win, ro)
	}
	win = win.Crop(st.SizeY, st.SizeX)

	outHeight, outWidth := win.Shape()
	if ro.out != nil && ro.hasOutShape {
		return nil, fmt.Errorf("%w: Out and OutShape are mutually exclusive", ErrShapeMismatch)
	}
	if ro.hasOutShape {
		outHeight, outWidth = ro.outHeight, ro.outWidth
	}
	arr := ro.out
	if arr != nil {
		if arr.DType() != maskDType {
			return nil, fmt.Errorf("%w: mask out array is %s, want %s", ErrDTypeMismatch, arr.DType(), maskDType)
		}
		if arr.Bands() != len(idxs) {
			return nil, fmt.Errorf("%w: out array has %d bands, selection has %d", ErrShapeMismatch, arr.Bands(), len(idxs))
		}
		outHeight, outWidth = arr.Height(), arr.Width()
		// a reused out array must not carry a mask from a previous read
		arr.ClearMask()
	} else {
		arr = NewArray(maskDType, len(idxs), outHeight, outWidth)
	}

	ds.warnNodataShadow(idxs, ro.warn)
	if ds.allValid(idxs) {
		arr.Fill(255)
		return arr, nil
	}
	for i, bidx := range idxs {
		plane := arr.Band(i)
		band := Band{ds: ds, idx: bidx}
		err := band.IO(IORead, win.ColOff, win.RowOff, plane.Data(), outWidth, outHeight,
			SrcSize(win.Width, win.Height),
			Resampling(ro.resampling),
			PixelStride(plane.pixStride),
			LineStride(plane.lineStride),
			AsMask())
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// ReadMask reads the band's validity mask plane into a 2D Byte array
func (band Band) ReadMask(opts ...ReadOption) (*Array, error) {
	arr, err := band.ds.ReadMasks([]int{band.idx}, opts...)
	if err != nil {
		return nil, err
	}
	arr.ndim = 2
	return arr, nil
}

// DatasetMask reduces the per-band masks to one dataset-wide validity mask,
// returned as a 2D Byte array. A dataset-wide mask plane short-circuits to
// band 1's mask; a 4-band image with a leading red band uses band 4 (the
// alpha band) as the mask; anything else is the bitwise OR of the per-band
// masks.
func (ds *Dataset) DatasetMask(opts ...ReadOption) (*Array, error) {
	ro := readOpts{}
	for _, opt := range opts {
		opt.setReadOpt(&ro)
	}
	st := ds.Structure()

	if ro.boundless && ro.window != nil && !ro.window.ContainedIn(st.SizeY, st.SizeX) {
		return ds.datasetMaskBoundless(*ro.window, ro)
	}

	flags := ds.bandMaskFlags()
	if flags[0]&MaskPerDataset != 0 {
		band := Band{ds: ds, idx: 1}
		return band.ReadMask(opts...)
	}
	if st.NBands == 4 && ds.bandColorInterps()[0] == CIRed {
		// RGBA: the alpha band is the dataset mask
		alphaOpts := make([]ReadOption, 0, len(opts)+1)
		alphaOpts = append(alphaOpts, opts...)
		alphaOpts = append(alphaOpts, OutDType(maskDType))
		arr, err := ds.ReadBands([]int{4}, alphaOpts...)
		if err != nil {
			return nil, err
		}
		arr.ndim = 2
		return arr, nil
	}
	masks, err := ds.ReadMasks(nil, opts...)
	if err != nil {
		return nil, err
	}
	out := NewArray2D(maskDType, masks.Height(), masks.Width())
	for r := 0; r < masks.Height(); r++ {
		for c := 0; c < masks.Width(); c++ {
			v := 0.0
			for b := 0; b < masks.Bands(); b++ {
				if masks.Value(b, r, c) != 0 {
					v = 255
					break
				}
			}
			out.SetValue(0, r, c, v)
		}
	}
	return out, nil
}

// resolveReadMask augments a masked read's result with its validity mask,
// honoring the all-valid short circuit (the array keeps the "no mask"
// state and every element reads back valid).
func (ds *Dataset) resolveReadMask(arr *Array, sel bandSelection, win Window, ro readOpts) error {
	ds.warnNodataShadow(sel.indexes, ro.warn)
	if ro.hasFill {
		arr.SetFillValue(ro.fill)
	} else if sel.commonNoData != nil {
		arr.SetFillValue(*sel.commonNoData)
	}
	if ds.allValid(sel.indexes) {
		return nil
	}
	mbuf := NewArray(maskDType, len(sel.indexes), arr.Height(), arr.Width())
	for i, bidx := range sel.indexes {
		plane := mbuf.Band(i)
		band := Band{ds: ds, idx: bidx}
		err := band.IO(IORead, win.ColOff, win.RowOff, plane.Data(), arr.Width(), arr.Height(),
			SrcSize(win.Width, win.Height),
			Resampling(ro.resampling),
			AsMask())
		if err != nil {
			return err
		}
	}
	// backend convention is 0=invalid, 255=valid: invert into the
	// masked-array convention where true marks invalid elements
	arr.EnsureMask()
	for b := 0; b < arr.Bands(); b++ {
		for r := 0; r < arr.Height(); r++ {
			for c := 0; c < arr.Width(); c++ {
				arr.SetMaskedAt(b, r, c, mbuf.Value(b, r, c) == 0)
			}
		}
	}
	return nil
}
