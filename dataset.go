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

// Structure is a dataset's pixel layout
type Structure struct {
	// SizeX is the dataset's width in pixels
	SizeX int
	// SizeY is the dataset's height in pixels
	SizeY int
	// NBands is the number of bands
	NBands int
}

// Dataset wraps a backend handle and exposes the windowed, typed, multi-band
// read/write entry points. Dataset metadata (band types, nodata values, mask
// flags) is fetched from the handle once and memoized; mutating operations
// invalidate the affected cache explicitly.
type Dataset struct {
	handle DatasetHandle

	// lazily populated metadata caches, nil until first query
	structure *Structure
	dtypes    []DataType
	nodata    []*float64
	maskFlags []MaskFlag
	interps   []ColorInterp
}

// NewDataset wraps a backend handle
func NewDataset(handle DatasetHandle) *Dataset {
	return &Dataset{handle: handle}
}

// Handle returns the underlying backend handle
func (ds *Dataset) Handle() DatasetHandle {
	return ds.handle
}

// Close releases the backend handle
func (ds *Dataset) Close() error {
	if ds.handle == nil {
		return ErrClosedDataset
	}
	err := ds.handle.Close()
	ds.handle = nil
	return err
}

// Structure returns the dataset's pixel layout
func (ds *Dataset) Structure() Structure {
	if ds.structure == nil {
		w, h := ds.handle.Size()
		ds.structure = &Structure{SizeX: w, SizeY: h, NBands: ds.handle.BandCount()}
	}
	return *ds.structure
}

// GeoTransform returns the dataset's pixel-to-world affine transform
func (ds *Dataset) GeoTransform() [6]float64 {
	return ds.handle.GeoTransform()
}

func (ds *Dataset) bandDataTypes() []DataType {
	if ds.dtypes == nil {
		n := ds.Structure().NBands
		ds.dtypes = make([]DataType, n)
		for i := 0; i < n; i++ {
			ds.dtypes[i] = ds.handle.BandDataType(i + 1)
		}
	}
	return ds.dtypes
}

func (ds *Dataset) bandNoData() []*float64 {
	if ds.nodata == nil {
		n := ds.Structure().NBands
		dtypes := ds.bandDataTypes()
		ds.nodata = make([]*float64, n)
		for i := 0; i < n; i++ {
			if nd, ok := ds.handle.NoData(i + 1); ok {
				clamped := dtypes[i].ClampNoData(nd)
				ds.nodata[i] = &clamped
			}
		}
	}
	return ds.nodata
}

func (ds *Dataset) bandMaskFlags() []MaskFlag {
	if ds.maskFlags == nil {
		n := ds.Structure().NBands
		ds.maskFlags = make([]MaskFlag, n)
		for i := 0; i < n; i++ {
			ds.maskFlags[i] = ds.handle.MaskFlags(i + 1)
		}
	}
	return ds.maskFlags
}

func (ds *Dataset) bandColorInterps() []ColorInterp {
	if ds.interps == nil {
		n := ds.Structure().NBands
		ds.interps = make([]ColorInterp, n)
		for i := 0; i < n; i++ {
			ds.interps[i] = ds.handle.ColorInterp(i + 1)
		}
	}
	return ds.interps
}

// invalidateNoData drops the caches derived from nodata and mask state
func (ds *Dataset) invalidateNoData() {
	ds.nodata = nil
	ds.maskFlags = nil
}

// Bands returns all dataset bands in ascending order
func (ds *Dataset) Bands() []Band {
	n := ds.Structure().NBands
	bands := make([]Band, n)
	for i := 0; i < n; i++ {
		bands[i] = Band{ds: ds, idx: i + 1}
	}
	return bands
}

// Band returns the 1-based band
func (ds *Dataset) Band(index int) (Band, error) {
	if index < 1 || index > ds.Structure().NBands {
		return Band{}, fmt.Errorf("%w: band %d of %d", ErrIndexOutOfRange, index, ds.Structure().NBands)
	}
	return Band{ds: ds, idx: index}, nil
}

// Band is a single raster layer of a multi-band dataset
type Band struct {
	ds  *Dataset
	idx int
}

// Index returns the band's 1-based index
func (band Band) Index() int {
	return band.idx
}

// DataType returns the band's pixel data type
func (band Band) DataType() DataType {
	return band.ds.bandDataTypes()[band.idx-1]
}

// NoData returns the band's nodata sentinel, clamped into the band type's
// representable range the same way the backend stores it
func (band Band) NoData() (nodata float64, ok bool) {
	nd := band.ds.bandNoData()[band.idx-1]
	if nd == nil {
		return 0, false
	}
	return *nd, true
}

// SetNoData sets the band's nodata sentinel. Values that are not storable
// as-is in the band's data type are refused with ErrNoDataRange.
func (band Band) SetNoData(nd float64) error {
	if !band.DataType().validNoData(nd) {
		return fmt.Errorf("%w: %g not representable as %s", ErrNoDataRange, nd, band.DataType())
	}
	if err := band.ds.handle.SetNoData(band.idx, nd); err != nil {
		return err
	}
	band.ds.invalidateNoData()
	return nil
}

// ClearNoData removes the band's nodata sentinel
func (band Band) ClearNoData() error {
	if err := band.ds.handle.ClearNoData(band.idx); err != nil {
		return err
	}
	band.ds.invalidateNoData()
	return nil
}

// MaskFlags returns the band's mask capability set
func (band Band) MaskFlags() MaskFlag {
	return band.ds.bandMaskFlags()[band.idx-1]
}

// ColorInterp returns the band's color interpretation
func (band Band) ColorInterp() ColorInterp {
	return band.ds.bandColorInterps()[band.idx-1]
}

// CreateMask allocates a dedicated mask plane for the band
func (band Band) CreateMask(flags MaskFlag) error {
	if err := band.ds.handle.CreateMaskBand(band.idx, flags); err != nil {
		return err
	}
	band.ds.invalidateNoData()
	return nil
}

// bandSelection is a validated band selection sharing one data type
type bandSelection struct {
	indexes []int
	dtype   DataType
	// nodata holds the clamped per-band sentinel for each selected band,
	// in selection order
	nodata []*float64
	// commonNoData is set when every selected band carries the same sentinel
	commonNoData *float64
}

// resolveBands validates the requested 1-based band indexes against the
// dataset, defaulting to all bands when indexes is nil. Duplicates are
// permitted and order is preserved: it defines the output array's leading
// axis order. All selected bands must share a single data type.
func (ds *Dataset) resolveBands(indexes []int) (bandSelection, error) {
	nbands := ds.Structure().NBands
	if indexes == nil {
		indexes = make([]int, nbands)
		for i := range indexes {
			indexes[i] = i + 1
		}
	}
	if len(indexes) == 0 {
		return bandSelection{}, ErrNoIndexes
	}
	dtypes := ds.bandDataTypes()
	nodata := ds.bandNoData()
	sel := bandSelection{indexes: indexes}
	sel.nodata = make([]*float64, len(indexes))
	for i, idx := range indexes {
		if idx < 1 || idx > nbands {
			return bandSelection{}, fmt.Errorf("%w: band %d of %d", ErrIndexOutOfRange, idx, nbands)
		}
		if i == 0 {
			sel.dtype = dtypes[idx-1]
		} else if dtypes[idx-1] != sel.dtype {
			return bandSelection{}, fmt.Errorf("%w: band %d is %s, band %d is %s",
				ErrMixedDTypes, indexes[0], sel.dtype, idx, dtypes[idx-1])
		}
		sel.nodata[i] = nodata[idx-1]
	}
	sel.commonNoData = commonNoData(sel.nodata)
	return sel, nil
}

func commonNoData(nodata []*float64) *float64 {
	var common *float64
	for _, nd := range nodata {
		if nd == nil {
			return nil
		}
		if common == nil {
			common = nd
		} else if *common != *nd {
			return nil
		}
	}
	return common
}
