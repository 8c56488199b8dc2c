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
	"sync"
)

// Create allocates a dataset backed by the in-memory driver, with bands
// bands of the given data type (overridable per band with BandDataTypes).
// The in-memory driver supports the full backend contract including mask
// planes and virtual overlays; resampled transfers use nearest neighbour
// whatever selector is forwarded.
func Create(width, height, bands int, dtype DataType, opts ...DatasetCreateOption) (*Dataset, error) {
	co := dsCreateOpts{transform: [6]float64{0, 1, 0, 0, 0, 1}}
	for _, opt := range opts {
		opt.setDatasetCreateOpt(&co)
	}
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("invalid dataset shape %dx%dx%d", bands, height, width)
	}
	if co.bandTypes != nil && len(co.bandTypes) != bands {
		return nil, fmt.Errorf("%w: %d band types for %d bands", ErrShapeMismatch, len(co.bandTypes), bands)
	}
	if co.interps != nil && len(co.interps) != bands {
		return nil, fmt.Errorf("%w: %d color interps for %d bands", ErrShapeMismatch, len(co.interps), bands)
	}
	if co.transform[1] == 0 || co.transform[5] == 0 {
		return nil, fmt.Errorf("invalid geotransform: zero pixel size")
	}
	d := &memDataset{width: width, height: height, gt: co.transform}
	d.bands = make([]*memBand, bands)
	for i := range d.bands {
		dt := dtype
		if co.bandTypes != nil {
			dt = co.bandTypes[i]
		}
		interp := CIUndefined
		if co.interps != nil {
			interp = co.interps[i]
		}
		d.bands[i] = &memBand{
			dtype:  dt,
			data:   dt.makeSlice(width * height),
			interp: interp,
		}
		if co.nodata != nil {
			if !dt.validNoData(*co.nodata) {
				return nil, fmt.Errorf("%w: %g not representable as %s", ErrNoDataRange, *co.nodata, dt)
			}
			nd := *co.nodata
			d.bands[i].nodata = &nd
		}
	}
	return NewDataset(d), nil
}

type memBand struct {
	dtype  DataType
	data   interface{}
	nodata *float64
	interp ColorInterp
	mask   []uint8
}

// memDataset is the in-memory backend. One writer or several readers may use
// a handle concurrently.
type memDataset struct {
	mu     sync.RWMutex
	width  int
	height int
	gt     [6]float64
	bands  []*memBand
	// dsMask is a single mask plane shared by all bands
	dsMask []uint8
	closed bool
}

func (d *memDataset) Size() (int, int)  { return d.width, d.height }
func (d *memDataset) BandCount() int    { return len(d.bands) }
func (d *memDataset) GeoTransform() [6]float64 { return d.gt }

func (d *memDataset) band(band int) (*memBand, error) {
	if d.closed {
		return nil, ErrClosedDataset
	}
	if band < 1 || band > len(d.bands) {
		return nil, fmt.Errorf("illegal band #%d", band)
	}
	return d.bands[band-1], nil
}

func (d *memDataset) BandDataType(band int) DataType {
	b, err := d.band(band)
	if err != nil {
		return Unknown
	}
	return b.dtype
}

func (d *memDataset) NoData(band int) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, err := d.band(band)
	if err != nil || b.nodata == nil {
		return 0, false
	}
	return *b.nodata, true
}

func (d *memDataset) SetNoData(band int, nodata float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.band(band)
	if err != nil {
		return err
	}
	if !b.dtype.validNoData(nodata) {
		return fmt.Errorf("%w: %g not representable as %s", ErrNoDataRange, nodata, b.dtype)
	}
	b.nodata = &nodata
	return nil
}

func (d *memDataset) ClearNoData(band int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.band(band)
	if err != nil {
		return err
	}
	b.nodata = nil
	return nil
}

func (d *memDataset) ColorInterp(band int) ColorInterp {
	b, err := d.band(band)
	if err != nil {
		return CIUndefined
	}
	return b.interp
}

func (d *memDataset) hasAlpha() bool {
	return len(d.bands) == 4 && d.bands[3].interp == CIAlpha
}

func (d *memDataset) MaskFlags(band int) MaskFlag {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, err := d.band(band)
	if err != nil {
		return 0
	}
	switch {
	case d.dsMask != nil:
		return MaskPerDataset
	case b.mask != nil:
		return 0
	case b.nodata != nil:
		return MaskNoData
	case d.hasAlpha() && band != 4:
		return MaskAlpha
	default:
		return MaskAllValid
	}
}

func (d *memDataset) CreateMaskBand(band int, flags MaskFlag) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.band(band)
	if err != nil {
		return err
	}
	plane := make([]uint8, d.width*d.height)
	for i := range plane {
		plane[i] = 255
	}
	if flags&MaskPerDataset != 0 {
		d.dsMask = plane
	} else {
		b.mask = plane
	}
	return nil
}

func (d *memDataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosedDataset
	}
	d.closed = true
	d.bands = nil
	d.dsMask = nil
	return nil
}

// checkRegion refuses source regions reaching outside the dataset extent.
// The windowing layer above crops every non-boundless request, so a failure
// here is a programming error on the caller's side, reported rather than
// silently clamped.
func checkRegion(xoff, yoff, xsize, ysize float64, width, height int) error {
	const eps = 1e-9
	if xsize < 0 || ysize < 0 ||
		xoff < -eps || yoff < -eps ||
		xoff+xsize > float64(width)+eps || yoff+ysize > float64(height)+eps {
		return fmt.Errorf("access window out of range: (%g, %g, %g, %g) on %dx%d",
			xoff, yoff, xsize, ysize, width, height)
	}
	return nil
}

func (d *memDataset) RasterIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight int, pixelStride, lineStride int, alg ResamplingAlg) error {
	if op == IOWrite {
		d.mu.Lock()
		defer d.mu.Unlock()
	} else {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	b, err := d.band(band)
	if err != nil {
		return err
	}
	if err := checkRegion(xoff, yoff, xsize, ysize, d.width, d.height); err != nil {
		return err
	}
	if op == IORead {
		readPlane(b.data, d.width, d.height, xoff, yoff, xsize, ysize,
			buffer, bufWidth, bufHeight, pixelStride, lineStride)
		return nil
	}
	writePlane(b.data, d.width, xoff, yoff, xsize, ysize,
		buffer, bufWidth, bufHeight, pixelStride, lineStride)
	return nil
}

// maskPlane synthesizes the band's full-extent validity plane from the
// competing sources of truth: the dataset-wide plane, the band's dedicated
// plane, the nodata sentinel, or the alpha band. Bands with none of these
// are uniformly valid. Callers hold at least a read lock.
func (d *memDataset) maskPlane(band int) []uint8 {
	b := d.bands[band-1]
	switch {
	case d.dsMask != nil:
		return d.dsMask
	case b.mask != nil:
		return b.mask
	case b.nodata != nil:
		nd := *b.nodata
		plane := make([]uint8, d.width*d.height)
		for i := range plane {
			v := loadValue(b.data, i)
			if v != nd && !(math.IsNaN(v) && math.IsNaN(nd)) {
				plane[i] = 255
			}
		}
		return plane
	case d.hasAlpha() && band != 4:
		alpha := d.bands[3]
		plane := make([]uint8, d.width*d.height)
		for i := range plane {
			storeValue(plane, i, loadValue(alpha.data, i))
		}
		return plane
	default:
		plane := make([]uint8, d.width*d.height)
		for i := range plane {
			plane[i] = 255
		}
		return plane
	}
}

func (d *memDataset) MaskIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
	buffer []uint8, bufWidth, bufHeight int, pixelStride, lineStride int, alg ResamplingAlg) error {
	if op == IOWrite {
		d.mu.Lock()
		defer d.mu.Unlock()
	} else {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}
	b, err := d.band(band)
	if err != nil {
		return err
	}
	if err := checkRegion(xoff, yoff, xsize, ysize, d.width, d.height); err != nil {
		return err
	}
	if op == IORead {
		readPlane(d.maskPlane(band), d.width, d.height, xoff, yoff, xsize, ysize,
			buffer, bufWidth, bufHeight, pixelStride, lineStride)
		return nil
	}
	plane := d.dsMask
	if plane == nil {
		plane = b.mask
	}
	if plane == nil {
		return fmt.Errorf("band #%d has no mask plane", band)
	}
	writePlane(plane, d.width, xoff, yoff, xsize, ysize,
		buffer, bufWidth, bufHeight, pixelStride, lineStride)
	return nil
}

func (d *memDataset) BuildOverlay(background float64, canvasWidth, canvasHeight int,
	transform [6]float64, masked bool) (DatasetHandle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosedDataset
	}
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return nil, fmt.Errorf("invalid overlay canvas %dx%d", canvasWidth, canvasHeight)
	}
	// the overlay transform is the parent's translated by a pixel offset:
	// recover the offset to position the parent on the canvas
	return &memOverlay{
		src:        d,
		background: background,
		width:      canvasWidth,
		height:     canvasHeight,
		colShift:   (transform[0] - d.gt[0]) / d.gt[1],
		rowShift:   (transform[3] - d.gt[3]) / d.gt[5],
		masked:     masked,
		gt:         transform,
	}, nil
}

// memOverlay is the ephemeral virtual dataset serving boundless reads: a
// canvas of background pixels with the parent dataset composited at a pixel
// offset. It is read only and lives within a single enclosing call.
type memOverlay struct {
	src        *memDataset
	background float64
	width      int
	height     int
	// parent pixel = overlay pixel + shift
	rowShift, colShift float64
	masked             bool
	gt                 [6]float64
	closed             bool
}

func (o *memOverlay) Size() (int, int)         { return o.width, o.height }
func (o *memOverlay) BandCount() int           { return o.src.BandCount() }
func (o *memOverlay) GeoTransform() [6]float64 { return o.gt }

func (o *memOverlay) BandDataType(band int) DataType {
	return o.src.BandDataType(band)
}

func (o *memOverlay) NoData(band int) (float64, bool) {
	return o.src.NoData(band)
}

func (o *memOverlay) ColorInterp(band int) ColorInterp {
	return o.src.ColorInterp(band)
}

func (o *memOverlay) MaskFlags(band int) MaskFlag {
	if o.masked {
		// a boundless mask source can never report all-valid: pixels beyond
		// the parent extent are invalid by construction
		return 0
	}
	return o.src.MaskFlags(band)
}

func (o *memOverlay) SetNoData(band int, nodata float64) error {
	return fmt.Errorf("overlay dataset is read-only")
}

func (o *memOverlay) ClearNoData(band int) error {
	return fmt.Errorf("overlay dataset is read-only")
}

func (o *memOverlay) CreateMaskBand(band int, flags MaskFlag) error {
	return fmt.Errorf("overlay dataset is read-only")
}

func (o *memOverlay) BuildOverlay(background float64, canvasWidth, canvasHeight int,
	transform [6]float64, masked bool) (DatasetHandle, error) {
	return nil, fmt.Errorf("cannot build an overlay of an overlay")
}

func (o *memOverlay) Close() error {
	if o.closed {
		return ErrClosedDataset
	}
	o.closed = true
	return nil
}

func (o *memOverlay) RasterIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
	buffer interface{}, bufWidth, bufHeight int, pixelStride, lineStride int, alg ResamplingAlg) error {
	if op == IOWrite {
		return fmt.Errorf("overlay dataset is read-only")
	}
	o.src.mu.RLock()
	defer o.src.mu.RUnlock()
	b, err := o.src.band(band)
	if err != nil {
		return err
	}
	if err := checkRegion(xoff, yoff, xsize, ysize, o.width, o.height); err != nil {
		return err
	}
	o.composite(b.data, buffer, bufWidth, bufHeight, pixelStride, lineStride,
		xoff, yoff, xsize, ysize, o.background)
	return nil
}

func (o *memOverlay) MaskIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
	buffer []uint8, bufWidth, bufHeight int, pixelStride, lineStride int, alg ResamplingAlg) error {
	if op == IOWrite {
		return fmt.Errorf("overlay dataset is read-only")
	}
	o.src.mu.RLock()
	defer o.src.mu.RUnlock()
	if _, err := o.src.band(band); err != nil {
		return err
	}
	if err := checkRegion(xoff, yoff, xsize, ysize, o.width, o.height); err != nil {
		return err
	}
	// inside the parent extent the parent's mask plane answers (uniformly
	// valid parents included), outside everything is invalid
	o.composite(o.src.maskPlane(band), buffer, bufWidth, bufHeight, pixelStride, lineStride,
		xoff, yoff, xsize, ysize, 0)
	return nil
}

// composite fills buffer from the parent plane where the overlay window maps
// inside the parent extent, and from background elsewhere. Nearest neighbour
// only.
func (o *memOverlay) composite(plane interface{}, buffer interface{},
	bufWidth, bufHeight, pixelStride, lineStride int,
	xoff, yoff, xsize, ysize float64, background float64) {
	cplx := false
	if pdt, err := bufferType(plane); err == nil {
		if bdt, err := bufferType(buffer); err == nil {
			cplx = pdt.Complex() && bdt.Complex()
		}
	}
	for r := 0; r < bufHeight; r++ {
		srcRow := int(math.Floor(o.rowShift + yoff + (float64(r)+0.5)*ysize/float64(bufHeight)))
		for c := 0; c < bufWidth; c++ {
			srcCol := int(math.Floor(o.colShift + xoff + (float64(c)+0.5)*xsize/float64(bufWidth)))
			di := r*lineStride + c*pixelStride
			if srcRow < 0 || srcRow >= o.src.height || srcCol < 0 || srcCol >= o.src.width {
				storeValue(buffer, di, background)
				continue
			}
			si := srcRow*o.src.width + srcCol
			if cplx {
				storeComplex(buffer, di, loadComplex(plane, si))
			} else {
				storeValue(buffer, di, loadValue(plane, si))
			}
		}
	}
}
