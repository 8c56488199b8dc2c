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

// Boundless reads are satisfied by building an ephemeral virtual overlay
// through the backend and re-issuing the windowed read against it at the
// overlay's origin. The overlay's canvas covers both the dataset and the
// requested window, its background is the resolved fill value, and its
// geotransform is the dataset's translated so that the requested window's
// origin becomes pixel (0, 0). A window with no overlap at all is not an
// error: it reads back fully filled with the background.
//
// The overlay handle lives strictly within the enclosing call and is
// released on every exit path.

// overlayTransform translates a geotransform by a pixel offset so that the
// dataset pixel (rowOff, colOff) maps to the overlay origin
func overlayTransform(gt [6]float64, colOff, rowOff float64) [6]float64 {
	gt[0] += colOff*gt[1] + rowOff*gt[2]
	gt[3] += colOff*gt[4] + rowOff*gt[5]
	return gt
}

// buildOverlay derives the virtual overlay dataset for a boundless window
func (ds *Dataset) buildOverlay(win Window, background float64, masked bool) (*Dataset, error) {
	st := ds.Structure()
	canvasWidth := int(math.Max(float64(st.SizeX), win.Width)) + 1
	canvasHeight := int(math.Max(float64(st.SizeY), win.Height)) + 1
	gt := overlayTransform(ds.GeoTransform(), win.ColOff, win.RowOff)
	h, err := ds.handle.BuildOverlay(background, canvasWidth, canvasHeight, gt, masked)
	if err != nil {
		return nil, transferErr("build overlay", err)
	}
	return NewDataset(h), nil
}

// resolvedFill is the background of boundless reads: an explicit fill value
// wins, else the selection's common nodata, else zero
func (sel bandSelection) resolvedFill(ro readOpts) float64 {
	switch {
	case ro.hasFill:
		return ro.fill
	case sel.commonNoData != nil:
		return *sel.commonNoData
	default:
		return 0
	}
}

func (ds *Dataset) readBoundless(sel bandSelection, win Window, ro readOpts) (*Array, error) {
	background := sel.resolvedFill(ro)
	vds, err := ds.buildOverlay(win, background, ro.masked)
	if err != nil {
		return nil, err
	}
	defer vds.Close()

	opts := []ReadOption{
		Windowed(NewWindow(0, 0, win.Height, win.Width)),
		Resampling(ro.resampling),
		FillValue(background),
	}
	if ro.masked {
		opts = append(opts, Masked())
	}
	if ro.out != nil {
		opts = append(opts, Out(ro.out))
	}
	if ro.hasOutShape {
		opts = append(opts, OutShape(ro.outHeight, ro.outWidth))
	}
	if ro.outDType != Unknown {
		opts = append(opts, OutDType(ro.outDType))
	}
	if ro.warn != nil {
		opts = append(opts, WarnLogger(ro.warn))
	}
	return vds.ReadBands(sel.indexes, opts...)
}

func (ds *Dataset) readMasksBoundless(idxs []int, win Window, ro readOpts) (*Array, error) {
	// the mask overlay is always built masked: a source reporting all bands
	// valid cannot itself express "invalid outside my own extent"
	vds, err := ds.buildOverlay(win, 0, true)
	if err != nil {
		return nil, err
	}
	defer vds.Close()

	opts := []ReadOption{
		Windowed(NewWindow(0, 0, win.Height, win.Width)),
		Resampling(ro.resampling),
	}
	if ro.out != nil {
		opts = append(opts, Out(ro.out))
	}
	if ro.hasOutShape {
		opts = append(opts, OutShape(ro.outHeight, ro.outWidth))
	}
	if ro.warn != nil {
		opts = append(opts, WarnLogger(ro.warn))
	}
	return vds.ReadMasks(idxs, opts...)
}

func (ds *Dataset) datasetMaskBoundless(win Window, ro readOpts) (*Array, error) {
	vds, err := ds.buildOverlay(win, 0, true)
	if err != nil {
		return nil, err
	}
	defer vds.Close()

	opts := []ReadOption{
		Windowed(NewWindow(0, 0, win.Height, win.Width)),
		Resampling(ro.resampling),
	}
	if ro.warn != nil {
		opts = append(opts, WarnLogger(ro.warn))
	}
	return vds.DatasetMask(opts...)
}
