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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundlessRead(t *testing.T) {
	ds := newByteDataset(t, 10, 10)
	defer ds.Close()

	arr, err := ds.ReadBands(nil, Windowed(NewWindow(8, 8, 4, 4)), Boundless(), FillValue(5))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 4, 4}, arr.Shape())

	// the top-left 2x2 is the dataset's bottom-right corner
	assert.Equal(t, 88.0, arr.Value(0, 0, 0))
	assert.Equal(t, 89.0, arr.Value(0, 0, 1))
	assert.Equal(t, 98.0, arr.Value(0, 1, 0))
	assert.Equal(t, 99.0, arr.Value(0, 1, 1))
	// everything beyond the extent is the fill value
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if r < 2 && c < 2 {
				continue
			}
			assert.Equal(t, 5.0, arr.Value(0, r, c), "pixel (%d,%d)", r, c)
		}
	}
}

func TestBoundlessReadNegativeOffsets(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	arr, err := ds.ReadBands(nil, Windowed(NewWindow(-2, -2, 4, 4)), Boundless(), FillValue(9))
	assert.NoError(t, err)
	assert.Equal(t, 9.0, arr.Value(0, 0, 0))
	assert.Equal(t, 9.0, arr.Value(0, 1, 3))
	assert.Equal(t, 0.0, arr.Value(0, 2, 2))
	assert.Equal(t, 5.0, arr.Value(0, 3, 3))
}

func TestBoundlessReadNoOverlap(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	arr, err := ds.ReadBands(nil, Windowed(NewWindow(100, 100, 2, 2)), Boundless(), FillValue(7))
	assert.NoError(t, err)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			assert.Equal(t, 7.0, arr.Value(0, r, c))
		}
	}
}

func TestBoundlessFillDefaults(t *testing.T) {
	// without an explicit fill value the bands' common nodata is the
	// background, zero when there is none
	ds, err := Create(2, 2, 1, Int16, CreationNoData(-9999))
	require.NoError(t, err)
	defer ds.Close()
	require.NoError(t, ds.Bands()[0].Write(0, 0, []int16{1, 2, 3, 4}, 2, 2))

	arr, err := ds.ReadBands(nil, Windowed(NewWindow(0, 0, 3, 3)), Boundless())
	assert.NoError(t, err)
	assert.Equal(t, 1.0, arr.Value(0, 0, 0))
	assert.Equal(t, -9999.0, arr.Value(0, 2, 2))
	assert.Equal(t, -9999.0, arr.Value(0, 0, 2))

	ds2 := newByteDataset(t, 2, 2)
	defer ds2.Close()
	arr, err = ds2.ReadBands(nil, Windowed(NewWindow(0, 0, 3, 3)), Boundless())
	assert.NoError(t, err)
	assert.Equal(t, 0.0, arr.Value(0, 2, 2))
}

func TestBoundlessMaskedRead(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	arr, err := ds.ReadBands(nil, Windowed(NewWindow(2, 2, 4, 4)), Boundless(), FillValue(3), Masked())
	assert.NoError(t, err)
	assert.True(t, arr.Masked())
	// inside pixels are valid, outside pixels are masked
	assert.False(t, arr.MaskedAt(0, 0, 0))
	assert.False(t, arr.MaskedAt(0, 1, 1))
	assert.True(t, arr.MaskedAt(0, 2, 2))
	assert.True(t, arr.MaskedAt(0, 0, 3))
	assert.Equal(t, 10.0, arr.Value(0, 0, 0))
	assert.Equal(t, 3.0, arr.Value(0, 2, 2))
}

func TestBoundlessReadMasks(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	masks, err := ds.ReadMasks(nil, Windowed(NewWindow(2, 2, 4, 4)), Boundless())
	assert.NoError(t, err)
	assert.Equal(t, 255.0, masks.Value(0, 0, 0))
	assert.Equal(t, 255.0, masks.Value(0, 1, 1))
	assert.Equal(t, 0.0, masks.Value(0, 2, 2))
	assert.Equal(t, 0.0, masks.Value(0, 3, 0))
}

func TestBoundlessDatasetMask(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	mask, err := ds.DatasetMask(Windowed(NewWindow(-1, -1, 4, 4)), Boundless())
	assert.NoError(t, err)
	assert.Equal(t, 2, mask.NDim())
	assert.Equal(t, 0.0, mask.Value(0, 0, 0))
	assert.Equal(t, 0.0, mask.Value(0, 0, 3))
	assert.Equal(t, 255.0, mask.Value(0, 1, 1))
	assert.Equal(t, 255.0, mask.Value(0, 3, 3))
}

func TestBoundlessContainedFallsThrough(t *testing.T) {
	ds := newByteDataset(t, 4, 4)
	defer ds.Close()

	// a boundless read whose window fits inside the extent is a plain read
	arr, err := ds.ReadBands(nil, Windowed(NewWindow(1, 1, 2, 2)), Boundless(), FillValue(9))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, arr.Shape())
	assert.Equal(t, 5.0, arr.Value(0, 0, 0))
}

func TestOverlayTransform(t *testing.T) {
	gt := [6]float64{100, 2, 0, 200, 0, -2}
	shifted := overlayTransform(gt, 3, 5)
	assert.Equal(t, [6]float64{106, 2, 0, 190, 0, -2}, shifted)
}
