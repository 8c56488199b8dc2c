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

// newTwoBandDataset creates a 4x4 two band Byte dataset where band b pixel
// (r, c) holds (b-1)*100 + r*4 + c
func newTwoBandDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Create(4, 4, 2, Byte)
	require.NoError(t, err)
	for b, band := range ds.Bands() {
		buf := make([]uint8, 16)
		for i := range buf {
			buf[i] = uint8(b*100 + i)
		}
		require.NoError(t, band.Write(0, 0, buf, 4, 4))
	}
	return ds
}

func TestReadBands(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	arr, err := ds.ReadBands(nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, arr.NDim())
	assert.Equal(t, []int{2, 4, 4}, arr.Shape())
	assert.Equal(t, 0.0, arr.Value(0, 0, 0))
	assert.Equal(t, 105.0, arr.Value(1, 0, 1))
	assert.False(t, arr.Masked())

	// selection order and duplicates are preserved on the leading axis
	arr, err = ds.ReadBands([]int{2, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, arr.Shape())
	assert.Equal(t, 100.0, arr.Value(0, 0, 0))
	assert.Equal(t, 0.0, arr.Value(1, 0, 0))
	assert.Equal(t, 0.0, arr.Value(2, 0, 0))

	_, err = ds.ReadBands([]int{})
	assert.ErrorIs(t, err, ErrNoIndexes)
	_, err = ds.ReadBands([]int{3})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestReadBand2D(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	arr2, err := ds.ReadBand(2)
	assert.NoError(t, err)
	assert.Equal(t, 2, arr2.NDim())
	assert.Equal(t, []int{4, 4}, arr2.Shape())

	arr3, err := ds.ReadBands([]int{2})
	assert.NoError(t, err)
	assert.Equal(t, 3, arr3.NDim())
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, arr3.Value(0, r, c), arr2.Value(0, r, c))
		}
	}
}

func TestReadWindowed(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	arr, err := ds.ReadBands([]int{1}, Windowed(NewWindow(1, 2, 2, 2)))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, arr.Shape())
	assert.Equal(t, 6.0, arr.Value(0, 0, 0))
	assert.Equal(t, 11.0, arr.Value(0, 1, 1))

	// windows reaching outside the extent are cropped without Boundless
	arr, err = ds.ReadBands([]int{1}, Windowed(NewWindow(3, 3, 4, 4)))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, arr.Shape())
	assert.Equal(t, 15.0, arr.Value(0, 0, 0))

	// fully disjoint windows read back empty
	arr, err = ds.ReadBands([]int{1}, Windowed(NewWindow(20, 20, 4, 4)))
	assert.NoError(t, err)
	assert.Equal(t, 0, arr.Height())
	assert.Equal(t, 0, arr.Width())
}

func TestReadOutShape(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	arr, err := ds.ReadBands([]int{1}, OutShape(2, 2))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, arr.Shape())
	assert.Equal(t, 5.0, arr.Value(0, 0, 0))
	assert.Equal(t, 7.0, arr.Value(0, 0, 1))
	assert.Equal(t, 13.0, arr.Value(0, 1, 0))
	assert.Equal(t, 15.0, arr.Value(0, 1, 1))
}

func TestReadOut(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	out := NewArray(Byte, 2, 4, 4)
	arr, err := ds.ReadBands(nil, Out(out))
	assert.NoError(t, err)
	assert.Same(t, out, arr)
	assert.Equal(t, 101.0, arr.Value(1, 0, 1))

	_, err = ds.ReadBands(nil, Out(NewArray(Int16, 2, 4, 4)))
	assert.ErrorIs(t, err, ErrDTypeMismatch)
	_, err = ds.ReadBands(nil, Out(NewArray(Byte, 1, 4, 4)))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = ds.ReadBands(nil, Out(out), OutShape(2, 2))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReadOutReused(t *testing.T) {
	nd := newNodataDataset(t)
	defer nd.Close()
	av, err := Create(2, 2, 1, Int16)
	require.NoError(t, err)
	defer av.Close()
	require.NoError(t, av.Bands()[0].Write(0, 0, []int16{1, 2, 3, 4}, 2, 2))

	out := NewArray(Int16, 1, 2, 2)
	arr, err := nd.ReadBands(nil, Masked(), Out(out))
	require.NoError(t, err)
	require.True(t, arr.MaskedAt(0, 0, 0))

	// a masked read of an all-valid dataset into the same array must not
	// keep the previous read's mask
	arr, err = av.ReadBands(nil, Masked(), Out(out))
	assert.NoError(t, err)
	assert.False(t, arr.Masked())
	assert.False(t, arr.MaskedAt(0, 0, 0))
	assert.Equal(t, 1.0, arr.Value(0, 0, 0))

	// neither must a plain read
	_, err = nd.ReadBands(nil, Masked(), Out(out))
	require.NoError(t, err)
	require.True(t, out.Masked())
	arr, err = av.ReadBands(nil, Out(out))
	assert.NoError(t, err)
	assert.False(t, arr.Masked())

	// mask reads overwrite a reused out array's mask state too
	out2 := NewArray(Byte, 1, 2, 2)
	out2.SetMaskedAt(0, 0, 0, true)
	masks, err := av.ReadMasks(nil, Out(out2))
	assert.NoError(t, err)
	assert.False(t, masks.Masked())
	assert.Equal(t, 255.0, masks.Value(0, 0, 0))
}

func TestReadOutDType(t *testing.T) {
	ds := newTwoBandDataset(t)
	defer ds.Close()

	arr, err := ds.ReadBands([]int{1}, OutDType(Float64))
	assert.NoError(t, err)
	assert.Equal(t, Float64, arr.DType())
	assert.Equal(t, 15.0, arr.Value(0, 3, 3))
}

func TestMixedDTypes(t *testing.T) {
	ds, err := Create(2, 2, 2, Byte, BandDataTypes(Byte, Int16))
	require.NoError(t, err)
	defer ds.Close()

	// mixed selections are rejected before any pixel is transferred
	_, err = ds.ReadBands(nil)
	assert.ErrorIs(t, err, ErrMixedDTypes)
	_, err = ds.ReadBands([]int{1, 2})
	assert.ErrorIs(t, err, ErrMixedDTypes)

	arr, err := ds.ReadBands([]int{2})
	assert.NoError(t, err)
	assert.Equal(t, Int16, arr.DType())

	// mask reads allow mixed selections: masks share one type
	_, err = ds.ReadMasks(nil)
	assert.NoError(t, err)
}

func TestWriteBands(t *testing.T) {
	ds, err := Create(4, 4, 2, Byte)
	require.NoError(t, err)
	defer ds.Close()

	arr := NewArray(Byte, 2, 4, 4)
	for b := 0; b < 2; b++ {
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				arr.SetValue(b, r, c, float64(b*100+r*4+c))
			}
		}
	}
	assert.NoError(t, ds.WriteBands(arr, nil))
	rt, err := ds.ReadBands(nil)
	assert.NoError(t, err)
	assert.Equal(t, 103.0, rt.Value(1, 0, 3))

	// windowed write of a single band
	patch := NewArray2D(Byte, 2, 2)
	patch.Fill(250)
	assert.NoError(t, ds.WriteBand(patch, 1, Windowed(NewWindow(1, 1, 2, 2))))
	rt, err = ds.ReadBands([]int{1})
	assert.NoError(t, err)
	assert.Equal(t, 250.0, rt.Value(0, 1, 1))
	assert.Equal(t, 250.0, rt.Value(0, 2, 2))
	assert.Equal(t, 0.0, rt.Value(0, 0, 0))

	badShape := NewArray(Byte, 1, 4, 4)
	assert.ErrorIs(t, ds.WriteBands(badShape, nil), ErrShapeMismatch)
}

func TestWriteMaskedFillPrecedence(t *testing.T) {
	newMasked := func() *Array {
		arr := NewArray2D(Byte, 2, 2)
		for i, v := range []float64{10, 20, 30, 40} {
			arr.SetValue(0, i/2, i%2, v)
		}
		arr.SetMaskedAt(0, 0, 0, true)
		return arr
	}
	readPixel := func(ds *Dataset) float64 {
		rt, err := ds.ReadBands(nil)
		require.NoError(t, err)
		return rt.Value(0, 0, 0)
	}

	// an explicit fill value wins
	ds, _ := Create(2, 2, 1, Byte)
	defer ds.Close()
	arr := newMasked()
	arr.SetFillValue(9)
	assert.NoError(t, ds.WriteBands(arr, nil, FillValue(7)))
	assert.Equal(t, 7.0, readPixel(ds))

	// then the array's own fill value
	assert.NoError(t, ds.WriteBands(arr, nil))
	assert.Equal(t, 9.0, readPixel(ds))

	// then the bands' common nodata
	ds2, _ := Create(2, 2, 1, Byte, CreationNoData(3))
	defer ds2.Close()
	assert.NoError(t, ds2.WriteBands(newMasked(), nil))
	assert.Equal(t, 3.0, readPixel(ds2))

	// zero when nothing else applies
	ds3, _ := Create(2, 2, 1, Byte)
	defer ds3.Close()
	assert.NoError(t, ds3.WriteBands(newMasked(), nil))
	assert.Equal(t, 0.0, readPixel(ds3))
}

func TestWriteMasksStored(t *testing.T) {
	ds, err := Create(2, 2, 1, Byte)
	require.NoError(t, err)
	defer ds.Close()

	arr := NewArray2D(Byte, 2, 2)
	arr.Fill(42)
	arr.SetMaskedAt(0, 1, 1, true)
	assert.NoError(t, ds.WriteBands(arr, nil, Masked()))

	// the raw pixels are written untouched and the mask goes to a mask plane
	rt, err := ds.ReadBands(nil)
	assert.NoError(t, err)
	assert.Equal(t, 42.0, rt.Value(0, 1, 1))

	mask, err := ds.Bands()[0].ReadMask()
	assert.NoError(t, err)
	assert.Equal(t, 255.0, mask.Value(0, 0, 0))
	assert.Equal(t, 0.0, mask.Value(0, 1, 1))
}
