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
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpyRoundTrip(t *testing.T) {
	arr := NewArray(Int16, 2, 3, 4)
	for b := 0; b < 2; b++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				arr.SetValue(b, r, c, float64(b*1000-r*4-c))
			}
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteNpy(buf, arr))
	assert.Equal(t, npyMagic[:], buf.Bytes()[0:6])
	// the pixel data starts on a 64 byte boundary
	assert.Zero(t, (buf.Len()-2*3*4*2)%64)

	ds, err := OpenNpy(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer ds.Close()
	st := ds.Structure()
	assert.Equal(t, Structure{SizeX: 4, SizeY: 3, NBands: 2}, st)
	assert.Equal(t, Int16, ds.Bands()[0].DataType())

	rt, err := ds.ReadBands(nil)
	require.NoError(t, err)
	for b := 0; b < 2; b++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				assert.Equal(t, arr.Value(b, r, c), rt.Value(b, r, c))
			}
		}
	}
}

func TestNpy2D(t *testing.T) {
	ds := newByteDataset(t, 3, 2)
	defer ds.Close()
	arr, err := ds.ReadBand(1)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteNpy(buf, arr))

	ds2, err := OpenNpy(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer ds2.Close()
	assert.Equal(t, Structure{SizeX: 3, SizeY: 2, NBands: 1}, ds2.Structure())
	rt, err := ds2.ReadBand(1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rt.Value(0, 1, 2))
}

func TestNpyFile(t *testing.T) {
	tmpdir := t.TempDir()
	fname := filepath.Join(tmpdir, "data.npy")

	arr := NewArray(Float32, 1, 2, 2)
	arr.Fill(1.5)
	f, err := os.Create(fname)
	require.NoError(t, err)
	require.NoError(t, WriteNpy(f, arr))
	require.NoError(t, f.Close())

	ds, err := OpenNpyFile(fname)
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, Float32, ds.Bands()[0].DataType())
	rt, err := ds.ReadBands(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rt.Value(0, 1, 1))

	_, err = OpenNpyFile(filepath.Join(tmpdir, "doesnotexist.npy"))
	assert.Error(t, err)
}

func npyHeaderBytes(dict string) []byte {
	hlen := len(dict)
	hdr := make([]byte, 10+hlen)
	copy(hdr, npyMagic[:])
	hdr[6], hdr[7] = 1, 0
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(hlen))
	copy(hdr[10:], dict)
	return hdr
}

func TestNpyErrors(t *testing.T) {
	_, err := OpenNpy(bytes.NewReader([]byte("not a numpy file at all")))
	assert.ErrorIs(t, err, ErrInvalidNpyFormat)

	raw := npyHeaderBytes("{'descr': '<i2', 'fortran_order': True, 'shape': (2, 2), }")
	raw = append(raw, make([]byte, 8)...)
	_, err = OpenNpy(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidNpyFormat)

	raw = npyHeaderBytes("{'descr': '>i2', 'fortran_order': False, 'shape': (2, 2), }")
	raw = append(raw, make([]byte, 8)...)
	_, err = OpenNpy(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidNpyFormat)

	raw = npyHeaderBytes("{'descr': '<i2', 'fortran_order': False, 'shape': (2, 2, 2, 2), }")
	raw = append(raw, make([]byte, 32)...)
	_, err = OpenNpy(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidNpyFormat)

	// truncated pixel data
	raw = npyHeaderBytes("{'descr': '<i2', 'fortran_order': False, 'shape': (4, 4), }")
	raw = append(raw, make([]byte, 4)...)
	_, err = OpenNpy(bytes.NewReader(raw))
	assert.Error(t, err)

	// serializing an unknown element type is refused
	assert.Error(t, WriteNpy(&bytes.Buffer{}, &Array{dtype: Unknown, ndim: 2, nbands: 1, height: 1, width: 1}))
}

func TestNpyDescrAliases(t *testing.T) {
	for descr, dt := range map[string]DataType{
		"|u1": Byte, "u1": Byte, "<u1": Byte,
		"<i2": Int16, "i2": Int16,
		"<f8": Float64,
		"<c16": CFloat64,
	} {
		got, err := npyDType(descr)
		assert.NoError(t, err, descr)
		assert.Equal(t, dt, got, descr)
	}
}
