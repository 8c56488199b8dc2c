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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// NumPy data file support, following
// https://numpy.org/neps/nep-0001-npy-format.html
//
// A 2D file opens as a single-band dataset, a 3D file as a band-major
// multi-band dataset. Only little-endian C-order files of the supported
// pixel types are accepted.

// ErrInvalidNpyFormat is returned by OpenNpy when the source is not a valid
// or recognized NumPy data file
var ErrInvalidNpyFormat = errors.New("not a valid NumPy file format")

var npyMagic = [6]byte{'\x93', 'N', 'U', 'M', 'P', 'Y'}

var npyDescr = map[DataType]string{
	Byte:     "|u1",
	Int8:     "|i1",
	UInt16:   "<u2",
	Int16:    "<i2",
	UInt32:   "<u4",
	Int32:    "<i4",
	Float32:  "<f4",
	Float64:  "<f8",
	CFloat32: "<c8",
	CFloat64: "<c16",
}

func npyDType(descr string) (DataType, error) {
	for dt, d := range npyDescr {
		if descr == d || descr == d[1:] || (d[0] == '|' && descr == "<"+d[1:]) {
			return dt, nil
		}
	}
	if strings.HasPrefix(descr, ">") {
		return Unknown, fmt.Errorf("%w: big-endian dtype %s", ErrInvalidNpyFormat, descr)
	}
	return Unknown, fmt.Errorf("%w: unsupported dtype %s", ErrInvalidNpyFormat, descr)
}

// OpenNpy opens a NumPy data file as an in-memory dataset. The file's pixels
// are loaded eagerly; r is not retained.
func OpenNpy(r io.ReaderAt, opts ...DatasetCreateOption) (*Dataset, error) {
	pre := make([]byte, 10)
	if _, err := r.ReadAt(pre, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !strings.HasPrefix(string(pre), string(npyMagic[:])) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidNpyFormat)
	}
	major := pre[6]
	var hlen, hoff int64
	switch major {
	case 1:
		hlen = int64(binary.LittleEndian.Uint16(pre[8:10]))
		hoff = 10
	case 2, 3:
		ext := make([]byte, 2)
		if _, err := r.ReadAt(ext, 10); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		hlen = int64(binary.LittleEndian.Uint32([]byte{pre[8], pre[9], ext[0], ext[1]}))
		hoff = 12
	default:
		return nil, fmt.Errorf("%w: version %d.%d", ErrInvalidNpyFormat, pre[6], pre[7])
	}
	hdr := make([]byte, hlen)
	if _, err := r.ReadAt(hdr, hoff); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	descr, fortran, shape, err := parseNpyDict(string(hdr))
	if err != nil {
		return nil, err
	}
	if fortran {
		return nil, fmt.Errorf("%w: fortran order not supported", ErrInvalidNpyFormat)
	}
	dtype, err := npyDType(descr)
	if err != nil {
		return nil, err
	}
	var nbands, height, width int
	switch len(shape) {
	case 2:
		nbands, height, width = 1, shape[0], shape[1]
	case 3:
		nbands, height, width = shape[0], shape[1], shape[2]
	default:
		return nil, fmt.Errorf("%w: %d-dimensional array", ErrInvalidNpyFormat, len(shape))
	}
	ds, err := Create(width, height, nbands, dtype, opts...)
	if err != nil {
		return nil, err
	}
	md := ds.handle.(*memDataset)
	plen := height * width * dtype.Size()
	raw := make([]byte, plen)
	for b := 0; b < nbands; b++ {
		n, err := r.ReadAt(raw, hoff+hlen+int64(b*plen))
		if err != nil && !(errors.Is(err, io.EOF) && n == len(raw)) {
			return nil, fmt.Errorf("read band %d: %w", b+1, err)
		}
		decodeNpyPlane(raw, md.bands[b].data, dtype)
	}
	return ds, nil
}

// OpenNpyFile opens the NumPy data file at path as an in-memory dataset
func OpenNpyFile(path string, opts ...DatasetCreateOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return OpenNpy(f, opts...)
}

// parseNpyDict extracts the three fields of the python literal header dict
func parseNpyDict(hdr string) (descr string, fortran bool, shape []int, err error) {
	descr, err = npyDictString(hdr, "descr")
	if err != nil {
		return "", false, nil, err
	}
	switch {
	case strings.Contains(hdr, "'fortran_order': True"):
		fortran = true
	case strings.Contains(hdr, "'fortran_order': False"):
		fortran = false
	default:
		return "", false, nil, fmt.Errorf("%w: missing fortran_order", ErrInvalidNpyFormat)
	}
	i := strings.Index(hdr, "'shape':")
	if i == -1 {
		return "", false, nil, fmt.Errorf("%w: missing shape", ErrInvalidNpyFormat)
	}
	open := strings.Index(hdr[i:], "(")
	closing := strings.Index(hdr[i:], ")")
	if open == -1 || closing == -1 || closing < open {
		return "", false, nil, fmt.Errorf("%w: malformed shape", ErrInvalidNpyFormat)
	}
	for _, tok := range strings.Split(hdr[i+open+1:i+closing], ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		dim, cerr := strconv.Atoi(tok)
		if cerr != nil || dim <= 0 {
			return "", false, nil, fmt.Errorf("%w: shape dimension %q", ErrInvalidNpyFormat, tok)
		}
		shape = append(shape, dim)
	}
	return descr, fortran, shape, nil
}

func npyDictString(hdr, key string) (string, error) {
	i := strings.Index(hdr, "'"+key+"':")
	if i == -1 {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidNpyFormat, key)
	}
	rest := hdr[i+len(key)+3:]
	open := strings.Index(rest, "'")
	if open == -1 {
		return "", fmt.Errorf("%w: malformed %s", ErrInvalidNpyFormat, key)
	}
	closing := strings.Index(rest[open+1:], "'")
	if closing == -1 {
		return "", fmt.Errorf("%w: malformed %s", ErrInvalidNpyFormat, key)
	}
	return rest[open+1 : open+1+closing], nil
}

func decodeNpyPlane(raw []byte, data interface{}, dtype DataType) {
	le := binary.LittleEndian
	switch buf := data.(type) {
	case []uint8:
		copy(buf, raw)
	case []int8:
		for i := range buf {
			buf[i] = int8(raw[i])
		}
	case []uint16:
		for i := range buf {
			buf[i] = le.Uint16(raw[2*i:])
		}
	case []int16:
		for i := range buf {
			buf[i] = int16(le.Uint16(raw[2*i:]))
		}
	case []uint32:
		for i := range buf {
			buf[i] = le.Uint32(raw[4*i:])
		}
	case []int32:
		for i := range buf {
			buf[i] = int32(le.Uint32(raw[4*i:]))
		}
	case []float32:
		for i := range buf {
			buf[i] = math.Float32frombits(le.Uint32(raw[4*i:]))
		}
	case []float64:
		for i := range buf {
			buf[i] = math.Float64frombits(le.Uint64(raw[8*i:]))
		}
	case []complex64:
		for i := range buf {
			buf[i] = complex(
				math.Float32frombits(le.Uint32(raw[8*i:])),
				math.Float32frombits(le.Uint32(raw[8*i+4:])))
		}
	case []complex128:
		for i := range buf {
			buf[i] = complex(
				math.Float64frombits(le.Uint64(raw[16*i:])),
				math.Float64frombits(le.Uint64(raw[16*i+8:])))
		}
	}
}

// encodeNpyPlane serializes the first len(raw)/elemsize elements of data
func encodeNpyPlane(data interface{}, raw []byte) {
	le := binary.LittleEndian
	switch buf := data.(type) {
	case []uint8:
		copy(raw, buf)
	case []int8:
		for i := range raw {
			raw[i] = byte(buf[i])
		}
	case []uint16:
		for i := 0; i < len(raw)/2; i++ {
			le.PutUint16(raw[2*i:], buf[i])
		}
	case []int16:
		for i := 0; i < len(raw)/2; i++ {
			le.PutUint16(raw[2*i:], uint16(buf[i]))
		}
	case []uint32:
		for i := 0; i < len(raw)/4; i++ {
			le.PutUint32(raw[4*i:], buf[i])
		}
	case []int32:
		for i := 0; i < len(raw)/4; i++ {
			le.PutUint32(raw[4*i:], uint32(buf[i]))
		}
	case []float32:
		for i := 0; i < len(raw)/4; i++ {
			le.PutUint32(raw[4*i:], math.Float32bits(buf[i]))
		}
	case []float64:
		for i := 0; i < len(raw)/8; i++ {
			le.PutUint64(raw[8*i:], math.Float64bits(buf[i]))
		}
	case []complex64:
		for i := 0; i < len(raw)/8; i++ {
			le.PutUint32(raw[8*i:], math.Float32bits(real(buf[i])))
			le.PutUint32(raw[8*i+4:], math.Float32bits(imag(buf[i])))
		}
	case []complex128:
		for i := 0; i < len(raw)/16; i++ {
			le.PutUint64(raw[16*i:], math.Float64bits(real(buf[i])))
			le.PutUint64(raw[16*i+8:], math.Float64bits(imag(buf[i])))
		}
	}
}

// WriteNpy writes the array as a version 1.0 NumPy data file. 2D arrays
// write a 2-dimensional shape, 3D arrays a band-major 3-dimensional one.
func WriteNpy(w io.Writer, arr *Array) error {
	descr, ok := npyDescr[arr.DType()]
	if !ok {
		return fmt.Errorf("%w: cannot serialize %s", ErrDTypeMismatch, arr.DType())
	}
	shape := fmt.Sprintf("(%d, %d)", arr.Height(), arr.Width())
	if arr.NDim() == 3 {
		shape = fmt.Sprintf("(%d, %d, %d)", arr.Bands(), arr.Height(), arr.Width())
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shape)
	// pad the header to a 64 byte boundary, newline terminated
	hlen := len(dict) + 1
	if pad := (10 + hlen) % 64; pad != 0 {
		hlen += 64 - pad
	}
	hdr := make([]byte, 10+hlen)
	copy(hdr, npyMagic[:])
	hdr[6], hdr[7] = 1, 0
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(hlen))
	copy(hdr[10:], dict)
	for i := 10 + len(dict); i < len(hdr)-1; i++ {
		hdr[i] = ' '
	}
	hdr[len(hdr)-1] = '\n'
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	flat := arr
	if !arr.Contiguous() || arr.off != 0 || arr.Masked() {
		// densify, substituting the fill value for masked elements
		flat = arr.Filled(0)
	}
	raw := make([]byte, arr.Bands()*arr.Height()*arr.Width()*arr.DType().Size())
	encodeNpyPlane(flat.data, raw)
	_, err := w.Write(raw)
	return err
}
