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
)

// DataType is a pixel data type
type DataType int

const (
	//Unknown / Unset Datatype
	Unknown DataType = iota
	//Byte / UInt8
	Byte
	//Int8 DataType
	Int8
	//UInt16 DataType
	UInt16
	//Int16 DataType
	Int16
	//UInt32 DataType
	UInt32
	//Int32 DataType
	Int32
	//Float32 DataType
	Float32
	//Float64 DataType
	Float64
	//CFloat32 is a complex Float32
	CFloat32
	//CFloat64 is a complex Float64
	CFloat64
)

// maskDType is the element type of mask planes, independent of the parent
// band's data type.
const maskDType = Byte

// String implements Stringer
func (dtype DataType) String() string {
	switch dtype {
	case Byte:
		return "Byte"
	case Int8:
		return "Int8"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case CFloat32:
		return "CFloat32"
	case CFloat64:
		return "CFloat64"
	default:
		return "Unknown"
	}
}

// Size returns the number of bytes needed for one instance of DataType
func (dtype DataType) Size() int {
	switch dtype {
	case Byte, Int8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Float64, CFloat32:
		return 8
	case CFloat64:
		return 16
	default:
		panic("unsupported type")
	}
}

// Integral returns true for the fixed-point members of the closed type set
func (dtype DataType) Integral() bool {
	switch dtype {
	case Byte, Int8, UInt16, Int16, UInt32, Int32:
		return true
	}
	return false
}

// Complex returns true for the complex members of the closed type set
func (dtype DataType) Complex() bool {
	return dtype == CFloat32 || dtype == CFloat64
}

// Range returns the smallest and largest value representable by DataType.
// For floating point types the bounds are the largest finite magnitudes.
func (dtype DataType) Range() (min, max float64) {
	switch dtype {
	case Byte:
		return 0, math.MaxUint8
	case Int8:
		return math.MinInt8, math.MaxInt8
	case UInt16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32, CFloat32:
		return -math.MaxFloat32, math.MaxFloat32
	case Float64, CFloat64:
		return -math.MaxFloat64, math.MaxFloat64
	default:
		panic("unsupported type")
	}
}

// ClampNoData clamps a nodata value into the representable range of DataType,
// reproducing the sentinel storage behavior of the raster backend so that a
// nodata value read back from a dataset compares equal to the one that was
// set. NaN passes through unclamped for floating point types.
func (dtype DataType) ClampNoData(nd float64) float64 {
	if !dtype.Integral() {
		if math.IsNaN(nd) {
			return nd
		}
		min, max := dtype.Range()
		return math.Min(math.Max(nd, min), max)
	}
	min, max := dtype.Range()
	return math.Round(math.Min(math.Max(nd, min), max))
}

// validNoData reports whether nd is storable as-is in a band of the given
// type, i.e. whether ClampNoData would leave it untouched.
func (dtype DataType) validNoData(nd float64) bool {
	if math.IsNaN(nd) {
		return !dtype.Integral()
	}
	return dtype.ClampNoData(nd) == nd
}

// makeSlice allocates a flat pixel slice of n elements of DataType
func (dtype DataType) makeSlice(n int) interface{} {
	switch dtype {
	case Byte:
		return make([]uint8, n)
	case Int8:
		return make([]int8, n)
	case UInt16:
		return make([]uint16, n)
	case Int16:
		return make([]int16, n)
	case UInt32:
		return make([]uint32, n)
	case Int32:
		return make([]int32, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	case CFloat32:
		return make([]complex64, n)
	case CFloat64:
		return make([]complex128, n)
	default:
		panic("unsupported type")
	}
}

// bufferType returns the DataType of a flat pixel slice
func bufferType(buffer interface{}) (DataType, error) {
	switch buffer.(type) {
	case []uint8:
		return Byte, nil
	case []int8:
		return Int8, nil
	case []uint16:
		return UInt16, nil
	case []int16:
		return Int16, nil
	case []uint32:
		return UInt32, nil
	case []int32:
		return Int32, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	case []complex64:
		return CFloat32, nil
	case []complex128:
		return CFloat64, nil
	default:
		return Unknown, fmt.Errorf("%w: unsupported buffer type %T", ErrDTypeMismatch, buffer)
	}
}

// bufferLen returns the number of elements in a flat pixel slice
func bufferLen(buffer interface{}) int {
	switch buf := buffer.(type) {
	case []uint8:
		return len(buf)
	case []int8:
		return len(buf)
	case []uint16:
		return len(buf)
	case []int16:
		return len(buf)
	case []uint32:
		return len(buf)
	case []int32:
		return len(buf)
	case []float32:
		return len(buf)
	case []float64:
		return len(buf)
	case []complex64:
		return len(buf)
	case []complex128:
		return len(buf)
	default:
		panic("unsupported type")
	}
}

// bufferSub reslices a flat pixel slice starting at element off
func bufferSub(buffer interface{}, off int) interface{} {
	switch buf := buffer.(type) {
	case []uint8:
		return buf[off:]
	case []int8:
		return buf[off:]
	case []uint16:
		return buf[off:]
	case []int16:
		return buf[off:]
	case []uint32:
		return buf[off:]
	case []int32:
		return buf[off:]
	case []float32:
		return buf[off:]
	case []float64:
		return buf[off:]
	case []complex64:
		return buf[off:]
	case []complex128:
		return buf[off:]
	default:
		panic("unsupported type")
	}
}

// loadValue reads element idx of a flat pixel slice as a float64. Complex
// elements collapse to their real part.
func loadValue(buffer interface{}, idx int) float64 {
	switch buf := buffer.(type) {
	case []uint8:
		return float64(buf[idx])
	case []int8:
		return float64(buf[idx])
	case []uint16:
		return float64(buf[idx])
	case []int16:
		return float64(buf[idx])
	case []uint32:
		return float64(buf[idx])
	case []int32:
		return float64(buf[idx])
	case []float32:
		return float64(buf[idx])
	case []float64:
		return buf[idx]
	case []complex64:
		return float64(real(buf[idx]))
	case []complex128:
		return real(buf[idx])
	default:
		panic("unsupported type")
	}
}

// storeValue writes v into element idx of a flat pixel slice, rounding and
// clamping into the destination range for fixed-point types.
func storeValue(buffer interface{}, idx int, v float64) {
	switch buf := buffer.(type) {
	case []uint8:
		buf[idx] = uint8(clampRound(v, 0, math.MaxUint8))
	case []int8:
		buf[idx] = int8(clampRound(v, math.MinInt8, math.MaxInt8))
	case []uint16:
		buf[idx] = uint16(clampRound(v, 0, math.MaxUint16))
	case []int16:
		buf[idx] = int16(clampRound(v, math.MinInt16, math.MaxInt16))
	case []uint32:
		buf[idx] = uint32(clampRound(v, 0, math.MaxUint32))
	case []int32:
		buf[idx] = int32(clampRound(v, math.MinInt32, math.MaxInt32))
	case []float32:
		buf[idx] = float32(v)
	case []float64:
		buf[idx] = v
	case []complex64:
		buf[idx] = complex(float32(v), 0)
	case []complex128:
		buf[idx] = complex(v, 0)
	default:
		panic("unsupported type")
	}
}

func clampRound(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Round(math.Min(math.Max(v, min), max))
}
