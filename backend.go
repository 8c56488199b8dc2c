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

// IOOperation determines wether Band.IO or Dataset.IO will read pixels into
// the provided buffer, or write pixels from the provided buffer
type IOOperation int

const (
	//IORead makes IO copy pixels from the band/dataset into the provided buffer
	IORead IOOperation = iota
	//IOWrite makes IO copy pixels from the provided buffer into the band/dataset
	IOWrite
)

// ResamplingAlg is a resampling algorithm. It is forwarded opaquely to the
// storage backend's transfer primitive, which applies it when the requested
// pixel region is mapped onto a differently shaped buffer.
type ResamplingAlg int

const (
	//Nearest resampling
	Nearest ResamplingAlg = iota
	//Bilinear resampling
	Bilinear
	//Cubic resampling
	Cubic
	//Lanczos resampling
	Lanczos
	//Average resampling
	Average
	//Mode resampling
	Mode
)

// String implements Stringer
func (ra ResamplingAlg) String() string {
	switch ra {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Cubic:
		return "cubic"
	case Lanczos:
		return "lanczos"
	case Average:
		return "average"
	case Mode:
		return "mode"
	default:
		panic("unsupported resampling")
	}
}

// MaskFlag is a band's mask capability set
type MaskFlag int

const (
	//MaskAllValid means all pixels of the band are valid and no mask I/O is
	//needed to answer mask queries
	MaskAllValid MaskFlag = 0x01
	//MaskPerDataset means the band shares a single dataset-wide mask plane
	MaskPerDataset MaskFlag = 0x02
	//MaskAlpha means the mask is derived from an alpha band
	MaskAlpha MaskFlag = 0x04
	//MaskNoData means the mask is derived from the band's nodata value
	MaskNoData MaskFlag = 0x08
)

// ColorInterp is a band's color interpretation
type ColorInterp int

const (
	//CIUndefined is an undefined ColorInterp
	CIUndefined ColorInterp = iota
	//CIGray is a gray level ColorInterp
	CIGray
	//CIPalette is a paletted ColorInterp
	CIPalette
	//CIRed is a Red ColorInterp
	CIRed
	//CIGreen is a Green ColorInterp
	CIGreen
	//CIBlue is a Blue ColorInterp
	CIBlue
	//CIAlpha is an Alpha/Transparency ColorInterp
	CIAlpha
)

// Name returns the ColorInterp's name
func (colorInterp ColorInterp) Name() string {
	switch colorInterp {
	case CIGray:
		return "Gray"
	case CIPalette:
		return "Palette"
	case CIRed:
		return "Red"
	case CIGreen:
		return "Green"
	case CIBlue:
		return "Blue"
	case CIAlpha:
		return "Alpha"
	default:
		return "Undefined"
	}
}

// DatasetHandle is the contract required from the raster storage backend.
// A handle owns the physical (or virtual) dataset: decoding and encoding of
// the stored representation and the per-band pixel transfer primitive live
// behind it. Everything above the handle (windowing, typed dispatch,
// boundless compositing, mask resolution) is backend agnostic.
//
// Implementations must support concurrent readers only if they document it;
// callers otherwise serialize access to one handle themselves.
type DatasetHandle interface {
	// Size returns the dataset's width and height in pixels
	Size() (width, height int)
	// BandCount returns the number of bands. All bands share the dataset's
	// width and height.
	BandCount() int
	// BandDataType returns the element type of the 1-based band
	BandDataType(band int) DataType
	// NoData returns the stored nodata sentinel of the 1-based band
	NoData(band int) (nodata float64, ok bool)
	// SetNoData stores a nodata sentinel for the 1-based band. Values outside
	// the band type's representable range must be refused.
	SetNoData(band int, nodata float64) error
	// ClearNoData removes the band's nodata sentinel
	ClearNoData(band int) error
	// MaskFlags returns the mask capability set of the 1-based band
	MaskFlags(band int) MaskFlag
	// ColorInterp returns the color interpretation of the 1-based band
	ColorInterp(band int) ColorInterp
	// GeoTransform returns the dataset's pixel-to-world affine transform in
	// the usual 6 coefficient layout
	GeoTransform() [6]float64
	// RasterIO transfers pixels between the 1-based band and buffer for the
	// source region (xoff, yoff, xsize, ysize), which may be fractional and
	// which the backend resamples with alg when its shape differs from
	// bufWidth x bufHeight. buffer is a flat slice of one of the supported
	// pixel types; the backend converts between the buffer's element type and
	// the band's. pixelStride and lineStride are element counts and are
	// honored untouched so non-contiguous buffers transfer without copies.
	RasterIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
		buffer interface{}, bufWidth, bufHeight int, pixelStride, lineStride int,
		alg ResamplingAlg) error
	// MaskIO is RasterIO against the band's validity mask plane instead of
	// its data plane. The element type is the mask's native single byte type
	// regardless of the band's data type; 0 is invalid and 255 valid.
	MaskIO(op IOOperation, band int, xoff, yoff, xsize, ysize float64,
		buffer []uint8, bufWidth, bufHeight int, pixelStride, lineStride int,
		alg ResamplingAlg) error
	// CreateMaskBand allocates a dedicated mask plane for the 1-based band,
	// shared dataset-wide when flags carries MaskPerDataset
	CreateMaskBand(band int, flags MaskFlag) error
	// BuildOverlay derives an ephemeral virtual dataset of the given canvas
	// size whose pixels default to background where the parent dataset does
	// not cover them. transform positions the overlay's origin relative to
	// the parent's geotransform. When masked is set the overlay must answer
	// MaskIO queries even if the parent reports all bands valid: valid inside
	// the parent's extent, invalid outside. The returned handle is read only
	// and must be closed by the caller.
	BuildOverlay(background float64, canvasWidth, canvasHeight int,
		transform [6]float64, masked bool) (DatasetHandle, error)
	// Close releases the handle. Closing an already closed handle is an error.
	Close() error
}
