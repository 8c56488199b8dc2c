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

// Read populates the supplied buffer with the pixels contained in the
// supplied window. srcX and srcY may be fractional.
func (band Band) Read(srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	return band.IO(IORead, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// Write sets the band's pixels contained in the supplied window to the
// content of the supplied buffer
func (band Band) Write(srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	return band.IO(IOWrite, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// IO transfers the pixels contained in the supplied window between the band
// and buffer. buffer is a flat slice of one of the supported pixel types; it
// is indexed through the PixelStride/LineStride options so that
// non-contiguous buffers transfer without copying. All validation happens
// before the backend is invoked.
func (band Band) IO(op IOOperation, srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	ro := bandIOOpts{}
	for _, opt := range opts {
		opt.setBandIOOpt(&ro)
	}
	if !ro.hasSrcSize {
		ro.srcWidth = float64(bufWidth)
		ro.srcHeight = float64(bufHeight)
	}
	dtype, err := bufferType(buffer)
	if err != nil {
		return err
	}
	if bufWidth <= 0 || bufHeight <= 0 {
		// empty windows transfer nothing
		return nil
	}
	pixelStride := ro.pixelStride
	if pixelStride == 0 {
		pixelStride = 1
	}
	lineStride := ro.lineStride
	if lineStride == 0 {
		lineStride = bufWidth * pixelStride
	}
	minsize := lineStride*(bufHeight-1) + pixelStride*(bufWidth-1) + 1
	if bufferLen(buffer) < minsize {
		return fmt.Errorf("%w: buffer len=%d less than min=%d", ErrShapeMismatch, bufferLen(buffer), minsize)
	}
	if ro.mask {
		if dtype != maskDType {
			return fmt.Errorf("%w: mask transfer needs a %s buffer, got %s", ErrDTypeMismatch, maskDType, dtype)
		}
		return transferErr("transfer mask", band.ds.handle.MaskIO(op, band.idx,
			srcX, srcY, ro.srcWidth, ro.srcHeight,
			buffer.([]uint8), bufWidth, bufHeight, pixelStride, lineStride, ro.resampling))
	}
	return transferErr("transfer", band.ds.handle.RasterIO(op, band.idx,
		srcX, srcY, ro.srcWidth, ro.srcHeight,
		buffer, bufWidth, bufHeight, pixelStride, lineStride, ro.resampling))
}

// Read populates the supplied buffer with the pixels contained in the
// supplied window, one band after the other
func (ds *Dataset) Read(srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	return ds.IO(IORead, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// Write sets the dataset's pixels contained in the supplied window to the
// content of the supplied buffer, one band after the other
func (ds *Dataset) Write(srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	return ds.IO(IOWrite, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// IO transfers the pixels contained in the supplied window between the
// selected bands (Bands option, all bands by default, order preserved) and
// buffer. The buffer must hold one plane per selected band, laid out by the
// PixelStride/LineStride/BandStride options.
func (ds *Dataset) IO(op IOOperation, srcX, srcY float64, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	ro := datasetIOOpts{}
	for _, opt := range opts {
		opt.setDatasetIOOpt(&ro)
	}
	if !ro.hasSrcSize {
		ro.srcWidth = float64(bufWidth)
		ro.srcHeight = float64(bufHeight)
	}
	nbands := ds.Structure().NBands
	bands := ro.bands
	if bands == nil {
		bands = make([]int, nbands)
		for i := range bands {
			bands[i] = i + 1
		}
	}
	if len(bands) == 0 {
		return ErrNoIndexes
	}
	for _, bidx := range bands {
		if bidx < 1 || bidx > nbands {
			return fmt.Errorf("%w: band %d of %d", ErrIndexOutOfRange, bidx, nbands)
		}
	}
	dtype, err := bufferType(buffer)
	if err != nil {
		return err
	}
	if ro.mask && dtype != maskDType {
		return fmt.Errorf("%w: mask transfer needs a %s buffer, got %s", ErrDTypeMismatch, maskDType, dtype)
	}
	if bufWidth <= 0 || bufHeight <= 0 {
		return nil
	}
	pixelStride := ro.pixelStride
	if pixelStride == 0 {
		pixelStride = 1
	}
	lineStride := ro.lineStride
	if lineStride == 0 {
		lineStride = bufWidth * pixelStride
	}
	bandStride := ro.bandStride
	if bandStride == 0 {
		bandStride = bufHeight * lineStride
	}
	// the leading axis of the buffer must hold exactly one plane per band
	minsize := bandStride*(len(bands)-1) + lineStride*(bufHeight-1) + pixelStride*(bufWidth-1) + 1
	if bufferLen(buffer) < minsize {
		return fmt.Errorf("%w: buffer len=%d less than min=%d for %d bands",
			ErrShapeMismatch, bufferLen(buffer), minsize, len(bands))
	}
	for i, bidx := range bands {
		plane := bufferSub(buffer, i*bandStride)
		if ro.mask {
			err = transferErr("transfer mask", ds.handle.MaskIO(op, bidx,
				srcX, srcY, ro.srcWidth, ro.srcHeight,
				plane.([]uint8), bufWidth, bufHeight, pixelStride, lineStride, ro.resampling))
		} else {
			err = transferErr("transfer", ds.handle.RasterIO(op, bidx,
				srcX, srcY, ro.srcWidth, ro.srcHeight,
				plane, bufWidth, bufHeight, pixelStride, lineStride, ro.resampling))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
