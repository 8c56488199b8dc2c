package rastio

type bandIOOpts struct {
	srcWidth, srcHeight     float64
	hasSrcSize              bool
	resampling              ResamplingAlg
	pixelStride, lineStride int
	mask                    bool
}

// BandIOOption is an option to modify the default behavior of band.IO
//
// Available BandIOOptions are:
//
// • SrcSize
//
// • Resampling
//
// • PixelStride
//
// • LineStride
//
// • AsMask
type BandIOOption interface {
	setBandIOOpt(ro *bandIOOpts)
}

type datasetIOOpts struct {
	bandIOOpts
	bands      []int
	bandStride int
}

// DatasetIOOption is an option to modify the default behavior of dataset.IO
//
// Available DatasetIOOptions are:
//
// • Bands
//
// • SrcSize
//
// • Resampling
//
// • PixelStride
//
// • LineStride
//
// • BandStride
//
// • AsMask
type DatasetIOOption interface {
	setDatasetIOOpt(ro *datasetIOOpts)
}

type readOpts struct {
	window      *Window
	masked      bool
	boundless   bool
	fill        float64
	hasFill     bool
	resampling  ResamplingAlg
	out         *Array
	outHeight   int
	outWidth    int
	hasOutShape bool
	outDType    DataType
	warn        WarningHandler
}

// ReadOption is an option that can be passed to Dataset.ReadBands and
// related read entry points
//
// Available ReadOptions are:
//
// • Windowed
//
// • Masked
//
// • Boundless
//
// • FillValue
//
// • Resampling
//
// • Out
//
// • OutShape
//
// • OutDType
//
// • WarnLogger
type ReadOption interface {
	setReadOpt(ro *readOpts)
}

type writeOpts struct {
	window  *Window
	masked  bool
	fill    float64
	hasFill bool
	warn    WarningHandler
}

// WriteOption is an option that can be passed to Dataset.WriteBands
//
// Available WriteOptions are:
//
// • Windowed
//
// • Masked
//
// • FillValue
//
// • WarnLogger
type WriteOption interface {
	setWriteOpt(wo *writeOpts)
}

type dsCreateOpts struct {
	bandTypes []DataType
	interps   []ColorInterp
	transform [6]float64
	nodata    *float64
}

// DatasetCreateOption is an option that can be passed to Create()
//
// Available DatasetCreateOptions are:
//
// • BandDataTypes
//
// • ColorInterps
//
// • GeoTransform
//
// • CreationNoData
type DatasetCreateOption interface {
	setDatasetCreateOpt(co *dsCreateOpts)
}

type srcSizeOpt struct {
	w, h float64
}

// SrcSize sets the size of the source region that will be mapped onto the
// transfer buffer, enabling decimated or replicated transfers when it does
// not match the buffer's shape. Defaults to the buffer's shape.
func SrcSize(width, height float64) interface {
	BandIOOption
	DatasetIOOption
} {
	return srcSizeOpt{w: width, h: height}
}

func (s srcSizeOpt) setBandIOOpt(ro *bandIOOpts) {
	ro.srcWidth = s.w
	ro.srcHeight = s.h
	ro.hasSrcSize = true
}
func (s srcSizeOpt) setDatasetIOOpt(ro *datasetIOOpts) { s.setBandIOOpt(&ro.bandIOOpts) }

type resamplingOpt struct {
	alg ResamplingAlg
}

// Resampling selects the algorithm the backend applies when the source
// region and the buffer differ in shape
func Resampling(alg ResamplingAlg) interface {
	BandIOOption
	DatasetIOOption
	ReadOption
} {
	return resamplingOpt{alg: alg}
}

func (r resamplingOpt) setBandIOOpt(ro *bandIOOpts)       { ro.resampling = r.alg }
func (r resamplingOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.resampling = r.alg }
func (r resamplingOpt) setReadOpt(ro *readOpts)           { ro.resampling = r.alg }

type pixelStrideOpt struct{ n int }

// PixelStride sets the distance in elements between two horizontally
// adjacent pixels of the buffer. Defaults to 1.
func PixelStride(n int) interface {
	BandIOOption
	DatasetIOOption
} {
	return pixelStrideOpt{n}
}

func (p pixelStrideOpt) setBandIOOpt(ro *bandIOOpts)       { ro.pixelStride = p.n }
func (p pixelStrideOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.pixelStride = p.n }

type lineStrideOpt struct{ n int }

// LineStride sets the distance in elements between two vertically adjacent
// pixels of the buffer. Defaults to bufWidth*PixelStride.
func LineStride(n int) interface {
	BandIOOption
	DatasetIOOption
} {
	return lineStrideOpt{n}
}

func (l lineStrideOpt) setBandIOOpt(ro *bandIOOpts)       { ro.lineStride = l.n }
func (l lineStrideOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.lineStride = l.n }

type bandStrideOpt struct{ n int }

// BandStride sets the distance in elements between the same pixel of two
// consecutive bands of the buffer. Defaults to bufHeight*LineStride.
func BandStride(n int) DatasetIOOption {
	return bandStrideOpt{n}
}

func (b bandStrideOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.bandStride = b.n }

type asMaskOpt struct{}

// AsMask makes IO transfer each selected band's validity mask plane instead
// of its data plane. The buffer element type must be the mask's native Byte
// type, independent of the parent bands' data type.
func AsMask() interface {
	BandIOOption
	DatasetIOOption
} {
	return asMaskOpt{}
}

func (asMaskOpt) setBandIOOpt(ro *bandIOOpts)       { ro.mask = true }
func (asMaskOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.mask = true }

type bandsOpt struct{ bnds []int }

// Bands selects the ordered list of 1-based bands that dataset.IO will
// transfer. Defaults to all bands in ascending order.
func Bands(bnds ...int) DatasetIOOption {
	return bandsOpt{bnds: bnds}
}

func (b bandsOpt) setDatasetIOOpt(ro *datasetIOOpts) { ro.bands = b.bnds }

type windowedOpt struct{ w Window }

// Windowed restricts the operation to the given window of the dataset.
// Defaults to the dataset's full extent.
func Windowed(w Window) interface {
	ReadOption
	WriteOption
} {
	return windowedOpt{w}
}

func (wo windowedOpt) setReadOpt(ro *readOpts)  { ro.window = &wo.w }
func (wo windowedOpt) setWriteOpt(o *writeOpts) { o.window = &wo.w }

type maskedOpt struct{}

// Masked makes a read return a masked array whose mask is true at invalid
// pixels, and makes a write of a masked array update the mask planes instead
// of filling masked elements
func Masked() interface {
	ReadOption
	WriteOption
} {
	return maskedOpt{}
}

func (maskedOpt) setReadOpt(ro *readOpts)  { ro.masked = true }
func (maskedOpt) setWriteOpt(o *writeOpts) { o.masked = true }

type boundlessOpt struct{}

// Boundless allows the requested window to extend beyond the dataset's
// extent. Pixels outside the extent read back as the resolved fill value.
func Boundless() ReadOption {
	return boundlessOpt{}
}

func (boundlessOpt) setReadOpt(ro *readOpts) { ro.boundless = true }

type fillValueOpt struct{ v float64 }

// FillValue sets the background value of boundless reads, the fill value of
// masked results, and the value substituted for masked elements on plain
// writes. An explicit fill value always takes precedence over per-band
// nodata.
func FillValue(v float64) interface {
	ReadOption
	WriteOption
} {
	return fillValueOpt{v}
}

func (f fillValueOpt) setReadOpt(ro *readOpts) {
	ro.fill = f.v
	ro.hasFill = true
}
func (f fillValueOpt) setWriteOpt(o *writeOpts) {
	o.fill = f.v
	o.hasFill = true
}

type outOpt struct{ a *Array }

// Out makes the read populate the given preallocated array instead of
// allocating a fresh one. The array's band count and data type must match
// the selection; its height and width define the output shape, implying
// decimation or replication when they differ from the window shape.
// Mutually exclusive with OutShape.
func Out(a *Array) ReadOption {
	return outOpt{a}
}

func (o outOpt) setReadOpt(ro *readOpts) { ro.out = o.a }

type outShapeOpt struct{ h, w int }

// OutShape sets the height and width of the result array, implying
// decimation or replication when it does not match the window shape.
// Mutually exclusive with Out.
func OutShape(height, width int) ReadOption {
	return outShapeOpt{h: height, w: width}
}

func (o outShapeOpt) setReadOpt(ro *readOpts) {
	ro.outHeight = o.h
	ro.outWidth = o.w
	ro.hasOutShape = true
}

type outDTypeOpt struct{ dt DataType }

// OutDType sets the element type of the result array, making the backend
// convert pixels on transfer. Defaults to the selected bands' common type.
func OutDType(dt DataType) ReadOption {
	return outDTypeOpt{dt}
}

func (o outDTypeOpt) setReadOpt(ro *readOpts) { ro.outDType = o.dt }

type warnLoggerOpt struct{ fn WarningHandler }

// WarnLogger routes non-fatal diagnostics emitted during the operation to fn
func WarnLogger(fn WarningHandler) interface {
	ReadOption
	WriteOption
} {
	return warnLoggerOpt{fn}
}

func (w warnLoggerOpt) setReadOpt(ro *readOpts)  { ro.warn = w.fn }
func (w warnLoggerOpt) setWriteOpt(o *writeOpts) { o.warn = w.fn }

type bandDataTypesOpt struct{ dts []DataType }

// BandDataTypes overrides the created dataset's per-band element types,
// allowing mixed-type datasets. Must match the band count when set.
func BandDataTypes(dts ...DataType) DatasetCreateOption {
	return bandDataTypesOpt{dts}
}

func (b bandDataTypesOpt) setDatasetCreateOpt(co *dsCreateOpts) { co.bandTypes = b.dts }

type geoTransformOpt struct{ gt [6]float64 }

// GeoTransform sets the created dataset's pixel-to-world affine transform
func GeoTransform(gt [6]float64) DatasetCreateOption {
	return geoTransformOpt{gt}
}

func (g geoTransformOpt) setDatasetCreateOpt(co *dsCreateOpts) { co.transform = g.gt }

type colorInterpsOpt struct{ interps []ColorInterp }

// ColorInterps sets the created dataset's per-band color interpretations.
// Must match the band count when set.
func ColorInterps(interps ...ColorInterp) DatasetCreateOption {
	return colorInterpsOpt{interps}
}

func (c colorInterpsOpt) setDatasetCreateOpt(co *dsCreateOpts) { co.interps = c.interps }

type creationNoDataOpt struct{ nd float64 }

// CreationNoData sets the nodata value of every band of the created dataset
func CreationNoData(nd float64) DatasetCreateOption {
	return creationNoDataOpt{nd}
}

func (c creationNoDataOpt) setDatasetCreateOpt(co *dsCreateOpts) { co.nodata = &c.nd }
