// Package raster writes field-strength grids as single-band GeoTIFF files.
//
// The encoder emits a minimal little-endian TIFF: one IFD, one strip,
// uncompressed IEEE 32-bit float samples, plus the GeoTIFF tags that pin the
// lattice to EPSG:4326 with point-registered pixels. NaN cells carry through
// as the nodata value.
package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/signalsfoundry/emfield/core"
)

// TIFF field types used by the encoder.
const (
	typeShort  uint16 = 3
	typeLong   uint16 = 4
	typeASCII  uint16 = 2
	typeDouble uint16 = 12
)

// Tag IDs, baseline TIFF plus the GeoTIFF and GDAL extensions.
const (
	tagImageWidth      uint16 = 256
	tagImageLength     uint16 = 257
	tagBitsPerSample   uint16 = 258
	tagCompression     uint16 = 259
	tagPhotometric     uint16 = 262
	tagStripOffsets    uint16 = 273
	tagSamplesPerPixel uint16 = 277
	tagRowsPerStrip    uint16 = 278
	tagStripByteCounts uint16 = 279
	tagSampleFormat    uint16 = 339
	tagModelPixelScale uint16 = 33550
	tagModelTiepoint   uint16 = 33922
	tagGeoKeyDirectory uint16 = 34735
	tagGDALNoData      uint16 = 42113
)

// GeoKey IDs and values for a plain geographic WGS 84 raster.
const (
	keyModelType      uint16 = 1024
	keyRasterType     uint16 = 1025
	keyGeographicType uint16 = 2048

	modelTypeGeographic uint16 = 2
	rasterPixelIsPoint  uint16 = 2
	epsgWGS84           uint16 = 4326
)

// GeoTIFFWriter encodes one band raster per file. The zero value is ready to
// use.
type GeoTIFFWriter struct{}

// NewGeoTIFFWriter returns a writer implementing core.FieldRasterWriter.
func NewGeoTIFFWriter() *GeoTIFFWriter { return &GeoTIFFWriter{} }

// WriteFieldRaster encodes the row-major raster to path. Grid row 0 is the
// northernmost latitude, which matches TIFF's top-down row order, so samples
// are written in grid order without reshuffling.
func (w *GeoTIFFWriter) WriteFieldRaster(path string, grid *core.Grid, fieldDBuVPerM []float64) error {
	if grid == nil || grid.Width <= 0 || grid.Height <= 0 {
		return fmt.Errorf("geotiff: empty grid")
	}
	if len(fieldDBuVPerM) != grid.CellCount() {
		return fmt.Errorf("geotiff: raster has %d samples, grid has %d cells", len(fieldDBuVPerM), grid.CellCount())
	}

	data, err := encodeGeoTIFF(grid, fieldDBuVPerM)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("geotiff: write %s: %w", path, err)
	}
	return nil
}

type ifdEntry struct {
	tag     uint16
	typ     uint16
	count   uint32
	inline  uint32 // value when it fits in 4 bytes
	payload []byte // external value, nil when inline
}

func encodeGeoTIFF(grid *core.Grid, field []float64) ([]byte, error) {
	width := uint32(grid.Width)
	height := uint32(grid.Height)
	stripBytes := width * height * 4

	// Point-registered tiepoint: raster (0, 0) maps to the first cell centre.
	tiepoint := [6]float64{0, 0, 0, grid.Lons[0], grid.Lats[0], 0}
	pixelScale := [3]float64{grid.ResolutionDeg, grid.ResolutionDeg, 0}

	geoKeys := []uint16{
		1, 1, 0, 3,
		keyModelType, 0, 1, modelTypeGeographic,
		keyRasterType, 0, 1, rasterPixelIsPoint,
		keyGeographicType, 0, 1, epsgWGS84,
	}

	entries := []ifdEntry{
		{tag: tagImageWidth, typ: typeLong, count: 1, inline: width},
		{tag: tagImageLength, typ: typeLong, count: 1, inline: height},
		{tag: tagBitsPerSample, typ: typeShort, count: 1, inline: 32},
		{tag: tagCompression, typ: typeShort, count: 1, inline: 1},
		{tag: tagPhotometric, typ: typeShort, count: 1, inline: 1},
		{tag: tagStripOffsets, typ: typeLong, count: 1}, // patched below
		{tag: tagSamplesPerPixel, typ: typeShort, count: 1, inline: 1},
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, inline: height},
		{tag: tagStripByteCounts, typ: typeLong, count: 1, inline: stripBytes},
		{tag: tagSampleFormat, typ: typeShort, count: 1, inline: 3},
		{tag: tagModelPixelScale, typ: typeDouble, count: 3, payload: doublesLE(pixelScale[:])},
		{tag: tagModelTiepoint, typ: typeDouble, count: 6, payload: doublesLE(tiepoint[:])},
		{tag: tagGeoKeyDirectory, typ: typeShort, count: uint32(len(geoKeys)), payload: shortsLE(geoKeys)},
		{tag: tagGDALNoData, typ: typeASCII, count: 4, payload: []byte("nan\x00")},
	}

	const headerSize = 8
	ifdSize := 2 + 12*len(entries) + 4
	payloadOffset := uint32(headerSize + ifdSize)

	// Lay out external payloads directly after the IFD, then the pixel strip.
	for i := range entries {
		e := &entries[i]
		if e.payload == nil {
			continue
		}
		if len(e.payload)%2 != 0 {
			return nil, fmt.Errorf("geotiff: odd payload length for tag %d", e.tag)
		}
		e.inline = payloadOffset
		payloadOffset += uint32(len(e.payload))
	}
	stripOffset := payloadOffset
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].inline = stripOffset
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, int(stripOffset+stripBytes)))
	buf.WriteString("II")
	le := binary.LittleEndian
	writeU16(buf, 42)
	writeU32(buf, headerSize) // first IFD follows the header

	writeU16(buf, uint16(len(entries)))
	for _, e := range entries {
		writeU16(buf, e.tag)
		writeU16(buf, e.typ)
		writeU32(buf, e.count)
		if e.payload == nil && e.typ == typeShort {
			// Short values sit in the low half of the 4-byte slot.
			writeU16(buf, uint16(e.inline))
			writeU16(buf, 0)
			continue
		}
		writeU32(buf, e.inline)
	}
	writeU32(buf, 0) // no further IFDs

	for _, e := range entries {
		if e.payload != nil {
			buf.Write(e.payload)
		}
	}

	sample := make([]byte, 4)
	for _, v := range field {
		le.PutUint32(sample, math.Float32bits(float32(v)))
		buf.Write(sample)
	}
	return buf.Bytes(), nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func doublesLE(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func shortsLE(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
