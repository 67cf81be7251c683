// Package shp reads and rewrites Shapefile geometry (.shp) and index
// (.shx) files: 100-byte headers, big-endian record headers, and
// little-endian payloads whose shape depends on the leading shape-type
// word.
package shp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bdodson/shptrans/internal/iobuf"
)

// HeaderSize is the fixed size in bytes of both the .shp and .shx
// file headers.
const HeaderSize = 100

// FileCode is the big-endian magic word every header begins with.
const FileCode = 9994

// Header is the raw 100-byte file header, shared verbatim by the shape
// and index files. Bytes this package doesn't interpret (the five
// unused words after the magic, and the Z/M bounding box past byte 68)
// are preserved by round-tripping the whole array.
type Header [HeaderSize]byte

func (h *Header) magic() int32 {
	v, _ := iobuf.NewReader(h[0:4], binary.BigEndian).Int32()
	return v
}
func (h *Header) setMagic(v int32) { iobuf.NewWriter(h[0:4], binary.BigEndian).PutInt32(v) }

// FileLengthWords is the total file length in 16-bit words, at offset 24.
func (h *Header) FileLengthWords() int32 {
	v, _ := iobuf.NewReader(h[24:28], binary.BigEndian).Int32()
	return v
}
func (h *Header) SetFileLengthWords(v int32) {
	iobuf.NewWriter(h[24:28], binary.BigEndian).PutInt32(v)
}

// Version is the little-endian format version at offset 28, normally 1000.
func (h *Header) Version() int32 {
	v, _ := iobuf.NewReader(h[28:32], binary.LittleEndian).Int32()
	return v
}
func (h *Header) SetVersion(v int32) { iobuf.NewWriter(h[28:32], binary.LittleEndian).PutInt32(v) }

// ShapeType is the file-wide shape type at offset 32.
func (h *Header) ShapeType() int32 {
	v, _ := iobuf.NewReader(h[32:36], binary.LittleEndian).Int32()
	return v
}
func (h *Header) SetShapeType(v int32) {
	iobuf.NewWriter(h[32:36], binary.LittleEndian).PutInt32(v)
}

// BBox is the file-wide XY bounding box occupying bytes 36..68.
func (h *Header) BBox() (xmin, ymin, xmax, ymax float64) {
	r := iobuf.NewReader(h[36:68], binary.LittleEndian)
	xmin, _ = r.Float64()
	ymin, _ = r.Float64()
	xmax, _ = r.Float64()
	ymax, _ = r.Float64()
	return xmin, ymin, xmax, ymax
}

func (h *Header) SetBBox(xmin, ymin, xmax, ymax float64) {
	w := iobuf.NewWriter(h[36:68], binary.LittleEndian)
	w.PutFloat64(xmin)
	w.PutFloat64(ymin)
	w.PutFloat64(xmax)
	w.PutFloat64(ymax)
}

// ReadHeader reads and validates the 100-byte header at base in r.
func ReadHeader(r io.ReaderAt, base int64) (*Header, error) {
	var h Header
	if _, err := r.ReadAt(h[:], base); err != nil {
		return nil, fmt.Errorf("shp: reading header: %w", err)
	}
	if h.magic() != FileCode {
		return nil, fmt.Errorf("shp: bad file code %d, expected %d", h.magic(), FileCode)
	}
	return &h, nil
}

// NewHeader builds a header with the magic word and version pre-filled,
// for writing a brand-new file.
func NewHeader(shapeType int32) *Header {
	h := &Header{}
	h.setMagic(FileCode)
	h.SetVersion(1000)
	h.SetShapeType(shapeType)
	return h
}

// WriteTo writes the header to base in w.
func (h *Header) WriteTo(w io.WriterAt, base int64) error {
	_, err := w.WriteAt(h[:], base)
	return err
}

// IndexRecord is one (offset_words, length_words) pair in the .shx file.
type IndexRecord struct {
	OffsetWords  int32
	LengthWords  int32
}

const indexRecordSize = 8

// ReadIndexRecord reads the i'th index record (0-based, after the header).
func ReadIndexRecord(r io.ReaderAt, i int) (IndexRecord, error) {
	var buf [indexRecordSize]byte
	if _, err := r.ReadAt(buf[:], int64(HeaderSize+i*indexRecordSize)); err != nil {
		return IndexRecord{}, fmt.Errorf("shp: reading index record %d: %w", i, err)
	}
	rd := iobuf.NewReader(buf[:], binary.BigEndian)
	offsetWords, _ := rd.Int32()
	lengthWords, _ := rd.Int32()
	return IndexRecord{OffsetWords: offsetWords, LengthWords: lengthWords}, nil
}

// WriteIndexRecord writes the i'th index record.
func WriteIndexRecord(w io.WriterAt, i int, rec IndexRecord) error {
	var buf [indexRecordSize]byte
	wr := iobuf.NewWriter(buf[:], binary.BigEndian)
	wr.PutInt32(rec.OffsetWords)
	wr.PutInt32(rec.LengthWords)
	_, err := w.WriteAt(buf[:], int64(HeaderSize+i*indexRecordSize))
	return err
}

// RecordCount derives the record count from an index header's declared
// file length in 16-bit words.
func RecordCount(idxHeader *Header) int {
	return int((int64(idxHeader.FileLengthWords())*2 - HeaderSize) / indexRecordSize)
}
