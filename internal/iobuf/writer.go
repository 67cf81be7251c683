package iobuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer writes fixed-width fields into a pre-sized byte slice at a
// tracked offset, using the given byte order.
type Writer struct {
	data   []byte
	offset int
	order  binary.ByteOrder
}

// NewWriter wraps an existing buffer for in-place field writes.
func NewWriter(data []byte, order binary.ByteOrder) *Writer {
	return &Writer{data: data, offset: 0, order: order}
}

// NewWriterAt wraps an existing buffer starting at the given offset.
func NewWriterAt(data []byte, offset int, order binary.ByteOrder) *Writer {
	return &Writer{data: data, offset: offset, order: order}
}

func (w *Writer) PutUint32(v uint32) error {
	if w.offset+4 > len(w.data) {
		return fmt.Errorf("iobuf: write past end of buffer at offset %d", w.offset)
	}
	w.order.PutUint32(w.data[w.offset:], v)
	w.offset += 4
	return nil
}

func (w *Writer) PutInt32(v int32) error {
	return w.PutUint32(uint32(v))
}

func (w *Writer) PutFloat64(v float64) error {
	return w.PutUint64(math.Float64bits(v))
}

func (w *Writer) PutUint64(v uint64) error {
	if w.offset+8 > len(w.data) {
		return fmt.Errorf("iobuf: write past end of buffer at offset %d", w.offset)
	}
	w.order.PutUint64(w.data[w.offset:], v)
	w.offset += 8
	return nil
}

func (w *Writer) Skip(n int) error {
	if w.offset+n > len(w.data) {
		return fmt.Errorf("iobuf: skip past end of buffer at offset %d", w.offset)
	}
	w.offset += n
	return nil
}

func (w *Writer) Offset() int { return w.offset }
