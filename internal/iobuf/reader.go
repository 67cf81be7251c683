// Package iobuf provides safe, offset-tracked binary reading and writing
// over an in-memory byte slice, with the byte order selectable per reader
// since shapefile headers are big-endian while shapefile payloads and
// NTv2 records are little-endian.
package iobuf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader reads fixed-width fields from a byte slice, tracking its own
// offset. The byte order is fixed for the lifetime of the reader; callers
// needing to mix orders within one record use two readers over the same
// slice.
type Reader struct {
	data   []byte
	offset int
	order  binary.ByteOrder
}

// NewReader creates a reader using the given byte order.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, offset: 0, order: order}
}

// NewReaderAt creates a reader starting at the given byte offset.
func NewReaderAt(data []byte, offset int, order binary.ByteOrder) *Reader {
	return &Reader{data: data, offset: offset, order: order}
}

func (r *Reader) Uint16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	val := r.order.Uint16(r.data[r.offset:])
	r.offset += 2
	return val, nil
}

func (r *Reader) Int16() (int16, error) {
	val, err := r.Uint16()
	return int16(val), err
}

func (r *Reader) Uint32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	val := r.order.Uint32(r.data[r.offset:])
	r.offset += 4
	return val, nil
}

func (r *Reader) Int32() (int32, error) {
	val, err := r.Uint32()
	return int32(val), err
}

func (r *Reader) Uint64() (uint64, error) {
	if r.offset+8 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	val := r.order.Uint64(r.data[r.offset:])
	r.offset += 8
	return val, nil
}

func (r *Reader) Int64() (int64, error) {
	val, err := r.Uint64()
	return int64(val), err
}

func (r *Reader) Float32() (float32, error) {
	bits, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (r *Reader) Float64() (float64, error) {
	bits, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// Bytes reads n bytes and returns a copy, safe to retain past further reads.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if r.offset+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	val := make([]byte, n)
	copy(val, r.data[r.offset:r.offset+n])
	r.offset += n
	return val, nil
}

// String reads n bytes and returns them as a string, not trimmed.
func (r *Reader) String(n int) (string, error) {
	if r.offset+n > len(r.data) {
		return "", io.ErrUnexpectedEOF
	}
	val := string(r.data[r.offset : r.offset+n])
	r.offset += n
	return val, nil
}

func (r *Reader) Skip(n int) error {
	if r.offset+n > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	r.offset += n
	return nil
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

func (r *Reader) Offset() int {
	return r.offset
}

func (r *Reader) SetOffset(offset int) error {
	if offset < 0 || offset > len(r.data) {
		return fmt.Errorf("offset %d out of bounds [0, %d]", offset, len(r.data))
	}
	r.offset = offset
	return nil
}

func (r *Reader) Len() int {
	return len(r.data)
}
