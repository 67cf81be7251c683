package shp

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bdodson/shptrans/internal/iobuf"
)

// RandomAccess is a writable random-access byte store: an open file
// opened for both reading and writing. Reprojection never changes a
// record's shape type or vertex count, so every record keeps its
// original byte length and offset — the whole transform, in place or
// into a copy, is a read-modify-write over the same layout.
type RandomAccess interface {
	io.ReaderAt
	io.WriterAt
}

// Walker streams the records of a .shp/.shx pair, handing each record's
// vertex array to a caller-supplied transform and maintaining the
// file-wide bounding box as it goes.
type Walker struct {
	shp, shx             RandomAccess
	shpHeader, shxHeader *Header
	n                    int

	fileBBox [4]float64
	haveBBox bool
}

// Open wraps already-open shape and index stores and validates their
// headers.
func Open(shpAccess, shxAccess RandomAccess) (*Walker, error) {
	shpHdr, err := ReadHeader(shpAccess, 0)
	if err != nil {
		return nil, fmt.Errorf("shp: shape file: %w", err)
	}
	shxHdr, err := ReadHeader(shxAccess, 0)
	if err != nil {
		return nil, fmt.Errorf("shp: index file: %w", err)
	}
	return &Walker{
		shp: shpAccess, shx: shxAccess,
		shpHeader: shpHdr, shxHeader: shxHdr,
		n: RecordCount(shxHdr),
	}, nil
}

// OpenInPlace opens an existing .shp/.shx pair for read-modify-write.
func OpenInPlace(shpPath, shxPath string) (*Walker, func() error, error) {
	shpFile, err := os.OpenFile(shpPath, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("shp: open %s: %w", shpPath, err)
	}
	shxFile, err := os.OpenFile(shxPath, os.O_RDWR, 0)
	if err != nil {
		shpFile.Close()
		return nil, nil, fmt.Errorf("shp: open %s: %w", shxPath, err)
	}
	w, err := Open(shpFile, shxFile)
	closeFn := func() error {
		err1 := shpFile.Close()
		err2 := shxFile.Close()
		if err1 != nil {
			return err1
		}
		return err2
	}
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return w, closeFn, nil
}

// OpenCopy copies the source .shp/.shx pair byte-for-byte to new paths,
// then opens the copies for read-modify-write. Since the transform
// never changes a record's length, rewriting a copy is identical to
// rewriting in place once the copy exists.
func OpenCopy(srcShpPath, srcShxPath, dstShpPath, dstShxPath string) (*Walker, func() error, error) {
	if err := copyFile(srcShpPath, dstShpPath); err != nil {
		return nil, nil, err
	}
	if err := copyFile(srcShxPath, dstShxPath); err != nil {
		os.Remove(dstShpPath)
		return nil, nil, err
	}
	return OpenInPlace(dstShpPath, dstShxPath)
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("shp: open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("shp: create %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("shp: copying %s to %s: %w", srcPath, dstPath, err)
	}
	return nil
}

// RecordCount is the number of shapes in the dataset, derived from the
// index file's declared length.
func (w *Walker) RecordCount() int { return w.n }

// ShapeType is the file-wide shape type declared in the header.
func (w *Walker) ShapeType() int32 { return w.shpHeader.ShapeType() }

// Each visits every record in index order. fn receives the shape type
// and a flat [x0,y0,x1,y1,...] vertex slice to transform in place;
// whatever fn leaves in the slice is written back, along with a
// recomputed per-record bounding box, before Each moves to the next
// record. Records with no vertices (a multi-vertex record whose point
// count is zero) are left untouched.
func (w *Walker) Each(fn func(shapeType int32, vertices []float64) error) error {
	for i := 0; i < w.n; i++ {
		idxRec, err := ReadIndexRecord(w.shx, i)
		if err != nil {
			return err
		}
		offsetBytes := int64(idxRec.OffsetWords) * 2
		contentBytes := int(idxRec.LengthWords) * 2

		payload := make([]byte, contentBytes)
		if _, err := w.shp.ReadAt(payload, offsetBytes+8); err != nil {
			return fmt.Errorf("shp: reading record %d payload: %w", i, err)
		}

		shapeType, _ := iobuf.NewReader(payload, binary.LittleEndian).Int32()
		lo, err := layoutOf(shapeType, payload)
		if err != nil {
			return fmt.Errorf("shp: record %d: %w", i, err)
		}
		if lo.VertexCount == 0 {
			continue
		}

		vertices, err := ReadVertices(payload, lo)
		if err != nil {
			return fmt.Errorf("shp: record %d: %w", i, err)
		}

		if ferr := fn(shapeType, vertices); ferr != nil {
			return fmt.Errorf("shp: record %d: %w", i, ferr)
		}

		if err := WriteVertices(payload, lo, vertices); err != nil {
			return fmt.Errorf("shp: record %d: %w", i, err)
		}

		var xmin, ymin, xmax, ymax float64
		if lo.HasBBox {
			xmin, ymin, xmax, ymax = BoundsOf(vertices)
			SetBBox(payload, lo, xmin, ymin, xmax, ymax)
		} else {
			xmin, ymin, xmax, ymax = vertices[0], vertices[1], vertices[0], vertices[1]
		}
		w.accumulate(xmin, ymin, xmax, ymax)

		if _, err := w.shp.WriteAt(payload, offsetBytes+8); err != nil {
			return fmt.Errorf("shp: writing record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Walker) accumulate(xmin, ymin, xmax, ymax float64) {
	if !w.haveBBox {
		w.fileBBox = [4]float64{xmin, ymin, xmax, ymax}
		w.haveBBox = true
		return
	}
	if xmin < w.fileBBox[0] {
		w.fileBBox[0] = xmin
	}
	if ymin < w.fileBBox[1] {
		w.fileBBox[1] = ymin
	}
	if xmax > w.fileBBox[2] {
		w.fileBBox[2] = xmax
	}
	if ymax > w.fileBBox[3] {
		w.fileBBox[3] = ymax
	}
}

// Finish writes the recomputed file-wide bounding box into both
// headers. Called once after Each completes.
func (w *Walker) Finish() error {
	if !w.haveBBox {
		return nil
	}
	w.shpHeader.SetBBox(w.fileBBox[0], w.fileBBox[1], w.fileBBox[2], w.fileBBox[3])
	w.shxHeader.SetBBox(w.fileBBox[0], w.fileBBox[1], w.fileBBox[2], w.fileBBox[3])
	if err := w.shpHeader.WriteTo(w.shp, 0); err != nil {
		return fmt.Errorf("shp: writing shape header: %w", err)
	}
	if err := w.shxHeader.WriteTo(w.shx, 0); err != nil {
		return fmt.Errorf("shp: writing index header: %w", err)
	}
	return nil
}
