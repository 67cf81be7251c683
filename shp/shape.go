package shp

import (
	"encoding/binary"
	"fmt"

	"github.com/bdodson/shptrans/internal/iobuf"
)

// Shape type codes, per the external format's shape-type word.
const (
	Point       = 1
	PolyLine    = 3
	Polygon     = 5
	MultiPoint  = 8
	PointZ      = 11
	PolyLineZ   = 13
	PolygonZ    = 15
	MultiPointZ = 18
	PointM      = 21
	PolyLineM   = 23
	PolygonM    = 25
	MultiPointM = 28
	MultiPatch  = 31
)

// baseType maps a Z/M variant to the shape type whose geometry layout it
// shares; every variant carries its trailing Z or M arrays after the XY
// points, untouched by reprojection.
func baseType(t int32) int32 {
	switch t {
	case PointZ, PointM:
		return Point
	case PolyLineZ, PolyLineM:
		return PolyLine
	case PolygonZ, PolygonM:
		return Polygon
	case MultiPointZ, MultiPointM:
		return MultiPoint
	default:
		return t
	}
}

// Layout describes where a record's vertex array and bounding box live
// within its payload (the bytes starting at the shape-type word).
type Layout struct {
	VertexOffset int // bytes from payload start
	VertexCount  int // number of (x,y) pairs
	BBoxOffset   int // bytes from payload start, 0 if HasBBox is false
	HasBBox      bool
}

// layoutOf reads the part/point counts out of payload (whose shape type
// has already been read from the first 4 bytes) and returns where the
// vertex array and bounding box sit.
func layoutOf(shapeType int32, payload []byte) (Layout, error) {
	switch baseType(shapeType) {
	case Point:
		return Layout{VertexOffset: 4, VertexCount: 1}, nil

	case MultiPoint:
		if len(payload) < 40 {
			return Layout{}, fmt.Errorf("shp: multipoint payload too short (%d bytes)", len(payload))
		}
		r := iobuf.NewReaderAt(payload, 36, binary.LittleEndian)
		npoints, _ := r.Int32()
		return Layout{VertexOffset: 40, VertexCount: int(npoints), BBoxOffset: 4, HasBBox: true}, nil

	case PolyLine, Polygon:
		if len(payload) < 44 {
			return Layout{}, fmt.Errorf("shp: polyline/polygon payload too short (%d bytes)", len(payload))
		}
		r := iobuf.NewReaderAt(payload, 36, binary.LittleEndian)
		nparts, _ := r.Int32()
		npoints, _ := r.Int32()
		return Layout{VertexOffset: 44 + 4*int(nparts), VertexCount: int(npoints), BBoxOffset: 4, HasBBox: true}, nil

	case MultiPatch:
		if len(payload) < 44 {
			return Layout{}, fmt.Errorf("shp: multipatch payload too short (%d bytes)", len(payload))
		}
		r := iobuf.NewReaderAt(payload, 36, binary.LittleEndian)
		nparts, _ := r.Int32()
		npoints, _ := r.Int32()
		return Layout{VertexOffset: 44 + 8*int(nparts), VertexCount: int(npoints), BBoxOffset: 4, HasBBox: true}, nil

	default:
		return Layout{}, fmt.Errorf("shp: unsupported shape type %d", shapeType)
	}
}

// ReadVertices decodes lo.VertexCount (x,y) pairs out of payload at
// lo.VertexOffset into a flat [x0,y0,x1,y1,...] slice.
func ReadVertices(payload []byte, lo Layout) ([]float64, error) {
	need := lo.VertexOffset + lo.VertexCount*16
	if len(payload) < need {
		return nil, fmt.Errorf("shp: payload too short for %d vertices (need %d, have %d)", lo.VertexCount, need, len(payload))
	}
	out := make([]float64, lo.VertexCount*2)
	r := iobuf.NewReaderAt(payload, lo.VertexOffset, binary.LittleEndian)
	for i := range out {
		out[i], _ = r.Float64()
	}
	return out, nil
}

// WriteVertices re-encodes a flat (x,y) slice back into payload at
// lo.VertexOffset.
func WriteVertices(payload []byte, lo Layout, vertices []float64) error {
	need := lo.VertexOffset + lo.VertexCount*16
	if len(payload) < need || len(vertices) != lo.VertexCount*2 {
		return fmt.Errorf("shp: vertex buffer size mismatch writing back %d vertices", lo.VertexCount)
	}
	w := iobuf.NewWriterAt(payload, lo.VertexOffset, binary.LittleEndian)
	for _, v := range vertices {
		w.PutFloat64(v)
	}
	return nil
}

// BBox reads the record's stored (xmin,ymin,xmax,ymax), valid only if
// lo.HasBBox.
func BBox(payload []byte, lo Layout) (xmin, ymin, xmax, ymax float64) {
	r := iobuf.NewReaderAt(payload, lo.BBoxOffset, binary.LittleEndian)
	xmin, _ = r.Float64()
	ymin, _ = r.Float64()
	xmax, _ = r.Float64()
	ymax, _ = r.Float64()
	return xmin, ymin, xmax, ymax
}

// SetBBox writes the record's (xmin,ymin,xmax,ymax), valid only if
// lo.HasBBox.
func SetBBox(payload []byte, lo Layout, xmin, ymin, xmax, ymax float64) {
	w := iobuf.NewWriterAt(payload, lo.BBoxOffset, binary.LittleEndian)
	w.PutFloat64(xmin)
	w.PutFloat64(ymin)
	w.PutFloat64(xmax)
	w.PutFloat64(ymax)
}

// BoundsOf computes the axis-aligned bounding box of a flat (x,y) slice.
// Called after reprojecting a record's vertices in place, since the
// transform does not generally preserve bounding-box corners.
func BoundsOf(vertices []float64) (xmin, ymin, xmax, ymax float64) {
	if len(vertices) < 2 {
		return 0, 0, 0, 0
	}
	xmin, ymin = vertices[0], vertices[1]
	xmax, ymax = xmin, ymin
	for i := 2; i+1 < len(vertices); i += 2 {
		x, y := vertices[i], vertices[i+1]
		if x < xmin {
			xmin = x
		}
		if x > xmax {
			xmax = x
		}
		if y < ymin {
			ymin = y
		}
		if y > ymax {
			ymax = y
		}
	}
	return xmin, ymin, xmax, ymax
}
