package ntv2

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"github.com/bdodson/shptrans/internal/iobuf"
)

// File is an open NTv2 grid-shift file: its sub-grid tree plus a
// random-access (memory-mapped where the platform supports it) view of
// the data area.
type File struct {
	SubGrids []SubGrid
	TopLevel []int

	FromDatum, ToDatum string // 8-char datum names from the overview block

	reader io.ReaderAt
	closer io.Closer
	path   string

	rootTree *rtreego.Rtree // built lazily; only used when TopLevel is large
}

// rtreeThreshold is the number of top-level sub-grids above which the
// root-level candidate search is accelerated with an R-tree instead of
// scanning the full top-level list; most NTv2 distributions carry far
// fewer roots than this, so the tree is never built for them.
const rtreeThreshold = 8

type rootEntry struct {
	idx  int
	rect rtreego.Rect
}

func (e *rootEntry) Bounds() rtreego.Rect { return e.rect }

func (f *File) ensureRootIndex() {
	if f.rootTree != nil || len(f.TopLevel) <= rtreeThreshold {
		return
	}
	tree := rtreego.NewTree(2, 2, 8)
	for _, idx := range f.TopLevel {
		sg := f.SubGrids[idx]
		rect, err := rtreego.NewRect(rtreego.Point{sg.East, sg.South}, []float64{sg.West - sg.East, sg.North - sg.South})
		if err != nil {
			continue
		}
		tree.Insert(&rootEntry{idx: idx, rect: rect})
	}
	f.rootTree = tree
}

// rootCandidates returns the top-level sub-grid indices that might
// contain (lon, lat): the full list for small grid files, or an
// R-tree-shortlisted subset for files with many top-level regions. The
// shortlist only narrows which sub-grids get the exact containment
// check in Find; it never changes which one wins.
func (f *File) rootCandidates(lon, lat float64) []int {
	if len(f.TopLevel) <= rtreeThreshold {
		return f.TopLevel
	}
	f.ensureRootIndex()
	const eps = 1e-9
	rect, err := rtreego.NewRect(rtreego.Point{lon - eps, lat - eps}, []float64{2 * eps, 2 * eps})
	if err != nil {
		return f.TopLevel
	}
	hits := f.rootTree.SearchIntersect(rect)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*rootEntry).idx)
	}
	// TopLevel is in ascending index order; restore that (file) order so
	// the first-wins tie-breaks in Find see the same sequence.
	sort.Ints(out)
	return out
}

func readRecord(r io.ReaderAt, idx int) (label string, value [8]byte, err error) {
	var buf [recordSize]byte
	if _, err = r.ReadAt(buf[:], int64(idx)*recordSize); err != nil {
		return "", value, err
	}
	label = string(buf[0:8])
	copy(value[:], buf[8:16])
	return label, value, nil
}

func valueInt(v [8]byte) int {
	n, _ := iobuf.NewReader(v[0:4], binary.LittleEndian).Int32()
	return int(n)
}

func valueDouble(v [8]byte) float64 {
	f, _ := iobuf.NewReader(v[:], binary.LittleEndian).Float64()
	return f
}

func valueString(v [8]byte) string {
	return trimName(string(v[:]))
}

// readBlock reads n consecutive label/value records starting at *idx
// (which is advanced past them) into a label-keyed map.
func readBlock(r io.ReaderAt, idx *int, n int) (map[string][8]byte, error) {
	block := make(map[string][8]byte, n)
	for i := 0; i < n; i++ {
		label, val, err := readRecord(r, *idx)
		if err != nil {
			return nil, errors.Wrapf(err, "ntv2: reading header record %d", *idx)
		}
		block[label] = val
		*idx++
	}
	return block, nil
}

// Open parses the NTv2 grid file at path. If expectFromDatum/expectToDatum
// are non-empty they are compared case-sensitively against the file's
// SYSTEM_F/SYSTEM_T fields and a mismatch is rejected.
func Open(path string, expectFromDatum, expectToDatum string) (*File, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ntv2: open %s", path)
	}

	f := &File{reader: ra, closer: ra, path: path}
	if err := f.parse(expectFromDatum, expectToDatum); err != nil {
		ra.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) parse(expectFromDatum, expectToDatum string) error {
	idx := 0
	label, val, err := readRecord(f.reader, idx)
	if err != nil {
		return errors.Wrap(err, "ntv2: reading overview header")
	}
	if label != "NUM_OREC" {
		return fmt.Errorf("ntv2: %s: expected NUM_OREC as first record, got %q", f.path, label)
	}
	norecs := valueInt(val)
	idx++

	overview, err := readBlock(f.reader, &idx, norecs-1)
	if err != nil {
		return err
	}
	overview["NUM_OREC"] = val

	nsrecsVal, ok := overview["NUM_SREC"]
	if !ok {
		return fmt.Errorf("ntv2: %s: missing NUM_SREC in overview", f.path)
	}
	nsrecs := valueInt(nsrecsVal)

	nfilesVal, ok := overview["NUM_FILE"]
	if !ok {
		return fmt.Errorf("ntv2: %s: missing NUM_FILE in overview", f.path)
	}
	nfiles := valueInt(nfilesVal)

	if sf, ok := overview["SYSTEM_F"]; ok {
		f.FromDatum = valueString(sf)
	}
	if st, ok := overview["SYSTEM_T"]; ok {
		f.ToDatum = valueString(st)
	}
	if expectFromDatum != "" && expectFromDatum != f.FromDatum {
		return fmt.Errorf("ntv2: %s: from-datum mismatch: file has %q, expected %q", f.path, f.FromDatum, expectFromDatum)
	}
	if expectToDatum != "" && expectToDatum != f.ToDatum {
		return fmt.Errorf("ntv2: %s: to-datum mismatch: file has %q, expected %q", f.path, f.ToDatum, expectToDatum)
	}

	f.SubGrids = make([]SubGrid, 0, nfiles)
	for i := 0; i < nfiles; i++ {
		hdr, err := readBlock(f.reader, &idx, nsrecs)
		if err != nil {
			return err
		}
		sg, err := subGridFromHeader(hdr)
		if err != nil {
			return fmt.Errorf("ntv2: %s: sub-grid %d: %w", f.path, i, err)
		}
		sg.AStart = idx
		idx += sg.GSCount

		f.SubGrids = append(f.SubGrids, sg)
	}

	byName := make(map[string]int, len(f.SubGrids))
	for i, sg := range f.SubGrids {
		byName[sg.Name] = i
	}
	for i := range f.SubGrids {
		if f.SubGrids[i].Parent == topLevelParent {
			f.TopLevel = append(f.TopLevel, i)
			continue
		}
		if parentIdx, ok := byName[f.SubGrids[i].Parent]; ok {
			f.SubGrids[parentIdx].Children = append(f.SubGrids[parentIdx].Children, i)
		}
	}
	if len(f.TopLevel) == 0 {
		return fmt.Errorf("ntv2: %s: no top-level sub-grid found", f.path)
	}
	return nil
}

func subGridFromHeader(hdr map[string][8]byte) (SubGrid, error) {
	var sg SubGrid
	need := func(key string) ([8]byte, error) {
		v, ok := hdr[key]
		if !ok {
			return v, fmt.Errorf("missing %s header record", key)
		}
		return v, nil
	}

	nameV, err := need("SUB_NAME")
	if err != nil {
		return sg, err
	}
	sg.Name = valueString(nameV)

	parentV, err := need("PARENT")
	if err != nil {
		return sg, err
	}
	sg.Parent = valueString(parentV)

	slat, err := need("S_LAT")
	if err != nil {
		return sg, err
	}
	nlat, err := need("N_LAT")
	if err != nil {
		return sg, err
	}
	elon, err := need("E_LONG")
	if err != nil {
		return sg, err
	}
	wlon, err := need("W_LONG")
	if err != nil {
		return sg, err
	}
	latInc, err := need("LAT_INC")
	if err != nil {
		return sg, err
	}
	lonInc, err := need("LONG_INC")
	if err != nil {
		return sg, err
	}
	gsCount, err := need("GS_COUNT")
	if err != nil {
		return sg, err
	}

	sg.South = valueDouble(slat)
	sg.North = valueDouble(nlat)
	sg.East = valueDouble(elon)
	sg.West = valueDouble(wlon)
	sg.DLat = valueDouble(latInc)
	sg.DLon = valueDouble(lonInc)
	sg.GSCount = valueInt(gsCount)

	const bias = 1e-10
	sg.NRows = int((sg.North-sg.South)/sg.DLat+bias) + 1
	sg.NCols = int((sg.West-sg.East)/sg.DLon+bias) + 1

	if sg.GSCount != sg.NRows*sg.NCols {
		return sg, fmt.Errorf("sub-grid %s: gscount %d does not match nrows*ncols (%d*%d)",
			sg.Name, sg.GSCount, sg.NRows, sg.NCols)
	}
	return sg, nil
}

// Close releases the grid file's underlying memory map.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// dataRecord returns the (dLat, dLon) shift in arc-seconds for the
// absolute record index idx, ignoring the trailing accuracy fields.
func (f *File) dataRecord(idx int) (dLat, dLon float64, err error) {
	var buf [recordSize]byte
	if _, err = f.reader.ReadAt(buf[:], int64(idx)*recordSize); err != nil {
		return 0, 0, err
	}
	r := iobuf.NewReader(buf[:], binary.LittleEndian)
	lat32, _ := r.Float32()
	lon32, _ := r.Float32()
	return float64(lat32), float64(lon32), nil
}
