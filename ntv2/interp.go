package ntv2

// rowColBias nudges the row/column fraction toward the lower integer so
// that floating-point error at an exact grid line doesn't push the
// index into the next cell.
const rowColBias = 1e-12

// Eval locates the sub-grid covering (lon, lat) and bilinearly
// interpolates the latitude/longitude shift there, in arc-seconds. hint
// is passed through to Find. The returned sub-grid index becomes the
// caller's next hint.
func (f *File) Eval(lon, lat float64, hint int) (sgIdx int, diflat, diflon float64, err error) {
	sgIdx, limflag, err := f.Find(lon, lat, hint)
	if err != nil {
		return 0, 0, 0, err
	}
	sg := &f.SubGrids[sgIdx]

	// Column index counts up from the grid's lower longitude bound,
	// which is the East field in this file's positive-west convention
	// (see SubGrid's doc comment).
	rowIdx := (lat-sg.South)/sg.DLat + rowColBias
	colIdx := (lon-sg.East)/sg.DLon + rowColBias

	row := int(rowIdx)
	col := int(colIdx)
	rowFrac := rowIdx - float64(row)
	colFrac := colIdx - float64(col)

	// A point on the north edge or the grid's upper longitude bound
	// (limflag bit1, the West field) has no further neighbour in that
	// direction; collapse the fraction to zero and pin the index to
	// the last row/column so the corner lookup below never reads past
	// the sub-grid's data.
	if limflag&1 != 0 {
		row = sg.NRows - 1
		rowFrac = 0
	}
	if limflag&2 != 0 {
		col = sg.NCols - 1
		colFrac = 0
	}

	sw := sg.AStart + row*sg.NCols + col
	swLat, swLon, err := f.dataRecord(sw)
	if err != nil {
		return 0, 0, 0, err
	}

	seLat, seLon := swLat, swLon
	if colFrac != 0 {
		if seLat, seLon, err = f.dataRecord(sw + 1); err != nil {
			return 0, 0, 0, err
		}
	}

	bottomLat := swLat + (seLat-swLat)*colFrac
	bottomLon := swLon + (seLon-swLon)*colFrac

	if rowFrac == 0 {
		return sgIdx, bottomLat, bottomLon, nil
	}

	nw := sw + sg.NCols
	nwLat, nwLon, err := f.dataRecord(nw)
	if err != nil {
		return 0, 0, 0, err
	}
	neLat, neLon := nwLat, nwLon
	if colFrac != 0 {
		if neLat, neLon, err = f.dataRecord(nw + 1); err != nil {
			return 0, 0, 0, err
		}
	}

	topLat := nwLat + (neLat-nwLat)*colFrac
	topLon := nwLon + (neLon-nwLon)*colFrac

	diflat = bottomLat + (topLat-bottomLat)*rowFrac
	diflon = bottomLon + (topLon-bottomLon)*rowFrac
	return sgIdx, diflat, diflon, nil
}
