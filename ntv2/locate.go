package ntv2

import "fmt"

// NoHint is passed to Find when there is no previous winning sub-grid.
const NoHint = -1

// Find locates the deepest wholly-containing sub-grid for (lon, lat),
// given in arc-seconds with the NTv2 sign convention (longitude positive
// west). hint is the index of the sub-grid that won the previous call,
// or NoHint. limflag reports which boundary of the winning sub-grid the
// point touched: bit0 set means the point lies on the north edge, bit1
// set means it lies on the upper longitude bound (the West field, see
// SubGrid); 0 means strictly interior.
func (f *File) Find(lon, lat float64, hint int) (idx int, limflag int, err error) {
	if len(f.SubGrids) == 1 {
		ok, lf := f.SubGrids[0].closedContains(lon, lat)
		if !ok {
			return 0, 0, fmt.Errorf("ntv2: point (%g,%g) lies outside the only sub-grid", lon, lat)
		}
		return 0, lf, nil
	}

	if hint >= 0 && hint < len(f.SubGrids) && f.SubGrids[hint].halfOpenContains(lon, lat) {
		return f.descendHalfOpen(hint, lon, lat), 0, nil
	}

	for _, root := range f.rootCandidates(lon, lat) {
		if f.SubGrids[root].halfOpenContains(lon, lat) {
			return f.descendHalfOpen(root, lon, lat), 0, nil
		}
	}

	best, bestLim, found := bestClosedMatch(f, f.rootCandidates(lon, lat), lon, lat)
	if !found {
		return 0, 0, fmt.Errorf("ntv2: point (%g,%g) lies outside every sub-grid", lon, lat)
	}
	idx, limflag = f.descendClosed(best, bestLim, lon, lat)
	return idx, limflag, nil
}

// descendHalfOpen walks from start into the first child (in file order)
// whose half-open rectangle contains the point, repeating until no
// child matches; the final sub-grid is the deepest wholly-containing one.
func (f *File) descendHalfOpen(start int, lon, lat float64) int {
	current := start
	for {
		next := -1
		for _, child := range f.SubGrids[current].Children {
			if f.SubGrids[child].halfOpenContains(lon, lat) {
				next = child
				break
			}
		}
		if next < 0 {
			return current
		}
		current = next
	}
}

// bestClosedMatch scans candidates for closed-rectangle containment and
// returns the one with the smallest limflag, first one wins on a tie
// (candidates are scanned in file order, matching how they were
// enumerated when the sub-grid tree was built).
func bestClosedMatch(f *File, candidates []int, lon, lat float64) (idx, limflag int, found bool) {
	best := -1
	bestLim := 4 // worse than any real limflag value (0..3)
	for _, c := range candidates {
		if ok, lf := f.SubGrids[c].closedContains(lon, lat); ok && lf < bestLim {
			best, bestLim = c, lf
		}
	}
	return best, bestLim, best >= 0
}

// descendClosed continues the closed-rectangle fallback into current's
// children only while a child matches with the *same* limflag as
// current: once a deeper match's limflag differs (or no child matches
// at all), the search stops at current rather than hunting further —
// this is the boundary-resolution rule that stops at the first
// wholly-containing match instead of continuing past it.
func (f *File) descendClosed(current, currentLim int, lon, lat float64) (int, int) {
	childBest, childLim, found := bestClosedMatch(f, f.SubGrids[current].Children, lon, lat)
	if !found || childLim != currentLim {
		return current, currentLim
	}
	return f.descendClosed(childBest, childLim, lon, lat)
}
