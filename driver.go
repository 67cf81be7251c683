package shptrans

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/bdodson/shptrans/internal/workpool"
	"github.com/bdodson/shptrans/shp"
)

// Pipeline holds the configured source/target projections and the
// datum-shift chains needed to go from the source spheroid to the
// target spheroid by way of each side's grid-shift pivot.
type Pipeline struct {
	Source, Target *Route

	// SourceShift moves source-datum coordinates forward to the pivot
	// datum; TargetShift moves pivot-datum coordinates backward from the
	// target datum (applied in reverse), mirroring component I's "source
	// grid-shifter forward, target grid-shifter reverse" contract.
	SourceShift, TargetShift *GridShifterSet
}

// transformRecord runs one record's vertex array through the four-step
// pipeline: inverse-project, forward datum shift, reverse datum shift,
// forward-project. Steps 1/4 failures are reported as calculation
// errors; steps 2/3 as grid errors.
func (p *Pipeline) transformRecord(vertices []float64) error {
	// The Null kernel (the "geo" projection) is always a concrete,
	// always-present object whose transforms are identities, so there is
	// no separate "projection is absent" case to special-case here.
	if err := p.Source.Projection.ToLatLong(vertices); err != nil {
		return newError(KindCalculation, err, "inverse-projecting record")
	}
	if p.SourceShift != nil {
		misses, err := p.SourceShift.Forward(vertices)
		if err != nil {
			return newError(KindGridFile, err, "applying source datum shift")
		}
		if len(misses) > 0 {
			return newError(KindGridFile, nil, "applying source datum shift: %d point(s) outside every sub-grid", len(misses))
		}
	}
	if p.TargetShift != nil {
		if err := p.TargetShift.Reverse(vertices); err != nil {
			return newError(KindGridFile, err, "applying target datum shift")
		}
	}
	if err := p.Target.Projection.FromLatLong(vertices); err != nil {
		return newError(KindCalculation, err, "forward-projecting record")
	}
	return nil
}

// Stats summarizes one Driver.Run call.
type Stats struct {
	RecordsProcessed int
	RecordsFailed    int
}

// Driver orchestrates one dataset's transform: the shape/index walk,
// the per-record pipeline, and the concurrent attribute-file copy.
type Driver struct {
	Session  *Session
	Pipeline *Pipeline
}

// RunInPlace transforms shpPath/shxPath in memory-mapped-equivalent
// place; the attribute side-file is untouched since it isn't moved.
func (d *Driver) RunInPlace(shpPath, shxPath string) (Stats, error) {
	walker, closeFn, err := shp.OpenInPlace(shpPath, shxPath)
	if err != nil {
		return Stats{}, newError(KindIO, err, "opening %s/%s in place", shpPath, shxPath)
	}
	defer closeFn()

	stats, err := d.walk(walker)
	if err != nil {
		// Partial in-place modification is possible; §7 requires this be
		// surfaced rather than silently swallowed.
		if stats.RecordsProcessed > 0 {
			d.Session.logger.Warningf("shptrans: %s may be corrupt: %d of %d records were rewritten before the error", shpPath, stats.RecordsProcessed, walker.RecordCount())
		}
		return stats, err
	}
	if err := walker.Finish(); err != nil {
		return stats, newError(KindIO, err, "writing final headers for %s/%s", shpPath, shxPath)
	}
	return stats, nil
}

// RunToNewFiles transforms a copy of srcShpPath/srcShxPath written to
// dstShpPath/dstShxPath, and copies dstDbfPath from srcDbfPath
// concurrently with the geometry transform. On any non-success exit,
// the partial destination files are removed.
func (d *Driver) RunToNewFiles(srcShpPath, srcShxPath, srcDbfPath, dstShpPath, dstShxPath, dstDbfPath string) (Stats, error) {
	for _, p := range []string{dstShpPath, dstShxPath, dstDbfPath} {
		if _, err := os.Stat(p); err == nil {
			return Stats{}, newError(KindOutputExists, nil, "%s already exists", p)
		}
	}

	copyTask := workpool.Start(d.sessionCtx(), func(ctx context.Context) error {
		return copyDBF(ctx, srcDbfPath, dstDbfPath)
	})

	walker, closeFn, err := shp.OpenCopy(srcShpPath, srcShxPath, dstShpPath, dstShxPath)
	if err != nil {
		copyTask.Cancel()
		copyTask.Wait()
		removeAll(d.Session.logger, dstShpPath, dstShxPath, dstDbfPath)
		return Stats{}, newError(KindCreate, err, "creating %s/%s", dstShpPath, dstShxPath)
	}

	stats, walkErr := d.walk(walker)
	closeErr := closeFn()

	if d.Session.Cancelled() {
		copyTask.Cancel()
	}
	copyErr := copyTask.Wait()

	if walkErr != nil || closeErr != nil {
		removeAll(d.Session.logger, dstShpPath, dstShxPath, dstDbfPath)
		if walkErr != nil {
			return stats, walkErr
		}
		return stats, newError(KindIO, closeErr, "closing %s/%s", dstShpPath, dstShxPath)
	}
	if copyErr != nil {
		removeAll(d.Session.logger, dstShpPath, dstShxPath, dstDbfPath)
		return stats, newError(KindIO, copyErr, "copying attribute file %s", dstDbfPath)
	}

	if err := walker.Finish(); err != nil {
		removeAll(d.Session.logger, dstShpPath, dstShxPath, dstDbfPath)
		return stats, newError(KindIO, err, "writing final headers for %s/%s", dstShpPath, dstShxPath)
	}
	return stats, nil
}

func (d *Driver) sessionCtx() context.Context {
	if d.Session != nil && d.Session.ctx != nil {
		return d.Session.ctx
	}
	return context.Background()
}

// walk drives the shape-record loop, checking for cancellation between
// records per §5.
func (d *Driver) walk(walker *shp.Walker) (Stats, error) {
	var stats Stats
	recordIndex := 0

	err := walker.Each(func(shapeType int32, vertices []float64) error {
		if d.Session.Cancelled() {
			return &CancelError{PartiallyWritten: recordIndex > 0}
		}
		recordIndex++

		if perr := d.Pipeline.transformRecord(vertices); perr != nil {
			stats.RecordsFailed++
			if d.Session.Verbose() {
				d.Session.logger.Warningf("shptrans: record %d: %v", recordIndex-1, perr)
			}
			return nil // per-vertex calculation failures don't abort the batch
		}
		stats.RecordsProcessed++
		if d.Session.Verbose() {
			d.Session.logger.Infof("shptrans: record %d transformed", recordIndex-1)
		}
		return nil
	})
	return stats, err
}

func removeAll(logger Logger, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && logger != nil {
			logger.Warningf("shptrans: failed to remove partial output %s: %v", p, err)
		}
	}
}

func copyDBF(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	const chunkSize = 1 << 20
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}
