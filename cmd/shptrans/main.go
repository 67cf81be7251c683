// Command shptrans reprojects a Shapefile dataset's geometry from one
// coordinate reference system to another.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/bdodson/shptrans"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// exitCodes maps each Kind to the distinct process exit code §6 requires.
var exitCodes = map[shptrans.Kind]int{
	shptrans.KindUsage:        1,
	shptrans.KindParameter:    2,
	shptrans.KindGridFile:     3,
	shptrans.KindOutputExists: 4,
	shptrans.KindCreate:       5,
	shptrans.KindMagic:        6,
	shptrans.KindInternal:     7,
	shptrans.KindIO:           8,
	shptrans.KindMemory:       9,
	shptrans.KindCancel:       10,
	shptrans.KindCalculation:  11,
}

func run(args []string) int {
	defer glog.Flush()

	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodes[shptrans.KindUsage]
	}

	sess := shptrans.NewSession(sessionOptions(cfg)...)

	srcRoute, err := shptrans.BuildRoute(cfg.from)
	if err != nil {
		return reportAndExit(err)
	}
	dstRoute, err := shptrans.BuildRoute(cfg.to)
	if err != nil {
		return reportAndExit(err)
	}

	sourceShift, err := shptrans.OpenGridShifters(srcRoute.Datum, datum83, locateGridFile)
	if err != nil {
		return reportAndExit(err)
	}
	defer sourceShift.Close()

	targetShift, err := shptrans.OpenGridShifters(dstRoute.Datum, datum83, locateGridFile)
	if err != nil {
		return reportAndExit(err)
	}
	defer targetShift.Close()

	sess.ApplyPrecision(srcRoute, sourceShift)
	sess.ApplyPrecision(dstRoute, targetShift)

	driver := &shptrans.Driver{
		Session: sess,
		Pipeline: &shptrans.Pipeline{
			Source: srcRoute, Target: dstRoute,
			SourceShift: sourceShift, TargetShift: targetShift,
		},
	}

	var stats shptrans.Stats
	if cfg.inPlace {
		stats, err = driver.RunInPlace(cfg.srcShp, cfg.srcShx)
	} else {
		stats, err = driver.RunToNewFiles(cfg.srcShp, cfg.srcShx, cfg.srcDbf, cfg.dstShp, cfg.dstShx, cfg.dstDbf)
	}
	if err != nil {
		return reportAndExit(err)
	}

	glog.Infof("shptrans: %d records transformed, %d failed", stats.RecordsProcessed, stats.RecordsFailed)
	return 0
}

// datum83 is the pivot every cross-datum route composes through; see
// the datum package's composition graph.
const datum83 = "nad83"

func sessionOptions(cfg *cliConfig) []shptrans.Option {
	var opts []shptrans.Option
	if cfg.highPrecision {
		opts = append(opts, shptrans.WithHighPrecision())
	}
	if cfg.verbose {
		opts = append(opts, shptrans.WithVerbose())
	}
	return opts
}

func reportAndExit(err error) int {
	var se *shptrans.Error
	if errors.As(err, &se) {
		glog.Errorf("shptrans: %v", se)
		return exitCodes[se.Kind]
	}
	var ce *shptrans.CancelError
	if errors.As(err, &ce) {
		glog.Errorf("shptrans: %v", ce)
		return exitCodes[shptrans.KindCancel]
	}
	glog.Errorf("shptrans: %v", err)
	return exitCodes[shptrans.KindInternal]
}

type cliConfig struct {
	srcShp, srcShx, srcDbf string
	dstShp, dstShx, dstDbf string
	inPlace                bool

	from, to shptrans.CRSSpec

	highPrecision bool
	verbose       bool
}

// parseArgs implements the flag surface of §6: source-path, target-path
// (or -inplace), per-side CRS/offset/scale, -highprecision, -verbose.
// Flags may appear anywhere on the command line, including after the
// positional path arguments, matching this codebase family's existing
// CLI tools.
func parseArgs(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("shptrans", flag.ContinueOnError)
	from := fs.String("from", "", "source CRS spec: projection,datum[,units]")
	to := fs.String("to", "", "target CRS spec: projection,datum[,units]")
	fromOffset := fs.String("from-offset", "", "source false offset override: x,y")
	toOffset := fs.String("to-offset", "", "target false offset override: x,y")
	fromScale := fs.Float64("from-scale", 0, "source scale factor override")
	toScale := fs.Float64("to-scale", 0, "target scale factor override")
	inPlace := fs.Bool("inplace", false, "rewrite the input files instead of creating new ones")
	highPrecision := fs.Bool("highprecision", false, "use tighter convergence tolerances")
	verbose := fs.Bool("verbose", false, "log per-record progress")

	// flag.Parse stops at the first non-flag argument, so parse again
	// after each positional argument to pick up flags that follow it.
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
	if *from == "" || *to == "" || len(positional) < 1 {
		return nil, fmt.Errorf("usage: shptrans -from=proj,datum[,units] -to=proj,datum[,units] [-inplace] source[.shp] [dest]")
	}

	fromSpec, err := shptrans.ParseCRSSpec(*from)
	if err != nil {
		return nil, err
	}
	toSpec, err := shptrans.ParseCRSSpec(*to)
	if err != nil {
		return nil, err
	}
	if err := applyOffset(&fromSpec, *fromOffset); err != nil {
		return nil, err
	}
	if err := applyOffset(&toSpec, *toOffset); err != nil {
		return nil, err
	}
	if *fromScale != 0 {
		fromSpec.HasScale = true
		fromSpec.Scale = *fromScale
	}
	if *toScale != 0 {
		toSpec.HasScale = true
		toSpec.Scale = *toScale
	}

	cfg := &cliConfig{
		from: fromSpec, to: toSpec,
		inPlace:       *inPlace || len(positional) < 2,
		highPrecision: *highPrecision,
		verbose:       *verbose,
	}

	srcBase := strings.TrimSuffix(positional[0], filepath.Ext(positional[0]))
	cfg.srcShp, cfg.srcShx, cfg.srcDbf = srcBase+".shp", srcBase+".shx", srcBase+".dbf"

	if cfg.inPlace {
		cfg.dstShp, cfg.dstShx, cfg.dstDbf = cfg.srcShp, cfg.srcShx, cfg.srcDbf
	} else {
		dstBase := strings.TrimSuffix(positional[1], filepath.Ext(positional[1]))
		cfg.dstShp, cfg.dstShx, cfg.dstDbf = dstBase+".shp", dstBase+".shx", dstBase+".dbf"
	}
	return cfg, nil
}

func applyOffset(spec *shptrans.CRSSpec, s string) error {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("malformed offset %q, want x,y", s)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return fmt.Errorf("malformed offset %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Errorf("malformed offset %q: %w", s, err)
	}
	spec.HasOffset = true
	spec.OffsetX, spec.OffsetY = x, y
	return nil
}

// locateGridFile resolves a grid-shift file via its named environment
// variable, falling back to the running binary's own directory.
func locateGridFile(envVar string) (string, error) {
	if path := os.Getenv(envVar); path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		} else if err == nil && info.IsDir() {
			return filepath.Join(path, defaultGridFileName(envVar)), nil
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating %s: %w", envVar, err)
	}
	return filepath.Join(filepath.Dir(exe), defaultGridFileName(envVar)), nil
}

func defaultGridFileName(envVar string) string {
	switch envVar {
	case "GRIDSHIFT_NTV2":
		return "ntv2_0.gsb"
	case "GRIDSHIFT_7783":
		return "ats77.gsb"
	default:
		return envVar + ".gsb"
	}
}
