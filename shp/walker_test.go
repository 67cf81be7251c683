package shp_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdodson/shptrans/shp"
)

// writeSinglePointShapefile builds a minimal valid .shp/.shx pair holding
// one Point record at (x, y).
func writeSinglePointShapefile(t *testing.T, dir string, x, y float64) (shpPath, shxPath string) {
	t.Helper()

	const contentWords = 10 // shapeType(4) + X(8) + Y(8) = 20 bytes = 10 words
	const shpFileBytes = shp.HeaderSize + 8 + 20
	const shxFileBytes = shp.HeaderSize + 8

	shpHdr := shp.NewHeader(shp.Point)
	shpHdr.SetFileLengthWords(int32(shpFileBytes / 2))
	shpHdr.SetBBox(x, y, x, y)

	shxHdr := shp.NewHeader(shp.Point)
	shxHdr.SetFileLengthWords(int32(shxFileBytes / 2))
	shxHdr.SetBBox(x, y, x, y)

	shpPath = filepath.Join(dir, "one.shp")
	shxPath = filepath.Join(dir, "one.shx")

	shpFile, err := os.Create(shpPath)
	require.NoError(t, err)
	defer shpFile.Close()

	require.NoError(t, shpHdr.WriteTo(shpFile, 0))

	var recHeader [8]byte
	binary.BigEndian.PutUint32(recHeader[0:4], 1)
	binary.BigEndian.PutUint32(recHeader[4:8], contentWords)
	_, err = shpFile.WriteAt(recHeader[:], shp.HeaderSize)
	require.NoError(t, err)

	var payload [20]byte
	binary.LittleEndian.PutUint32(payload[0:4], uint32(shp.Point))
	binary.LittleEndian.PutUint64(payload[4:12], math.Float64bits(x))
	binary.LittleEndian.PutUint64(payload[12:20], math.Float64bits(y))
	_, err = shpFile.WriteAt(payload[:], shp.HeaderSize+8)
	require.NoError(t, err)

	shxFile, err := os.Create(shxPath)
	require.NoError(t, err)
	defer shxFile.Close()

	require.NoError(t, shxHdr.WriteTo(shxFile, 0))
	require.NoError(t, shp.WriteIndexRecord(shxFile, 0, shp.IndexRecord{
		OffsetWords: shp.HeaderSize / 2,
		LengthWords: contentWords,
	}))

	return shpPath, shxPath
}

func TestWalkerEachTransformsAndFinishUpdatesBBox(t *testing.T) {
	dir := t.TempDir()
	shpPath, shxPath := writeSinglePointShapefile(t, dir, -75.0, 45.0)

	walker, closeFn, err := shp.OpenInPlace(shpPath, shxPath)
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, 1, walker.RecordCount())
	assert.Equal(t, int32(shp.Point), walker.ShapeType())

	var sawType int32
	err = walker.Each(func(shapeType int32, vertices []float64) error {
		sawType = shapeType
		vertices[0] += 1.0
		vertices[1] += 1.0
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(shp.Point), sawType)

	require.NoError(t, walker.Finish())
	require.NoError(t, closeFn())

	shpFile, err := os.Open(shpPath)
	require.NoError(t, err)
	defer shpFile.Close()

	hdr, err := shp.ReadHeader(shpFile, 0)
	require.NoError(t, err)
	xmin, ymin, xmax, ymax := hdr.BBox()
	assert.Equal(t, -74.0, xmin)
	assert.Equal(t, 46.0, ymin)
	assert.Equal(t, -74.0, xmax)
	assert.Equal(t, 46.0, ymax)

	var payload [20]byte
	_, err = shpFile.ReadAt(payload[:], shp.HeaderSize+8)
	require.NoError(t, err)
	gotX := math.Float64frombits(binary.LittleEndian.Uint64(payload[4:12]))
	gotY := math.Float64frombits(binary.LittleEndian.Uint64(payload[12:20]))
	assert.Equal(t, -74.0, gotX)
	assert.Equal(t, 46.0, gotY)
}

func TestOpenCopyLeavesSourceUntouched(t *testing.T) {
	dir := t.TempDir()
	srcShp, srcShx := writeSinglePointShapefile(t, dir, -75.0, 45.0)
	dstShp := filepath.Join(dir, "copy.shp")
	dstShx := filepath.Join(dir, "copy.shx")

	walker, closeFn, err := shp.OpenCopy(srcShp, srcShx, dstShp, dstShx)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, walker.Each(func(shapeType int32, vertices []float64) error {
		vertices[0] = 0
		vertices[1] = 0
		return nil
	}))
	require.NoError(t, walker.Finish())
	require.NoError(t, closeFn())

	srcFile, err := os.Open(srcShp)
	require.NoError(t, err)
	defer srcFile.Close()
	var payload [20]byte
	_, err = srcFile.ReadAt(payload[:], shp.HeaderSize+8)
	require.NoError(t, err)
	gotX := math.Float64frombits(binary.LittleEndian.Uint64(payload[4:12]))
	assert.Equal(t, -75.0, gotX)
}

func TestOpenCopyRejectsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	srcShp, srcShx := writeSinglePointShapefile(t, dir, -75.0, 45.0)
	dstShp := filepath.Join(dir, "copy.shp")
	dstShx := filepath.Join(dir, "copy.shx")

	require.NoError(t, os.WriteFile(dstShp, []byte("existing"), 0644))

	_, _, err := shp.OpenCopy(srcShp, srcShx, dstShp, dstShx)
	assert.Error(t, err)
}
