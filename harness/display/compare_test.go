package display

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlantern/camtest/harness/definitions"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDiffRMSIdentical(t *testing.T) {
	a := solidFrame(32, 24, color.RGBA{10, 20, 30, 255})
	b := solidFrame(32, 24, color.RGBA{10, 20, 30, 255})
	assert.Equal(t, 0.0, diffRMS(a, b))
}

func TestDiffRMSKnownDifference(t *testing.T) {
	a := solidFrame(8, 8, color.RGBA{0, 0, 0, 255})
	b := solidFrame(8, 8, color.RGBA{3, 4, 0, 255})
	// per pixel: (9 + 16 + 0) / 3 ≈ 8.33, same everywhere
	assert.InDelta(t, math.Sqrt(25.0/3.0), diffRMS(a, b), 1e-9)
}

func TestDiffRMSSizeMismatch(t *testing.T) {
	a := solidFrame(8, 8, color.RGBA{})
	b := solidFrame(8, 9, color.RGBA{})
	assert.True(t, math.IsInf(diffRMS(a, b), 1))
}

func TestScaleChannel(t *testing.T) {
	assert.Equal(t, uint8(200), scaleChannel(200, 255))
	assert.Equal(t, uint8(255), scaleChannel(31, 31))
	assert.Equal(t, uint8(0), scaleChannel(0, 31))
	// 16 of 31 ≈ half scale
	assert.InDelta(t, 128, int(scaleChannel(16, 31)), 4)
}

func TestPNGRoundTrip(t *testing.T) {
	frame := solidFrame(16, 12, color.RGBA{80, 90, 100, 255})
	path := filepath.Join(t.TempDir(), "frame.png")

	require.NoError(t, writePNG(path, frame))
	loaded, err := readPNG(path)
	require.NoError(t, err)

	assert.Equal(t, 0.0, diffRMS(frame, loaded))
}

func TestCompareReferenceMissing(t *testing.T) {
	c := &Client{
		opts:  Options{OutputDir: t.TempDir()},
		frame: solidFrame(8, 8, color.RGBA{}),
	}
	outcome, err := c.Compare(filepath.Join(t.TempDir(), "nope.png"), 0.0)
	require.NoError(t, err)
	assert.Equal(t, definitions.OutcomeReferenceMissing, outcome.Kind)
}

func TestCompareMatchAndMismatch(t *testing.T) {
	dir := t.TempDir()
	ref := solidFrame(8, 8, color.RGBA{1, 2, 3, 255})
	refPath := filepath.Join(dir, "ref.png")
	require.NoError(t, writePNG(refPath, ref))

	c := &Client{
		opts:  Options{OutputDir: dir},
		frame: solidFrame(8, 8, color.RGBA{1, 2, 3, 255}),
	}
	outcome, err := c.Compare(refPath, 0.0)
	require.NoError(t, err)
	assert.Equal(t, definitions.OutcomeMatch, outcome.Kind)
	assert.Equal(t, 0.0, outcome.RMS)

	c.frame = solidFrame(8, 8, color.RGBA{200, 2, 3, 255})
	outcome, err = c.Compare(refPath, 0.0)
	require.NoError(t, err)
	assert.Equal(t, definitions.OutcomeMismatch, outcome.Kind)
	assert.Greater(t, outcome.RMS, 0.0)
}

func TestCompareToReferenceTimeoutWritesDiagnostic(t *testing.T) {
	dir := t.TempDir()
	ref := solidFrame(8, 8, color.RGBA{255, 255, 255, 255})
	refPath := filepath.Join(dir, "menu_test_00.png")
	require.NoError(t, writePNG(refPath, ref))

	// an already expired deadline makes the comparison give up on the
	// first pass, before any update request goes out
	c := &Client{
		opts: Options{
			OutputDir:      dir,
			CompareTimeout: -time.Second,
		},
		frame:    solidFrame(8, 8, color.RGBA{0, 0, 0, 255}),
		lastName: "menu_test_00.png",
	}

	outcome, err := c.CompareToReference(refPath, 0.0)
	require.NoError(t, err)
	assert.Equal(t, definitions.OutcomeTimedOut, outcome.Kind)

	wantDiag := filepath.Join(dir, "fail_menu_test_00.png")
	assert.Equal(t, wantDiag, outcome.DiagnosticPath)
	assert.FileExists(t, wantDiag)
}

func TestCompareToReferenceImmediateMatch(t *testing.T) {
	dir := t.TempDir()
	frame := solidFrame(8, 8, color.RGBA{9, 9, 9, 255})
	refPath := filepath.Join(dir, "menu_test_01.png")
	require.NoError(t, writePNG(refPath, frame))

	c := &Client{
		opts:     Options{OutputDir: dir, CompareTimeout: time.Second},
		frame:    frame,
		lastName: "menu_test_01.png",
	}

	outcome, err := c.CompareToReference(refPath, 0.0)
	require.NoError(t, err)
	assert.Equal(t, definitions.OutcomeMatch, outcome.Kind)
}
