package imaging

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestConvertToJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "thumbnail.png")
	dst := filepath.Join(dir, "thumbnail.jpg")
	writePNG(t, src, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	require.NoError(t, JPEGConverter{}.ConvertToJPEG(context.Background(), src, dst))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()

	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 9, img.Bounds().Dy())

	r, g, _, _ := img.At(8, 4).RGBA()
	assert.Greater(t, r>>8, uint32(150))
	assert.Less(t, g>>8, uint32(60))
}

func TestConvertToJPEG_TransparentBecomesWhite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "thumbnail.png")
	dst := filepath.Join(dir, "thumbnail.jpg")
	writePNG(t, src, color.NRGBA{})

	require.NoError(t, JPEGConverter{Quality: 75}.ConvertToJPEG(context.Background(), src, dst))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestConvertToJPEG_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "thumbnail.webp")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	err := JPEGConverter{}.ConvertToJPEG(context.Background(), garbage, filepath.Join(dir, "thumbnail.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode thumbnail")
	assert.NoFileExists(t, filepath.Join(dir, "thumbnail.jpg"))

	err = JPEGConverter{}.ConvertToJPEG(context.Background(), filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, JPEGConverter{}.ConvertToJPEG(ctx, garbage, filepath.Join(dir, "out.jpg")), context.Canceled)
}
