// Package imaging converts downloaded thumbnails to the canonical JPEG.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"

	"github.com/almensu/yanghooAI/internal/fileutil"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// JPEGConverter decodes webp, png, gif or jpeg input and writes JPEG.
type JPEGConverter struct {
	Quality int
}

// ConvertToJPEG flattens transparency onto white and writes dstPath.
func (c JPEGConverter) ConvertToJPEG(ctx context.Context, srcPath, dstPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode thumbnail %s: %w", srcPath, err)
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode %s thumbnail as jpeg: %w", format, err)
	}
	return fileutil.WriteFileAtomic(dstPath, buf.Bytes())
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.White, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
