package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Thumbnail geometry and encoding.
const (
	ThumbnailSize    = 64
	ThumbnailQuality = 60
)

// Thumbnail renders a cover-fit, centered square JPEG thumbnail of
// data as a data: URL. Undecodable input yields "".
func Thumbnail(data []byte) string {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}

	size := float64(ThumbnailSize)
	ratio := max(size/float64(b.Dx()), size/float64(b.Dy()))
	w := int(float64(b.Dx())*ratio + 0.5)
	h := int(float64(b.Dy())*ratio + 0.5)
	offX := (ThumbnailSize - w) / 2
	offY := (ThumbnailSize - h) / 2

	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailSize, ThumbnailSize))
	draw.ApproxBiLinear.Scale(dst, image.Rect(offX, offY, offX+w, offY+h), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return ""
	}
	return EncodeDataURL(buf.Bytes(), "image/jpeg")
}
