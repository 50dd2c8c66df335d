package attach

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"dataassist/internal/logging"
)

// jpeg quality steps tried before resorting to downscaling.
var qualitySteps = []int{85, 60, 40}

// maxHalvings bounds how many times the image dimensions are halved.
const maxHalvings = 3

// ShrinkImage re-encodes an image until it fits maxBytes. It tries
// decreasing jpeg quality first, then halves the dimensions and starts
// over, up to three times. Returns the encoded bytes and the media type
// of the result, which is always image/jpeg after a shrink.
func ShrinkImage(data []byte, maxBytes int) ([]byte, string, error) {
	if len(data) <= maxBytes {
		if mt := sniffMediaType(data); mt != "" {
			return data, mt, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	for halvings := 0; halvings <= maxHalvings; halvings++ {
		for _, q := range qualitySteps {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
				return nil, "", fmt.Errorf("failed to encode image: %w", err)
			}
			if buf.Len() <= maxBytes {
				logging.AttachDebug("shrunk image: %d -> %d bytes (quality=%d halvings=%d)",
					len(data), buf.Len(), q, halvings)
				return buf.Bytes(), "image/jpeg", nil
			}
		}
		if halvings == maxHalvings {
			break
		}
		img = halve(img)
	}

	return nil, "", fmt.Errorf("image does not fit %d bytes after %d halvings", maxBytes, maxHalvings)
}

// halve produces a nearest-neighbor half-size copy.
func halve(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()/2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(b.Min.X+x*2, b.Min.Y+y*2))
		}
	}
	return dst
}

// sniffMediaType recognizes the image formats the backends accept.
func sniffMediaType(data []byte) string {
	switch {
	case len(data) > 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) > 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return "image/png"
	case len(data) > 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "image/gif"
	case len(data) > 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return ""
}
