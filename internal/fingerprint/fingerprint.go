package fingerprint

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrHashWidthMismatch is returned when two fingerprints of different bit
// widths are compared. Distances between them are undefined.
var ErrHashWidthMismatch = errors.New("fingerprint width mismatch")

// Compute decodes the image at path and returns its difference hash of
// hashSize² bits. When preprocess is set, contrast ×1.15 and brightness ×1.05
// are applied first. Identical bytes and parameters always yield the same hash.
func Compute(path string, hashSize int, preprocess bool) (*goimagehash.ExtImageHash, error) {
	if err := checkHashSize(hashSize); err != nil {
		return nil, err
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return ComputeImage(img, hashSize, preprocess)
}

// ComputeImage hashes an already decoded image.
func ComputeImage(img image.Image, hashSize int, preprocess bool) (hash *goimagehash.ExtImageHash, err error) {
	if err := checkHashSize(hashSize); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}

	// Decoders and the resampler may panic on malformed input; treat it as unreadable.
	defer func() {
		if r := recover(); r != nil {
			hash, err = nil, fmt.Errorf("hashing panicked: %v", r)
		}
	}()

	hash, err = goimagehash.ExtDifferenceHash(normalize(img, preprocess), hashSize, hashSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dhash: %w", err)
	}
	return hash, nil
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b *goimagehash.ExtImageHash) (int, error) {
	if a.Bits() != b.Bits() {
		return 0, fmt.Errorf("%w: %d != %d bits", ErrHashWidthMismatch, a.Bits(), b.Bits())
	}
	return a.Distance(b)
}

func checkHashSize(hashSize int) error {
	if hashSize <= 0 || hashSize%constants.HashSizeMultiple != 0 {
		return fmt.Errorf("hash size must be a positive multiple of %d, got %d", constants.HashSizeMultiple, hashSize)
	}
	return nil
}

// normalize converts any decoded image into opaque, non-premultiplied RGB and
// optionally applies the fixed contrast and brightness enhancement.
func normalize(img image.Image, preprocess bool) *image.NRGBA {
	src := imaging.Clone(img)
	if !preprocess {
		return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
			c.A = 255
			return c
		})
	}

	mean := meanLuminance(src)
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: enhance(c.R, mean),
			G: enhance(c.G, mean),
			B: enhance(c.B, mean),
			A: 255,
		}
	})
}

// enhance applies contrast around the image mean, clips, then scales brightness.
func enhance(v uint8, mean float64) uint8 {
	contrasted := clamp(mean + constants.ContrastFactor*(float64(v)-mean))
	return uint8(clamp(contrasted * constants.BrightnessFactor))
}

func clamp(v float64) float64 {
	return math.Min(255, math.Max(0, math.Round(v)))
}

// meanLuminance returns the rounded mean ITU-R BT.601 luma of the image.
func meanLuminance(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var sum int64
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			r, g, b := int64(row[x*4]), int64(row[x*4+1]), int64(row[x*4+2])
			sum += (r*299 + g*587 + b*114) / 1000
		}
	}
	return math.Floor(float64(sum)/float64(width*height) + 0.5)
}
