package colormap

import (
	"image"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/local/paintscheme/internal/cluster"
	"github.com/local/paintscheme/internal/pipeline"
)

// Range maps an intensity interval [Low,High] to a display color.
type Range struct {
	Hex  string
	RGB  color.RGBA
	Low  int
	High int
}

// entryRe matches one wire-format entry: #RRGGBB(low-high).
var entryRe = regexp.MustCompile(`^(#[0-9A-Fa-f]{6})\s*\(\s*(\d+)\s*-\s*(\d+)\s*\)$`)

// ParseSpec parses the comma-separated wire format "#RRGGBB(low-high),...".
// Any malformed entry fails the whole parse with InvalidColorSpec naming
// the offending entry; there is no partial application.
func ParseSpec(s string) ([]Range, error) {
	if strings.TrimSpace(s) == "" {
		return nil, pipeline.New(pipeline.KindInvalidColorSpec, "colors", "color range spec is empty")
	}
	var ranges []Range
	for i, raw := range strings.Split(s, ",") {
		entry := strings.TrimSpace(raw)
		m := entryRe.FindStringSubmatch(entry)
		if m == nil {
			return nil, pipeline.New(pipeline.KindInvalidColorSpec, "colors",
				"entry %d (%q) is not of the form #RRGGBB(low-high)", i+1, entry)
		}
		c, err := colorful.Hex(strings.ToLower(m[1]))
		if err != nil {
			return nil, pipeline.Wrap(pipeline.KindInvalidColorSpec, "colors", err,
				"entry %d (%q) has an invalid hex color", i+1, entry)
		}
		low, _ := strconv.Atoi(m[2])
		high, _ := strconv.Atoi(m[3])
		if low > high || high > 255 {
			return nil, pipeline.New(pipeline.KindInvalidColorSpec, "colors",
				"entry %d (%q) has bounds outside 0 <= low <= high <= 255", i+1, entry)
		}
		r, g, b := c.RGB255()
		ranges = append(ranges, Range{
			Hex:  strings.ToUpper(m[1]),
			RGB:  color.RGBA{R: r, G: g, B: b, A: 255},
			Low:  low,
			High: high,
		})
	}
	return ranges, nil
}

// LUT is a total partition of the intensity domain: a precomputed table
// mapping every intensity to its assigned color, or to pass-through gray
// when no supplied range covers it.
type LUT struct {
	colors [256]color.RGBA
	mapped [256]bool
}

// BuildLUT normalizes the supplied ranges into a total mapping function.
// Overlaps resolve first-match-wins: the earlier entry in the supplied
// order keeps the overlapping intensities. The table is built once and
// reused for every pixel of every image.
func BuildLUT(ranges []Range) *LUT {
	lut := &LUT{}
	for _, r := range ranges {
		for i := r.Low; i <= r.High; i++ {
			if !lut.mapped[i] {
				lut.colors[i] = r.RGB
				lut.mapped[i] = true
			}
		}
	}
	return lut
}

// Lookup returns the color assigned to intensity v. Unmapped intensities
// pass through as their own gray value, so partial specifications still
// produce a sensible image.
func (l *LUT) Lookup(v uint8) color.RGBA {
	if l.mapped[v] {
		return l.colors[v]
	}
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

// Covered reports whether intensity v was claimed by a supplied range.
func (l *LUT) Covered(v uint8) bool { return l.mapped[v] }

// Recolor maps every pixel of img through its nearest centroid and the
// range LUT, producing a new image of identical dimensions. The luminance
// reduction is the same one clustering uses. Near-black and near-white
// pixels are pinned to pure black/white so line art and page background
// are preserved, and source alpha is copied unchanged. Pure function of
// its inputs: identical image, centroids and LUT yield identical output.
func Recolor(img image.Image, centroids []uint8, lut *LUT) *image.RGBA {
	levelLUT := cluster.LevelLUT(centroids)

	// Resolve level -> final RGB once, not per pixel.
	var finalRGB [256]color.RGBA
	for level := 0; level < 256; level++ {
		finalRGB[level] = lut.Lookup(levelLUT[level])
	}

	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			src := img.At(x, y)
			_, _, _, a := src.RGBA()
			l := cluster.Luma(src)
			var c color.RGBA
			switch {
			case l < cluster.BlackCutoff:
				c = color.RGBA{A: 255}
			case l > cluster.WhiteCutoff:
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			default:
				c = finalRGB[l]
			}
			c.A = uint8(a >> 8)
			out.Set(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}
	return out
}
