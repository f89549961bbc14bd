package cluster

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/pipeline"
)

const (
	maxIterations = 100
	tolerance     = 1e-2

)

// Pixels darker than BlackCutoff or lighter than WhiteCutoff are treated
// as line art / background and pinned to pure black/white so edges survive
// the remapping. Preview and recolorization share these bounds.
const (
	BlackCutoff = 50
	WhiteCutoff = 245
)

// Luma reduces a color to a single grayscale intensity in [0,255] using
// Rec.601 weights. Clustering and recolorization share this reduction.
func Luma(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	r8 := r >> 8
	g8 := g >> 8
	b8 := b >> 8
	return uint8((299*r8 + 587*g8 + 114*b8 + 500) / 1000)
}

// Histogram counts pixels per intensity level.
func Histogram(img image.Image) (counts [256]float64, total float64) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			counts[Luma(img.At(x, y))]++
			total++
		}
	}
	return counts, total
}

// Centroids clusters the image's intensity distribution into k groups and
// returns the centroid intensities sorted ascending, plus the effective k
// actually used. When k exceeds the number of distinct intensities present,
// k is clamped down rather than failing.
//
// The algorithm is weighted 1-D k-means over the 256 intensity levels with
// pixel counts as weights. Initialization places centroids at weighted
// quantiles of the histogram, so the whole procedure is deterministic:
// identical image and k always yield identical centroids.
func Centroids(img image.Image, k int) ([]uint8, int, error) {
	if k < 1 {
		return nil, 0, pipeline.New(pipeline.KindInvalidParameter, "k", "cluster count must be >= 1, got %d", k)
	}

	counts, total := Histogram(img)
	if total == 0 {
		return nil, 0, pipeline.New(pipeline.KindEmptyInput, "image", "image has no pixels")
	}

	distinct := 0
	for _, c := range counts {
		if c > 0 {
			distinct++
		}
	}
	eff := k
	if eff > distinct {
		eff = distinct
		log.Debug().Int("requested_k", k).Int("effective_k", eff).Msg("clamped cluster count to distinct intensities")
	}

	centroids := kmeans1D(counts, eff)

	out := make([]uint8, len(centroids))
	for i, c := range centroids {
		v := math.Round(c)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = uint8(v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, eff, nil
}

// kmeans1D runs weighted k-means over the 256 intensity levels with the
// histogram counts as weights. weights must have at least k nonzero bins.
func kmeans1D(weights [256]float64, k int) []float64 {
	var cum [256]float64
	running := 0.0
	for i, w := range weights {
		running += w
		cum[i] = running
	}

	// Initialize at weighted quantiles: k evenly spaced interior points
	// of the cumulative distribution.
	centroids := make([]float64, k)
	for i := 0; i < k; i++ {
		q := float64(i+1) / float64(k+1) * running
		centroids[i] = interpLevel(cum[:], q)
	}

	next := make([]float64, k)
	weightedSum := make([]float64, k)
	weightSum := make([]float64, k)

	for iter := 0; iter < maxIterations; iter++ {
		for i := range weightedSum {
			weightedSum[i] = 0
			weightSum[i] = 0
		}

		for level := 0; level < 256; level++ {
			idx := nearestIndex(centroids, float64(level))
			weightedSum[idx] += float64(level) * weights[level]
			weightSum[idx] += weights[level]
		}

		copy(next, centroids)
		used := map[int]bool{}
		var empties []int
		for i := range centroids {
			if weightSum[i] > 0 {
				next[i] = weightedSum[i] / weightSum[i]
				used[int(math.Round(next[i]))] = true
			} else {
				empties = append(empties, i)
			}
		}

		// Reseed empty clusters onto the heaviest levels not already
		// claimed by another centroid.
		if len(empties) > 0 {
			order := levelsByWeight(weights)
			pick := 0
			for _, e := range empties {
				for pick < len(order) {
					cand := order[pick]
					pick++
					if !used[cand] {
						used[cand] = true
						next[e] = float64(cand)
						break
					}
				}
			}
		}

		shift := 0.0
		for i := range centroids {
			if d := math.Abs(next[i] - centroids[i]); d > shift {
				shift = d
			}
		}
		copy(centroids, next)
		if shift <= tolerance {
			break
		}
	}
	return centroids
}

// interpLevel finds the intensity level whose cumulative weight reaches q,
// linearly interpolating between adjacent levels.
func interpLevel(cum []float64, q float64) float64 {
	if q <= cum[0] {
		return 0
	}
	for i := 1; i < len(cum); i++ {
		if cum[i] >= q {
			lo, hi := cum[i-1], cum[i]
			if hi == lo {
				return float64(i)
			}
			return float64(i-1) + (q-lo)/(hi-lo)
		}
	}
	return float64(len(cum) - 1)
}

func nearestIndex(centroids []float64, v float64) int {
	best := 0
	bestDist := math.Abs(v - centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := math.Abs(v - centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func levelsByWeight(weights [256]float64) []int {
	order := make([]int, 256)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return weights[order[a]] > weights[order[b]] })
	return order
}

// LevelLUT maps every intensity level to the gray value of its nearest
// centroid. Computed once per centroid set and reused for all pixels.
func LevelLUT(centroids []uint8) [256]uint8 {
	var lut [256]uint8
	for level := 0; level < 256; level++ {
		best := centroids[0]
		bestDist := absInt(level - int(centroids[0]))
		for _, c := range centroids[1:] {
			if d := absInt(level - int(c)); d < bestDist {
				best = c
				bestDist = d
			}
		}
		lut[level] = best
	}
	return lut
}

// PreviewImage renders the clustered view of img: every pixel is replaced
// by its nearest centroid gray, with near-black and near-white pixels
// pinned so outlines and page background stay intact. Source alpha is
// preserved. Dimensions match the input exactly.
func PreviewImage(img image.Image, centroids []uint8) *image.RGBA {
	lut := LevelLUT(centroids)
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			src := img.At(x, y)
			_, _, _, a := src.RGBA()
			l := Luma(src)
			g := lut[l]
			switch {
			case l < BlackCutoff:
				g = 0
			case l > WhiteCutoff:
				g = 255
			}
			out.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: g, G: g, B: g, A: uint8(a >> 8)})
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
