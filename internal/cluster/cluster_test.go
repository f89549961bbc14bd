package cluster

import (
	"image"
	"image/color"
	"reflect"
	"sort"
	"testing"

	"github.com/local/paintscheme/internal/pipeline"
)

// grayImage builds a test image whose pixels cycle through the given
// intensity levels.
func grayImage(w, h int, levels ...uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := levels[i%len(levels)]
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
			i++
		}
	}
	return img
}

func TestLuma(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want uint8
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"midgray", color.RGBA{128, 128, 128, 255}, 128},
		{"pure red", color.RGBA{255, 0, 0, 255}, 76},
		{"pure green", color.RGBA{0, 255, 0, 255}, 150},
		{"pure blue", color.RGBA{0, 0, 255, 255}, 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Luma(tt.c); got != tt.want {
				t.Errorf("Luma(%v) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestCentroidsDeterministic(t *testing.T) {
	img := grayImage(64, 64, 10, 10, 10, 80, 80, 160, 200, 240)
	first, effK, err := Centroids(img, 4)
	if err != nil {
		t.Fatalf("Centroids: %v", err)
	}
	if effK != 4 {
		t.Fatalf("effective k = %d, want 4", effK)
	}
	for i := 0; i < 5; i++ {
		got, _, err := Centroids(img, 4)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: centroids %v differ from first run %v", i, got, first)
		}
	}
}

func TestCentroidsSortedAscending(t *testing.T) {
	img := grayImage(32, 32, 240, 10, 128, 64, 200)
	got, _, err := Centroids(img, 3)
	if err != nil {
		t.Fatalf("Centroids: %v", err)
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
		t.Errorf("centroids not sorted ascending: %v", got)
	}
}

func TestCentroidsClampsToDistinctIntensities(t *testing.T) {
	// Only two distinct levels but k=10 requested.
	img := grayImage(16, 16, 40, 220)
	got, effK, err := Centroids(img, 10)
	if err != nil {
		t.Fatalf("Centroids: %v", err)
	}
	if effK != 2 {
		t.Errorf("effective k = %d, want 2", effK)
	}
	if len(got) != 2 {
		t.Errorf("got %d centroids, want 2: %v", len(got), got)
	}
}

func TestCentroidsSingleLevel(t *testing.T) {
	img := grayImage(8, 8, 128)
	got, effK, err := Centroids(img, 5)
	if err != nil {
		t.Fatalf("Centroids: %v", err)
	}
	if effK != 1 || len(got) != 1 || got[0] != 128 {
		t.Errorf("got %v (effK=%d), want [128] (effK=1)", got, effK)
	}
}

func TestCentroidsInvalidK(t *testing.T) {
	img := grayImage(4, 4, 100)
	for _, k := range []int{0, -1, -50} {
		_, _, err := Centroids(img, k)
		if !pipeline.IsKind(err, pipeline.KindInvalidParameter) {
			t.Errorf("k=%d: got %v, want InvalidParameter", k, err)
		}
	}
}

func TestCentroidsEmptyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	_, _, err := Centroids(img, 3)
	if !pipeline.IsKind(err, pipeline.KindEmptyInput) {
		t.Errorf("got %v, want EmptyInput", err)
	}
}

func TestCentroidsSeparatesWellSeparatedGroups(t *testing.T) {
	// Heavy mass at 60 and 190; two clusters should land near them.
	img := grayImage(64, 64, 58, 60, 62, 188, 190, 192)
	got, _, err := Centroids(img, 2)
	if err != nil {
		t.Fatalf("Centroids: %v", err)
	}
	if got[0] < 55 || got[0] > 65 {
		t.Errorf("low centroid %d not near 60", got[0])
	}
	if got[1] < 185 || got[1] > 195 {
		t.Errorf("high centroid %d not near 190", got[1])
	}
}

func TestLevelLUT(t *testing.T) {
	lut := LevelLUT([]uint8{50, 200})
	tests := []struct {
		level int
		want  uint8
	}{
		{0, 50},
		{50, 50},
		{124, 50},
		{126, 200},
		{200, 200},
		{255, 200},
	}
	for _, tt := range tests {
		if got := lut[tt.level]; got != tt.want {
			t.Errorf("lut[%d] = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestPreviewImagePinsExtremes(t *testing.T) {
	img := grayImage(3, 1, 10, 128, 250)
	out := PreviewImage(img, []uint8{128})

	if c := out.RGBAAt(0, 0); c.R != 0 {
		t.Errorf("near-black pixel mapped to %d, want 0", c.R)
	}
	if c := out.RGBAAt(1, 0); c.R != 128 {
		t.Errorf("mid pixel mapped to %d, want centroid 128", c.R)
	}
	if c := out.RGBAAt(2, 0); c.R != 255 {
		t.Errorf("near-white pixel mapped to %d, want 255", c.R)
	}
}

func TestPreviewImagePreservesDimensionsAndAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 7))
	for y := 0; y < 7; y++ {
		for x := 0; x < 5; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 200})
		}
	}
	out := PreviewImage(img, []uint8{100})
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 7 {
		t.Fatalf("dimensions changed: %v", out.Bounds())
	}
	if a := out.RGBAAt(2, 3).A; a != 200 {
		t.Errorf("alpha = %d, want 200", a)
	}
}
