package colormap

import (
	"image"
	"image/color"
	"testing"

	"github.com/local/paintscheme/internal/cluster"
	"github.com/local/paintscheme/internal/pipeline"
)

func TestParseSpecValid(t *testing.T) {
	ranges, err := ParseSpec("#FF0000(0-100),#00ff00(101-200),#0000FF(201-255)")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if len(ranges) != 3 {
		t.Fatalf("got %d ranges, want 3", len(ranges))
	}
	if ranges[0].RGB != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("range 0 color = %v, want red", ranges[0].RGB)
	}
	if ranges[1].Low != 101 || ranges[1].High != 200 {
		t.Errorf("range 1 bounds = %d-%d, want 101-200", ranges[1].Low, ranges[1].High)
	}
	if ranges[1].Hex != "#00FF00" {
		t.Errorf("range 1 hex = %q, want normalized #00FF00", ranges[1].Hex)
	}
}

func TestParseSpecWhitespaceTolerant(t *testing.T) {
	ranges, err := ParseSpec(" #FF0000( 0 - 100 ) , #00FF00(101-255) ")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
}

func TestParseSpecInvalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"non-hex digits", "#ZZZZZZ(0-100)"},
		{"short hex", "#FFF(0-100)"},
		{"missing range", "#FF0000"},
		{"missing paren", "#FF0000(0-100"},
		{"low above high", "#FF0000(100-50)"},
		{"high above 255", "#FF0000(0-300)"},
		{"negative low", "#FF0000(-5-100)"},
		{"second entry bad", "#FF0000(0-100),#00FF00(oops)"},
		{"trailing comma", "#FF0000(0-100),"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(tt.spec)
			if !pipeline.IsKind(err, pipeline.KindInvalidColorSpec) {
				t.Errorf("ParseSpec(%q) = %v, want InvalidColorSpec", tt.spec, err)
			}
		})
	}
}

func TestLUTOverlapFirstMatchWins(t *testing.T) {
	ranges, err := ParseSpec("#FF0000(0-100),#00FF00(50-150)")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	lut := BuildLUT(ranges)

	// Intensity 75 is claimed by both entries; the first wins.
	if got := lut.Lookup(75); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Lookup(75) = %v, want red (first entry)", got)
	}
	if got := lut.Lookup(120); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("Lookup(120) = %v, want green", got)
	}
}

func TestLUTPassThroughFallback(t *testing.T) {
	ranges, err := ParseSpec("#FF0000(0-100)")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	lut := BuildLUT(ranges)
	for _, v := range []uint8{101, 150, 255} {
		if lut.Covered(v) {
			t.Errorf("Covered(%d) = true, want false", v)
		}
		if got := lut.Lookup(v); got != (color.RGBA{R: v, G: v, B: v, A: 255}) {
			t.Errorf("Lookup(%d) = %v, want gray pass-through", v, got)
		}
	}
	if !lut.Covered(100) {
		t.Error("Covered(100) = false, want true")
	}
}

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

func TestRecolorBinaryBlackWhite(t *testing.T) {
	// Two well separated populations mapped to pure black and white.
	img := grayImage(16, 16, 70, 72, 180, 182)
	ranges, err := ParseSpec("#000000(0-127),#FFFFFF(128-255)")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	lut := BuildLUT(ranges)

	out := Recolor(img, []uint8{71, 181}, lut)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := out.RGBAAt(x, y)
			black := c.R == 0 && c.G == 0 && c.B == 0
			white := c.R == 255 && c.G == 255 && c.B == 255
			if !black && !white {
				t.Fatalf("pixel (%d,%d) = %v, want pure black or white", x, y, c)
			}
		}
	}
}

func TestRecolorPreservesDimensionsAndAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 9; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 130})
		}
	}
	ranges, _ := ParseSpec("#123456(0-255)")
	out := Recolor(img, []uint8{120}, BuildLUT(ranges))

	if out.Bounds().Dx() != 9 || out.Bounds().Dy() != 4 {
		t.Fatalf("dimensions changed: %v", out.Bounds())
	}
	c := out.RGBAAt(4, 2)
	if c.A != 130 {
		t.Errorf("alpha = %d, want 130", c.A)
	}
	if c.R != 0x12 || c.G != 0x34 || c.B != 0x56 {
		t.Errorf("color = %v, want #123456", c)
	}
}

func TestRecolorPinsLineArtAndBackground(t *testing.T) {
	img := grayImage(3, 1, 20, 120, 250)
	ranges, _ := ParseSpec("#FF0000(0-255)")
	out := Recolor(img, []uint8{20, 120, 250}, BuildLUT(ranges))

	if c := out.RGBAAt(0, 0); c != (color.RGBA{A: 255}) {
		t.Errorf("line-art pixel = %v, want black", c)
	}
	if c := out.RGBAAt(1, 0); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("mid pixel = %v, want red", c)
	}
	if c := out.RGBAAt(2, 0); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("background pixel = %v, want white", c)
	}
}

// The pinning bounds are the ones clustering publishes; intensities at the
// cutoffs themselves are still mapped, only those beyond them are pinned.
func TestRecolorCutoffBoundaries(t *testing.T) {
	levels := []uint8{cluster.BlackCutoff - 1, cluster.BlackCutoff, cluster.WhiteCutoff, cluster.WhiteCutoff + 1}
	img := grayImage(4, 1, levels...)
	ranges, _ := ParseSpec("#FF0000(0-255)")
	out := Recolor(img, levels, BuildLUT(ranges))

	if c := out.RGBAAt(0, 0); c != (color.RGBA{A: 255}) {
		t.Errorf("below black cutoff = %v, want black", c)
	}
	if c := out.RGBAAt(1, 0); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("at black cutoff = %v, want red", c)
	}
	if c := out.RGBAAt(2, 0); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("at white cutoff = %v, want red", c)
	}
	if c := out.RGBAAt(3, 0); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("above white cutoff = %v, want white", c)
	}
}

func TestRecolorDeterministic(t *testing.T) {
	img := grayImage(8, 8, 60, 120, 180)
	ranges, _ := ParseSpec("#FF0000(0-127),#0000FF(128-255)")
	lut := BuildLUT(ranges)
	centroids := []uint8{60, 120, 180}

	first := Recolor(img, centroids, lut)
	second := Recolor(img, centroids, lut)
	if len(first.Pix) != len(second.Pix) {
		t.Fatal("pixel buffers differ in size")
	}
	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("pixel byte %d differs between identical runs", i)
		}
	}
}
