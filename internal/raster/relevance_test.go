package raster

import (
	"reflect"
	"testing"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCodes []string
		wantKW    int
	}{
		{
			name:      "empty",
			text:      "",
			wantCodes: nil,
			wantKW:    0,
		},
		{
			name:      "plain prose",
			text:      "Step 4: glue the left wing to the fuselage.",
			wantCodes: nil,
			wantKW:    0,
		},
		{
			name:      "tamiya codes",
			text:      "Use XF-2 for the underside and X-18 for the tires.",
			wantCodes: []string{"X-18", "XF-2"},
			wantKW:    0,
		},
		{
			name:      "rlm with and without space",
			text:      "Upper surfaces RLM 74, lower RLM76.",
			wantCodes: []string{"RLM 74", "RLM76"},
			wantKW:    0,
		},
		{
			name:      "keywords counted once each",
			text:      "Paint scheme A. Paint scheme B. paint paint paint",
			wantCodes: nil,
			wantKW:    2, // "paint", "scheme"
		},
		{
			name:      "full painting guide",
			text:      "Camouflage and markings: FS 36375 overall, decals for 32nd Rgt.",
			wantCodes: []string{"FS 36375"},
			wantKW:    5, // camouflage, marking, decal, decals, rgt
		},
		{
			name:      "case insensitive codes",
			text:      "ral 7028 dunkelgelb",
			wantCodes: []string{"RAL 7028"},
			wantKW:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreText(tt.text)
			if !reflect.DeepEqual(got.Codes, tt.wantCodes) {
				t.Errorf("codes = %v, want %v", got.Codes, tt.wantCodes)
			}
			if got.KeywordCount != tt.wantKW {
				t.Errorf("keyword count = %d, want %d", got.KeywordCount, tt.wantKW)
			}
			if got.Score != len(tt.wantCodes)+tt.wantKW {
				t.Errorf("score = %d, want %d", got.Score, len(tt.wantCodes)+tt.wantKW)
			}
		})
	}
}

func TestScoreTextDistinctCodes(t *testing.T) {
	got := ScoreText("XF-2, XF-2, XF-2 and xf-2 again")
	if len(got.Codes) != 1 {
		t.Errorf("codes = %v, want single distinct XF-2", got.Codes)
	}
}
