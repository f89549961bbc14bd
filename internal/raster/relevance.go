package raster

import (
	"regexp"
	"sort"
	"strings"
)

// Paint code systems commonly found on model-kit painting guides:
// Luftwaffe RLM, US Federal Standard, Tamiya X/XF, Aqueous H, Mr.Color C,
// and RAL numbers.
var paintCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)RLM ?\d+`),
	regexp.MustCompile(`(?i)FS ?\d+`),
	regexp.MustCompile(`(?i)XF-\d\d?`),
	regexp.MustCompile(`(?i)X-\d\d?`),
	regexp.MustCompile(`(?i)H-\d\d\d?`),
	regexp.MustCompile(`(?i)C-\d\d\d?`),
	regexp.MustCompile(`(?i)RAL ?\d+`),
}

var paintKeywords = []string{
	"paint",
	"color",
	"colour",
	"painting",
	"scheme",
	"camouflage",
	"marking",
	"decal",
	"decals",
	"stencil",
	"regiment",
	"division",
	"unknown",
	"rgt",
	"div",
}

// Diagnostics captures how a page's text scored against the paint-guide
// heuristics. Score is the number of distinct paint codes plus the number
// of keywords present.
type Diagnostics struct {
	Codes        []string `json:"codes,omitempty"`
	KeywordCount int      `json:"keyword_count"`
	Score        int      `json:"score"`
}

// ScoreText evaluates page text for paint-guide relevance. Every distinct
// paint code counts as strong evidence; each keyword present counts once
// regardless of repetition.
func ScoreText(text string) Diagnostics {
	codes := findPaintCodes(text)
	kw := countKeywords(text)
	return Diagnostics{
		Codes:        codes,
		KeywordCount: kw,
		Score:        len(codes) + kw,
	}
}

func findPaintCodes(text string) []string {
	seen := map[string]bool{}
	for _, re := range paintCodePatterns {
		for _, m := range re.FindAllString(text, -1) {
			code := strings.TrimSpace(strings.ReplaceAll(strings.ToUpper(m), "  ", " "))
			seen[code] = true
		}
	}
	var codes []string
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func countKeywords(text string) int {
	tl := strings.ToLower(text)
	n := 0
	for _, k := range paintKeywords {
		if strings.Contains(tl, k) {
			n++
		}
	}
	return n
}
