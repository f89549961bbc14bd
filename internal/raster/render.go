package raster

import (
	"context"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/filetype"
	"github.com/local/paintscheme/internal/ocr"
	"github.com/local/paintscheme/internal/pipeline"
)

// DisableFilter turns off relevance filtering: every selected page is kept.
const DisableFilter = -1

// Limits bounds the rendering resolution.
type Limits struct {
	MinDPI int
	MaxDPI int
}

// Options selects and filters the pages to rasterize.
type Options struct {
	// Pages is an explicit 1-based page selection. Empty means all pages.
	Pages []int
	// DPI is the rendering resolution. Required; must be within Limits.
	DPI int
	// Threshold is the minimum relevance score a page must reach to be
	// kept. DisableFilter keeps every selected page.
	Threshold int
}

// Page is one rasterized page: grayscale raster plus the relevance
// diagnostics that admitted it.
type Page struct {
	Number int
	Image  *image.NRGBA
	Diag   Diagnostics
}

// Result is the outcome of rasterizing one document.
type Result struct {
	Pages       []Page
	TotalPages  int
	FilteredOut int
	DPI         int
}

// Renderer turns PDF documents into grayscale page rasters, optionally
// filtered by paint-guide relevance.
type Renderer struct {
	limits Limits
	detect *filetype.Detector
}

func NewRenderer(limits Limits) *Renderer {
	return &Renderer{limits: limits, detect: filetype.New()}
}

// Rasterize fetches the document behind ref, renders the selected pages
// at the requested DPI and returns them as grayscale images. When a
// relevance threshold is set, pages scoring below it are dropped; pages
// with no embedded text fall back to OCR when available before being
// judged. Returns NoPagesMatched when filtering excludes every page.
func (r *Renderer) Rasterize(ctx context.Context, ref string, opts Options) (*Result, error) {
	dpi := opts.DPI
	if dpi == 0 {
		return nil, pipeline.New(pipeline.KindInvalidParameter, "dpi", "dpi is required")
	}
	if dpi < r.limits.MinDPI || dpi > r.limits.MaxDPI {
		return nil, pipeline.New(pipeline.KindInvalidParameter, "dpi",
			"dpi must be between %d and %d, got %d", r.limits.MinDPI, r.limits.MaxDPI, dpi)
	}
	if opts.Threshold < DisableFilter {
		return nil, pipeline.New(pipeline.KindInvalidParameter, "threshold",
			"threshold must be >= -1, got %d", opts.Threshold)
	}

	localPath, cleanup, err := EnsureLocalDocument(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	isPDF, err := r.detect.IsPDF(localPath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindDocumentUnreadable, "source", err, "cannot inspect document")
	}
	if !isPDF {
		return nil, pipeline.New(pipeline.KindDocumentUnreadable, "source", "document is not a PDF")
	}

	totalPages, err := PageCount(localPath)
	if err != nil {
		return nil, err
	}

	selected := opts.Pages
	if len(selected) == 0 {
		selected = make([]int, totalPages)
		for i := range selected {
			selected[i] = i + 1
		}
	} else {
		for _, p := range selected {
			if p < 1 || p > totalPages {
				return nil, pipeline.New(pipeline.KindInvalidParameter, "pages",
					"page %d out of range 1..%d", p, totalPages)
			}
		}
	}

	doc, err := fitz.New(localPath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindDocumentUnreadable, "source", err, "cannot open PDF")
	}
	defer doc.Close()

	res := &Result{TotalPages: totalPages, DPI: dpi}
	for _, pageNum := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(pageNum - 1)
		if err != nil {
			log.Warn().Err(err).Int("page", pageNum).Msg("text extraction failed, treating page as empty")
			text = ""
		}
		diag := ScoreText(text)

		var rendered *image.NRGBA
		if opts.Threshold != DisableFilter && diag.Score < opts.Threshold && strings.TrimSpace(text) == "" && ocr.Available() {
			// Scanned page: no embedded text to judge by. Render it and
			// let OCR recover the text before filtering.
			rendered, err = r.renderPage(doc, pageNum, dpi)
			if err != nil {
				return nil, err
			}
			if ocrText, ocrErr := ocr.ImageText(rendered); ocrErr != nil {
				log.Warn().Err(ocrErr).Int("page", pageNum).Msg("ocr fallback failed")
			} else {
				diag = ScoreText(ocrText)
			}
		}

		if opts.Threshold != DisableFilter && diag.Score < opts.Threshold {
			log.Debug().Int("page", pageNum).Int("score", diag.Score).Int("threshold", opts.Threshold).Msg("page filtered out")
			res.FilteredOut++
			continue
		}

		if rendered == nil {
			rendered, err = r.renderPage(doc, pageNum, dpi)
			if err != nil {
				return nil, err
			}
		}
		res.Pages = append(res.Pages, Page{Number: pageNum, Image: rendered, Diag: diag})
	}

	if len(res.Pages) == 0 {
		return nil, pipeline.New(pipeline.KindNoPagesMatched, "threshold",
			"no pages reached relevance score %d (%d pages examined)", opts.Threshold, len(selected))
	}

	log.Info().
		Int("pages_kept", len(res.Pages)).
		Int("pages_filtered", res.FilteredOut).
		Int("total_pages", totalPages).
		Int("dpi", dpi).
		Msg("document rasterized")
	return res, nil
}

func (r *Renderer) renderPage(doc *fitz.Document, pageNum, dpi int) (*image.NRGBA, error) {
	// go-fitz uses 0-based indexing
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindDocumentUnreadable, "source", err, "failed to render page %d", pageNum)
	}
	return imaging.Grayscale(img), nil
}
