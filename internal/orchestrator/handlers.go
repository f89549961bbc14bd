package orchestrator

import (
	"archive/zip"
	"fmt"
	"image"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/artifact"
	"github.com/local/paintscheme/internal/bundle"
	"github.com/local/paintscheme/internal/cluster"
	"github.com/local/paintscheme/internal/colormap"
	"github.com/local/paintscheme/internal/metrics"
	"github.com/local/paintscheme/internal/pipeline"
	"github.com/local/paintscheme/internal/raster"
	"github.com/local/paintscheme/internal/session"
)

type uploadTargetReq struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type uploadTargetResp struct {
	UploadURL string `json:"upload_url"`
	Bucket    string `json:"bucket,omitempty"`
	Key       string `json:"key"`
	SourceRef string `json:"source_ref"`
}

func (o *Orchestrator) handleUploadTarget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req uploadTargetReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Filename == "" {
		writeError(w, pipeline.New(pipeline.KindInvalidParameter, "filename", "filename is required"))
		return
	}

	key := fmt.Sprintf("uploads/%s_%s", uuid.NewString(), path.Base(req.Filename))
	url, ref, err := o.deps.Artifacts.UploadTarget(r.Context(), key, o.deps.PresignTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := uploadTargetResp{UploadURL: url, Key: key, SourceRef: ref}
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		if i := strings.Index(rest, "/"); i > 0 {
			resp.Bucket = rest[:i]
			resp.Key = rest[i+1:]
		}
	}
	log.Info().Str("key", resp.Key).Msg("upload target issued")
	writeJSON(w, http.StatusOK, resp)
}

type processReq struct {
	SourceURI          string `json:"source_uri"`
	DPI                int    `json:"dpi"`
	Pages              []int  `json:"pages"`
	RelevanceThreshold *int   `json:"relevance_threshold"`
}

type pageResp struct {
	Ref   string `json:"ref"`
	Page  int    `json:"page"`
	Score int    `json:"score"`
}

type processResp struct {
	SessionID   string     `json:"session_id"`
	Images      []pageResp `json:"images"`
	TotalPages  int        `json:"total_pages"`
	FilteredOut int        `json:"filtered_out"`
	DPI         int        `json:"dpi"`
}

func (o *Orchestrator) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	var req processReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SourceURI == "" {
		writeError(w, pipeline.New(pipeline.KindInvalidParameter, "source_uri", "source_uri is required"))
		return
	}
	threshold := raster.DisableFilter
	if req.RelevanceThreshold != nil {
		threshold = *req.RelevanceThreshold
	}

	res, err := o.deps.Renderer.Rasterize(r.Context(), req.SourceURI, raster.Options{
		Pages:     req.Pages,
		DPI:       req.DPI,
		Threshold: threshold,
	})
	if err != nil {
		metrics.ObserveStage("process_document", "error", time.Since(start))
		metrics.IncDocument("error")
		writeError(w, err)
		return
	}

	sess, err := o.deps.Sessions.Create(r.Context())
	if err != nil {
		metrics.ObserveStage("process_document", "error", time.Since(start))
		writeError(w, err)
		return
	}

	resp := processResp{
		SessionID:   sess.ID,
		TotalPages:  res.TotalPages,
		FilteredOut: res.FilteredOut,
		DPI:         res.DPI,
	}
	for _, page := range res.Pages {
		data, err := artifact.EncodePNG(page.Image)
		if err != nil {
			writeError(w, err)
			return
		}
		ref := fmt.Sprintf("%s/extracted/page_%03d.png", sess.ID, page.Number)
		if err := o.deps.Artifacts.Put(r.Context(), ref, data, "image/png"); err != nil {
			writeError(w, err)
			return
		}
		sess.ExtractedRefs = append(sess.ExtractedRefs, ref)
		resp.Images = append(resp.Images, pageResp{Ref: ref, Page: page.Number, Score: page.Diag.Score})
	}
	sess.Stage = sess.Stage.Advance(session.StageExtracted)
	if err := o.deps.Sessions.Save(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	metrics.ObserveStage("process_document", "ok", time.Since(start))
	metrics.IncDocument("ok")
	metrics.AddPagesRendered(len(res.Pages))
	metrics.AddPagesFiltered(res.FilteredOut)
	log.Info().Str("session", sess.ID).Int("pages", len(res.Pages)).Msg("document processed")
	writeJSON(w, http.StatusCreated, resp)
}

type previewReq struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"`
	K         int    `json:"k"`
}

// Centroids are ints on the wire; []uint8 would JSON-encode as base64.
type previewResp struct {
	Centroids    []int  `json:"centroids"`
	EffectiveK   int    `json:"effective_k"`
	PreviewImage string `json:"preview_image"`
}

func (o *Orchestrator) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	var req previewReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateK(req.K); err != nil {
		writeError(w, err)
		return
	}

	sess, err := o.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Stage.AtLeast(session.StageExtracted) {
		writeError(w, pipeline.New(pipeline.KindInvalidState, "session_id",
			"session %s is at stage %s, needs at least %s", sess.ID, sess.Stage, session.StageExtracted))
		return
	}

	ref := req.Image
	if ref == "" {
		if len(sess.ExtractedRefs) == 0 {
			writeError(w, pipeline.New(pipeline.KindEmptyInput, "image", "session %s has no extracted images", sess.ID))
			return
		}
		ref = sess.ExtractedRefs[0]
	}
	if !sess.Owns(ref) {
		writeError(w, pipeline.New(pipeline.KindNotFound, "image", "image %s does not belong to session %s", ref, sess.ID))
		return
	}

	img, err := o.loadImage(r, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	centroids, effK, err := cluster.Centroids(img, req.K)
	if err != nil {
		metrics.ObserveStage("preview", "error", time.Since(start))
		writeError(w, err)
		return
	}
	preview := cluster.PreviewImage(img, centroids)

	data, err := artifact.EncodePNG(preview)
	if err != nil {
		writeError(w, err)
		return
	}
	previewRef := fmt.Sprintf("%s/preview/clustered_preview.png", sess.ID)
	if err := o.deps.Artifacts.Put(r.Context(), previewRef, data, "image/png"); err != nil {
		writeError(w, err)
		return
	}

	sess.PreviewRef = previewRef
	sess.PreviewK = req.K
	sess.Stage = sess.Stage.Advance(session.StagePreviewed)
	if err := o.deps.Sessions.Save(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	wire := make([]int, len(centroids))
	for i, c := range centroids {
		wire[i] = int(c)
	}
	metrics.ObserveStage("preview", "ok", time.Since(start))
	log.Info().Str("session", sess.ID).Int("k", req.K).Int("effective_k", effK).Msg("preview generated")
	writeJSON(w, http.StatusOK, previewResp{Centroids: wire, EffectiveK: effK, PreviewImage: previewRef})
}

type applyReq struct {
	SessionID string `json:"session_id"`
	K         int    `json:"k"`
	Colors    string `json:"colors"`
}

type applyResp struct {
	Images []string `json:"images"`
}

func (o *Orchestrator) handleApplyMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	var req applyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := o.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Stage.AtLeast(session.StagePreviewed) {
		writeError(w, pipeline.New(pipeline.KindInvalidState, "session_id",
			"session %s is at stage %s, needs at least %s", sess.ID, sess.Stage, session.StagePreviewed))
		return
	}

	k := req.K
	if k == 0 {
		k = sess.PreviewK
	}
	if err := validateK(k); err != nil {
		writeError(w, err)
		return
	}

	// Parse up front: a bad spec must fail the whole call before any
	// artifact is touched.
	ranges, err := colormap.ParseSpec(req.Colors)
	if err != nil {
		metrics.ObserveStage("apply_mapping", "error", time.Since(start))
		writeError(w, err)
		return
	}
	lut := colormap.BuildLUT(ranges)

	var refs []string
	for _, srcRef := range sess.ExtractedRefs {
		img, err := o.loadImage(r, srcRef)
		if err != nil {
			writeError(w, err)
			return
		}
		centroids, _, err := cluster.Centroids(img, k)
		if err != nil {
			metrics.ObserveStage("apply_mapping", "error", time.Since(start))
			writeError(w, err)
			return
		}
		colorized := colormap.Recolor(img, centroids, lut)

		data, err := artifact.EncodePNG(colorized)
		if err != nil {
			writeError(w, err)
			return
		}
		ref := fmt.Sprintf("%s/colorized/%s", sess.ID, path.Base(srcRef))
		if err := o.deps.Artifacts.Put(r.Context(), ref, data, "image/png"); err != nil {
			writeError(w, err)
			return
		}
		refs = append(refs, ref)
	}

	sess.ColorizedRefs = refs
	sess.Stage = sess.Stage.Advance(session.StageColorized)
	if err := o.deps.Sessions.Save(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	metrics.ObserveStage("apply_mapping", "ok", time.Since(start))
	log.Info().Str("session", sess.ID).Int("k", k).Int("images", len(refs)).Msg("mapping applied")
	writeJSON(w, http.StatusOK, applyResp{Images: refs})
}

type bundleReq struct {
	SessionID string   `json:"session_id"`
	Images    []string `json:"images"`
	Folder    string   `json:"folder"`
}

func (o *Orchestrator) handleDownloadBundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	var req bundleReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := o.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	refs := req.Images
	if len(refs) == 0 {
		refs = sess.ColorizedRefs
		if len(refs) == 0 {
			refs = sess.ExtractedRefs
		}
	}
	if len(refs) == 0 {
		writeError(w, pipeline.New(pipeline.KindEmptyInput, "images", "session %s has no artifacts to bundle", sess.ID))
		return
	}
	for _, ref := range refs {
		if !sess.Owns(ref) {
			writeError(w, pipeline.New(pipeline.KindNotFound, "images", "image %s does not belong to session %s", ref, sess.ID))
			return
		}
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "paintscheme_"+sess.ID+".zip"))
	zw := zip.NewWriter(w)
	if err := bundle.Write(r.Context(), zw, o.deps.Artifacts, refs, req.Folder); err != nil {
		// Headers are gone; all we can do is log and cut the stream.
		log.Error().Err(err).Str("session", sess.ID).Msg("bundle streaming failed")
		metrics.ObserveStage("download_bundle", "error", time.Since(start))
		return
	}
	if err := zw.Close(); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("bundle close failed")
		return
	}
	metrics.ObserveStage("download_bundle", "ok", time.Since(start))
	log.Info().Str("session", sess.ID).Int("images", len(refs)).Msg("bundle downloaded")
}

func validateK(k int) error {
	if k < 1 || k > MaxClusters {
		return pipeline.New(pipeline.KindInvalidParameter, "k", "k must be between 1 and %d, got %d", MaxClusters, k)
	}
	return nil
}

func (o *Orchestrator) loadImage(r *http.Request, ref string) (image.Image, error) {
	data, err := o.deps.Artifacts.Get(r.Context(), ref)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindNotFound, "image", err, "artifact %s not found", ref)
	}
	img, err := artifact.DecodePNG(data)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindDocumentUnreadable, "image", err, "artifact %s is not a decodable image", ref)
	}
	return img, nil
}
