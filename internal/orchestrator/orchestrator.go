package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/artifact"
	"github.com/local/paintscheme/internal/pipeline"
	"github.com/local/paintscheme/internal/raster"
	"github.com/local/paintscheme/internal/session"
)

// MaxClusters bounds the k parameter accepted by preview and apply_mapping.
const MaxClusters = 50

// Rasterizer turns a document reference into grayscale page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, ref string, opts raster.Options) (*raster.Result, error)
}

// SessionStore tracks pipeline sessions.
type SessionStore interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, id string) error
}

type Dependencies struct {
	Renderer   Rasterizer
	Sessions   SessionStore
	Artifacts  artifact.Store
	PresignTTL time.Duration
}

type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/paint/upload_target", o.handleUploadTarget)
	mux.HandleFunc("/api/v1/paint/process_document", o.handleProcessDocument)
	mux.HandleFunc("/api/v1/paint/preview", o.handlePreview)
	mux.HandleFunc("/api/v1/paint/apply_mapping", o.handleApplyMapping)
	mux.HandleFunc("/api/v1/paint/download_bundle", o.handleDownloadBundle)
}

// CleanupSession removes every artifact a session produced. Wired as the
// session sweeper's expiry callback.
func (o *Orchestrator) CleanupSession(ctx context.Context, id string) {
	if err := o.deps.Artifacts.DeletePrefix(ctx, id+"/"); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("failed to delete artifacts of expired session")
	}
}

// statusFor maps a pipeline error kind to its HTTP status.
func statusFor(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindInvalidParameter, pipeline.KindInvalidColorSpec:
		return http.StatusBadRequest
	case pipeline.KindSessionNotFound, pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindInvalidState:
		return http.StatusConflict
	case pipeline.KindNoPagesMatched, pipeline.KindDocumentUnreadable, pipeline.KindEmptyInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResp{Error: err.Error(), Kind: string(pipeline.KindOf(err))}
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		resp.Field = perr.Field
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("internal error")
		resp.Error = "internal error"
		resp.Kind = ""
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return pipeline.Wrap(pipeline.KindInvalidParameter, "body", err, "invalid json")
	}
	return nil
}
