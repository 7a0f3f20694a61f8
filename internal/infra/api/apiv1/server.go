package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/infra/logging"
	"gramothi-backend/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Enqueuer hands a job id to a background processor without blocking the
// request. Processors deduplicate ids already in flight.
type Enqueuer interface {
	Enqueue(id string)
}

// Server holds the v1 handlers. All routes below /api/v1 assume the auth
// guard already placed the caller id on the context.
type Server struct {
	pipeline     usecase.PipelineUseCase
	downloads    usecase.DownloadUseCase
	sync         usecase.SyncUseCase
	pipelineJobs Enqueuer
	transferJobs Enqueuer
	log          zerolog.Logger
}

func NewServer(
	pipeline usecase.PipelineUseCase,
	downloads usecase.DownloadUseCase,
	sync usecase.SyncUseCase,
	pipelineJobs Enqueuer,
	transferJobs Enqueuer,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		pipeline:     pipeline,
		downloads:    downloads,
		sync:         sync,
		pipelineJobs: pipelineJobs,
		transferJobs: transferJobs,
		log:          logger.With().Str("component", "apiv1").Logger(),
	}
}

// RegisterAPIV1 attaches the v1 routes. Paths are absolute, so mount at root.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/bundles", func(r chi.Router) {
			r.Post("/", s.createBundle)
			r.Get("/{bundleID}", s.getBundle)
			r.Get("/{bundleID}/timeline", s.getTimeline)
			r.Post("/{bundleID}/resubmit", s.resubmitBundle)
			r.Post("/{bundleID}/downloads", s.requestDownload)
		})
		r.Get("/classes/{classID}/bundles", s.listClassBundles)
		r.Route("/downloads", func(r chi.Router) {
			r.Get("/{downloadID}", s.getDownload)
			r.Get("/{downloadID}/content", s.getDownloadContent)
			r.Delete("/{downloadID}", s.removeDownload)
		})
		r.Route("/sync", func(r chi.Router) {
			r.Post("/", s.syncBatch)
			r.Get("/status", s.syncStatus)
			r.Get("/conflicts", s.listConflicts)
			r.Post("/conflicts/{activityID}/resolve", s.resolveConflict)
			r.Post("/retry", s.retryFailed)
			r.Get("/server-activities", s.serverActivities)
		})
	})
}

//
// ---------------- wire types ----------------
//

type Bundle struct {
	ID               string     `json:"id"`
	ClassID          string     `json:"class_id"`
	Title            string     `json:"title"`
	OwnerID          string     `json:"owner_id"`
	Status           string     `json:"status"`
	Progress         float64    `json:"progress"`
	AudioDuration    float64    `json:"audio_duration,omitempty"`
	SlideCount       int        `json:"slide_count,omitempty"`
	ArchiveSize      int64      `json:"archive_size,omitempty"`
	Checksum         string     `json:"checksum,omitempty"`
	CompressionRatio float64    `json:"compression_ratio,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

type Download struct {
	ID             string     `json:"id"`
	BundleID       string     `json:"bundle_id"`
	Status         string     `json:"status"`
	DownloadedSize int64      `json:"downloaded_size"`
	TotalSize      int64      `json:"total_size"`
	Progress       float64    `json:"progress"`
	OfflinePath    string     `json:"offline_path,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type createBundleRequest struct {
	ClassID    string `json:"class_id"`
	Title      string `json:"title"`
	VideoPath  string `json:"video_path"`
	SlidesPath string `json:"slides_path"`
}

type syncBatchRequest struct {
	DeviceID   string                  `json:"device_id"`
	Activities []usecase.ActivityInput `json:"activities"`
}

type resolveConflictRequest struct {
	Resolution    string         `json:"resolution"`
	MergedPayload map[string]any `json:"merged_payload,omitempty"`
}

func toBundle(b *model.LectureBundle) Bundle {
	return Bundle{
		ID:               b.ID,
		ClassID:          b.ClassID,
		Title:            b.Title,
		OwnerID:          b.OwnerID,
		Status:           string(b.Status),
		Progress:         b.Progress,
		AudioDuration:    b.AudioDuration,
		SlideCount:       b.SlideCount,
		ArchiveSize:      b.ArchiveSize,
		Checksum:         b.Checksum,
		CompressionRatio: b.CompressionRatio,
		Error:            b.Error,
		CreatedAt:        b.CreatedAt,
		ProcessedAt:      b.ProcessedAt,
	}
}

func toDownload(d *model.BundleDownload) Download {
	var progress float64
	if d.TotalSize > 0 {
		progress = float64(d.DownloadedSize) / float64(d.TotalSize)
	}
	return Download{
		ID:             d.ID,
		BundleID:       d.BundleID,
		Status:         string(d.Status),
		DownloadedSize: d.DownloadedSize,
		TotalSize:      d.TotalSize,
		Progress:       progress,
		OfflinePath:    d.OfflinePath,
		Error:          d.Error,
		CreatedAt:      d.CreatedAt,
		CompletedAt:    d.CompletedAt,
	}
}

//
// ---------------- bundle handlers ----------------
//

func (s *Server) createBundle(w http.ResponseWriter, r *http.Request) {
	var req createBundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	b, err := s.pipeline.CreateBundle(r.Context(), usecase.CreateBundleInput{
		ClassID:    req.ClassID,
		OwnerID:    logging.UserID(r.Context()),
		Title:      req.Title,
		VideoPath:  req.VideoPath,
		SlidesPath: req.SlidesPath,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.pipelineJobs.Enqueue(b.ID)
	writeJSON(w, http.StatusCreated, toBundle(b))
}

func (s *Server) getBundle(w http.ResponseWriter, r *http.Request) {
	b, err := s.pipeline.GetBundle(r.Context(), chi.URLParam(r, "bundleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBundle(b))
}

func (s *Server) listClassBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := s.pipeline.ListByClass(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]Bundle, 0, len(bundles))
	for _, b := range bundles {
		items = append(items, toBundle(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pipeline.Timeline(r.Context(), chi.URLParam(r, "bundleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []model.SlideTimelineEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (s *Server) resubmitBundle(w http.ResponseWriter, r *http.Request) {
	b, err := s.pipeline.Resubmit(r.Context(), chi.URLParam(r, "bundleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.pipelineJobs.Enqueue(b.ID)
	writeJSON(w, http.StatusAccepted, toBundle(b))
}

//
// ---------------- download handlers ----------------
//

func (s *Server) requestDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.downloads.Request(r.Context(), chi.URLParam(r, "bundleID"), logging.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// new or re-requested downloads transfer in the background; clients
	// poll the record for progress
	if d.Status == model.DownloadStatusDownloading {
		s.transferJobs.Enqueue(d.ID)
		writeJSON(w, http.StatusAccepted, toDownload(d))
		return
	}
	writeJSON(w, http.StatusOK, toDownload(d))
}

func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.findOwnDownload(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDownload(d))
}

func (s *Server) getDownloadContent(w http.ResponseWriter, r *http.Request) {
	d, err := s.findOwnDownload(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	content, err := s.downloads.Content(r.Context(), d.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) removeDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.findOwnDownload(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.downloads.Remove(r.Context(), d.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findOwnDownload hides other users' downloads behind a 404 rather than a 403.
func (s *Server) findOwnDownload(r *http.Request) (*model.BundleDownload, error) {
	d, err := s.downloads.GetDownload(r.Context(), chi.URLParam(r, "downloadID"))
	if err != nil {
		return nil, err
	}
	if d.RequesterID != logging.UserID(r.Context()) {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

//
// ---------------- sync handlers ----------------
//

func (s *Server) syncBatch(w http.ResponseWriter, r *http.Request) {
	var req syncBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusUnprocessableEntity, "device_id is required")
		return
	}
	report, err := s.sync.SyncBatch(r.Context(), logging.UserID(r.Context()), req.DeviceID, req.Activities)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sync.Status(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) listConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.sync.Conflicts(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(conflicts))
	for _, a := range conflicts {
		items = append(items, map[string]any{
			"id":             a.ID,
			"type":           string(a.Type),
			"offline_id":     a.OfflineID,
			"payload":        a.Payload,
			"server_payload": a.ServerPayload,
			"recorded_at":    a.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) resolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	res := model.Resolution(req.Resolution)
	switch res {
	case model.ResolutionServerWins, model.ResolutionClientWins, model.ResolutionManual:
	default:
		writeError(w, http.StatusUnprocessableEntity, "unknown resolution")
		return
	}
	a, err := s.sync.ResolveConflict(r.Context(), logging.UserID(r.Context()), chi.URLParam(r, "activityID"), res, req.MergedPayload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         a.ID,
		"status":     string(a.Status),
		"resolution": string(a.Resolution),
	})
}

func (s *Server) retryFailed(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync.RetryFailed(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) serverActivities(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "since must be RFC3339")
			return
		}
		since = parsed
	}
	items, err := s.sync.ServerActivities(r.Context(), logging.UserID(r.Context()), since)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []usecase.ServerActivity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

//
// ---------------- response helpers ----------------
//

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrBundleNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
