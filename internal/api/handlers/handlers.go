package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/youtube-trending/internal/api/middleware"
	"github.com/dvloznov/youtube-trending/internal/assets"
	"github.com/dvloznov/youtube-trending/internal/bigquery"
	"github.com/dvloznov/youtube-trending/internal/iomanager"
	"github.com/dvloznov/youtube-trending/internal/jobs"
)

// AssetsHandler handles asset graph and materialization endpoints.
type AssetsHandler struct {
	graph     *assets.Graph
	store     iomanager.Reader
	publisher jobs.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(graph *assets.Graph, store iomanager.Reader, publisher jobs.Publisher, log zerolog.Logger) *AssetsHandler {
	return &AssetsHandler{
		graph:     graph,
		store:     store,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

type assetView struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Inputs      []string `json:"inputs"`
	Partitioned bool     `json:"partitioned"`
	Source      bool     `json:"source"`
	Label       string   `json:"label,omitempty"`
	Table       string   `json:"table,omitempty"`
}

// ListAssets handles GET /api/assets
func (h *AssetsHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	list := h.graph.Assets()
	views := make([]assetView, len(list))
	for i, a := range list {
		inputs := make([]string, len(a.Inputs))
		for j, in := range a.Inputs {
			inputs[j] = in.Key
		}
		views[i] = assetView{
			Key:         a.Key,
			Description: a.Description,
			Inputs:      inputs,
			Partitioned: a.Partitioned,
			Source:      a.IsSource(),
			Label:       a.Label,
			Table:       a.Table,
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assets": views,
		"count":  len(views),
	})
}

// ListPartitions handles GET /api/partitions
func (h *AssetsHandler) ListPartitions(w http.ResponseWriter, r *http.Request) {
	keys := h.graph.Partitions.Keys(h.now())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"partitions": keys,
		"count":      len(keys),
	})
}

// EnqueueMaterialization handles POST /api/materializations
func (h *AssetsHandler) EnqueueMaterialization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset     string `json:"asset"`
		Partition string `json:"partition"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	a, ok := h.graph.Asset(req.Asset)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown asset")
		return
	}
	if a.IsSource() {
		middleware.WriteError(w, http.StatusBadRequest, "Source assets cannot be materialized")
		return
	}
	switch {
	case a.Partitioned && req.Partition == "":
		middleware.WriteError(w, http.StatusBadRequest, "partition is required for this asset")
		return
	case a.Partitioned:
		if _, err := h.graph.Partitions.Validate(req.Partition, h.now()); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid partition: "+err.Error())
			return
		}
	case req.Partition != "":
		middleware.WriteError(w, http.StatusBadRequest, "Asset is not partitioned")
		return
	}

	job := &jobs.MaterializeJob{
		AssetKey:     req.Asset,
		PartitionKey: req.Partition,
	}

	if err := h.publisher.PublishMaterialize(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue materialization job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue materialization job")
		return
	}
	jobID, status := job.JobID, job.Status

	h.log.Info().
		Str("job_id", jobID).
		Str("asset", req.Asset).
		Str("partition", req.Partition).
		Msg("Materialization job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":    jobID,
		"asset":     req.Asset,
		"partition": req.Partition,
		"status":    string(status),
	})
}

// DatasetMetadata handles GET /api/datasets/metadata?asset=&partition=
func (h *AssetsHandler) DatasetMetadata(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := query.Get("asset")
	partition := query.Get("partition")

	if _, ok := h.graph.Asset(key); !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown asset")
		return
	}

	meta, err := h.store.Metadata(r.Context(), key, partition)
	if err != nil {
		if errors.Is(err, iomanager.ErrDatasetNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Dataset not found")
			return
		}
		h.log.Error().Err(err).Str("asset", key).Msg("Failed to read dataset metadata")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset metadata")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"asset":     key,
		"partition": partition,
		"metadata":  meta,
	})
}

// RunsHandler handles materialization run history endpoints.
type RunsHandler struct {
	repo bigquery.MaterializationRepository
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo bigquery.MaterializationRepository, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		repo: repo,
		log:  log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 50
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	runs, err := h.repo.ListRuns(r.Context(), query.Get("asset"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*bigquery.MaterializationRunRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		AssetKey: query.Get("asset"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
