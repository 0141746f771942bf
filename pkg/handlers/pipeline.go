package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/pipeline"
	"github.com/dataclinic-ai/engine/pkg/store"
)

// maxUploadBytes caps CSV uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// PipelineHandler is the run outcome surface for the UI collaborator: it
// exposes upload, diagnosis, cleaning, run state and the cleaned relation.
type PipelineHandler struct {
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	logger       *zap.Logger
}

// NewPipelineHandler creates the pipeline HTTP surface.
func NewPipelineHandler(orchestrator *pipeline.Orchestrator, st *store.Store, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{orchestrator: orchestrator, store: st, logger: logger}
}

// RegisterRoutes registers the pipeline routes on the given mux.
func (h *PipelineHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/data", h.Upload)
	mux.HandleFunc("POST /api/diagnose", h.Diagnose)
	mux.HandleFunc("POST /api/clean", h.Clean)
	mux.HandleFunc("POST /api/pipeline", h.RunPipeline)
	mux.HandleFunc("GET /api/run", h.RunState)
	mux.HandleFunc("POST /api/reset", h.Reset)
	mux.HandleFunc("GET /api/clean-data", h.CleanData)
	mux.HandleFunc("GET /api/clean-data.csv", h.CleanDataCSV)
}

// Upload handles POST /api/data: loads a CSV into a fresh working store and
// discards any prior run.
func (h *PipelineHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var reader io.Reader = r.Body
	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_upload", "multipart form is missing the 'file' field")
			return
		}
		defer file.Close()
		reader = file
	}

	rows, err := h.store.LoadCSV(r.Context(), reader)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_csv", err.Error())
		return
	}

	// A new dataset invalidates any in-flight run.
	h.orchestrator.Reset()

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"columns": h.store.Columns(),
		"rows":    rows,
	})
}

// Diagnose handles POST /api/diagnose: runs schema analysis on the loaded
// sample.
func (h *PipelineHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	diagnosis, err := h.orchestrator.Diagnose(r.Context())
	if err != nil {
		h.logger.Warn("diagnosis failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "diagnosis_failed", pipeline.FailureText(err))
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"diagnosis": diagnosis})
}

// Clean handles POST /api/clean: generates and executes the cleaning script
// under the bounded correction loop.
func (h *PipelineHandler) Clean(w http.ResponseWriter, r *http.Request) {
	run, err := h.orchestrator.Clean(r.Context())
	if err != nil {
		h.logger.Warn("cleaning failed", zap.Error(err))
		status := http.StatusBadGateway
		if run == nil {
			status = http.StatusConflict
		}
		_ = ErrorResponse(w, status, "cleaning_failed", pipeline.FailureText(err))
		return
	}
	_ = WriteJSON(w, http.StatusOK, run)
}

// RunPipeline handles POST /api/pipeline: diagnosis followed by cleaning.
func (h *PipelineHandler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	run, err := h.orchestrator.RunPipeline(r.Context())
	if err != nil {
		h.logger.Warn("pipeline failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "pipeline_failed", pipeline.FailureText(err))
		return
	}
	_ = WriteJSON(w, http.StatusOK, run)
}

// RunState handles GET /api/run: the current run with its diagnosis and
// attempt log for the transparency view.
func (h *PipelineHandler) RunState(w http.ResponseWriter, r *http.Request) {
	run := h.orchestrator.Run()
	if run == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_run", "no pipeline run in this session")
		return
	}
	_ = WriteJSON(w, http.StatusOK, run)
}

// Reset handles POST /api/reset: discards the run and the working store.
func (h *PipelineHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Reset()
	if err := h.store.Reset(r.Context()); err != nil {
		_ = ErrorResponse(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// CleanData handles GET /api/clean-data: the cleaned relation as JSON.
func (h *PipelineHandler) CleanData(w http.ResponseWriter, r *http.Request) {
	columns, rows, err := h.store.CleanData(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_clean_data", "no cleaned data available yet")
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"columns": columns, "rows": rows})
}

// CleanDataCSV handles GET /api/clean-data.csv: the cleaned relation as a
// CSV download.
func (h *PipelineHandler) CleanDataCSV(w http.ResponseWriter, r *http.Request) {
	columns, rows, err := h.store.CleanData(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_clean_data", "no cleaned data available yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="clean_data.csv"`)

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		h.logger.Error("write csv header", zap.Error(err))
		return
	}
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			h.logger.Error("write csv row", zap.Int("row", i), zap.Error(err))
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error(fmt.Sprintf("flush csv: %v", err))
	}
}
