package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"statflow/domain/core"
	"statflow/domain/table"
	"statflow/internal/api"
	"statflow/internal/pipeline"
	"statflow/internal/report"
	"statflow/ports"

	"github.com/gin-gonic/gin"
)

// uploadTimeout bounds the background pipeline run for one upload
const uploadTimeout = 5 * time.Minute

// handleUpload accepts a multipart file, answers immediately with the
// run ID, and profiles in the background. Progress streams over SSE
// keyed by that run ID.
func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	defer file.Close()

	format, ceiling, err := s.formatCeiling(header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if header.Size > ceiling {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": core.ErrFileTooLarge.Error(),
			"limit": ceiling,
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, ceiling+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	if int64(len(data)) > ceiling {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": core.ErrFileTooLarge.Error()})
		return
	}

	sheet := -1
	if raw := c.Query("sheet"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			sheet = n
		}
	}

	rec := &ports.RunRecord{
		ID:               core.NewRunID(),
		DatasetID:        core.NewDatasetID(),
		OriginalFilename: header.Filename,
		FileSize:         header.Size,
		Format:           format,
		Status:           ports.RunProcessing,
		CreatedAt:        core.Now(),
		UpdatedAt:        core.Now(),
	}
	if err := s.repo.Create(c.Request.Context(), rec); err != nil {
		s.logger.Error("[Server] create run record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	}

	go s.runPipeline(rec, data, header.Filename, sheet)

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": rec.ID,
		"status": rec.Status,
	})
}

// runPipeline drives one upload through the pipeline off the request
// goroutine, broadcasting progress and recording the terminal status
func (s *Server) runPipeline(rec *ports.RunRecord, data []byte, filename string, sheet int) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	progress := func(processed, total int, pct, eta float64) {
		s.hub.Broadcast(api.ProgressEvent{
			RunID:         rec.ID.String(),
			EventType:     "progress",
			ProcessedRows: processed,
			TotalRows:     total,
			Percentage:    pct,
			ETASeconds:    eta,
		})
	}

	state, err := s.pipe.Run(ctx, data, filename, sheet, progress)
	if err != nil {
		s.logger.Error("[Server] run %s failed: %v", rec.ID, err)
		if uerr := s.repo.UpdateStatus(context.Background(), rec.ID, ports.RunFailed, err.Error()); uerr != nil {
			s.logger.Error("[Server] mark run %s failed: %v", rec.ID, uerr)
		}
		s.hub.Broadcast(api.ProgressEvent{RunID: rec.ID.String(), EventType: "failed", Message: err.Error()})
		return
	}

	// the pipeline mints its own IDs; rekey both to the record's so the
	// persisted dataset_id names the dataset that actually exists
	state.RunID = rec.ID
	state.Dataset.ID = rec.DatasetID
	s.storeState(state)

	rec.RowCount = state.Dataset.RowCount()
	rec.ColumnCount = state.Dataset.ColumnCount()
	rec.MissingRate = state.MissingRate()
	rec.Status = ports.RunReady
	rec.Validation = state.Validation
	if err := s.repo.Update(context.Background(), rec); err != nil {
		s.logger.Error("[Server] update run %s: %v", rec.ID, err)
	}

	s.hub.Broadcast(api.ProgressEvent{
		RunID:         rec.ID.String(),
		EventType:     "done",
		ProcessedRows: rec.RowCount,
		TotalRows:     rec.RowCount,
		Percentage:    100,
	})
}

// handleSheets lists the sheets of an uploaded workbook without
// ingesting it
func (s *Server) handleSheets(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	defer file.Close()

	sheets, err := s.parser.ListSheets(c.Request.Context(), file, header.Filename)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheets": sheets})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	runs, err := s.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"run": rec}
	if state, ok := s.stateFor(id); ok {
		resp["profiles"] = state.Profiles
		if state.Matrix != nil {
			resp["correlations"] = state.Matrix
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleReport renders the stored run as a standalone HTML page
func (s *Server) handleReport(c *gin.Context) {
	state, ok := s.runState(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(state))
}

// handleExport re-serializes the dataset as CSV; ?impute=1 fills
// missing cells from the column profiles first
func (s *Server) handleExport(c *gin.Context) {
	state, ok := s.runState(c)
	if !ok {
		return
	}

	ds := state.Dataset
	if c.Query("impute") == "1" {
		profiles := make(map[string]*table.ColumnStatistics, len(state.Profiles))
		for _, p := range state.Profiles {
			profiles[p.Name] = p
		}
		ds = table.Impute(ds, profiles)
	}

	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to serialize dataset"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(ds.Source)+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// handleCompute runs one statistical operation on caller-supplied groups
func (s *Server) handleCompute(c *gin.Context) {
	var req ports.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	op := ports.Operation(c.Param("op"))
	resp, err := s.compute.Invoke(c.Request.Context(), op, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// runState resolves the :id param to an in-memory run state, answering
// the request itself on failure
func (s *Server) runState(c *gin.Context) (*pipeline.RunState, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	state, ok := s.stateFor(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": core.ErrRunNotFound.Error()})
		return nil, false
	}
	return state, true
}

// formatCeiling maps a filename to its format and byte ceiling
func (s *Server) formatCeiling(filename string) (string, int64, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv", s.config.Ingest.MaxCSVBytes, nil
	case ".xlsx", ".xlsm":
		return "xlsx", s.config.Ingest.MaxSpreadsheetBytes, nil
	default:
		return "", 0, core.ErrUnsupportedFormat
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case core.IsInputError(err), core.IsParseError(err), errors.Is(err, core.ErrInsufficientData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
