package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/export"
)

var validate = validator.New()

// StartRequest represents the request body for POST /crawl/start. Both fields
// are optional; an empty body starts a crawl of the page already open.
type StartRequest struct {
	SearchURL string `json:"search_url,omitempty" validate:"omitempty,url"`
	MaxPages  int    `json:"max_pages,omitempty" validate:"gte=0"`
}

// Validate checks the request fields.
func (r *StartRequest) Validate() error {
	var verrs validator.ValidationErrors
	if err := validate.Struct(r); err != nil {
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ErrValidation{Field: verrs[0].Field(), Message: fmt.Sprintf("failed on '%s'", verrs[0].Tag())}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// StartResponse represents the response for POST /crawl/start
type StartResponse struct {
	RunID string        `json:"run_id"`
	State crawler.State `json:"state"`
}

// CountResponse represents the response for GET /rows/count
type CountResponse struct {
	Count int `json:"count"`
}

// handleStartCrawl starts a crawl in the background
func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, err)
		return
	}

	opts := crawler.RunOptions{SearchURL: req.SearchURL, MaxPages: req.MaxPages}
	if opts.SearchURL == "" {
		opts.SearchURL = s.searchURL
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = s.maxPages
	}

	runID, err := s.crawl.Start(s.crawlCtx, opts)
	if err != nil {
		s.failure(w, err)
		return
	}

	log.Printf("[SERVER] Started crawl %s", runID)
	s.jsonResponse(w, http.StatusAccepted, StartResponse{RunID: runID, State: crawler.StateRunning})
}

// handleStopCrawl requests the active crawl to stop
func (s *Server) handleStopCrawl(w http.ResponseWriter, _ *http.Request) {
	if err := s.crawl.Stop(); err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, s.crawl.Status())
}

// handleStatus returns the state of the current or last crawl
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.crawl.Status()
	if !s.crawl.Running() {
		if n, err := s.rows.Count(r.Context()); err == nil {
			status.Rows = n
		}
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// handleEvents streams crawl progress as Server-Sent Events. The current
// status is sent first as a state event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	status := s.crawl.Status()
	initial := events.Event{
		Type:    events.TypeState,
		RunID:   status.RunID,
		State:   string(status.State),
		Page:    status.Page,
		Rows:    status.Rows,
		Message: status.Message,
		At:      time.Now().UTC(),
	}
	if err := sse.WriteEvent(initial.Type, initial); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.WriteEvent(evt.Type, evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}

// handleListRows returns every stored row, header first
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows.Snapshot(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	if rows == nil {
		rows = [][]string{}
	}
	s.jsonResponse(w, http.StatusOK, rows)
}

// handleCountRows returns the number of stored data rows
func (s *Server) handleCountRows(w http.ResponseWriter, r *http.Request) {
	n, err := s.rows.Count(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, CountResponse{Count: n})
}

// handleClearRows removes every stored row. Refused while a crawl is running.
func (s *Server) handleClearRows(w http.ResponseWriter, r *http.Request) {
	if s.crawl.Running() {
		s.failure(w, errCrawlActive)
		return
	}
	if err := s.rows.Clear(r.Context()); err != nil {
		s.failure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportCSV downloads the stored rows as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, export.DefaultCSVName, "text/csv; charset=utf-8", export.WriteCSV)
}

// handleExportXLSX downloads the stored rows as an Excel workbook
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, export.DefaultXLSXName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)
}

// download renders the snapshot into memory first so that failures still
// produce a JSON error instead of a truncated attachment.
func (s *Server) download(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer, [][]string) error) {
	if s.crawl.Running() {
		s.failure(w, errCrawlActive)
		return
	}
	rows, err := s.rows.Snapshot(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		s.failure(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[SERVER] Failed to write %s: %v", filename, err)
	}
}
