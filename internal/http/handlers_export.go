package http

import (
	"fmt"
	"net/http"
	"time"

	"tally/internal/cloudexport"
	"tally/internal/core"
)

func exportFilename(ext string) string {
	return fmt.Sprintf("expenses-%s.%s", time.Now().Format("2006-01-02"), ext)
}

// handleExportCSV downloads the filtered view as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	doc := core.ExportCSV(s.coordinator.Filtered())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("csv")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// handleExportXLSX downloads the filtered view as a spreadsheet.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := cloudexport.ExportXLSX(s.coordinator.Filtered())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build spreadsheet")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("xlsx")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cloudexport.Templates())
}

// handleExportData returns the template-scoped collection as JSON.
func (s *Server) handleExportData(w http.ResponseWriter, r *http.Request) {
	template := cloudexport.TemplateType(r.URL.Query().Get("template"))
	doc, err := s.hub.GenerateExportData(s.coordinator.Expenses(), template)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Integrations(r.Context()))
}

func (s *Server) handleToggleIntegration(w http.ResponseWriter, r *http.Request) {
	id, err := cloudexport.ParseIntegration(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	connected, err := s.hub.ToggleIntegration(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "toggle failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.History(r.Context()))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ClearHistory(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed clearing history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cloudExportRequest struct {
	Template    string `json:"template"`
	Destination string `json:"destination"`
}

func (s *Server) handleCloudExport(w http.ResponseWriter, r *http.Request) {
	var req cloudExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	destination, err := cloudexport.ParseIntegration(req.Destination)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	item, err := s.hub.ExportToCloud(r.Context(), s.coordinator.Expenses(), cloudexport.TemplateType(req.Template), destination)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type emailExportRequest struct {
	Template string `json:"template"`
	Email    string `json:"email"`
}

func (s *Server) handleEmailExport(w http.ResponseWriter, r *http.Request) {
	var req emailExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.hub.ExportViaEmail(r.Context(), s.coordinator.Expenses(), cloudexport.TemplateType(req.Template), req.Email)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Shares(r.Context()))
}

type createShareRequest struct {
	Template      string `json:"template"`
	ExpiresInDays int    `json:"expires_in_days"`
	MaxAccess     int    `json:"max_access"`
	Password      string `json:"password"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	share, err := s.hub.CreateShareableLink(r.Context(), s.coordinator.Expenses(), cloudexport.TemplateType(req.Template), cloudexport.ShareOptions{
		ExpiresInDays: req.ExpiresInDays,
		MaxAccess:     req.MaxAccess,
		Password:      req.Password,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Schedules(r.Context()))
}

type createScheduleRequest struct {
	Template    string `json:"template"`
	Destination string `json:"destination"`
	Frequency   string `json:"frequency"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	destination, err := cloudexport.ParseIntegration(req.Destination)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	frequency, err := cloudexport.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	schedule, err := s.hub.CreateSchedule(r.Context(), cloudexport.TemplateType(req.Template), destination, frequency)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	s.hub.ToggleSchedule(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, s.hub.Schedules(r.Context()))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s.hub.DeleteSchedule(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
