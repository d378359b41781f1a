package handler

import (
	"encoding/json"
	"net/http"

	"github.com/abamen95/CRUD-COPASI/internal/service"
)

type ProgressHandler struct {
	importService *service.ImportService
}

func NewProgressHandler(importService *service.ImportService) *ProgressHandler {
	return &ProgressHandler{importService: importService}
}

// GetImportProgress returns the report of the latest CSV import
func (h *ProgressHandler) GetImportProgress(w http.ResponseWriter, r *http.Request) {
	report := h.importService.LastReport()
	if report == nil {
		http.Error(w, "No import has run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
