package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/abamen95/CRUD-COPASI/internal/service"
)

const maxUploadSize = 10 << 20 // 10MB

type UploadHandler struct {
	importService *service.ImportService
	form          *service.FormController
	notices       *WebNotifier
}

func NewUploadHandler(importService *service.ImportService, form *service.FormController, notices *WebNotifier) *UploadHandler {
	return &UploadHandler{importService: importService, form: form, notices: notices}
}

// UploadCSV imports the uploaded file and reloads the grid.
func (h *UploadHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "File too large or bad request", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.notices.Error("Error", "Please choose a CSV file to import")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	report, err := h.importService.ImportCSV(header.Filename, file)
	if err != nil {
		log.Printf("Error importing %s: %v", header.Filename, err)
		h.notices.Error("Import error", fmt.Sprintf("%s: %d imported before failure: %v", header.Filename, report.Imported, err))
	} else {
		h.notices.Info("Success", fmt.Sprintf("%d students imported, %d rows skipped", report.Imported, report.Skipped))
	}

	_ = h.form.Reload()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
