package handler

import (
	"net/http"

	"github.com/abamen95/CRUD-COPASI/internal/service"
	"github.com/gorilla/mux"
)

// NewRouter wires every route of the window onto one form controller.
func NewRouter(form *service.FormController, importService *service.ImportService, notices *WebNotifier) *mux.Router {
	studentHandler := NewStudentHandler(form, notices)
	uploadHandler := NewUploadHandler(importService, form, notices)
	progressHandler := NewProgressHandler(importService)

	r := mux.NewRouter()

	r.HandleFunc("/", studentHandler.Index).Methods(http.MethodGet)
	r.HandleFunc("/action", studentHandler.Action).Methods(http.MethodPost)
	r.HandleFunc("/select/{id:[0-9]+}", studentHandler.Select).Methods(http.MethodPost)
	r.HandleFunc("/students", studentHandler.ListStudents).Methods(http.MethodGet)
	r.HandleFunc("/students.csv", studentHandler.ExportCSV).Methods(http.MethodGet)

	r.HandleFunc("/import", uploadHandler.UploadCSV).Methods(http.MethodPost)
	r.HandleFunc("/import/progress", progressHandler.GetImportProgress).Methods(http.MethodGet)

	return r
}
