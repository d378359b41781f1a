package handler

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/abamen95/CRUD-COPASI/internal/model"
	"github.com/abamen95/CRUD-COPASI/internal/service"
	"github.com/gorilla/mux"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type gridRow struct {
	model.Student
	Selected bool
}

type page struct {
	Rows    []gridRow
	Fields  model.Fields
	Notices []Notice
}

type StudentHandler struct {
	form    *service.FormController
	notices *WebNotifier
}

func NewStudentHandler(form *service.FormController, notices *WebNotifier) *StudentHandler {
	return &StudentHandler{form: form, notices: notices}
}

// Index renders the window and shows any pending notices.
func (h *StudentHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := h.form.Snapshot()

	p := page{Fields: view.Fields, Notices: h.notices.Drain()}
	for _, s := range view.Grid {
		p.Rows = append(p.Rows, gridRow{Student: s, Selected: view.Selected != nil && *view.Selected == s.ID})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, p); err != nil {
		log.Println("Error rendering page:", err)
	}
}

// Action applies the submitted input fields, then runs the pressed button.
func (h *StudentHandler) Action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}

	fields := model.Fields{
		Name:     r.PostForm.Get("name"),
		Surname:  r.PostForm.Get("surname"),
		Document: r.PostForm.Get("document"),
		Grade:    r.PostForm.Get("grade"),
	}
	// Other failures were already queued as notices.
	err := h.form.Apply(fields, service.Action(r.PostForm.Get("action")))
	if errors.Is(err, service.ErrUnknownAction) {
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *StudentHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	_ = h.form.Select(uint(id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ListStudents returns the grid as JSON.
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	view := h.form.Snapshot()

	response := map[string]interface{}{
		"data":     view.Grid,
		"total":    len(view.Grid),
		"selected": view.Selected,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Println("Error encoding response:", err)
	}
}

// ExportCSV downloads the grid as it is currently shown.
func (h *StudentHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="estudiantes.csv"`)
	if err := service.ExportCSV(w, h.form.Snapshot().Grid); err != nil {
		log.Println("Error writing CSV:", err)
	}
}
