package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/abamen95/CRUD-COPASI/internal/config"
	"github.com/abamen95/CRUD-COPASI/internal/database"
	"github.com/abamen95/CRUD-COPASI/internal/model"
	"github.com/abamen95/CRUD-COPASI/internal/service"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router  *mux.Router
	form    *service.FormController
	notices *WebNotifier
	store   *database.Store
}

func setupTestApp(t *testing.T, students ...model.Fields) *testApp {
	t.Helper()
	store, err := database.Open(config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, s := range students {
		res := store.Execute("INSERT INTO students (name, surname, document, grade) VALUES (?, ?, ?, ?)", s.Values()...)
		require.True(t, res.OK())
	}

	notices := NewWebNotifier()
	form := service.NewFormController(store, notices)
	require.NoError(t, form.Reload())

	return &testApp{
		router:  NewRouter(form, service.NewImportService(store), notices),
		form:    form,
		notices: notices,
		store:   store,
	}
}

func (a *testApp) post(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func formValues(action string, f model.Fields) url.Values {
	return url.Values{
		"action":   {action},
		"name":     {f.Name},
		"surname":  {f.Surname},
		"document": {f.Document},
		"grade":    {f.Grade},
	}
}

var ana = model.Fields{Name: "Ana", Surname: "Diaz", Document: "100", Grade: "5"}
var beatriz = model.Fields{Name: "Beatriz", Surname: "Ruiz", Document: "200", Grade: "6"}

func TestIndexRendersGrid(t *testing.T) {
	app := setupTestApp(t, ana, beatriz)

	rr := app.get(t, "/")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, heading := range []string{"ID", "Name", "Surname", "Identity document", "Grade"} {
		assert.Contains(t, body, "<th>"+heading+"</th>")
	}
	assert.Contains(t, body, "<td>Ana</td>")
	assert.Contains(t, body, "<td>Beatriz</td>")
	for _, action := range []string{"add", "delete", "update", "search", "show_all"} {
		assert.Contains(t, body, `value="`+action+`"`)
	}
	assert.NotContains(t, body, `<dialog class="notice`)
}

func TestActionAddShowsNoticeOnce(t *testing.T) {
	app := setupTestApp(t)

	rr := app.post(t, "/action", formValues("add", ana))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, "<td>Ana</td>")
	assert.Contains(t, body, "Student added successfully")

	body = app.get(t, "/").Body.String()
	assert.NotContains(t, body, "Student added successfully")
}

func TestActionValidationError(t *testing.T) {
	app := setupTestApp(t)

	app.post(t, "/action", formValues("add", model.Fields{Name: "Ana"}))

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, `<dialog class="notice error">`)
	assert.Contains(t, body, service.ErrEmptyFields.Error())
	assert.Empty(t, app.store.FetchAll().Rows)
}

func TestActionUnknown(t *testing.T) {
	app := setupTestApp(t)

	rr := app.post(t, "/action", url.Values{"action": {"explode"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSelectThenUpdateAndDelete(t *testing.T) {
	app := setupTestApp(t, ana, beatriz)
	id := app.form.Snapshot().Grid[0].ID
	selectPath := "/select/" + strconv.FormatUint(uint64(id), 10)

	rr := app.post(t, selectPath, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, `<tr class="selected">`)
	assert.Contains(t, body, `value="Diaz"`)

	edited := model.Fields{Name: "Ana Maria", Surname: "Diaz", Document: "100", Grade: "7"}
	app.post(t, "/action", formValues("update", edited))

	rows := app.store.FetchAll().Rows
	require.Len(t, rows, 2)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, edited, rows[0].Fields())

	app.post(t, selectPath, nil)
	app.post(t, "/action", formValues("delete", edited))

	rows = app.store.FetchAll().Rows
	require.Len(t, rows, 1)
	assert.Equal(t, "Beatriz", rows[0].Name)
}

func TestSelectInvalidID(t *testing.T) {
	app := setupTestApp(t, ana)

	rr := app.post(t, "/select/abc", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListStudents(t *testing.T) {
	app := setupTestApp(t, ana, beatriz, model.Fields{Name: "Ananias", Surname: "Gil", Document: "300", Grade: "7"})

	tests := []struct {
		name        string
		action      url.Values
		expectedLen int
	}{
		{"All students", nil, 3},
		{"Search by name", formValues("search", model.Fields{Name: "Ana"}), 2},
		{"Show all after search", formValues("show_all", model.Fields{}), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.action != nil {
				app.post(t, "/action", tt.action)
			}

			rr := app.get(t, "/students")
			require.Equal(t, http.StatusOK, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

			data := response["data"].([]interface{})
			assert.Len(t, data, tt.expectedLen)
			assert.EqualValues(t, tt.expectedLen, response["total"])
		})
	}
}

func TestExportCSV(t *testing.T) {
	app := setupTestApp(t, ana)

	rr := app.get(t, "/students.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "id,name,surname,document,grade\n")
	assert.Contains(t, rr.Body.String(), ",Ana,Diaz,100,5\n")
}

func TestUploadCSV(t *testing.T) {
	app := setupTestApp(t)

	rr := app.get(t, "/import/progress")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	part.Write([]byte("name,surname,document,grade\nAna,Diaz,100,5\nBea,,200,6\n"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr = httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	assert.Len(t, app.form.Snapshot().Grid, 1)

	page := app.get(t, "/").Body.String()
	assert.Contains(t, page, "1 students imported, 1 rows skipped")

	rr = app.get(t, "/import/progress")
	require.Equal(t, http.StatusOK, rr.Code)
	var report service.ImportReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, 1, report.Imported)
}

func TestUploadWithoutFile(t *testing.T) {
	app := setupTestApp(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("other", "x"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	notices := app.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, "error", notices[0].Kind)
}

func TestWebNotifierDrain(t *testing.T) {
	n := NewWebNotifier()
	n.Info("Success", "saved")
	n.Error("Error", "broken")

	assert.Equal(t, []Notice{
		{Kind: "info", Title: "Success", Message: "saved"},
		{Kind: "error", Title: "Error", Message: "broken"},
	}, n.Drain())
	assert.Empty(t, n.Drain())
}

func TestSelectRejectsGet(t *testing.T) {
	app := setupTestApp(t, ana)
	id := app.form.Snapshot().Grid[0].ID

	rr := app.get(t, "/select/"+strconv.FormatUint(uint64(id), 10))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Nil(t, app.form.Snapshot().Selected)
}

func TestConcurrentAddsKeepTheirOwnFields(t *testing.T) {
	app := setupTestApp(t)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				f := model.Fields{Name: fmt.Sprintf("W%d-%d", w, i), Surname: "S", Document: "D", Grade: "G"}
				rr := app.post(t, "/action", formValues("add", f))
				assert.Equal(t, http.StatusSeeOther, rr.Code)
			}
		}(w)
	}
	wg.Wait()

	rows := app.store.FetchAll().Rows
	seen := make(map[string]bool)
	for _, row := range rows {
		seen[row.Name] = true
	}
	assert.Len(t, rows, workers*perWorker)
	assert.Len(t, seen, workers*perWorker)

	for _, n := range app.notices.Drain() {
		assert.Equal(t, "info", n.Kind, n.Message)
	}
}
