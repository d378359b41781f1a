package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abamen95/CRUD-COPASI/internal/model"
)

const importBatchSize = 200

var csvHeader = []string{"name", "surname", "document", "grade"}

type ImportReport struct {
	FileName  string    `json:"fileName"`
	Total     int       `json:"total"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Status    string    `json:"status"` // "processing", "completed", "error"
	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ImportService loads student records from CSV files through the record
// store, using the same parameterized inserts as the form.
type ImportService struct {
	store RecordStore

	lastReport *ImportReport
	reportLock sync.RWMutex
}

func NewImportService(store RecordStore) *ImportService {
	return &ImportService{store: store}
}

// LastReport returns a copy of the most recent import report, or nil.
func (s *ImportService) LastReport() *ImportReport {
	s.reportLock.RLock()
	defer s.reportLock.RUnlock()

	if s.lastReport == nil {
		return nil
	}
	copyReport := *s.lastReport
	return &copyReport
}

// ImportCSV reads name,surname,document,grade rows from r. A leading header
// row is skipped, and so are rows with an empty field. The first storage
// error stops the import; rows committed before it stay.
func (s *ImportService) ImportCSV(fileName string, r io.Reader) (*ImportReport, error) {
	report := &ImportReport{FileName: fileName, Status: "processing", StartTime: time.Now()}
	s.setReport(report)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var batch []model.Fields
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.finish(report, fmt.Errorf("read csv: %w", err))
		}

		if first {
			first = false
			// Spreadsheet exports often start with a UTF-8 byte order mark.
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}
			if isHeader(record) {
				continue
			}
		}

		report.Total++
		fields, ok := parseRecord(record)
		if !ok {
			report.Skipped++
			continue
		}

		batch = append(batch, fields)
		if len(batch) >= importBatchSize {
			if err := s.saveBatch(batch); err != nil {
				return s.finish(report, err)
			}
			report.Imported += len(batch)
			batch = nil
			s.setReport(report)
		}
	}

	if len(batch) > 0 {
		if err := s.saveBatch(batch); err != nil {
			return s.finish(report, err)
		}
		report.Imported += len(batch)
	}

	log.Printf("Imported %d of %d records from %s in %v", report.Imported, report.Total, fileName, time.Since(report.StartTime))
	return s.finish(report, nil)
}

func (s *ImportService) saveBatch(batch []model.Fields) error {
	var values []any
	var query strings.Builder
	query.WriteString("INSERT INTO students (name, surname, document, grade) VALUES ")

	for i, f := range batch {
		if i > 0 {
			query.WriteString(",")
		}
		query.WriteString("(?, ?, ?, ?)")
		values = append(values, f.Values()...)
	}

	res := s.store.Execute(query.String(), values...)
	return res.Err
}

func (s *ImportService) finish(report *ImportReport, err error) (*ImportReport, error) {
	report.EndTime = time.Now()
	if err != nil {
		report.Status = "error"
		report.Error = err.Error()
	} else {
		report.Status = "completed"
	}
	s.setReport(report)

	copyReport := *report
	return &copyReport, err
}

func (s *ImportService) setReport(report *ImportReport) {
	s.reportLock.Lock()
	defer s.reportLock.Unlock()
	copyReport := *report
	s.lastReport = &copyReport
}

func isHeader(record []string) bool {
	if len(record) != len(csvHeader) {
		return false
	}
	for i, col := range record {
		if !strings.EqualFold(strings.TrimSpace(col), csvHeader[i]) {
			return false
		}
	}
	return true
}

func parseRecord(record []string) (model.Fields, bool) {
	if len(record) != len(csvHeader) {
		return model.Fields{}, false
	}
	f := model.Fields{
		Name:     strings.TrimSpace(record[0]),
		Surname:  strings.TrimSpace(record[1]),
		Document: strings.TrimSpace(record[2]),
		Grade:    strings.TrimSpace(record[3]),
	}
	return f, f.Complete()
}

// ExportCSV writes rows with an id,name,surname,document,grade header.
func ExportCSV(w io.Writer, rows []model.Student) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{"id"}, csvHeader...)); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{strconv.FormatUint(uint64(row.ID), 10), row.Name, row.Surname, row.Document, row.Grade}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
