package service

import (
	"errors"
	"sync"

	"github.com/abamen95/CRUD-COPASI/internal/database"
	"github.com/abamen95/CRUD-COPASI/internal/model"
)

const (
	insertStudent = "INSERT INTO students (name, surname, document, grade) VALUES (?, ?, ?, ?)"
	deleteStudent = "DELETE FROM students WHERE id=?"
	updateStudent = "UPDATE students SET name=?, surname=?, document=?, grade=? WHERE id=?"
	searchByName  = "SELECT * FROM students WHERE name LIKE ?"
)

var (
	ErrEmptyFields = errors.New("please fill in all fields")
	ErrNoSelection = errors.New("please select a record first")
	ErrEmptySearch = errors.New("please enter a name to search for")
	ErrUnknownRow  = errors.New("the selected record is not in the table")

	ErrUnknownAction = errors.New("unknown action")
)

// Action names one of the form's buttons.
type Action string

const (
	ActionAdd     Action = "add"
	ActionDelete  Action = "delete"
	ActionUpdate  Action = "update"
	ActionSearch  Action = "search"
	ActionShowAll Action = "show_all"
)

// RecordStore is the part of database.Store the form needs.
type RecordStore interface {
	Execute(query string, args ...any) database.Result
	FetchAll() database.Result
}

// Notifier shows blocking messages to the operator.
type Notifier interface {
	Info(title, message string)
	Error(title, message string)
}

// View is a copy of everything the window displays.
type View struct {
	Fields   model.Fields
	Grid     []model.Student
	Selected *uint
}

// FormController turns operator actions into store calls and keeps the grid
// in sync with the store. Actions are applied one at a time.
type FormController struct {
	mu       sync.Mutex
	store    RecordStore
	notifier Notifier

	fields   model.Fields
	grid     []model.Student
	selected *uint
}

func NewFormController(store RecordStore, notifier Notifier) *FormController {
	return &FormController{store: store, notifier: notifier}
}

// SetFields replaces the contents of the four input fields.
func (c *FormController) SetFields(f model.Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = f
}

func (c *FormController) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{Fields: c.fields, Grid: make([]model.Student, len(c.grid))}
	copy(v.Grid, c.grid)
	if c.selected != nil {
		id := *c.selected
		v.Selected = &id
	}
	return v
}

// Reload replaces the grid with every record in the store.
func (c *FormController) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reload()
}

func (c *FormController) Add() error {
	return c.locked(c.add)
}

// Delete removes the selected record. The input fields are left as they are.
func (c *FormController) Delete() error {
	return c.locked(c.delete)
}

// Update overwrites the four fields of the selected record with the current
// input fields.
func (c *FormController) Update() error {
	return c.locked(c.update)
}

// Search shows only the records whose name contains the name field.
func (c *FormController) Search() error {
	return c.locked(c.search)
}

// ShowAll drops any search filter and selection.
func (c *FormController) ShowAll() error {
	return c.Reload()
}

// Apply replaces the input fields and runs action on them under one lock, so
// no other action can see or change the fields in between. An unknown action
// returns ErrUnknownAction and leaves the fields untouched.
func (c *FormController) Apply(f model.Fields, action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var run func() error
	switch action {
	case ActionAdd:
		run = c.add
	case ActionDelete:
		run = c.delete
	case ActionUpdate:
		run = c.update
	case ActionSearch:
		run = c.search
	case ActionShowAll:
		run = c.reload
	default:
		return ErrUnknownAction
	}

	c.fields = f
	return run()
}

func (c *FormController) locked(run func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return run()
}

func (c *FormController) add() error {
	if !c.fields.Complete() {
		return c.invalid(ErrEmptyFields)
	}

	if res := c.store.Execute(insertStudent, c.fields.Values()...); !res.OK() {
		return c.storageFailed(res.Err)
	}

	c.notifier.Info("Success", "Student added successfully")
	err := c.reload()
	c.fields = model.Fields{}
	return err
}

func (c *FormController) delete() error {
	if c.selected == nil {
		return c.invalid(ErrNoSelection)
	}

	if res := c.store.Execute(deleteStudent, *c.selected); !res.OK() {
		return c.storageFailed(res.Err)
	}

	c.notifier.Info("Success", "Student deleted successfully")
	return c.reload()
}

func (c *FormController) update() error {
	if c.selected == nil {
		return c.invalid(ErrNoSelection)
	}

	args := append(c.fields.Values(), *c.selected)
	if res := c.store.Execute(updateStudent, args...); !res.OK() {
		return c.storageFailed(res.Err)
	}

	c.notifier.Info("Success", "Student updated successfully")
	err := c.reload()
	c.fields = model.Fields{}
	return err
}

func (c *FormController) search() error {
	term := c.fields.Name
	if term == "" {
		return c.invalid(ErrEmptySearch)
	}

	res := c.store.Execute(searchByName, "%"+term+"%")
	if !res.OK() {
		return c.storageFailed(res.Err)
	}
	c.setGrid(res.Rows)
	return nil
}

// Select marks the grid row with the given id and copies its fields into
// the inputs.
func (c *FormController) Select(id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range c.grid {
		if row.ID == id {
			c.selected = &id
			c.fields = row.Fields()
			return nil
		}
	}
	return c.invalid(ErrUnknownRow)
}

func (c *FormController) reload() error {
	res := c.store.FetchAll()
	if !res.OK() {
		return c.storageFailed(res.Err)
	}
	c.setGrid(res.Rows)
	return nil
}

// setGrid rebuilds the grid. The old rows, and with them the selection, are
// discarded.
func (c *FormController) setGrid(rows []model.Student) {
	c.grid = make([]model.Student, len(rows))
	copy(c.grid, rows)
	c.selected = nil
}

func (c *FormController) invalid(err error) error {
	c.notifier.Error("Error", err.Error())
	return err
}

func (c *FormController) storageFailed(err error) error {
	c.notifier.Error("Database error", err.Error())
	return err
}
