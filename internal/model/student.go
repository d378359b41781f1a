package model

// Student is one row of the students table. ID is assigned by the store and
// never changes afterwards.
type Student struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Document string `json:"document"`
	Grade    string `json:"grade"`
}

func (Student) TableName() string {
	return "students"
}

func (s Student) Fields() Fields {
	return Fields{Name: s.Name, Surname: s.Surname, Document: s.Document, Grade: s.Grade}
}

// Fields are the four editable attributes of a Student, in column order.
type Fields struct {
	Name     string
	Surname  string
	Document string
	Grade    string
}

// Complete reports whether every field is non-empty.
func (f Fields) Complete() bool {
	return f.Name != "" && f.Surname != "" && f.Document != "" && f.Grade != ""
}

// Values returns the fields as positional query parameters.
func (f Fields) Values() []any {
	return []any{f.Name, f.Surname, f.Document, f.Grade}
}
