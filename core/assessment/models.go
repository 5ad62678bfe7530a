package assessment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Test kinds.
type TestKind string

const (
	TestMock      TestKind = "mock"
	TestPractice  TestKind = "practice"
	TestSectional TestKind = "sectional"
)

var AllTestKinds = []TestKind{TestMock, TestPractice, TestSectional}

func (tk TestKind) Known() bool {
	for _, k := range AllTestKinds {
		if tk == k {
			return true
		}
	}
	return false
}

// Question types. MCQ answers auto-mark; essay and audio answers go
// through manual evaluation.
type QuestionType string

const (
	QuestionMCQ   QuestionType = "mcq"
	QuestionText  QuestionType = "text"
	QuestionEssay QuestionType = "essay"
	QuestionAudio QuestionType = "audio"
)

var AllQuestionTypes = []QuestionType{QuestionMCQ, QuestionText, QuestionEssay, QuestionAudio}

func (qt QuestionType) Known() bool {
	for _, t := range AllQuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// NeedsManualEvaluation reports whether answers of this type cannot be
// auto-marked.
func (qt QuestionType) NeedsManualEvaluation() bool {
	return qt == QuestionEssay || qt == QuestionAudio
}

type Test struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CourseID        string    `json:"course_id"`
	TestKind        TestKind  `json:"test_kind"`
	TotalMarks      int       `json:"total_marks"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	IsDeleted       bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// TestSection ties a test to one of its course's sections. A test holds
// at most one entry per section; the DB backs this with a unique index.
type TestSection struct {
	ID        string    `json:"id"`
	TestID    string    `json:"test_id"`
	SectionID string    `json:"section_id"`
	Marks     int       `json:"marks"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Question struct {
	ID            string       `json:"id"`
	TestSectionID string       `json:"test_section_id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Marks         int          `json:"marks"`
	Order         int          `json:"order"`
	// CorrectAnswer holds the expected value for text questions; mcq
	// correctness lives on the options.
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type QuestionOption struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewTest struct {
	Title           string   `json:"title" validate:"required"`
	CourseID        string   `json:"course_id" validate:"required"`
	TestKind        TestKind `json:"test_kind" validate:"required,testkind"`
	TotalMarks      int      `json:"total_marks" validate:"min=0"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0"`
}

func (nt *NewTest) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	return validate.Struct(nt)
}

type UpdateTest struct {
	Title           string   `json:"title"`
	TestKind        TestKind `json:"test_kind" validate:"omitempty,testkind"`
	TotalMarks      *int     `json:"total_marks" validate:"omitempty,min=0"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,min=0"`
	IsActive        *bool    `json:"is_active"`
}

func (ut *UpdateTest) Validate(validate *validator.Validate, orig Test) error {
	if title := core.CleanString(ut.Title); title != "" {
		ut.Title = title
	} else {
		ut.Title = orig.Title
	}
	if ut.TestKind == "" {
		ut.TestKind = orig.TestKind
	}
	return validate.Struct(ut)
}

type NewTestSection struct {
	TestID    string `json:"test_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	Marks     int    `json:"marks" validate:"min=0"`
}

func (nts *NewTestSection) Validate(validate *validator.Validate) error {
	return validate.Struct(nts)
}

type NewQuestion struct {
	TestSectionID string       `json:"test_section_id" validate:"required"`
	Text          string       `json:"text" validate:"required"`
	Type          QuestionType `json:"type" validate:"required,questiontype"`
	Marks         int          `json:"marks" validate:"min=0"`
	Order         int          `json:"order" validate:"min=0"`
	CorrectAnswer string       `json:"correct_answer"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	return validate.Struct(nq)
}

type UpdateQuestion struct {
	Text          string `json:"text"`
	Marks         *int   `json:"marks" validate:"omitempty,min=0"`
	Order         *int   `json:"order" validate:"omitempty,min=0"`
	CorrectAnswer string `json:"correct_answer"`
}

func (uq *UpdateQuestion) Validate(validate *validator.Validate, orig Question) error {
	if text := core.CleanString(uq.Text); text != "" {
		uq.Text = text
	} else {
		uq.Text = orig.Text
	}
	return validate.Struct(uq)
}

type NewQuestionOption struct {
	QuestionID string `json:"question_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

func (no *NewQuestionOption) Validate(validate *validator.Validate) error {
	no.Text = core.CleanString(no.Text)
	return validate.Struct(no)
}

type TestFilter struct {
	Search   string   `query:"search"`
	CourseID string   `query:"course_id"`
	TestKind TestKind `query:"test_kind"`
	IsActive *bool    `query:"is_active"`

	core.Params
}

func (tf *TestFilter) Clean() {
	tf.Search = core.CleanString(tf.Search)
	tf.Params.Clean()
}
