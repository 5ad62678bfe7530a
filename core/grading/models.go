package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
)

// Result statuses. A result is born pending and moves to published
// exactly once; there is no way back.
type ResultStatus string

const (
	StatusPending   ResultStatus = "pending"
	StatusPublished ResultStatus = "published"
)

// TestAttempt records one sitting of a test by a student. Attempts are
// opened by staff on the student's behalf, never by the student.
type TestAttempt struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	TestID      string     `json:"test_id"`
	StartedAt   time.Time  `json:"started_at"` // UTC
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CreatedBy   string     `json:"created_by"`
}

// StudentAnswer is one answer within an attempt. IsCorrect is set by
// auto-marking for mcq answers and stays nil for answer types that need
// manual evaluation.
type StudentAnswer struct {
	ID               string    `json:"id"`
	AttemptID        string    `json:"attempt_id"`
	QuestionID       string    `json:"question_id"`
	SelectedOptionID string    `json:"selected_option_id,omitempty"`
	AnswerText       string    `json:"answer_text,omitempty"`
	IsCorrect        *bool     `json:"is_correct,omitempty"`
	AwardedMarks     int       `json:"awarded_marks"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// TestResult is the 1:1 outcome of an attempt.
type TestResult struct {
	ID            string       `json:"id"`
	AttemptID     string       `json:"attempt_id"`
	ObtainedScore int          `json:"obtained_score"`
	TotalScore    int          `json:"total_score"`
	Status        ResultStatus `json:"status"`
	PublishedAt   *time.Time   `json:"published_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"` // UTC
	UpdatedAt     time.Time    `json:"updated_at"` // UTC
}

func (tr TestResult) IsPublished() bool { return tr.Status == StatusPublished }

// SectionResult breaks a test result down per test section.
type SectionResult struct {
	ID            string    `json:"id"`
	ResultID      string    `json:"result_id"`
	TestSectionID string    `json:"test_section_id"`
	Score         int       `json:"score"`
	MaxScore      int       `json:"max_score"`
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// ManualEvaluation holds a staff member's grading of an essay or audio
// answer.
type ManualEvaluation struct {
	ID          string    `json:"id"`
	AnswerID    string    `json:"answer_id"`
	EvaluatorID string    `json:"evaluator_id"`
	Score       int       `json:"score"`
	Remarks     string    `json:"remarks,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// BandScoreMapping maps a raw score range to a band for a course type,
// e.g. IELTS 35..39 -> "8.5".
type BandScoreMapping struct {
	ID         string             `json:"id"`
	CourseType catalog.CourseType `json:"course_type"`
	MinScore   int                `json:"min_score"`
	MaxScore   int                `json:"max_score"`
	Band       string             `json:"band"`
}

// Matches reports whether the mapping covers the given score.
func (m BandScoreMapping) Matches(ct catalog.CourseType, score int) bool {
	return m.CourseType == ct && m.MinScore <= score && score <= m.MaxScore
}

type NewAttempt struct {
	StudentID string `json:"student_id" validate:"required"`
	TestID    string `json:"test_id" validate:"required"`
}

func (na *NewAttempt) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

type NewAnswer struct {
	AttemptID        string `json:"attempt_id" validate:"required"`
	QuestionID       string `json:"question_id" validate:"required"`
	SelectedOptionID string `json:"selected_option_id"`
	AnswerText       string `json:"answer_text"`
}

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.AnswerText = core.CleanString(na.AnswerText)
	return validate.Struct(na)
}

type NewManualEvaluation struct {
	AnswerID string `json:"answer_id" validate:"required"`
	Score    int    `json:"score" validate:"min=0"`
	Remarks  string `json:"remarks"`
}

func (nme *NewManualEvaluation) Validate(validate *validator.Validate) error {
	nme.Remarks = core.CleanString(nme.Remarks)
	return validate.Struct(nme)
}

type NewSectionResult struct {
	ResultID      string `json:"result_id" validate:"required"`
	TestSectionID string `json:"test_section_id" validate:"required"`
	Score         int    `json:"score" validate:"min=0"`
	MaxScore      int    `json:"max_score" validate:"min=0"`
}

func (nsr *NewSectionResult) Validate(validate *validator.Validate) error {
	return validate.Struct(nsr)
}

type NewBandScore struct {
	CourseType catalog.CourseType `json:"course_type" validate:"required,coursetype"`
	MinScore   int                `json:"min_score" validate:"min=0"`
	MaxScore   int                `json:"max_score" validate:"min=0,gtefield=MinScore"`
	Band       string             `json:"band" validate:"required"`
}

func (nbs *NewBandScore) Validate(validate *validator.Validate) error {
	nbs.Band = core.CleanString(nbs.Band)
	return validate.Struct(nbs)
}

type AttemptFilter struct {
	StudentID   string `query:"student_id"`
	TestID      string `query:"test_id"`
	IsCompleted *bool  `query:"is_completed"`

	core.Params
}

func (af *AttemptFilter) Clean() {
	af.Params.Clean()
}

type ResultFilter struct {
	AttemptID string       `query:"attempt_id"`
	Status    ResultStatus `query:"status"`

	core.Params
}

func (rf *ResultFilter) Clean() {
	rf.Params.Clean()
}
