package assessment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	ErrTestNotFound        = errors.New("test not found")
	ErrTestSectionNotFound = errors.New("test section not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrOptionNotFound      = errors.New("question option not found")
	ErrTestSectionExists   = errors.New("this section is already attached to the test")
)

type (
	Repository interface {
		CreateTest(ctx context.Context, t Test) (Test, error)
		GetTestByID(ctx context.Context, id string) (Test, error)
		// FilterTests returns one page of non-deleted tests plus the total.
		FilterTests(ctx context.Context, filter TestFilter) ([]Test, int, error)
		UpdateTest(ctx context.Context, t Test, totalMarks, durationMinutes *int, isActive *bool) (Test, error)
		DeleteTestsByID(ctx context.Context, ids ...string) error

		// CheckTestSectionUniqueness returns ErrTestSectionExists when the
		// (test, section) pair is already present.
		CheckTestSectionUniqueness(ctx context.Context, testID, sectionID string) error
		CreateTestSection(ctx context.Context, ts TestSection) (TestSection, error)
		GetTestSectionByID(ctx context.Context, id string) (TestSection, error)
		QueryTestSectionsByTest(ctx context.Context, testID string) ([]TestSection, error)
		DeleteTestSection(ctx context.Context, id string) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		QueryQuestionsByTestSection(ctx context.Context, testSectionID string) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question, marks, order *int) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...string) error

		CreateQuestionOption(ctx context.Context, opt QuestionOption) (QuestionOption, error)
		GetQuestionOptionByID(ctx context.Context, id string) (QuestionOption, error)
		QueryOptionsByQuestion(ctx context.Context, questionID string) ([]QuestionOption, error)
		DeleteQuestionOption(ctx context.Context, id string) error
	}

	Service interface {
		CreateTest(ctx context.Context, nt NewTest) (Test, error)
		QueryTests(ctx context.Context, filter *TestFilter) ([]Test, int, error)
		GetTest(ctx context.Context, id string) (Test, error)
		UpdateTest(ctx context.Context, id string, ut UpdateTest) (Test, error)
		DeleteTests(ctx context.Context, ids ...string) error

		AddTestSection(ctx context.Context, nts NewTestSection) (TestSection, error)
		GetTestSection(ctx context.Context, id string) (TestSection, error)
		TestSections(ctx context.Context, testID string) ([]TestSection, error)
		RemoveTestSection(ctx context.Context, id string) error

		CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		SectionQuestions(ctx context.Context, testSectionID string) ([]Question, error)
		UpdateQuestion(ctx context.Context, id string, uq UpdateQuestion) (Question, error)
		DeleteQuestions(ctx context.Context, ids ...string) error

		AddOption(ctx context.Context, no NewQuestionOption) (QuestionOption, error)
		QuestionOptions(ctx context.Context, questionID string) ([]QuestionOption, error)
		RemoveOption(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateTest(ctx context.Context, nt NewTest) (Test, error) {
	now := time.Now().UTC()
	return svc.repo.CreateTest(ctx, Test{
		Title:           nt.Title,
		CourseID:        nt.CourseID,
		TestKind:        nt.TestKind,
		TotalMarks:      nt.TotalMarks,
		DurationMinutes: nt.DurationMinutes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *service) QueryTests(ctx context.Context, filter *TestFilter) ([]Test, int, error) {
	filter.Clean()
	return svc.repo.FilterTests(ctx, *filter)
}

func (svc *service) GetTest(ctx context.Context, id string) (Test, error) {
	return svc.repo.GetTestByID(ctx, id)
}

func (svc *service) UpdateTest(ctx context.Context, id string, ut UpdateTest) (Test, error) {
	return svc.repo.UpdateTest(ctx, Test{
		ID:        id,
		Title:     ut.Title,
		TestKind:  ut.TestKind,
		UpdatedAt: time.Now().UTC(),
	}, ut.TotalMarks, ut.DurationMinutes, ut.IsActive)
}

func (svc *service) DeleteTests(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteTestsByID(ctx, ids...)
}

// AddTestSection attaches a section to a test. Each section may appear
// at most once per test; the duplicate is rejected here before any write
// and again by the DB unique index.
func (svc *service) AddTestSection(ctx context.Context, nts NewTestSection) (TestSection, error) {
	if _, err := svc.repo.GetTestByID(ctx, nts.TestID); err != nil {
		return TestSection{}, err
	}
	if err := svc.repo.CheckTestSectionUniqueness(ctx, nts.TestID, nts.SectionID); err != nil {
		if errors.Cause(err) == ErrTestSectionExists {
			return TestSection{}, core.NewValidationError(err, core.FieldError{Field: "section_id", Error: err.Error()})
		}
		return TestSection{}, err
	}
	return svc.repo.CreateTestSection(ctx, TestSection{
		TestID:    nts.TestID,
		SectionID: nts.SectionID,
		Marks:     nts.Marks,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) GetTestSection(ctx context.Context, id string) (TestSection, error) {
	return svc.repo.GetTestSectionByID(ctx, id)
}

func (svc *service) TestSections(ctx context.Context, testID string) ([]TestSection, error) {
	return svc.repo.QueryTestSectionsByTest(ctx, testID)
}

func (svc *service) RemoveTestSection(ctx context.Context, id string) error {
	return svc.repo.DeleteTestSection(ctx, id)
}

func (svc *service) CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetTestSectionByID(ctx, nq.TestSectionID); err != nil {
		return Question{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateQuestion(ctx, Question{
		TestSectionID: nq.TestSectionID,
		Text:          nq.Text,
		Type:          nq.Type,
		Marks:         nq.Marks,
		Order:         nq.Order,
		CorrectAnswer: nq.CorrectAnswer,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestionByID(ctx, id)
}

func (svc *service) SectionQuestions(ctx context.Context, testSectionID string) ([]Question, error) {
	return svc.repo.QueryQuestionsByTestSection(ctx, testSectionID)
}

func (svc *service) UpdateQuestion(ctx context.Context, id string, uq UpdateQuestion) (Question, error) {
	return svc.repo.UpdateQuestion(ctx, Question{
		ID:            id,
		Text:          uq.Text,
		CorrectAnswer: uq.CorrectAnswer,
		UpdatedAt:     time.Now().UTC(),
	}, uq.Marks, uq.Order)
}

func (svc *service) DeleteQuestions(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteQuestionsByID(ctx, ids...)
}

func (svc *service) AddOption(ctx context.Context, no NewQuestionOption) (QuestionOption, error) {
	q, err := svc.repo.GetQuestionByID(ctx, no.QuestionID)
	if err != nil {
		return QuestionOption{}, err
	}
	if q.Type != QuestionMCQ {
		err := errors.New("options can only be added to mcq questions")
		return QuestionOption{}, core.NewValidationError(err, core.FieldError{Field: "question_id", Error: err.Error()})
	}
	return svc.repo.CreateQuestionOption(ctx, QuestionOption{
		QuestionID: no.QuestionID,
		Text:       no.Text,
		IsCorrect:  no.IsCorrect,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *service) QuestionOptions(ctx context.Context, questionID string) ([]QuestionOption, error) {
	return svc.repo.QueryOptionsByQuestion(ctx, questionID)
}

func (svc *service) RemoveOption(ctx context.Context, id string) error {
	return svc.repo.DeleteQuestionOption(ctx, id)
}
