package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) queryTests() []assessment.Test {
	tests := make([]assessment.Test, 0, len(repo.db.tests))
	for _, t := range repo.db.tests {
		if t.IsDeleted {
			continue
		}
		tests = append(tests, *t)
	}
	sortByID(tests, func(t assessment.Test) string { return t.ID })
	return tests
}

func (repo *assessmentRepository) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.db.tests[t.ID] = &t
	return t, nil
}

func (repo *assessmentRepository) GetTestByID(ctx context.Context, id string) (assessment.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tests[id]; ok && !t.IsDeleted {
		return *t, nil
	}
	return assessment.Test{}, assessment.ErrTestNotFound
}

func (repo *assessmentRepository) FilterTests(ctx context.Context, filter assessment.TestFilter) ([]assessment.Test, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]assessment.Test, 0)
	for _, t := range repo.queryTests() {
		if filter.CourseID != "" && t.CourseID != filter.CourseID {
			continue
		}
		if filter.TestKind != "" && t.TestKind != filter.TestKind {
			continue
		}
		if filter.IsActive != nil && t.IsActive != *filter.IsActive {
			continue
		}
		if !matchSearch(filter.Search, t.Title) {
			continue
		}
		matches = append(matches, t)
	}
	tests, total := paginate(matches, filter.Params)
	return tests, total, nil
}

func (repo *assessmentRepository) UpdateTest(ctx context.Context, t assessment.Test, totalMarks, durationMinutes *int, isActive *bool) (assessment.Test, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tests[t.ID]
	if !ok || orig.IsDeleted {
		return assessment.Test{}, assessment.ErrTestNotFound
	}
	if t.Title != "" {
		orig.Title = t.Title
	}
	if t.TestKind != "" {
		orig.TestKind = t.TestKind
	}
	if totalMarks != nil {
		orig.TotalMarks = *totalMarks
	}
	if durationMinutes != nil {
		orig.DurationMinutes = *durationMinutes
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = t.UpdatedAt
	return *orig, nil
}

func (repo *assessmentRepository) DeleteTestsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if t, ok := repo.db.tests[id]; ok {
			t.IsDeleted = true
		}
	}
	return nil
}

func (repo *assessmentRepository) CheckTestSectionUniqueness(ctx context.Context, testID, sectionID string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ts := range repo.db.testSections {
		if ts.TestID == testID && ts.SectionID == sectionID {
			return assessment.ErrTestSectionExists
		}
	}
	return nil
}

func (repo *assessmentRepository) CreateTestSection(ctx context.Context, ts assessment.TestSection) (assessment.TestSection, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ts.ID = uuid.New().String()
	repo.db.testSections[ts.ID] = &ts
	return ts, nil
}

func (repo *assessmentRepository) GetTestSectionByID(ctx context.Context, id string) (assessment.TestSection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ts, ok := repo.db.testSections[id]; ok {
		return *ts, nil
	}
	return assessment.TestSection{}, assessment.ErrTestSectionNotFound
}

func (repo *assessmentRepository) QueryTestSectionsByTest(ctx context.Context, testID string) ([]assessment.TestSection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sections := make([]assessment.TestSection, 0)
	for _, ts := range repo.db.testSections {
		if ts.TestID == testID {
			sections = append(sections, *ts)
		}
	}
	sortByID(sections, func(ts assessment.TestSection) string { return ts.ID })
	return sections, nil
}

func (repo *assessmentRepository) DeleteTestSection(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.testSections[id]; !ok {
		return assessment.ErrTestSectionNotFound
	}
	// questions (and their options) go with the section
	for qID, q := range repo.db.questions {
		if q.TestSectionID != id {
			continue
		}
		for oID, o := range repo.db.options {
			if o.QuestionID == qID {
				delete(repo.db.options, oID)
			}
		}
		delete(repo.db.questions, qID)
	}
	delete(repo.db.testSections, id)
	return nil
}

func (repo *assessmentRepository) CreateQuestion(ctx context.Context, q assessment.Question) (assessment.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.ID = uuid.New().String()
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *assessmentRepository) GetQuestionByID(ctx context.Context, id string) (assessment.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return assessment.Question{}, assessment.ErrQuestionNotFound
}

func (repo *assessmentRepository) QueryQuestionsByTestSection(ctx context.Context, testSectionID string) ([]assessment.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]assessment.Question, 0)
	for _, q := range repo.db.questions {
		if q.TestSectionID == testSectionID {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Order != questions[j].Order {
			return questions[i].Order < questions[j].Order
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *assessmentRepository) UpdateQuestion(ctx context.Context, q assessment.Question, marks, order *int) (assessment.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.questions[q.ID]
	if !ok {
		return assessment.Question{}, assessment.ErrQuestionNotFound
	}
	if q.Text != "" {
		orig.Text = q.Text
	}
	if q.CorrectAnswer != "" {
		orig.CorrectAnswer = q.CorrectAnswer
	}
	if marks != nil {
		orig.Marks = *marks
	}
	if order != nil {
		orig.Order = *order
	}
	orig.UpdatedAt = q.UpdatedAt
	return *orig, nil
}

func (repo *assessmentRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		for oID, o := range repo.db.options {
			if o.QuestionID == id {
				delete(repo.db.options, oID)
			}
		}
		delete(repo.db.questions, id)
	}
	return nil
}

func (repo *assessmentRepository) CreateQuestionOption(ctx context.Context, opt assessment.QuestionOption) (assessment.QuestionOption, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	opt.ID = uuid.New().String()
	repo.db.options[opt.ID] = &opt
	return opt, nil
}

func (repo *assessmentRepository) GetQuestionOptionByID(ctx context.Context, id string) (assessment.QuestionOption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if opt, ok := repo.db.options[id]; ok {
		return *opt, nil
	}
	return assessment.QuestionOption{}, assessment.ErrOptionNotFound
}

func (repo *assessmentRepository) QueryOptionsByQuestion(ctx context.Context, questionID string) ([]assessment.QuestionOption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	options := make([]assessment.QuestionOption, 0)
	for _, opt := range repo.db.options {
		if opt.QuestionID == questionID {
			options = append(options, *opt)
		}
	}
	sortByID(options, func(opt assessment.QuestionOption) string { return opt.ID })
	return options, nil
}

func (repo *assessmentRepository) DeleteQuestionOption(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.options[id]; !ok {
		return assessment.ErrOptionNotFound
	}
	delete(repo.db.options, id)
	return nil
}
