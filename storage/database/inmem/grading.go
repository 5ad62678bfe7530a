package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
)

type gradingRepository struct {
	db *DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) CreateAttempt(ctx context.Context, ta grading.TestAttempt) (grading.TestAttempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ta.ID = uuid.New().String()
	repo.db.attempts[ta.ID] = &ta
	return ta, nil
}

func (repo *gradingRepository) GetAttemptByID(ctx context.Context, id string) (grading.TestAttempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ta, ok := repo.db.attempts[id]; ok {
		return *ta, nil
	}
	return grading.TestAttempt{}, grading.ErrAttemptNotFound
}

func (repo *gradingRepository) FilterAttempts(ctx context.Context, filter grading.AttemptFilter) ([]grading.TestAttempt, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]grading.TestAttempt, 0)
	for _, ta := range repo.db.attempts {
		if filter.StudentID != "" && ta.StudentID != filter.StudentID {
			continue
		}
		if filter.TestID != "" && ta.TestID != filter.TestID {
			continue
		}
		if filter.IsCompleted != nil && ta.IsCompleted != *filter.IsCompleted {
			continue
		}
		matches = append(matches, *ta)
	}
	sortByID(matches, func(ta grading.TestAttempt) string { return ta.ID })
	attempts, total := paginate(matches, filter.Params)
	return attempts, total, nil
}

func (repo *gradingRepository) CompleteAttempt(ctx context.Context, id string, at time.Time) (grading.TestAttempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ta, ok := repo.db.attempts[id]
	if !ok {
		return grading.TestAttempt{}, grading.ErrAttemptNotFound
	}
	ta.CompletedAt = &at
	ta.IsCompleted = true
	return *ta, nil
}

func (repo *gradingRepository) CreateAnswer(ctx context.Context, sa grading.StudentAnswer) (grading.StudentAnswer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sa.ID = uuid.New().String()
	repo.db.answers[sa.ID] = &sa
	return sa, nil
}

func (repo *gradingRepository) GetAnswerByID(ctx context.Context, id string) (grading.StudentAnswer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sa, ok := repo.db.answers[id]; ok {
		return *sa, nil
	}
	return grading.StudentAnswer{}, grading.ErrAnswerNotFound
}

func (repo *gradingRepository) QueryAnswersByAttempt(ctx context.Context, attemptID string) ([]grading.StudentAnswer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	answers := make([]grading.StudentAnswer, 0)
	for _, sa := range repo.db.answers {
		if sa.AttemptID == attemptID {
			answers = append(answers, *sa)
		}
	}
	sortByID(answers, func(sa grading.StudentAnswer) string { return sa.ID })
	return answers, nil
}

func (repo *gradingRepository) SetAnswerMarks(ctx context.Context, id string, isCorrect *bool, marks int) (grading.StudentAnswer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sa, ok := repo.db.answers[id]
	if !ok {
		return grading.StudentAnswer{}, grading.ErrAnswerNotFound
	}
	sa.IsCorrect = isCorrect
	sa.AwardedMarks = marks
	sa.UpdatedAt = time.Now().UTC()
	return *sa, nil
}

func (repo *gradingRepository) CreateResult(ctx context.Context, tr grading.TestResult) (grading.TestResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tr.ID = uuid.New().String()
	repo.db.results[tr.ID] = &tr
	return tr, nil
}

func (repo *gradingRepository) GetResultByID(ctx context.Context, id string) (grading.TestResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tr, ok := repo.db.results[id]; ok {
		return *tr, nil
	}
	return grading.TestResult{}, grading.ErrResultNotFound
}

func (repo *gradingRepository) GetResultByAttempt(ctx context.Context, attemptID string) (grading.TestResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tr := range repo.db.results {
		if tr.AttemptID == attemptID {
			return *tr, nil
		}
	}
	return grading.TestResult{}, grading.ErrResultNotFound
}

func (repo *gradingRepository) FilterResults(ctx context.Context, filter grading.ResultFilter) ([]grading.TestResult, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]grading.TestResult, 0)
	for _, tr := range repo.db.results {
		if filter.AttemptID != "" && tr.AttemptID != filter.AttemptID {
			continue
		}
		if filter.Status != "" && tr.Status != filter.Status {
			continue
		}
		matches = append(matches, *tr)
	}
	sortByID(matches, func(tr grading.TestResult) string { return tr.ID })
	results, total := paginate(matches, filter.Params)
	return results, total, nil
}

func (repo *gradingRepository) PublishResult(ctx context.Context, id string, score int, at time.Time) (grading.TestResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tr, ok := repo.db.results[id]
	if !ok {
		return grading.TestResult{}, grading.ErrResultNotFound
	}
	tr.ObtainedScore = score
	tr.Status = grading.StatusPublished
	tr.PublishedAt = &at
	tr.UpdatedAt = at
	return *tr, nil
}

func (repo *gradingRepository) UpsertSectionResult(ctx context.Context, sr grading.SectionResult) (grading.SectionResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, existing := range repo.db.sectionResults {
		if existing.ResultID == sr.ResultID && existing.TestSectionID == sr.TestSectionID {
			sr.ID = id
			repo.db.sectionResults[id] = &sr
			return sr, nil
		}
	}
	sr.ID = uuid.New().String()
	repo.db.sectionResults[sr.ID] = &sr
	return sr, nil
}

func (repo *gradingRepository) QuerySectionResults(ctx context.Context, resultID string) ([]grading.SectionResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]grading.SectionResult, 0)
	for _, sr := range repo.db.sectionResults {
		if sr.ResultID == resultID {
			results = append(results, *sr)
		}
	}
	sortByID(results, func(sr grading.SectionResult) string { return sr.ID })
	return results, nil
}

func (repo *gradingRepository) CreateEvaluation(ctx context.Context, me grading.ManualEvaluation) (grading.ManualEvaluation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	me.ID = uuid.New().String()
	repo.db.evaluations[me.ID] = &me
	return me, nil
}

func (repo *gradingRepository) QueryEvaluationsByAnswer(ctx context.Context, answerID string) ([]grading.ManualEvaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evals := make([]grading.ManualEvaluation, 0)
	for _, me := range repo.db.evaluations {
		if me.AnswerID == answerID {
			evals = append(evals, *me)
		}
	}
	sortByID(evals, func(me grading.ManualEvaluation) string { return me.ID })
	return evals, nil
}

func (repo *gradingRepository) CreateBandScore(ctx context.Context, m grading.BandScoreMapping) (grading.BandScoreMapping, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = uuid.New().String()
	repo.db.bandScores[m.ID] = &m
	return m, nil
}

func (repo *gradingRepository) QueryBandScores(ctx context.Context, courseType catalog.CourseType) ([]grading.BandScoreMapping, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mappings := make([]grading.BandScoreMapping, 0)
	for _, m := range repo.db.bandScores {
		if courseType == "" || m.CourseType == courseType {
			mappings = append(mappings, *m)
		}
	}
	sortByID(mappings, func(m grading.BandScoreMapping) string { return m.ID })
	return mappings, nil
}

func (repo *gradingRepository) DeleteBandScore(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.bandScores[id]; !ok {
		return grading.ErrBandNotFound
	}
	delete(repo.db.bandScores, id)
	return nil
}
