package grading

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/user"
)

var (
	ErrAttemptNotFound    = errors.New("test attempt not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrResultNotFound     = errors.New("test result not found")
	ErrEvaluationNotFound = errors.New("manual evaluation not found")
	ErrBandNotFound       = errors.New("no band mapping covers this score")

	ErrAttemptCompleted  = errors.New("attempt is already completed")
	ErrAlreadyPublished  = errors.New("result is already published")
	ErrNotManuallyGraded = errors.New("answer type does not take manual evaluation")

	submitMinGap = 2 * time.Second
)

type (
	Repository interface {
		CreateAttempt(ctx context.Context, ta TestAttempt) (TestAttempt, error)
		GetAttemptByID(ctx context.Context, id string) (TestAttempt, error)
		FilterAttempts(ctx context.Context, filter AttemptFilter) ([]TestAttempt, int, error)
		CompleteAttempt(ctx context.Context, id string, at time.Time) (TestAttempt, error)

		CreateAnswer(ctx context.Context, sa StudentAnswer) (StudentAnswer, error)
		GetAnswerByID(ctx context.Context, id string) (StudentAnswer, error)
		QueryAnswersByAttempt(ctx context.Context, attemptID string) ([]StudentAnswer, error)
		SetAnswerMarks(ctx context.Context, id string, isCorrect *bool, marks int) (StudentAnswer, error)

		CreateResult(ctx context.Context, tr TestResult) (TestResult, error)
		GetResultByID(ctx context.Context, id string) (TestResult, error)
		GetResultByAttempt(ctx context.Context, attemptID string) (TestResult, error)
		FilterResults(ctx context.Context, filter ResultFilter) ([]TestResult, int, error)
		// PublishResult sets the score, flips the status to published and
		// stamps PublishedAt, all in one write.
		PublishResult(ctx context.Context, id string, score int, at time.Time) (TestResult, error)

		UpsertSectionResult(ctx context.Context, sr SectionResult) (SectionResult, error)
		QuerySectionResults(ctx context.Context, resultID string) ([]SectionResult, error)

		CreateEvaluation(ctx context.Context, me ManualEvaluation) (ManualEvaluation, error)
		QueryEvaluationsByAnswer(ctx context.Context, answerID string) ([]ManualEvaluation, error)

		CreateBandScore(ctx context.Context, m BandScoreMapping) (BandScoreMapping, error)
		QueryBandScores(ctx context.Context, courseType catalog.CourseType) ([]BandScoreMapping, error)
		DeleteBandScore(ctx context.Context, id string) error
	}

	Service interface {
		// StartAttempt opens an attempt for a student. Only staff may do
		// this; a student acting for themselves gets ErrPermissionDenied.
		StartAttempt(ctx context.Context, actor user.User, na NewAttempt) (TestAttempt, error)
		GetAttempt(ctx context.Context, id string) (TestAttempt, error)
		QueryAttempts(ctx context.Context, filter *AttemptFilter) ([]TestAttempt, int, error)
		// CompleteAttempt closes the attempt and opens its pending result,
		// seeded with the auto-marked score.
		CompleteAttempt(ctx context.Context, id string) (TestAttempt, error)

		SubmitAnswer(ctx context.Context, na NewAnswer) (StudentAnswer, error)
		AttemptAnswers(ctx context.Context, attemptID string) ([]StudentAnswer, error)

		GetResult(ctx context.Context, id string) (TestResult, error)
		ResultByAttempt(ctx context.Context, attemptID string) (TestResult, error)
		QueryResults(ctx context.Context, filter *ResultFilter) ([]TestResult, int, error)
		MarkAndPublish(ctx context.Context, id string, obtainedScore int) (TestResult, error)

		SaveSectionResult(ctx context.Context, nsr NewSectionResult) (SectionResult, error)
		SectionResults(ctx context.Context, resultID string) ([]SectionResult, error)

		Evaluate(ctx context.Context, actor user.User, nme NewManualEvaluation) (ManualEvaluation, error)
		AnswerEvaluations(ctx context.Context, answerID string) ([]ManualEvaluation, error)

		AddBandScore(ctx context.Context, nbs NewBandScore) (BandScoreMapping, error)
		BandScores(ctx context.Context, courseType catalog.CourseType) ([]BandScoreMapping, error)
		RemoveBandScore(ctx context.Context, id string) error
		// BandFor resolves the band for a raw score, ErrBandNotFound when
		// no mapping covers it.
		BandFor(ctx context.Context, courseType catalog.CourseType, score int) (string, error)
	}

	service struct {
		repo      Repository
		assessSvc assessment.Service
		usrRepo   user.Repository
		guard     *core.SubmitGuard // nil disables the debounce (tests)
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, assessSvc assessment.Service, usrRepo user.Repository) Service {
	return &service{
		repo:      repo,
		assessSvc: assessSvc,
		usrRepo:   usrRepo,
		guard:     core.NewSubmitGuard(submitMinGap),
	}
}

func (svc *service) StartAttempt(ctx context.Context, actor user.User, na NewAttempt) (TestAttempt, error) {
	if !actor.IsStaff() {
		return TestAttempt{}, user.ErrPermissionDenied
	}
	student, err := svc.usrRepo.GetUserByID(ctx, na.StudentID)
	if err != nil {
		return TestAttempt{}, err
	}
	if !student.IsStudent() {
		err := errors.New("attempts can only be opened for students")
		return TestAttempt{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
	}
	if _, err := svc.assessSvc.GetTest(ctx, na.TestID); err != nil {
		return TestAttempt{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateAttempt(ctx, TestAttempt{
		StudentID: na.StudentID,
		TestID:    na.TestID,
		StartedAt: now,
		CreatedBy: actor.ID,
	})
}

func (svc *service) GetAttempt(ctx context.Context, id string) (TestAttempt, error) {
	return svc.repo.GetAttemptByID(ctx, id)
}

func (svc *service) QueryAttempts(ctx context.Context, filter *AttemptFilter) ([]TestAttempt, int, error) {
	filter.Clean()
	return svc.repo.FilterAttempts(ctx, *filter)
}

func (svc *service) CompleteAttempt(ctx context.Context, id string) (TestAttempt, error) {
	attempt, err := svc.repo.GetAttemptByID(ctx, id)
	if err != nil {
		return TestAttempt{}, err
	}
	if attempt.IsCompleted {
		return TestAttempt{}, ErrAttemptCompleted
	}
	now := time.Now().UTC()
	attempt, err = svc.repo.CompleteAttempt(ctx, id, now)
	if err != nil {
		return TestAttempt{}, err
	}

	test, err := svc.assessSvc.GetTest(ctx, attempt.TestID)
	if err != nil {
		return TestAttempt{}, err
	}
	auto, err := svc.autoScore(ctx, attempt.ID)
	if err != nil {
		return TestAttempt{}, err
	}
	if _, err = svc.repo.CreateResult(ctx, TestResult{
		AttemptID:     attempt.ID,
		ObtainedScore: auto,
		TotalScore:    test.TotalMarks,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		return TestAttempt{}, err
	}
	return attempt, nil
}

// autoScore sums the marks already awarded to the attempt's answers.
func (svc *service) autoScore(ctx context.Context, attemptID string) (int, error) {
	answers, err := svc.repo.QueryAnswersByAttempt(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	var total int
	for _, a := range answers {
		total += a.AwardedMarks
	}
	return total, nil
}

func (svc *service) SubmitAnswer(ctx context.Context, na NewAnswer) (StudentAnswer, error) {
	attempt, err := svc.repo.GetAttemptByID(ctx, na.AttemptID)
	if err != nil {
		return StudentAnswer{}, err
	}
	if attempt.IsCompleted {
		return StudentAnswer{}, ErrAttemptCompleted
	}
	if svc.guard != nil {
		if err = svc.guard.Check(attempt.StudentID + ":" + na.QuestionID); err != nil {
			return StudentAnswer{}, err
		}
	}

	question, err := svc.assessSvc.GetQuestion(ctx, na.QuestionID)
	if err != nil {
		return StudentAnswer{}, err
	}

	now := time.Now().UTC()
	answer := StudentAnswer{
		AttemptID:        na.AttemptID,
		QuestionID:       na.QuestionID,
		SelectedOptionID: na.SelectedOptionID,
		AnswerText:       na.AnswerText,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if question.Type == assessment.QuestionMCQ && na.SelectedOptionID != "" {
		correct, err := svc.optionIsCorrect(ctx, na.QuestionID, na.SelectedOptionID)
		if err != nil {
			return StudentAnswer{}, err
		}
		answer.IsCorrect = &correct
		if correct {
			answer.AwardedMarks = question.Marks
		}
	}
	return svc.repo.CreateAnswer(ctx, answer)
}

func (svc *service) optionIsCorrect(ctx context.Context, questionID, optionID string) (bool, error) {
	opts, err := svc.assessSvc.QuestionOptions(ctx, questionID)
	if err != nil {
		return false, err
	}
	for _, opt := range opts {
		if opt.ID == optionID {
			return opt.IsCorrect, nil
		}
	}
	return false, assessment.ErrOptionNotFound
}

func (svc *service) AttemptAnswers(ctx context.Context, attemptID string) ([]StudentAnswer, error) {
	return svc.repo.QueryAnswersByAttempt(ctx, attemptID)
}

func (svc *service) GetResult(ctx context.Context, id string) (TestResult, error) {
	return svc.repo.GetResultByID(ctx, id)
}

func (svc *service) ResultByAttempt(ctx context.Context, attemptID string) (TestResult, error) {
	return svc.repo.GetResultByAttempt(ctx, attemptID)
}

func (svc *service) QueryResults(ctx context.Context, filter *ResultFilter) ([]TestResult, int, error) {
	filter.Clean()
	return svc.repo.FilterResults(ctx, *filter)
}

// MarkAndPublish writes the final score and publishes the result.
// Published results are immutable; a second publish fails.
func (svc *service) MarkAndPublish(ctx context.Context, id string, obtainedScore int) (TestResult, error) {
	result, err := svc.repo.GetResultByID(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	if result.IsPublished() {
		return TestResult{}, ErrAlreadyPublished
	}
	return svc.repo.PublishResult(ctx, id, obtainedScore, time.Now().UTC())
}

func (svc *service) SaveSectionResult(ctx context.Context, nsr NewSectionResult) (SectionResult, error) {
	if _, err := svc.repo.GetResultByID(ctx, nsr.ResultID); err != nil {
		return SectionResult{}, err
	}
	return svc.repo.UpsertSectionResult(ctx, SectionResult{
		ResultID:      nsr.ResultID,
		TestSectionID: nsr.TestSectionID,
		Score:         nsr.Score,
		MaxScore:      nsr.MaxScore,
		UpdatedAt:     time.Now().UTC(),
	})
}

func (svc *service) SectionResults(ctx context.Context, resultID string) ([]SectionResult, error) {
	return svc.repo.QuerySectionResults(ctx, resultID)
}

// Evaluate records a staff member's manual grading of an essay or audio
// answer and awards its marks.
func (svc *service) Evaluate(ctx context.Context, actor user.User, nme NewManualEvaluation) (ManualEvaluation, error) {
	if !actor.IsStaff() {
		return ManualEvaluation{}, user.ErrPermissionDenied
	}
	answer, err := svc.repo.GetAnswerByID(ctx, nme.AnswerID)
	if err != nil {
		return ManualEvaluation{}, err
	}
	question, err := svc.assessSvc.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return ManualEvaluation{}, err
	}
	if !question.Type.NeedsManualEvaluation() {
		return ManualEvaluation{}, ErrNotManuallyGraded
	}

	eval, err := svc.repo.CreateEvaluation(ctx, ManualEvaluation{
		AnswerID:    nme.AnswerID,
		EvaluatorID: actor.ID,
		Score:       nme.Score,
		Remarks:     nme.Remarks,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return ManualEvaluation{}, err
	}
	correct := nme.Score > 0
	if _, err = svc.repo.SetAnswerMarks(ctx, answer.ID, &correct, nme.Score); err != nil {
		return ManualEvaluation{}, err
	}
	return eval, nil
}

func (svc *service) AnswerEvaluations(ctx context.Context, answerID string) ([]ManualEvaluation, error) {
	return svc.repo.QueryEvaluationsByAnswer(ctx, answerID)
}

func (svc *service) AddBandScore(ctx context.Context, nbs NewBandScore) (BandScoreMapping, error) {
	return svc.repo.CreateBandScore(ctx, BandScoreMapping{
		CourseType: nbs.CourseType,
		MinScore:   nbs.MinScore,
		MaxScore:   nbs.MaxScore,
		Band:       nbs.Band,
	})
}

func (svc *service) BandScores(ctx context.Context, courseType catalog.CourseType) ([]BandScoreMapping, error) {
	return svc.repo.QueryBandScores(ctx, courseType)
}

func (svc *service) RemoveBandScore(ctx context.Context, id string) error {
	return svc.repo.DeleteBandScore(ctx, id)
}

func (svc *service) BandFor(ctx context.Context, courseType catalog.CourseType, score int) (string, error) {
	mappings, err := svc.repo.QueryBandScores(ctx, courseType)
	if err != nil {
		return "", err
	}
	for _, m := range mappings {
		if m.Matches(courseType, score) {
			return m.Band, nil
		}
	}
	return "", ErrBandNotFound
}
