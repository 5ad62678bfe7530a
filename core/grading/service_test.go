package grading_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
	"github.com/darasahq/darasa/core/user"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

type fixture struct {
	svc       grading.Service
	assessSvc assessment.Service

	test    assessment.Test
	mcq     assessment.Question
	correct assessment.QuestionOption
	wrong   assessment.QuestionOption
	essay   assessment.Question

	teacher user.User
	student user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	usrRepo := inmemdb.NewUserRepository(db)
	assessSvc := assessment.NewService(inmemdb.NewAssessmentRepository(db))
	svc := grading.NewServiceMock(inmemdb.NewGradingRepository(db), assessSvc, usrRepo)

	teacher, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Teacher", Username: "teacher", Email: "teacher@darasa.cd",
		Role: user.RoleTeacher, BranchID: "b1", IsActive: true,
	})
	require.NoError(t, err)
	student, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Hero", Username: "hero", Email: "hero@darasa.cd",
		Role: user.RoleStudent, BranchID: "b1", IsActive: true,
	})
	require.NoError(t, err)

	test, err := assessSvc.CreateTest(ctx, assessment.NewTest{
		Title: "Mock Test 1", CourseID: "c1", TestKind: assessment.TestMock, TotalMarks: 40,
	})
	require.NoError(t, err)
	ts, err := assessSvc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: "s1", Marks: 20})
	require.NoError(t, err)

	mcq, err := assessSvc.CreateQuestion(ctx, assessment.NewQuestion{
		TestSectionID: ts.ID, Text: "Pick one.", Type: assessment.QuestionMCQ, Marks: 2, Order: 1,
	})
	require.NoError(t, err)
	correct, err := assessSvc.AddOption(ctx, assessment.NewQuestionOption{QuestionID: mcq.ID, Text: "Right", IsCorrect: true})
	require.NoError(t, err)
	wrong, err := assessSvc.AddOption(ctx, assessment.NewQuestionOption{QuestionID: mcq.ID, Text: "Wrong"})
	require.NoError(t, err)

	essay, err := assessSvc.CreateQuestion(ctx, assessment.NewQuestion{
		TestSectionID: ts.ID, Text: "Discuss.", Type: assessment.QuestionEssay, Marks: 10, Order: 2,
	})
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		assessSvc: assessSvc,
		test:      test,
		mcq:       mcq,
		correct:   correct,
		wrong:     wrong,
		essay:     essay,
		teacher:   teacher,
		student:   student,
	}
}

func TestService_StartAttempt_staffOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.StartAttempt(ctx, fx.student, grading.NewAttempt{StudentID: fx.student.ID, TestID: fx.test.ID})
	assert.Equal(t, user.ErrPermissionDenied, errors.Cause(err))

	// the denied call never reached the repository
	attempts, total, err := fx.svc.QueryAttempts(ctx, &grading.AttemptFilter{StudentID: fx.student.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, attempts)

	attempt, err := fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.student.ID, TestID: fx.test.ID})
	require.NoError(t, err)
	assert.Equal(t, fx.teacher.ID, attempt.CreatedBy)
	assert.False(t, attempt.IsCompleted)

	// unknown test
	_, err = fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.student.ID, TestID: "nope"})
	assert.Equal(t, assessment.ErrTestNotFound, errors.Cause(err))
}

func TestService_StartAttempt_studentTargetOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// unknown target
	_, err := fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: "nope", TestID: fx.test.ID})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	// attempts cannot be opened for staff
	_, err = fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.teacher.ID, TestID: fx.test.ID})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "student_id", vErr.Fields[0].Field)

	attempts, total, err := fx.svc.QueryAttempts(ctx, &grading.AttemptFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, attempts)
}

func TestService_CompleteAttempt_autoScore(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	attempt, err := fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.student.ID, TestID: fx.test.ID})
	require.NoError(t, err)

	// a correct mcq pick is marked on submission
	answer, err := fx.svc.SubmitAnswer(ctx, grading.NewAnswer{
		AttemptID: attempt.ID, QuestionID: fx.mcq.ID, SelectedOptionID: fx.correct.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, answer.IsCorrect)
	assert.True(t, *answer.IsCorrect)
	assert.Equal(t, fx.mcq.Marks, answer.AwardedMarks)

	// essays wait for manual evaluation
	essayAns, err := fx.svc.SubmitAnswer(ctx, grading.NewAnswer{
		AttemptID: attempt.ID, QuestionID: fx.essay.ID, AnswerText: "A long discussion.",
	})
	require.NoError(t, err)
	assert.Nil(t, essayAns.IsCorrect)
	assert.Zero(t, essayAns.AwardedMarks)

	attempt, err = fx.svc.CompleteAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.True(t, attempt.IsCompleted)

	result, err := fx.svc.ResultByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.StatusPending, result.Status)
	assert.Equal(t, fx.mcq.Marks, result.ObtainedScore) // only the auto-marked mcq counts
	assert.Equal(t, fx.test.TotalMarks, result.TotalScore)

	// the attempt is now closed to both completion and answers
	_, err = fx.svc.CompleteAttempt(ctx, attempt.ID)
	assert.Equal(t, grading.ErrAttemptCompleted, errors.Cause(err))
	_, err = fx.svc.SubmitAnswer(ctx, grading.NewAnswer{AttemptID: attempt.ID, QuestionID: fx.mcq.ID, SelectedOptionID: fx.wrong.ID})
	assert.Equal(t, grading.ErrAttemptCompleted, errors.Cause(err))
}

func TestService_MarkAndPublish_once(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	attempt, err := fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.student.ID, TestID: fx.test.ID})
	require.NoError(t, err)
	_, err = fx.svc.CompleteAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	result, err := fx.svc.ResultByAttempt(ctx, attempt.ID)
	require.NoError(t, err)

	published, err := fx.svc.MarkAndPublish(ctx, result.ID, 32)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
	assert.Equal(t, 32, published.ObtainedScore)
	require.NotNil(t, published.PublishedAt)

	_, err = fx.svc.MarkAndPublish(ctx, result.ID, 35)
	assert.Equal(t, grading.ErrAlreadyPublished, errors.Cause(err))

	// the first publish sticks
	result, err = fx.svc.GetResult(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, result.ObtainedScore)
}

func TestService_Evaluate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	attempt, err := fx.svc.StartAttempt(ctx, fx.teacher, grading.NewAttempt{StudentID: fx.student.ID, TestID: fx.test.ID})
	require.NoError(t, err)
	essayAns, err := fx.svc.SubmitAnswer(ctx, grading.NewAnswer{
		AttemptID: attempt.ID, QuestionID: fx.essay.ID, AnswerText: "A long discussion.",
	})
	require.NoError(t, err)
	mcqAns, err := fx.svc.SubmitAnswer(ctx, grading.NewAnswer{
		AttemptID: attempt.ID, QuestionID: fx.mcq.ID, SelectedOptionID: fx.wrong.ID,
	})
	require.NoError(t, err)

	// students cannot evaluate
	_, err = fx.svc.Evaluate(ctx, fx.student, grading.NewManualEvaluation{AnswerID: essayAns.ID, Score: 8})
	assert.Equal(t, user.ErrPermissionDenied, errors.Cause(err))

	// mcq answers are auto-marked, never evaluated by hand
	_, err = fx.svc.Evaluate(ctx, fx.teacher, grading.NewManualEvaluation{AnswerID: mcqAns.ID, Score: 2})
	assert.Equal(t, grading.ErrNotManuallyGraded, errors.Cause(err))

	eval, err := fx.svc.Evaluate(ctx, fx.teacher, grading.NewManualEvaluation{AnswerID: essayAns.ID, Score: 8, Remarks: "Good structure."})
	require.NoError(t, err)
	assert.Equal(t, fx.teacher.ID, eval.EvaluatorID)

	// the evaluation lands on the answer's marks
	answers, err := fx.svc.AttemptAnswers(ctx, attempt.ID)
	require.NoError(t, err)
	for _, ans := range answers {
		if ans.ID != essayAns.ID {
			continue
		}
		require.NotNil(t, ans.IsCorrect)
		assert.True(t, *ans.IsCorrect)
		assert.Equal(t, 8, ans.AwardedMarks)
	}
}

func TestService_BandFor(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, nbs := range []grading.NewBandScore{
		{CourseType: catalog.CourseIELTS, MinScore: 0, MaxScore: 29, Band: "5.5"},
		{CourseType: catalog.CourseIELTS, MinScore: 30, MaxScore: 40, Band: "7.0"},
	} {
		_, err := fx.svc.AddBandScore(ctx, nbs)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		ct      catalog.CourseType
		score   int
		want    string
		wantErr error
	}{
		{"lower band", catalog.CourseIELTS, 12, "5.5", nil},
		{"boundary belongs to the upper band", catalog.CourseIELTS, 30, "7.0", nil},
		{"top of range", catalog.CourseIELTS, 40, "7.0", nil},
		{"uncovered score", catalog.CourseIELTS, 41, "", grading.ErrBandNotFound},
		{"other course type has no mappings", catalog.CoursePTE, 12, "", grading.ErrBandNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, err := fx.svc.BandFor(ctx, tt.ct, tt.score)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, band)
		})
	}
}
