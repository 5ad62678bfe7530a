package assessment_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func newTestService(t *testing.T) assessment.Service {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	return assessment.NewService(inmemdb.NewAssessmentRepository(db))
}

func seedTest(t *testing.T, svc assessment.Service) assessment.Test {
	t.Helper()

	test, err := svc.CreateTest(context.Background(), assessment.NewTest{
		Title:           "Mock Test 1",
		CourseID:        "c1",
		TestKind:        assessment.TestMock,
		TotalMarks:      40,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	return test
}

func seedQuestion(t *testing.T, svc assessment.Service, tsID string, qt assessment.QuestionType) assessment.Question {
	t.Helper()

	question, err := svc.CreateQuestion(context.Background(), assessment.NewQuestion{
		TestSectionID: tsID,
		Text:          "What is the capital of DRC?",
		Type:          qt,
		Marks:         2,
		Order:         1,
	})
	require.NoError(t, err)
	return question
}

func TestService_AddTestSection_uniquePerTest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	test := seedTest(t, svc)
	other := seedTest(t, svc)

	_, err := svc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: "s1", Marks: 10})
	require.NoError(t, err)

	_, err = svc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: "s1", Marks: 10})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "section_id", vErr.Fields[0].Field)

	// same section under another test is fine
	_, err = svc.AddTestSection(ctx, assessment.NewTestSection{TestID: other.ID, SectionID: "s1", Marks: 10})
	assert.NoError(t, err)

	// unknown test
	_, err = svc.AddTestSection(ctx, assessment.NewTestSection{TestID: "nope", SectionID: "s2"})
	assert.Equal(t, assessment.ErrTestNotFound, errors.Cause(err))
}

func TestService_AddOption_mcqOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	test := seedTest(t, svc)
	ts, err := svc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: "s1", Marks: 10})
	require.NoError(t, err)

	mcq := seedQuestion(t, svc, ts.ID, assessment.QuestionMCQ)
	essay := seedQuestion(t, svc, ts.ID, assessment.QuestionEssay)

	opt, err := svc.AddOption(ctx, assessment.NewQuestionOption{QuestionID: mcq.ID, Text: "Kinshasa", IsCorrect: true})
	require.NoError(t, err)
	assert.True(t, opt.IsCorrect)

	_, err = svc.AddOption(ctx, assessment.NewQuestionOption{QuestionID: essay.ID, Text: "N/A"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "question_id", vErr.Fields[0].Field)

	opts, err := svc.QuestionOptions(ctx, mcq.ID)
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestService_DeleteTests(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	test := seedTest(t, svc)
	keep := seedTest(t, svc)

	require.NoError(t, svc.DeleteTests(ctx, test.ID))

	_, err := svc.GetTest(ctx, test.ID)
	assert.Equal(t, assessment.ErrTestNotFound, errors.Cause(err))

	tests, total, err := svc.QueryTests(ctx, &assessment.TestFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tests, 1)
	assert.Equal(t, keep.ID, tests[0].ID)
}
