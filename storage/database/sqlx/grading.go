package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
)

type attemptRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	TestID      string    `db:"test_id"`
	StartedAt   time.Time `db:"started_at"`
	CompletedAt null.Time `db:"completed_at"`
	IsCompleted bool      `db:"is_completed"`
	CreatedBy   string    `db:"created_by"`
}

func (r attemptRow) unrow() grading.TestAttempt {
	return grading.TestAttempt{
		ID:          r.ID,
		StudentID:   r.StudentID,
		TestID:      r.TestID,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt.Ptr(),
		IsCompleted: r.IsCompleted,
		CreatedBy:   r.CreatedBy,
	}
}

type answerRow struct {
	ID               string      `db:"id"`
	AttemptID        string      `db:"attempt_id"`
	QuestionID       string      `db:"question_id"`
	SelectedOptionID null.String `db:"selected_option_id"`
	AnswerText       null.String `db:"answer_text"`
	IsCorrect        null.Bool   `db:"is_correct"`
	AwardedMarks     int         `db:"awarded_marks"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r answerRow) unrow() grading.StudentAnswer {
	return grading.StudentAnswer{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID.String,
		AnswerText:       r.AnswerText.String,
		IsCorrect:        r.IsCorrect.Ptr(),
		AwardedMarks:     r.AwardedMarks,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type resultRow struct {
	ID            string    `db:"id"`
	AttemptID     string    `db:"attempt_id"`
	ObtainedScore int       `db:"obtained_score"`
	TotalScore    int       `db:"total_score"`
	Status        string    `db:"status"`
	PublishedAt   null.Time `db:"published_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r resultRow) unrow() grading.TestResult {
	return grading.TestResult{
		ID:            r.ID,
		AttemptID:     r.AttemptID,
		ObtainedScore: r.ObtainedScore,
		TotalScore:    r.TotalScore,
		Status:        grading.ResultStatus(r.Status),
		PublishedAt:   r.PublishedAt.Ptr(),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) *gradingRepository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) CreateAttempt(ctx context.Context, ta grading.TestAttempt) (grading.TestAttempt, error) {
	ta.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO test_attempt (id, student_id, test_id, started_at, completed_at, is_completed, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ta.ID, ta.StudentID, ta.TestID, ta.StartedAt.UTC(), null.TimeFromPtr(ta.CompletedAt), ta.IsCompleted, ta.CreatedBy)
	if err != nil {
		return grading.TestAttempt{}, errors.Wrap(err, "inserting test attempt")
	}
	return ta, nil
}

func (repo *gradingRepository) GetAttemptByID(ctx context.Context, id string) (grading.TestAttempt, error) {
	var row attemptRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM test_attempt WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.TestAttempt{}, grading.ErrAttemptNotFound
		}
		return grading.TestAttempt{}, errors.Wrap(err, "getting test attempt")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) FilterAttempts(ctx context.Context, filter grading.AttemptFilter) ([]grading.TestAttempt, int, error) {
	var args []interface{}
	var conds []string
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(&args, filter.StudentID))
	}
	if filter.TestID != "" {
		conds = append(conds, "test_id = "+arg(&args, filter.TestID))
	}
	if filter.IsCompleted != nil {
		conds = append(conds, "is_completed = "+arg(&args, *filter.IsCompleted))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM test_attempt"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting test attempts")
	}

	query := fmt.Sprintf("SELECT * FROM test_attempt%s ORDER BY started_at DESC LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering test attempts")
	}
	attempts := make([]grading.TestAttempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, r.unrow())
	}
	return attempts, total, nil
}

func (repo *gradingRepository) CompleteAttempt(ctx context.Context, id string, at time.Time) (grading.TestAttempt, error) {
	var row attemptRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE test_attempt SET completed_at = $1, is_completed = TRUE WHERE id = $2 RETURNING *`, at.UTC(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.TestAttempt{}, grading.ErrAttemptNotFound
		}
		return grading.TestAttempt{}, errors.Wrap(err, "completing test attempt")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) CreateAnswer(ctx context.Context, sa grading.StudentAnswer) (grading.StudentAnswer, error) {
	sa.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO student_answer (id, attempt_id, question_id, selected_option_id, answer_text, is_correct, awarded_marks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sa.ID, sa.AttemptID, sa.QuestionID,
		null.NewString(sa.SelectedOptionID, sa.SelectedOptionID != ""),
		null.NewString(sa.AnswerText, sa.AnswerText != ""),
		null.BoolFromPtr(sa.IsCorrect), sa.AwardedMarks, sa.CreatedAt.UTC(), sa.UpdatedAt.UTC())
	if err != nil {
		return grading.StudentAnswer{}, errors.Wrap(err, "inserting student answer")
	}
	return sa, nil
}

func (repo *gradingRepository) GetAnswerByID(ctx context.Context, id string) (grading.StudentAnswer, error) {
	var row answerRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM student_answer WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.StudentAnswer{}, grading.ErrAnswerNotFound
		}
		return grading.StudentAnswer{}, errors.Wrap(err, "getting student answer")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) QueryAnswersByAttempt(ctx context.Context, attemptID string) ([]grading.StudentAnswer, error) {
	var rows []answerRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM student_answer WHERE attempt_id = $1 ORDER BY created_at, id`, attemptID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student answers")
	}
	answers := make([]grading.StudentAnswer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.unrow())
	}
	return answers, nil
}

func (repo *gradingRepository) SetAnswerMarks(ctx context.Context, id string, isCorrect *bool, marks int) (grading.StudentAnswer, error) {
	var row answerRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE student_answer SET is_correct = $1, awarded_marks = $2, updated_at = $3 WHERE id = $4 RETURNING *`,
		null.BoolFromPtr(isCorrect), marks, time.Now().UTC(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.StudentAnswer{}, grading.ErrAnswerNotFound
		}
		return grading.StudentAnswer{}, errors.Wrap(err, "setting answer marks")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) CreateResult(ctx context.Context, tr grading.TestResult) (grading.TestResult, error) {
	tr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO test_result (id, attempt_id, obtained_score, total_score, status, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.ID, tr.AttemptID, tr.ObtainedScore, tr.TotalScore, string(tr.Status),
		null.TimeFromPtr(tr.PublishedAt), tr.CreatedAt.UTC(), tr.UpdatedAt.UTC())
	if err != nil {
		return grading.TestResult{}, errors.Wrap(err, "inserting test result")
	}
	return tr, nil
}

func (repo *gradingRepository) GetResultByID(ctx context.Context, id string) (grading.TestResult, error) {
	var row resultRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM test_result WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.TestResult{}, grading.ErrResultNotFound
		}
		return grading.TestResult{}, errors.Wrap(err, "getting test result")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) GetResultByAttempt(ctx context.Context, attemptID string) (grading.TestResult, error) {
	var row resultRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM test_result WHERE attempt_id = $1`, attemptID)
	if err != nil {
		if err == sql.ErrNoRows {
			return grading.TestResult{}, grading.ErrResultNotFound
		}
		return grading.TestResult{}, errors.Wrap(err, "getting test result by attempt")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) FilterResults(ctx context.Context, filter grading.ResultFilter) ([]grading.TestResult, int, error) {
	var args []interface{}
	var conds []string
	if filter.AttemptID != "" {
		conds = append(conds, "attempt_id = "+arg(&args, filter.AttemptID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(&args, string(filter.Status)))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM test_result"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting test results")
	}

	query := fmt.Sprintf("SELECT * FROM test_result%s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering test results")
	}
	results := make([]grading.TestResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.unrow())
	}
	return results, total, nil
}

func (repo *gradingRepository) PublishResult(ctx context.Context, id string, score int, at time.Time) (grading.TestResult, error) {
	var row resultRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE test_result
		SET obtained_score = $1, status = $2, published_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING *`,
		score, string(grading.StatusPublished), at.UTC(), id, string(grading.StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			// row missing or already published; let the service sort out which
			return grading.TestResult{}, grading.ErrResultNotFound
		}
		return grading.TestResult{}, errors.Wrap(err, "publishing test result")
	}
	return row.unrow(), nil
}

func (repo *gradingRepository) UpsertSectionResult(ctx context.Context, sr grading.SectionResult) (grading.SectionResult, error) {
	if sr.ID == "" {
		sr.ID = uuid.New().String()
	}
	var row struct {
		ID            string    `db:"id"`
		ResultID      string    `db:"result_id"`
		TestSectionID string    `db:"test_section_id"`
		Score         int       `db:"score"`
		MaxScore      int       `db:"max_score"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO section_result (id, result_id, test_section_id, score, max_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (result_id, test_section_id)
		DO UPDATE SET score = EXCLUDED.score, max_score = EXCLUDED.max_score, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		sr.ID, sr.ResultID, sr.TestSectionID, sr.Score, sr.MaxScore, sr.UpdatedAt.UTC())
	if err != nil {
		return grading.SectionResult{}, errors.Wrap(err, "upserting section result")
	}
	return grading.SectionResult(row), nil
}

func (repo *gradingRepository) QuerySectionResults(ctx context.Context, resultID string) ([]grading.SectionResult, error) {
	var rows []struct {
		ID            string    `db:"id"`
		ResultID      string    `db:"result_id"`
		TestSectionID string    `db:"test_section_id"`
		Score         int       `db:"score"`
		MaxScore      int       `db:"max_score"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM section_result WHERE result_id = $1 ORDER BY id`, resultID)
	if err != nil {
		return nil, errors.Wrap(err, "querying section results")
	}
	results := make([]grading.SectionResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, grading.SectionResult(r))
	}
	return results, nil
}

func (repo *gradingRepository) CreateEvaluation(ctx context.Context, me grading.ManualEvaluation) (grading.ManualEvaluation, error) {
	me.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO manual_evaluation (id, answer_id, evaluator_id, score, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		me.ID, me.AnswerID, me.EvaluatorID, me.Score, null.NewString(me.Remarks, me.Remarks != ""), me.CreatedAt.UTC())
	if err != nil {
		return grading.ManualEvaluation{}, errors.Wrap(err, "inserting manual evaluation")
	}
	return me, nil
}

func (repo *gradingRepository) QueryEvaluationsByAnswer(ctx context.Context, answerID string) ([]grading.ManualEvaluation, error) {
	var rows []struct {
		ID          string      `db:"id"`
		AnswerID    string      `db:"answer_id"`
		EvaluatorID string      `db:"evaluator_id"`
		Score       int         `db:"score"`
		Remarks     null.String `db:"remarks"`
		CreatedAt   time.Time   `db:"created_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM manual_evaluation WHERE answer_id = $1 ORDER BY created_at`, answerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying manual evaluations")
	}
	evals := make([]grading.ManualEvaluation, 0, len(rows))
	for _, r := range rows {
		evals = append(evals, grading.ManualEvaluation{
			ID:          r.ID,
			AnswerID:    r.AnswerID,
			EvaluatorID: r.EvaluatorID,
			Score:       r.Score,
			Remarks:     r.Remarks.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return evals, nil
}

func (repo *gradingRepository) CreateBandScore(ctx context.Context, m grading.BandScoreMapping) (grading.BandScoreMapping, error) {
	m.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO band_score_mapping (id, course_type, min_score, max_score, band)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, string(m.CourseType), m.MinScore, m.MaxScore, m.Band)
	if err != nil {
		return grading.BandScoreMapping{}, errors.Wrap(err, "inserting band score mapping")
	}
	return m, nil
}

func (repo *gradingRepository) QueryBandScores(ctx context.Context, courseType catalog.CourseType) ([]grading.BandScoreMapping, error) {
	var args []interface{}
	var conds []string
	if courseType != "" {
		conds = append(conds, "course_type = "+arg(&args, string(courseType)))
	}
	query := "SELECT * FROM band_score_mapping" + whereClause(conds) + " ORDER BY course_type, min_score"

	var rows []struct {
		ID         string `db:"id"`
		CourseType string `db:"course_type"`
		MinScore   int    `db:"min_score"`
		MaxScore   int    `db:"max_score"`
		Band       string `db:"band"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying band score mappings")
	}
	mappings := make([]grading.BandScoreMapping, 0, len(rows))
	for _, r := range rows {
		mappings = append(mappings, grading.BandScoreMapping{
			ID:         r.ID,
			CourseType: catalog.CourseType(r.CourseType),
			MinScore:   r.MinScore,
			MaxScore:   r.MaxScore,
			Band:       r.Band,
		})
	}
	return mappings, nil
}

func (repo *gradingRepository) DeleteBandScore(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM band_score_mapping WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting band score mapping")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grading.ErrBandNotFound
	}
	return nil
}
