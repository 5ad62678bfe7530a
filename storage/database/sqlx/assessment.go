package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/assessment"
)

type testRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	CourseID        string    `db:"course_id"`
	TestKind        string    `db:"test_kind"`
	TotalMarks      int       `db:"total_marks"`
	DurationMinutes int       `db:"duration_minutes"`
	IsActive        bool      `db:"is_active"`
	IsDeleted       bool      `db:"is_deleted"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r testRow) unrow() assessment.Test {
	return assessment.Test{
		ID:              r.ID,
		Title:           r.Title,
		CourseID:        r.CourseID,
		TestKind:        assessment.TestKind(r.TestKind),
		TotalMarks:      r.TotalMarks,
		DurationMinutes: r.DurationMinutes,
		IsActive:        r.IsActive,
		IsDeleted:       r.IsDeleted,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type questionRow struct {
	ID            string      `db:"id"`
	TestSectionID string      `db:"test_section_id"`
	Text          string      `db:"text"`
	Type          string      `db:"type"`
	Marks         int         `db:"marks"`
	SortOrder     int         `db:"sort_order"`
	CorrectAnswer null.String `db:"correct_answer"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r questionRow) unrow() assessment.Question {
	return assessment.Question{
		ID:            r.ID,
		TestSectionID: r.TestSectionID,
		Text:          r.Text,
		Type:          assessment.QuestionType(r.Type),
		Marks:         r.Marks,
		Order:         r.SortOrder,
		CorrectAnswer: r.CorrectAnswer.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	t.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO test (id, title, course_id, test_kind, total_marks, duration_minutes, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.CourseID, string(t.TestKind), t.TotalMarks, t.DurationMinutes,
		t.IsActive, t.IsDeleted, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "inserting test")
	}
	return t, nil
}

func (repo *assessmentRepository) GetTestByID(ctx context.Context, id string) (assessment.Test, error) {
	var row testRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM test WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Test{}, assessment.ErrTestNotFound
		}
		return assessment.Test{}, errors.Wrap(err, "getting test")
	}
	return row.unrow(), nil
}

func (repo *assessmentRepository) FilterTests(ctx context.Context, filter assessment.TestFilter) ([]assessment.Test, int, error) {
	var args []interface{}
	conds := []string{"is_deleted = FALSE"}
	if filter.Search != "" {
		conds = append(conds, "title ILIKE "+arg(&args, "%"+filter.Search+"%"))
	}
	if filter.CourseID != "" {
		conds = append(conds, "course_id = "+arg(&args, filter.CourseID))
	}
	if filter.TestKind != "" {
		conds = append(conds, "test_kind = "+arg(&args, string(filter.TestKind)))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(&args, *filter.IsActive))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM test"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting tests")
	}

	query := fmt.Sprintf("SELECT * FROM test%s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []testRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering tests")
	}
	tests := make([]assessment.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.unrow())
	}
	return tests, total, nil
}

func (repo *assessmentRepository) UpdateTest(ctx context.Context, t assessment.Test, totalMarks, durationMinutes *int, isActive *bool) (assessment.Test, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, t.UpdatedAt.UTC())}
	if t.Title != "" {
		sets = append(sets, "title = "+arg(&args, t.Title))
	}
	if t.TestKind != "" {
		sets = append(sets, "test_kind = "+arg(&args, string(t.TestKind)))
	}
	if totalMarks != nil {
		sets = append(sets, "total_marks = "+arg(&args, *totalMarks))
	}
	if durationMinutes != nil {
		sets = append(sets, "duration_minutes = "+arg(&args, *durationMinutes))
	}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}

	query := fmt.Sprintf("UPDATE test SET %s WHERE id = %s AND is_deleted = FALSE RETURNING *",
		joinSets(sets), arg(&args, t.ID))
	var row testRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return assessment.Test{}, assessment.ErrTestNotFound
		}
		return assessment.Test{}, errors.Wrap(err, "updating test")
	}
	return row.unrow(), nil
}

func (repo *assessmentRepository) DeleteTestsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `UPDATE test SET is_deleted = TRUE WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting tests")
}

func (repo *assessmentRepository) CheckTestSectionUniqueness(ctx context.Context, testID, sectionID string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM test_section WHERE test_id = $1 AND section_id = $2)`, testID, sectionID)
	if err != nil {
		return errors.Wrap(err, "checking test section uniqueness")
	}
	if exists {
		return assessment.ErrTestSectionExists
	}
	return nil
}

func (repo *assessmentRepository) CreateTestSection(ctx context.Context, ts assessment.TestSection) (assessment.TestSection, error) {
	ts.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO test_section (id, test_id, section_id, marks, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ts.ID, ts.TestID, ts.SectionID, ts.Marks, ts.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "test_section_test_id_section_id_key") {
			return assessment.TestSection{}, assessment.ErrTestSectionExists
		}
		return assessment.TestSection{}, errors.Wrap(err, "inserting test section")
	}
	return ts, nil
}

func (repo *assessmentRepository) GetTestSectionByID(ctx context.Context, id string) (assessment.TestSection, error) {
	var row struct {
		ID        string    `db:"id"`
		TestID    string    `db:"test_id"`
		SectionID string    `db:"section_id"`
		Marks     int       `db:"marks"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM test_section WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.TestSection{}, assessment.ErrTestSectionNotFound
		}
		return assessment.TestSection{}, errors.Wrap(err, "getting test section")
	}
	return assessment.TestSection(row), nil
}

func (repo *assessmentRepository) QueryTestSectionsByTest(ctx context.Context, testID string) ([]assessment.TestSection, error) {
	var rows []struct {
		ID        string    `db:"id"`
		TestID    string    `db:"test_id"`
		SectionID string    `db:"section_id"`
		Marks     int       `db:"marks"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM test_section WHERE test_id = $1 ORDER BY created_at`, testID)
	if err != nil {
		return nil, errors.Wrap(err, "querying test sections")
	}
	sections := make([]assessment.TestSection, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, assessment.TestSection(r))
	}
	return sections, nil
}

func (repo *assessmentRepository) DeleteTestSection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM test_section WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting test section")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrTestSectionNotFound
	}
	return nil
}

func (repo *assessmentRepository) CreateQuestion(ctx context.Context, q assessment.Question) (assessment.Question, error) {
	q.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO question (id, test_section_id, text, type, marks, sort_order, correct_answer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.TestSectionID, q.Text, string(q.Type), q.Marks, q.Order,
		null.NewString(q.CorrectAnswer, q.CorrectAnswer != ""), q.CreatedAt.UTC(), q.UpdatedAt.UTC())
	if err != nil {
		return assessment.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *assessmentRepository) GetQuestionByID(ctx context.Context, id string) (assessment.Question, error) {
	var row questionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM question WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Question{}, assessment.ErrQuestionNotFound
		}
		return assessment.Question{}, errors.Wrap(err, "getting question")
	}
	return row.unrow(), nil
}

func (repo *assessmentRepository) QueryQuestionsByTestSection(ctx context.Context, testSectionID string) ([]assessment.Question, error) {
	var rows []questionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM question WHERE test_section_id = $1 ORDER BY sort_order, id`, testSectionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]assessment.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.unrow())
	}
	return questions, nil
}

func (repo *assessmentRepository) UpdateQuestion(ctx context.Context, q assessment.Question, marks, order *int) (assessment.Question, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, q.UpdatedAt.UTC())}
	if q.Text != "" {
		sets = append(sets, "text = "+arg(&args, q.Text))
	}
	if q.CorrectAnswer != "" {
		sets = append(sets, "correct_answer = "+arg(&args, q.CorrectAnswer))
	}
	if marks != nil {
		sets = append(sets, "marks = "+arg(&args, *marks))
	}
	if order != nil {
		sets = append(sets, "sort_order = "+arg(&args, *order))
	}

	query := fmt.Sprintf("UPDATE question SET %s WHERE id = %s RETURNING *", joinSets(sets), arg(&args, q.ID))
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return assessment.Question{}, assessment.ErrQuestionNotFound
		}
		return assessment.Question{}, errors.Wrap(err, "updating question")
	}
	return row.unrow(), nil
}

func (repo *assessmentRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM question WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting questions")
}

func (repo *assessmentRepository) CreateQuestionOption(ctx context.Context, opt assessment.QuestionOption) (assessment.QuestionOption, error) {
	opt.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO question_option (id, question_id, text, is_correct, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		opt.ID, opt.QuestionID, opt.Text, opt.IsCorrect, opt.CreatedAt.UTC())
	if err != nil {
		return assessment.QuestionOption{}, errors.Wrap(err, "inserting question option")
	}
	return opt, nil
}

func (repo *assessmentRepository) GetQuestionOptionByID(ctx context.Context, id string) (assessment.QuestionOption, error) {
	var row struct {
		ID         string    `db:"id"`
		QuestionID string    `db:"question_id"`
		Text       string    `db:"text"`
		IsCorrect  bool      `db:"is_correct"`
		CreatedAt  time.Time `db:"created_at"`
	}
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM question_option WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.QuestionOption{}, assessment.ErrOptionNotFound
		}
		return assessment.QuestionOption{}, errors.Wrap(err, "getting question option")
	}
	return assessment.QuestionOption(row), nil
}

func (repo *assessmentRepository) QueryOptionsByQuestion(ctx context.Context, questionID string) ([]assessment.QuestionOption, error) {
	var rows []struct {
		ID         string    `db:"id"`
		QuestionID string    `db:"question_id"`
		Text       string    `db:"text"`
		IsCorrect  bool      `db:"is_correct"`
		CreatedAt  time.Time `db:"created_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM question_option WHERE question_id = $1 ORDER BY created_at, id`, questionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying question options")
	}
	options := make([]assessment.QuestionOption, 0, len(rows))
	for _, r := range rows {
		options = append(options, assessment.QuestionOption(r))
	}
	return options, nil
}

func (repo *assessmentRepository) DeleteQuestionOption(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM question_option WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting question option")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.ErrOptionNotFound
	}
	return nil
}
