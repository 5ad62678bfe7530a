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

	"github.com/darasahq/darasa/core/catalog"
)

type courseRow struct {
	ID         string    `db:"id"`
	Title      string    `db:"title"`
	CourseType string    `db:"course_type"`
	BranchID   string    `db:"branch_id"`
	IsActive   bool      `db:"is_active"`
	IsDeleted  bool      `db:"is_deleted"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r courseRow) unrow() catalog.Course {
	return catalog.Course{
		ID:         r.ID,
		Title:      r.Title,
		CourseType: catalog.CourseType(r.CourseType),
		BranchID:   r.BranchID,
		IsActive:   r.IsActive,
		IsDeleted:  r.IsDeleted,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type sectionRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CourseID  string    `db:"course_id"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r sectionRow) unrow() catalog.Section {
	return catalog.Section{
		ID:        r.ID,
		Name:      catalog.SectionName(r.Name),
		CourseID:  r.CourseID,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type lessonRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	SectionID string      `db:"section_id"`
	SortOrder int         `db:"sort_order"`
	FileRef   null.String `db:"file_ref"`
	VideoRef  null.String `db:"video_ref"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r lessonRow) unrow() catalog.Lesson {
	return catalog.Lesson{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		SectionID: r.SectionID,
		Order:     r.SortOrder,
		FileRef:   r.FileRef.String,
		VideoRef:  r.VideoRef.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course (id, title, course_type, branch_id, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Title, string(c.CourseType), c.BranchID, c.IsActive, c.IsDeleted, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *catalogRepository) GetCourseByID(ctx context.Context, id string) (catalog.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return catalog.Course{}, catalog.ErrCourseNotFound
		}
		return catalog.Course{}, errors.Wrap(err, "getting course")
	}
	return row.unrow(), nil
}

func (repo *catalogRepository) FilterCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, int, error) {
	var args []interface{}
	conds := []string{"is_deleted = FALSE"}
	if filter.Search != "" {
		conds = append(conds, "title ILIKE "+arg(&args, "%"+filter.Search+"%"))
	}
	if filter.CourseType != "" {
		conds = append(conds, "course_type = "+arg(&args, string(filter.CourseType)))
	}
	if filter.BranchID != "" {
		conds = append(conds, "branch_id = "+arg(&args, filter.BranchID))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(&args, *filter.IsActive))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM course"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	query := fmt.Sprintf("SELECT * FROM course%s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering courses")
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unrow())
	}
	return courses, total, nil
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, c catalog.Course, isActive *bool) (catalog.Course, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, c.UpdatedAt.UTC())}
	if c.Title != "" {
		sets = append(sets, "title = "+arg(&args, c.Title))
	}
	if c.CourseType != "" {
		sets = append(sets, "course_type = "+arg(&args, string(c.CourseType)))
	}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}

	query := fmt.Sprintf("UPDATE course SET %s WHERE id = %s AND is_deleted = FALSE RETURNING *",
		joinSets(sets), arg(&args, c.ID))
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Course{}, catalog.ErrCourseNotFound
		}
		return catalog.Course{}, errors.Wrap(err, "updating course")
	}
	return row.unrow(), nil
}

// DeleteCourse hard-deletes; sections and lessons go with it via
// ON DELETE CASCADE.
func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrCourseNotFound
	}
	return nil
}

func (repo *catalogRepository) CountCourseDependents(ctx context.Context, id string) (int, int, error) {
	var counts struct {
		Sections int `db:"sections"`
		Lessons  int `db:"lessons"`
	}
	err := repo.db.GetContext(ctx, &counts, `
		SELECT COUNT(DISTINCT s.id) AS sections, COUNT(l.id) AS lessons
		FROM section s
		LEFT JOIN lesson l ON l.section_id = s.id
		WHERE s.course_id = $1`, id)
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting course dependents")
	}
	return counts.Sections, counts.Lessons, nil
}

func (repo *catalogRepository) CheckSectionUniqueness(ctx context.Context, courseID string, name catalog.SectionName) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM section WHERE course_id = $1 AND name = $2)`, courseID, string(name))
	if err != nil {
		return errors.Wrap(err, "checking section uniqueness")
	}
	if exists {
		return catalog.ErrSectionExists
	}
	return nil
}

func (repo *catalogRepository) CreateSection(ctx context.Context, s catalog.Section) (catalog.Section, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO section (id, name, course_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, string(s.Name), s.CourseID, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "section_course_id_name_key") {
			return catalog.Section{}, catalog.ErrSectionExists
		}
		return catalog.Section{}, errors.Wrap(err, "inserting section")
	}
	return s, nil
}

func (repo *catalogRepository) GetSectionByID(ctx context.Context, id string) (catalog.Section, error) {
	var row sectionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM section WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return catalog.Section{}, catalog.ErrSectionNotFound
		}
		return catalog.Section{}, errors.Wrap(err, "getting section")
	}
	return row.unrow(), nil
}

func (repo *catalogRepository) QuerySectionsByCourse(ctx context.Context, courseID string) ([]catalog.Section, error) {
	var rows []sectionRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM section WHERE course_id = $1 ORDER BY name`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course sections")
	}
	sections := make([]catalog.Section, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, r.unrow())
	}
	return sections, nil
}

func (repo *catalogRepository) UpdateSection(ctx context.Context, s catalog.Section, isActive *bool) (catalog.Section, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, s.UpdatedAt.UTC())}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}
	query := fmt.Sprintf("UPDATE section SET %s WHERE id = %s RETURNING *", joinSets(sets), arg(&args, s.ID))
	var row sectionRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Section{}, catalog.ErrSectionNotFound
		}
		return catalog.Section{}, errors.Wrap(err, "updating section")
	}
	return row.unrow(), nil
}

// DeleteSection hard-deletes; lessons cascade.
func (repo *catalogRepository) DeleteSection(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM section WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrSectionNotFound
	}
	return nil
}

func (repo *catalogRepository) CountSectionDependents(ctx context.Context, id string) (int, error) {
	var lessons int
	err := repo.db.GetContext(ctx, &lessons, `SELECT COUNT(*) FROM lesson WHERE section_id = $1`, id)
	if err != nil {
		return 0, errors.Wrap(err, "counting section dependents")
	}
	return lessons, nil
}

func (repo *catalogRepository) CreateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	l.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO lesson (id, title, content, section_id, sort_order, file_ref, video_ref, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.Title, l.Content, l.SectionID, l.Order,
		null.NewString(l.FileRef, l.FileRef != ""), null.NewString(l.VideoRef, l.VideoRef != ""),
		l.IsActive, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo *catalogRepository) GetLessonByID(ctx context.Context, id string) (catalog.Lesson, error) {
	var row lessonRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrLessonNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.unrow(), nil
}

func (repo *catalogRepository) FilterLessons(ctx context.Context, filter catalog.LessonFilter) ([]catalog.Lesson, int, error) {
	var args []interface{}
	var conds []string
	if filter.Search != "" {
		p := arg(&args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR content ILIKE %[1]s)", p))
	}
	if filter.SectionID != "" {
		conds = append(conds, "section_id = "+arg(&args, filter.SectionID))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(&args, *filter.IsActive))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lesson"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting lessons")
	}

	query := fmt.Sprintf("SELECT * FROM lesson%s ORDER BY sort_order, id LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering lessons")
	}
	lessons := make([]catalog.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.unrow())
	}
	return lessons, total, nil
}

func (repo *catalogRepository) UpdateLesson(ctx context.Context, l catalog.Lesson, order *int, isActive *bool) (catalog.Lesson, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, l.UpdatedAt.UTC())}
	if l.Title != "" {
		sets = append(sets, "title = "+arg(&args, l.Title))
	}
	if l.Content != "" {
		sets = append(sets, "content = "+arg(&args, l.Content))
	}
	if l.FileRef != "" {
		sets = append(sets, "file_ref = "+arg(&args, l.FileRef))
	}
	if l.VideoRef != "" {
		sets = append(sets, "video_ref = "+arg(&args, l.VideoRef))
	}
	if order != nil {
		sets = append(sets, "sort_order = "+arg(&args, *order))
	}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}

	query := fmt.Sprintf("UPDATE lesson SET %s WHERE id = %s RETURNING *", joinSets(sets), arg(&args, l.ID))
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrLessonNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return row.unrow(), nil
}

func (repo *catalogRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting lessons")
}

func (repo *catalogRepository) CreateEnrollment(ctx context.Context, e catalog.Enrollment) (catalog.Enrollment, error) {
	e.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO enrollment (id, user_id, course_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		e.ID, e.UserID, e.CourseID, e.CreatedAt.UTC())
	if err != nil {
		return catalog.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *catalogRepository) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE user_id = $1 AND course_id = $2)`, userID, courseID)
	return exists, errors.Wrap(err, "checking enrollment")
}

func (repo *catalogRepository) QueryEnrollmentsByUser(ctx context.Context, userID string) ([]catalog.Enrollment, error) {
	var rows []struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CourseID  string    `db:"course_id"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM enrollment WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]catalog.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, catalog.Enrollment(r))
	}
	return enrollments, nil
}

func (repo *catalogRepository) DeleteEnrollment(ctx context.Context, userID, courseID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	return errors.Wrap(err, "deleting enrollment")
}

func (repo *catalogRepository) UpsertLessonProgress(ctx context.Context, lp catalog.LessonProgress) (catalog.LessonProgress, error) {
	if lp.ID == "" {
		lp.ID = uuid.New().String()
	}
	var row struct {
		ID          string     `db:"id"`
		UserID      string     `db:"user_id"`
		LessonID    string     `db:"lesson_id"`
		Progress    int        `db:"progress"`
		CompletedAt null.Time `db:"completed_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO lesson_progress (id, user_id, lesson_id, progress, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET progress = EXCLUDED.progress, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		lp.ID, lp.UserID, lp.LessonID, lp.Progress, null.TimeFromPtr(lp.CompletedAt), lp.UpdatedAt.UTC())
	if err != nil {
		return catalog.LessonProgress{}, errors.Wrap(err, "upserting lesson progress")
	}
	return catalog.LessonProgress{
		ID:          row.ID,
		UserID:      row.UserID,
		LessonID:    row.LessonID,
		Progress:    row.Progress,
		CompletedAt: row.CompletedAt.Ptr(),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (repo *catalogRepository) QueryLessonProgressByUser(ctx context.Context, userID string) ([]catalog.LessonProgress, error) {
	var rows []struct {
		ID          string    `db:"id"`
		UserID      string    `db:"user_id"`
		LessonID    string    `db:"lesson_id"`
		Progress    int       `db:"progress"`
		CompletedAt null.Time `db:"completed_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM lesson_progress WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lesson progress")
	}
	progress := make([]catalog.LessonProgress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, catalog.LessonProgress{
			ID:          r.ID,
			UserID:      r.UserID,
			LessonID:    r.LessonID,
			Progress:    r.Progress,
			CompletedAt: r.CompletedAt.Ptr(),
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return progress, nil
}
