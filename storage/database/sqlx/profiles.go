package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type profileRepository struct {
	db *sqlx.DB
}

var _ user.ProfileRepository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

type userProfileRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Phone     null.String `db:"phone"`
	Address   null.String `db:"address"`
	AvatarRef null.String `db:"avatar_ref"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r userProfileRow) unrow() user.UserProfile {
	return user.UserProfile{
		ID:        r.ID,
		UserID:    r.UserID,
		Phone:     r.Phone.String,
		Address:   r.Address.String,
		AvatarRef: r.AvatarRef.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo *profileRepository) GetUserProfile(ctx context.Context, userID string) (user.UserProfile, error) {
	var row userProfileRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM user_profile WHERE user_id = $1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.UserProfile{}, user.ErrProfileNotFound
		}
		return user.UserProfile{}, errors.Wrap(err, "getting user profile")
	}
	return row.unrow(), nil
}

func (repo *profileRepository) UpsertUserProfile(ctx context.Context, p user.UserProfile) (user.UserProfile, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	var row userProfileRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO user_profile (id, user_id, phone, address, avatar_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET phone = EXCLUDED.phone, address = EXCLUDED.address, avatar_ref = EXCLUDED.avatar_ref, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		p.ID, p.UserID,
		null.NewString(p.Phone, p.Phone != ""), null.NewString(p.Address, p.Address != ""),
		null.NewString(p.AvatarRef, p.AvatarRef != ""), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return user.UserProfile{}, errors.Wrap(err, "upserting user profile")
	}
	return row.unrow(), nil
}

type studentProfileRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Grade         null.String `db:"grade"`
	GuardianName  null.String `db:"guardian_name"`
	GuardianPhone null.String `db:"guardian_phone"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r studentProfileRow) unrow() user.StudentProfile {
	return user.StudentProfile{
		ID:            r.ID,
		UserID:        r.UserID,
		Grade:         r.Grade.String,
		GuardianName:  r.GuardianName.String,
		GuardianPhone: r.GuardianPhone.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (repo *profileRepository) GetStudentProfile(ctx context.Context, userID string) (user.StudentProfile, error) {
	var row studentProfileRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM student_profile WHERE user_id = $1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.StudentProfile{}, user.ErrProfileNotFound
		}
		return user.StudentProfile{}, errors.Wrap(err, "getting student profile")
	}
	return row.unrow(), nil
}

func (repo *profileRepository) UpsertStudentProfile(ctx context.Context, p user.StudentProfile) (user.StudentProfile, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	var row studentProfileRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO student_profile (id, user_id, grade, guardian_name, guardian_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET grade = EXCLUDED.grade, guardian_name = EXCLUDED.guardian_name, guardian_phone = EXCLUDED.guardian_phone, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		p.ID, p.UserID,
		null.NewString(p.Grade, p.Grade != ""), null.NewString(p.GuardianName, p.GuardianName != ""),
		null.NewString(p.GuardianPhone, p.GuardianPhone != ""), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return user.StudentProfile{}, errors.Wrap(err, "upserting student profile")
	}
	return row.unrow(), nil
}

func (repo *profileRepository) FilterStudentProfilesByGrade(ctx context.Context, grade string, params core.Params) ([]user.StudentProfile, int, error) {
	var args []interface{}
	var conds []string
	if grade != "" {
		conds = append(conds, "grade = "+arg(&args, grade))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_profile"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting student profiles")
	}

	query := "SELECT * FROM student_profile" + where + " ORDER BY id LIMIT " + arg(&args, params.Limit()) + " OFFSET " + arg(&args, params.Offset())
	var rows []studentProfileRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering student profiles")
	}
	profiles := make([]user.StudentProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.unrow())
	}
	return profiles, total, nil
}

type teacherProfileRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Subject       null.String `db:"subject"`
	Qualification null.String `db:"qualification"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r teacherProfileRow) unrow() user.TeacherProfile {
	return user.TeacherProfile{
		ID:            r.ID,
		UserID:        r.UserID,
		Subject:       r.Subject.String,
		Qualification: r.Qualification.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (repo *profileRepository) GetTeacherProfile(ctx context.Context, userID string) (user.TeacherProfile, error) {
	var row teacherProfileRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher_profile WHERE user_id = $1`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.TeacherProfile{}, user.ErrProfileNotFound
		}
		return user.TeacherProfile{}, errors.Wrap(err, "getting teacher profile")
	}
	return row.unrow(), nil
}

func (repo *profileRepository) UpsertTeacherProfile(ctx context.Context, p user.TeacherProfile) (user.TeacherProfile, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	var row teacherProfileRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO teacher_profile (id, user_id, subject, qualification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET subject = EXCLUDED.subject, qualification = EXCLUDED.qualification, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		p.ID, p.UserID,
		null.NewString(p.Subject, p.Subject != ""), null.NewString(p.Qualification, p.Qualification != ""),
		p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return user.TeacherProfile{}, errors.Wrap(err, "upserting teacher profile")
	}
	return row.unrow(), nil
}

func (repo *profileRepository) FilterTeacherProfilesBySubject(ctx context.Context, subject string, params core.Params) ([]user.TeacherProfile, int, error) {
	var args []interface{}
	var conds []string
	if subject != "" {
		conds = append(conds, "subject = "+arg(&args, subject))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teacher_profile"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting teacher profiles")
	}

	query := "SELECT * FROM teacher_profile" + where + " ORDER BY id LIMIT " + arg(&args, params.Limit()) + " OFFSET " + arg(&args, params.Offset())
	var rows []teacherProfileRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering teacher profiles")
	}
	profiles := make([]user.TeacherProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.unrow())
	}
	return profiles, total, nil
}
