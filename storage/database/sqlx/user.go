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

	"github.com/darasahq/darasa/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	BranchID     null.String `db:"branch_id"`
	StudentID    null.String `db:"student_id"`
	EmployeeID   null.String `db:"employee_id"`
	IsActive     bool        `db:"is_active"`
	IsDeleted    bool        `db:"is_deleted"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) unrow() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		BranchID:     r.BranchID.String,
		StudentID:    r.StudentID.String,
		EmployeeID:   r.EmployeeID.String,
		IsActive:     r.IsActive,
		IsDeleted:    r.IsDeleted,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func rowUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        usr.Email,
		Role:         string(usr.Role),
		BranchID:     null.NewString(usr.BranchID, usr.BranchID != ""),
		StudentID:    null.NewString(usr.StudentID, usr.StudentID != ""),
		EmployeeID:   null.NewString(usr.EmployeeID, usr.EmployeeID != ""),
		IsActive:     usr.IsActive,
		IsDeleted:    usr.IsDeleted,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func unrowUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unrow())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo *userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var args []interface{}
	query := fmt.Sprintf(
		`SELECT COALESCE(username = %s, FALSE) AS uname_taken FROM "user" WHERE (username = $1 OR email = %s) AND is_deleted = FALSE`,
		arg(&args, username), arg(&args, email),
	)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += fmt.Sprintf(" AND NOT (id = ANY(%s))", arg(&args, pq.StringArray(ids)))
	}
	query += " LIMIT 1"

	var unameTaken bool
	if err := repo.db.GetContext(ctx, &unameTaken, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if unameTaken {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := rowUser(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, username, email, role, branch_id, student_id, employee_id,
		                    is_active, is_deleted, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :role, :branch_id, :student_id, :employee_id,
		        :is_active, :is_deleted, :password_hash, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if isUniqueViolation(err, "user_username_key") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "user_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by id")
	}
	return row.unrow(), nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE username = $1 AND is_deleted = FALSE`, username)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by username")
	}
	return row.unrow(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1 AND is_deleted = FALSE`, email)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by email")
	}
	return row.unrow(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE (username = $1 OR email = $1) AND is_deleted = FALSE`, uname)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by username or email")
	}
	return row.unrow(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, int, error) {
	var args []interface{}
	conds := []string{"is_deleted = FALSE"}
	if filter.Search != "" {
		p := arg(&args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.Role != "" {
		conds = append(conds, "role = "+arg(&args, string(filter.Role)))
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(&args, filter.StudentID))
	}
	if filter.EmployeeID != "" {
		conds = append(conds, "employee_id = "+arg(&args, filter.EmployeeID))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(&args, *filter.IsActive))
	}
	if filter.BranchID != "" {
		conds = append(conds, "branch_id = "+arg(&args, filter.BranchID))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM "user"`+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	query := fmt.Sprintf(`SELECT * FROM "user"%s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering users")
	}
	return unrowUsers(rows), total, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, usr.UpdatedAt.UTC())}
	if usr.Name != "" {
		sets = append(sets, "name = "+arg(&args, usr.Name))
	}
	if usr.Username != "" {
		sets = append(sets, "username = "+arg(&args, usr.Username))
	}
	if usr.Email != "" {
		sets = append(sets, "email = "+arg(&args, usr.Email))
	}
	if usr.Role != "" {
		sets = append(sets, "role = "+arg(&args, string(usr.Role)))
	}
	if usr.BranchID != "" {
		sets = append(sets, "branch_id = "+arg(&args, usr.BranchID))
	}
	if usr.StudentID != "" {
		sets = append(sets, "student_id = "+arg(&args, usr.StudentID))
	}
	if usr.EmployeeID != "" {
		sets = append(sets, "employee_id = "+arg(&args, usr.EmployeeID))
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = "+arg(&args, usr.PasswordHash))
	}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}

	query := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = %s AND is_deleted = FALSE RETURNING *`,
		joinSets(sets), arg(&args, usr.ID))
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return row.unrow(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if updated, err := repo.UpdateUser(ctx, usr, nil); err == nil {
			return updated, nil
		} else if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $1 WHERE id = $2 AND is_deleted = FALSE`, t.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET is_deleted = TRUE WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting users")
}
