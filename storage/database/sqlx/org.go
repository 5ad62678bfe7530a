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

	"github.com/darasahq/darasa/core/org"
)

type branchRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	IsActive  bool      `db:"is_active"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r branchRow) unrow() org.Branch {
	return org.Branch{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		IsActive:  r.IsActive,
		IsDeleted: r.IsDeleted,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type branchRepository struct {
	db *sqlx.DB
}

var _ org.Repository = (*branchRepository)(nil) // interface compliance check

func NewBranchRepository(db *sqlx.DB) *branchRepository {
	return &branchRepository{db: db}
}

func (repo *branchRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return org.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *branchRepository) CheckBranchCodeUniqueness(ctx context.Context, code string, excludedBranches ...org.Branch) error {
	var args []interface{}
	query := "SELECT EXISTS (SELECT 1 FROM branch WHERE code = " + arg(&args, code) + " AND is_deleted = FALSE"
	if len(excludedBranches) > 0 {
		ids := make([]string, 0, len(excludedBranches))
		for _, b := range excludedBranches {
			ids = append(ids, b.ID)
		}
		query += " AND NOT (id = ANY(" + arg(&args, pq.StringArray(ids)) + "))"
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking branch code uniqueness")
	}
	if exists {
		return org.ErrCodeExists
	}
	return nil
}

func (repo *branchRepository) CreateBranch(ctx context.Context, b org.Branch) (org.Branch, error) {
	b.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO branch (id, name, code, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.Name, b.Code, b.IsActive, b.IsDeleted, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "branch_code_key") {
			return org.Branch{}, org.ErrCodeExists
		}
		return org.Branch{}, errors.Wrap(err, "inserting branch")
	}
	return b, nil
}

func (repo *branchRepository) GetBranchByID(ctx context.Context, id string) (org.Branch, error) {
	var row branchRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM branch WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return org.Branch{}, repo.trapNoRowsErr(err, "getting branch by id")
	}
	return row.unrow(), nil
}

func (repo *branchRepository) GetBranchByCode(ctx context.Context, code string) (org.Branch, error) {
	var row branchRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM branch WHERE code = $1 AND is_deleted = FALSE`, code)
	if err != nil {
		return org.Branch{}, repo.trapNoRowsErr(err, "getting branch by code")
	}
	return row.unrow(), nil
}

func (repo *branchRepository) FilterBranches(ctx context.Context, filter org.QueryFilter) ([]org.Branch, int, error) {
	var args []interface{}
	conds := []string{"is_deleted = FALSE"}
	if filter.Search != "" {
		p := arg(&args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR code ILIKE %[1]s)", p))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(&args, *filter.IsActive))
	}
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM branch"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting branches")
	}

	query := fmt.Sprintf("SELECT * FROM branch%s ORDER BY name LIMIT %s OFFSET %s",
		where, arg(&args, filter.Limit()), arg(&args, filter.Offset()))
	var rows []branchRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering branches")
	}
	branches := make([]org.Branch, 0, len(rows))
	for _, r := range rows {
		branches = append(branches, r.unrow())
	}
	return branches, total, nil
}

func (repo *branchRepository) UpdateBranch(ctx context.Context, b org.Branch, isActive *bool) (org.Branch, error) {
	var args []interface{}
	sets := []string{"updated_at = " + arg(&args, b.UpdatedAt.UTC())}
	if b.Name != "" {
		sets = append(sets, "name = "+arg(&args, b.Name))
	}
	if b.Code != "" {
		sets = append(sets, "code = "+arg(&args, b.Code))
	}
	if isActive != nil {
		sets = append(sets, "is_active = "+arg(&args, *isActive))
	}

	query := fmt.Sprintf("UPDATE branch SET %s WHERE id = %s AND is_deleted = FALSE RETURNING *",
		joinSets(sets), arg(&args, b.ID))
	var row branchRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if isUniqueViolation(err, "branch_code_key") {
			return org.Branch{}, org.ErrCodeExists
		}
		return org.Branch{}, repo.trapNoRowsErr(err, "updating branch")
	}
	return row.unrow(), nil
}

func (repo *branchRepository) DeleteBranchesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `UPDATE branch SET is_deleted = TRUE WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting branches")
}
