package org

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	ErrNotFound   = errors.New("branch not found")
	ErrCodeExists = errors.New("a branch with this code already exists")
)

type (
	Repository interface {
		CheckBranchCodeUniqueness(ctx context.Context, code string, excludedBranches ...Branch) error
		CreateBranch(ctx context.Context, b Branch) (Branch, error)
		GetBranchByID(ctx context.Context, id string) (Branch, error)
		GetBranchByCode(ctx context.Context, code string) (Branch, error)
		// FilterBranches returns one page of non-deleted branches plus the total.
		FilterBranches(ctx context.Context, filter QueryFilter) ([]Branch, int, error)
		UpdateBranch(ctx context.Context, b Branch, isActive *bool) (Branch, error)
		DeleteBranchesByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckCodeUniqueness(code string, exclBranches ...Branch) error
		Create(ctx context.Context, nb NewBranch) (Branch, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Branch, int, error)
		GetByID(ctx context.Context, id string) (Branch, error)
		Update(ctx context.Context, id string, ub UpdateBranch) (Branch, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckCodeUniqueness(code string, exclBranches ...Branch) error {
	if err := svc.repo.CheckBranchCodeUniqueness(context.Background(), code, exclBranches...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nb NewBranch) (Branch, error) {
	now := time.Now().UTC()
	return svc.repo.CreateBranch(ctx, Branch{
		Name:      nb.Name,
		Code:      nb.Code,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Branch, int, error) {
	filter.Clean()
	return svc.repo.FilterBranches(ctx, *filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Branch, error) {
	return svc.repo.GetBranchByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ub UpdateBranch) (Branch, error) {
	return svc.repo.UpdateBranch(ctx, Branch{
		ID:        id,
		Name:      ub.Name,
		Code:      ub.Code,
		UpdatedAt: time.Now().UTC(),
	}, ub.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteBranchesByID(ctx, ids...)
}
