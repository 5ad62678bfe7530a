package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/org"
)

type branchRepository struct {
	db *DB
}

var _ org.Repository = (*branchRepository)(nil) // interface compliance check

func NewBranchRepository(db *DB) *branchRepository {
	return &branchRepository{db: db}
}

func (repo *branchRepository) query() []org.Branch {
	branches := make([]org.Branch, 0, len(repo.db.branches))
	for _, b := range repo.db.branches {
		if b.IsDeleted {
			continue
		}
		branches = append(branches, *b)
	}
	sortByID(branches, func(b org.Branch) string { return b.ID })
	return branches
}

func (repo *branchRepository) CheckBranchCodeUniqueness(ctx context.Context, code string, excludedBranches ...org.Branch) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedBranches))
	for _, b := range excludedBranches {
		excluded[b.ID] = true
	}
	for _, b := range repo.query() {
		if b.Code == code && !excluded[b.ID] {
			return org.ErrCodeExists
		}
	}
	return nil
}

func (repo *branchRepository) CreateBranch(ctx context.Context, b org.Branch) (org.Branch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b.ID = uuid.New().String()
	repo.db.branches[b.ID] = &b
	return b, nil
}

func (repo *branchRepository) GetBranchByID(ctx context.Context, id string) (org.Branch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.branches[id]; ok && !b.IsDeleted {
		return *b, nil
	}
	return org.Branch{}, org.ErrNotFound
}

func (repo *branchRepository) GetBranchByCode(ctx context.Context, code string) (org.Branch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, b := range repo.query() {
		if b.Code == code {
			return b, nil
		}
	}
	return org.Branch{}, org.ErrNotFound
}

func (repo *branchRepository) FilterBranches(ctx context.Context, filter org.QueryFilter) ([]org.Branch, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]org.Branch, 0)
	for _, b := range repo.query() {
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if !matchSearch(filter.Search, b.Name, b.Code) {
			continue
		}
		matches = append(matches, b)
	}
	branches, total := paginate(matches, filter.Params)
	return branches, total, nil
}

func (repo *branchRepository) UpdateBranch(ctx context.Context, b org.Branch, isActive *bool) (org.Branch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.branches[b.ID]
	if !ok || orig.IsDeleted {
		return org.Branch{}, org.ErrNotFound
	}
	if b.Name != "" {
		orig.Name = b.Name
	}
	if b.Code != "" {
		orig.Code = b.Code
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = b.UpdatedAt
	return *orig, nil
}

func (repo *branchRepository) DeleteBranchesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if b, ok := repo.db.branches[id]; ok {
			b.IsDeleted = true
		}
	}
	return nil
}
