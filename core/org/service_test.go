package org_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/org"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func newTestService(t *testing.T) org.Service {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	return org.NewService(inmemdb.NewBranchRepository(db))
}

func TestService_codeUniqueness(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	branch, err := svc.Create(ctx, org.NewBranch{Name: "Goma Campus", Code: "gma"})
	require.NoError(t, err)
	assert.True(t, branch.IsActive)

	err = svc.CheckCodeUniqueness("gma")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "code", vErr.Fields[0].Field)

	// the branch itself can keep its code on update
	assert.NoError(t, svc.CheckCodeUniqueness("gma", branch))
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	branch, err := svc.Create(ctx, org.NewBranch{Name: "Goma Campus", Code: "gma"})
	require.NoError(t, err)
	keep, err := svc.Create(ctx, org.NewBranch{Name: "Bukavu Campus", Code: "bkv"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, branch.ID))

	_, err = svc.GetByID(ctx, branch.ID)
	assert.Equal(t, org.ErrNotFound, errors.Cause(err))

	branches, total, err := svc.Query(ctx, &org.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, branches, 1)
	assert.Equal(t, keep.ID, branches[0].ID)
}
