package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func newTestService(t *testing.T) (user.Service, user.Repository) {
	t.Helper()

	conf := &core.Config{
		TestMode:                  true,
		AppName:                   "Darasa",
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	db, err := inmemdb.Open()
	require.NoError(t, err)

	repo := inmemdb.NewUserRepository(db)
	return user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock(conf), conf), repo
}

func seedUser(t *testing.T, repo user.Repository, role user.Role, branchID string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      "Seed " + string(role),
		Username:  "seed_" + string(role),
		Email:     string(role) + "@darasa.cd",
		Role:      role,
		BranchID:  branchID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func TestService_Create_roleGate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	student := seedUser(t, repo, user.RoleStudent, "b1")
	teacher := seedUser(t, repo, user.RoleTeacher, "b1")
	admin := seedUser(t, repo, user.RoleAdmin, "b1")

	tests := []struct {
		name    string
		actor   user.User
		role    user.Role
		wantErr error
	}{
		{"student cannot create", student, user.RoleStudent, user.ErrPermissionDenied},
		{"teacher can create students", teacher, user.RoleStudent, nil},
		{"teacher cannot create teachers", teacher, user.RoleTeacher, user.ErrPermissionDenied},
		{"admin can create teachers", admin, user.RoleTeacher, nil},
		{"admin cannot create superadmins", admin, user.RoleSuperAdmin, user.ErrPermissionDenied},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := user.NewUser{
				Name:            "New User",
				Username:        "newuser" + string(rune('a'+i)),
				Email:           "newuser" + string(rune('a'+i)) + "@darasa.cd",
				Role:            tt.role,
				Password:        "Str0ngPwd!",
				PasswordConfirm: "Str0ngPwd!",
			}
			usr, err := svc.Create(ctx, tt.actor, nu)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				// a denied actor never leaves a partial record behind
				_, err = repo.GetUserByUsername(ctx, nu.Username)
				assert.Equal(t, user.ErrNotFound, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, usr.IsActive)
			assert.Equal(t, tt.role, usr.Role)
		})
	}
}

func TestService_Create_branchScoping(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	superadmin := seedUser(t, repo, user.RoleSuperAdmin, "")
	admin := seedUser(t, repo, user.RoleAdmin, "b1")

	t.Run("admin pinned to own branch", func(t *testing.T) {
		usr, err := svc.Create(ctx, admin, user.NewUser{
			Name:            "Pinned",
			Username:        "pinned",
			Email:           "pinned@darasa.cd",
			Role:            user.RoleStudent,
			BranchID:        "b2", // ignored
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
		})
		require.NoError(t, err)
		assert.Equal(t, "b1", usr.BranchID)
	})

	t.Run("superadmin must choose a branch", func(t *testing.T) {
		_, err := svc.Create(ctx, superadmin, user.NewUser{
			Name:            "Branchless",
			Username:        "branchless",
			Email:           "branchless@darasa.cd",
			Role:            user.RoleStudent,
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "branch_id", vErr.Fields[0].Field)
	})

	t.Run("superadmin creates branch admins", func(t *testing.T) {
		usr, err := svc.Create(ctx, superadmin, user.NewUser{
			Name:            "Branch Admin",
			Username:        "branchadmin",
			Email:           "branchadmin@darasa.cd",
			Role:            user.RoleAdmin,
			BranchID:        "b2",
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
		})
		require.NoError(t, err)
		assert.Equal(t, "b2", usr.BranchID)
	})

	t.Run("superadmins are made at the CLI only", func(t *testing.T) {
		_, err := svc.Create(ctx, superadmin, user.NewUser{
			Name:            "Root Two",
			Username:        "roottwo",
			Email:           "roottwo@darasa.cd",
			Role:            user.RoleSuperAdmin,
			BranchID:        "b1",
			Password:        "Str0ngPwd!",
			PasswordConfirm: "Str0ngPwd!",
		})
		assert.Equal(t, user.ErrPermissionDenied, errors.Cause(err))
	})
}

func TestService_Delete_softDelete(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	usr := seedUser(t, repo, user.RoleStudent, "b1")
	seedUser(t, repo, user.RoleTeacher, "b1")

	require.NoError(t, svc.Delete(ctx, usr.ID))

	_, err := svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	users, total, err := svc.Query(ctx, &user.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.NotEqual(t, usr.ID, users[0].ID)
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	usr := seedUser(t, repo, user.RoleStudent, "b1")
	require.NoError(t, usr.SetPassword("OldPwd123"))
	usr, err := repo.UpdateUser(ctx, user.User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, usr, user.ChangePassword{OldPassword: "wrong", Password: "NewPwd123", PasswordConfirm: "NewPwd123"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "old_password", vErr.Fields[0].Field)

	require.NoError(t, svc.ChangePassword(ctx, usr, user.ChangePassword{OldPassword: "OldPwd123", Password: "NewPwd123", PasswordConfirm: "NewPwd123"}))

	usr, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("NewPwd123"))
}
