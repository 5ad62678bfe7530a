package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrUsernameExists   = errors.New("a user with this username already exists")
	ErrPermissionDenied = errors.New("permission denied")

	errBranchRequired = "a branch must be selected for this role"

	// submitMinGap is the advisory minimum delay between create/update
	// submissions from the same actor.
	submitMinGap = 2 * time.Second
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		// FilterUsers applies AND on available QueryFilter fields and returns
		// one page of matches plus the unpaginated total.
		// Soft-deleted users never come back.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) error
		// DeleteUsersByID soft-deletes; the rows remain for audit.
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(ctx context.Context, actor User, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter) ([]User, int, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, actor User, id string, uu UpdateUser) (User, error)
		SetActive(ctx context.Context, id string, active bool) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) error
		ForceChangePassword(ctx context.Context, actor User, fp ForceChangePassword) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		guard   *core.SubmitGuard // nil disables the debounce (tests)
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		guard:   core.NewSubmitGuard(submitMinGap),
	}
}

func (svc *service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create creates a new user on behalf of actor. The role predicate and the
// branch-scoping rule run before the repository is touched: a denied actor
// never leaves a partial record behind.
func (svc *service) Create(ctx context.Context, actor User, nu NewUser) (User, error) {
	if !CanAddRole(actor.Role, nu.Role) {
		return User{}, ErrPermissionDenied
	}
	if svc.guard != nil {
		if err := svc.guard.Check(actor.ID); err != nil {
			return User{}, err
		}
	}

	// branch auto-assignment: superadmins must choose explicitly (except for
	// a superadmin target, which has no branch); everyone else is pinned to
	// their own branch regardless of the submitted value.
	if actor.IsSuperAdmin() {
		if nu.BranchID == "" && nu.Role != RoleSuperAdmin {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "branch_id", Error: errBranchRequired})
		}
	} else {
		nu.BranchID = actor.BranchID
	}
	if nu.Role == RoleSuperAdmin {
		nu.BranchID = ""
	}

	now := time.Now().UTC()
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		Role:       nu.Role,
		BranchID:   nu.BranchID,
		StudentID:  nu.StudentID,
		EmployeeID: nu.EmployeeID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]User, int, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, *filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) Update(ctx context.Context, actor User, id string, uu UpdateUser) (User, error) {
	if svc.guard != nil {
		if err := svc.guard.Check(actor.ID); err != nil {
			return User{}, err
		}
	}

	usr := User{
		ID:         id,
		Name:       uu.Name,
		Username:   uu.Username,
		Email:      uu.Email,
		Role:       uu.Role,
		BranchID:   uu.BranchID,
		StudentID:  uu.StudentID,
		EmployeeID: uu.EmployeeID,
		UpdatedAt:  time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	return svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &active)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "incorrect password"})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err := svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

func (svc *service) ForceChangePassword(ctx context.Context, actor User, fp ForceChangePassword) error {
	if !actor.IsAdminTier() {
		return ErrPermissionDenied
	}
	usr, err := svc.repo.GetUserByID(ctx, fp.UserID)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(fp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct{ UID, Token string }{
			UID:   EncodeUID(usr),
			Token: makeToken(usr),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	fail := func() error {
		return core.NewValidationError(fmt.Errorf("invalid or expired reset link"))
	}

	id, err := DecodeUID(rp.UID)
	if err != nil {
		return fail()
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return fail()
		}
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return fail()
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, err
	}
	usr.LastLogin = now
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
