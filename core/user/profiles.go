package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	ErrProfileNotFound = errors.New("profile not found")

	errProfileRoleMismatch = "profile type does not match the user's role"
)

// A User carries at most one profile of the type matching its role; the
// generic UserProfile is available to every role.
type (
	UserProfile struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Phone     string    `json:"phone"`
		Address   string    `json:"address"`
		AvatarRef string    `json:"avatar_ref,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	StudentProfile struct {
		ID            string    `json:"id"`
		UserID        string    `json:"user_id"`
		Grade         string    `json:"grade"`
		GuardianName  string    `json:"guardian_name"`
		GuardianPhone string    `json:"guardian_phone"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	TeacherProfile struct {
		ID            string    `json:"id"`
		UserID        string    `json:"user_id"`
		Subject       string    `json:"subject"`
		Qualification string    `json:"qualification"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	ProfileRepository interface {
		GetUserProfile(ctx context.Context, userID string) (UserProfile, error)
		UpsertUserProfile(ctx context.Context, p UserProfile) (UserProfile, error)
		GetStudentProfile(ctx context.Context, userID string) (StudentProfile, error)
		UpsertStudentProfile(ctx context.Context, p StudentProfile) (StudentProfile, error)
		FilterStudentProfilesByGrade(ctx context.Context, grade string, params core.Params) ([]StudentProfile, int, error)
		GetTeacherProfile(ctx context.Context, userID string) (TeacherProfile, error)
		UpsertTeacherProfile(ctx context.Context, p TeacherProfile) (TeacherProfile, error)
		FilterTeacherProfilesBySubject(ctx context.Context, subject string, params core.Params) ([]TeacherProfile, int, error)
	}

	ProfileService interface {
		UserProfile(ctx context.Context, userID string) (UserProfile, error)
		SaveUserProfile(ctx context.Context, p UserProfile) (UserProfile, error)
		StudentProfile(ctx context.Context, userID string) (StudentProfile, error)
		SaveStudentProfile(ctx context.Context, p StudentProfile) (StudentProfile, error)
		StudentsByGrade(ctx context.Context, grade string, params core.Params) ([]StudentProfile, int, error)
		TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error)
		SaveTeacherProfile(ctx context.Context, p TeacherProfile) (TeacherProfile, error)
		TeachersBySubject(ctx context.Context, subject string, params core.Params) ([]TeacherProfile, int, error)
	}

	profileService struct {
		repo    ProfileRepository
		usrRepo Repository
	}
)

var _ ProfileService = (*profileService)(nil)

func NewProfileService(repo ProfileRepository, usrRepo Repository) ProfileService {
	return &profileService{repo: repo, usrRepo: usrRepo}
}

// checkRole ensures the user exists and carries the role a profile type is
// reserved for.
func (svc *profileService) checkRole(ctx context.Context, userID string, role Role) error {
	usr, err := svc.usrRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if usr.Role != role {
		return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: errProfileRoleMismatch})
	}
	return nil
}

func (svc *profileService) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	return svc.repo.GetUserProfile(ctx, userID)
}

func (svc *profileService) SaveUserProfile(ctx context.Context, p UserProfile) (UserProfile, error) {
	if _, err := svc.usrRepo.GetUserByID(ctx, p.UserID); err != nil {
		return UserProfile{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertUserProfile(ctx, p)
}

func (svc *profileService) StudentProfile(ctx context.Context, userID string) (StudentProfile, error) {
	return svc.repo.GetStudentProfile(ctx, userID)
}

func (svc *profileService) SaveStudentProfile(ctx context.Context, p StudentProfile) (StudentProfile, error) {
	if err := svc.checkRole(ctx, p.UserID, RoleStudent); err != nil {
		return StudentProfile{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertStudentProfile(ctx, p)
}

func (svc *profileService) StudentsByGrade(ctx context.Context, grade string, params core.Params) ([]StudentProfile, int, error) {
	params.Clean()
	return svc.repo.FilterStudentProfilesByGrade(ctx, core.CleanString(grade), params)
}

func (svc *profileService) TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error) {
	return svc.repo.GetTeacherProfile(ctx, userID)
}

func (svc *profileService) SaveTeacherProfile(ctx context.Context, p TeacherProfile) (TeacherProfile, error) {
	if err := svc.checkRole(ctx, p.UserID, RoleTeacher); err != nil {
		return TeacherProfile{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertTeacherProfile(ctx, p)
}

func (svc *profileService) TeachersBySubject(ctx context.Context, subject string, params core.Params) ([]TeacherProfile, int, error) {
	params.Clean()
	return svc.repo.FilterTeacherProfilesBySubject(ctx, core.CleanString(subject), params)
}
