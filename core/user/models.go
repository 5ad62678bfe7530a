package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/darasahq/darasa/core"
)

// Roles, ordered by privilege.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
)

// fallbackAssignableRole is the role an unrecognized acting role may still
// create. Legacy behaviour carried over from the previous admin client:
// an unknown or missing role degenerates to a student-only grant rather
// than no grant at all.
const fallbackAssignableRole = RoleStudent

var (
	AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent}

	rolePriorities = map[Role]int{
		RoleSuperAdmin: 40,
		RoleAdmin:      30,
		RoleTeacher:    20,
		RoleStudent:    10,
	}

	RoleChoices = []RoleChoice{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

type RoleChoice struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func (r Role) Priority() int { return rolePriorities[r] }

func (r Role) Known() bool {
	_, ok := rolePriorities[r]
	return ok
}

// CanAddRole reports whether a user with the acting role may create a user
// with the target role:
//   - superadmin may create any non-superadmin;
//   - admin may create teachers and students;
//   - teacher may create students only;
//   - anything else (student, unknown, absent) retains the legacy
//     student-only grant (fallbackAssignableRole).
func CanAddRole(acting, target Role) bool {
	switch acting {
	case RoleSuperAdmin:
		return target != RoleSuperAdmin && target.Known()
	case RoleAdmin:
		return target == RoleTeacher || target == RoleStudent
	case RoleTeacher:
		return target == RoleStudent
	default:
		return target == fallbackAssignableRole
	}
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	BranchID     string    `json:"branch_id,omitempty"` // empty for superadmin
	StudentID    string    `json:"student_id,omitempty"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsDeleted    bool      `json:"-"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }
func (u *User) IsTeacher() bool    { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool    { return u.Role == RoleStudent }

// IsAdminTier reports whether the user may access admin surfaces.
func (u *User) IsAdminTier() bool {
	return u.Role == RoleSuperAdmin || u.Role == RoleAdmin
}

// IsStaff reports whether the user may act on behalf of students
// (creating attempts, marking results).
func (u *User) IsStaff() bool {
	return u.IsAdminTier() || u.Role == RoleTeacher
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            Role   `json:"role" validate:"required,role"`
	BranchID        string `json:"branch_id"`
	StudentID       string `json:"student_id"`
	EmployeeID      string `json:"employee_id"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.StudentID = core.CleanString(nu.StudentID)
	nu.EmployeeID = core.CleanString(nu.EmployeeID)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            Role   `json:"role" validate:"omitempty,role"`
	BranchID        string `json:"branch_id"`
	StudentID       string `json:"student_id"`
	EmployeeID      string `json:"employee_id"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate, origUsr User, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

// ResetUserPassword confirms a forgot-password flow: the emailed token and
// uid plus the replacement password.
type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// ChangePassword is the self-service password change; the current password
// must be supplied.
type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

// ForceChangePassword is the admin-side password override for another user.
type ForceChangePassword struct {
	UserID          string `json:"user_id" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (fp *ForceChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(fp) }

// QueryFilter applies AND on its fields; Search does a case-insensitive
// match on Name, Username or Email. Soft-deleted users are always excluded.
type QueryFilter struct {
	Search     string `query:"search"`
	Role       Role   `query:"role"`
	StudentID  string `query:"student_id"`
	EmployeeID string `query:"employee_id"`
	IsActive   *bool  `query:"is_active"`
	BranchID   string `query:"branch_id"`

	core.Params
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Params.Clean()
}
