package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// query returns all non-deleted users; callers hold the lock.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if u.IsDeleted {
			continue
		}
		users = append(users, *u)
	}
	sortByID(users, func(u user.User) string { return u.ID })
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if isExcluded(usr, excludedUsers, exclUsrsLen) {
			continue
		}
		if usr.Username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok && !usr.IsDeleted {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == uname) || (usr.Email == uname) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.StudentID != "" && usr.StudentID != filter.StudentID {
			continue
		}
		if filter.EmployeeID != "" && usr.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if filter.BranchID != "" && usr.BranchID != filter.BranchID {
			continue
		}
		if !matchSearch(filter.Search, usr.Name, usr.Username, usr.Email) {
			continue
		}
		matches = append(matches, usr)
	}
	users, total := paginate(matches, filter.Params)
	return users, total, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.db.users[usr.ID]
	if !ok || origUsr.IsDeleted {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	if usr.BranchID != "" {
		origUsr.BranchID = usr.BranchID
	}
	if usr.StudentID != "" {
		origUsr.StudentID = usr.StudentID
	}
	if usr.EmployeeID != "" {
		origUsr.EmployeeID = usr.EmployeeID
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.UpdatedAt = usr.UpdatedAt
	return *origUsr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if _, err := repo.GetUserByID(ctx, usr.ID); err == nil {
			return repo.UpdateUser(ctx, usr, nil)
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.users[id]
	if !ok || usr.IsDeleted {
		return user.ErrNotFound
	}
	usr.LastLogin = t
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			usr.IsDeleted = true
		}
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}

// profileRepository implements user.ProfileRepository.
type profileRepository struct {
	db *DB
}

var _ user.ProfileRepository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetUserProfile(ctx context.Context, userID string) (user.UserProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.userProfiles[userID]; ok {
		return *p, nil
	}
	return user.UserProfile{}, user.ErrProfileNotFound
}

func (repo *profileRepository) UpsertUserProfile(ctx context.Context, p user.UserProfile) (user.UserProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.userProfiles[p.UserID] = &p
	return p, nil
}

func (repo *profileRepository) GetStudentProfile(ctx context.Context, userID string) (user.StudentProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.studentProfiles[userID]; ok {
		return *p, nil
	}
	return user.StudentProfile{}, user.ErrProfileNotFound
}

func (repo *profileRepository) UpsertStudentProfile(ctx context.Context, p user.StudentProfile) (user.StudentProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.studentProfiles[p.UserID] = &p
	return p, nil
}

func (repo *profileRepository) FilterStudentProfilesByGrade(ctx context.Context, grade string, params core.Params) ([]user.StudentProfile, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]user.StudentProfile, 0)
	for _, p := range repo.db.studentProfiles {
		if grade == "" || p.Grade == grade {
			matches = append(matches, *p)
		}
	}
	sortByID(matches, func(p user.StudentProfile) string { return p.ID })
	profiles, total := paginate(matches, params)
	return profiles, total, nil
}

func (repo *profileRepository) GetTeacherProfile(ctx context.Context, userID string) (user.TeacherProfile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.teacherProfiles[userID]; ok {
		return *p, nil
	}
	return user.TeacherProfile{}, user.ErrProfileNotFound
}

func (repo *profileRepository) UpsertTeacherProfile(ctx context.Context, p user.TeacherProfile) (user.TeacherProfile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.teacherProfiles[p.UserID] = &p
	return p, nil
}

func (repo *profileRepository) FilterTeacherProfilesBySubject(ctx context.Context, subject string, params core.Params) ([]user.TeacherProfile, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]user.TeacherProfile, 0)
	for _, p := range repo.db.teacherProfiles {
		if subject == "" || p.Subject == subject {
			matches = append(matches, *p)
		}
	}
	sortByID(matches, func(p user.TeacherProfile) string { return p.ID })
	profiles, total := paginate(matches, params)
	return profiles, total, nil
}
