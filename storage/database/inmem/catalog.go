package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) queryCourses() []catalog.Course {
	courses := make([]catalog.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if c.IsDeleted {
			continue
		}
		courses = append(courses, *c)
	}
	sortByID(courses, func(c catalog.Course) string { return c.ID })
	return courses
}

func (repo *catalogRepository) CreateCourse(ctx context.Context, c catalog.Course) (catalog.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = uuid.New().String()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) GetCourseByID(ctx context.Context, id string) (catalog.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok && !c.IsDeleted {
		return *c, nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) FilterCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]catalog.Course, 0)
	for _, c := range repo.queryCourses() {
		if filter.CourseType != "" && c.CourseType != filter.CourseType {
			continue
		}
		if filter.BranchID != "" && c.BranchID != filter.BranchID {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if !matchSearch(filter.Search, c.Title) {
			continue
		}
		matches = append(matches, c)
	}
	courses, total := paginate(matches, filter.Params)
	return courses, total, nil
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, c catalog.Course, isActive *bool) (catalog.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok || orig.IsDeleted {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	if c.Title != "" {
		orig.Title = c.Title
	}
	if c.CourseType != "" {
		orig.CourseType = c.CourseType
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

// DeleteCourse cascades to the course's sections and their lessons, the
// way the FK ON DELETE CASCADE does on the SQL side.
func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return catalog.ErrCourseNotFound
	}
	for sID, s := range repo.db.sections {
		if s.CourseID != id {
			continue
		}
		for lID, l := range repo.db.lessons {
			if l.SectionID == sID {
				delete(repo.db.lessons, lID)
			}
		}
		delete(repo.db.sections, sID)
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *catalogRepository) CountCourseDependents(ctx context.Context, id string) (int, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; !ok || c.IsDeleted {
		return 0, 0, catalog.ErrCourseNotFound
	}
	var sections, lessons int
	for sID, s := range repo.db.sections {
		if s.CourseID != id {
			continue
		}
		sections++
		for _, l := range repo.db.lessons {
			if l.SectionID == sID {
				lessons++
			}
		}
	}
	return sections, lessons, nil
}

func (repo *catalogRepository) CheckSectionUniqueness(ctx context.Context, courseID string, name catalog.SectionName) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.sections {
		if s.CourseID == courseID && s.Name == name {
			return catalog.ErrSectionExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateSection(ctx context.Context, s catalog.Section) (catalog.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = uuid.New().String()
	repo.db.sections[s.ID] = &s
	return s, nil
}

func (repo *catalogRepository) GetSectionByID(ctx context.Context, id string) (catalog.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.sections[id]; ok {
		return *s, nil
	}
	return catalog.Section{}, catalog.ErrSectionNotFound
}

func (repo *catalogRepository) QuerySectionsByCourse(ctx context.Context, courseID string) ([]catalog.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sections := make([]catalog.Section, 0)
	for _, s := range repo.db.sections {
		if s.CourseID == courseID {
			sections = append(sections, *s)
		}
	}
	sortByID(sections, func(s catalog.Section) string { return s.ID })
	return sections, nil
}

func (repo *catalogRepository) UpdateSection(ctx context.Context, s catalog.Section, isActive *bool) (catalog.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.sections[s.ID]
	if !ok {
		return catalog.Section{}, catalog.ErrSectionNotFound
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = s.UpdatedAt
	return *orig, nil
}

// DeleteSection cascades to the section's lessons.
func (repo *catalogRepository) DeleteSection(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[id]; !ok {
		return catalog.ErrSectionNotFound
	}
	for lID, l := range repo.db.lessons {
		if l.SectionID == id {
			delete(repo.db.lessons, lID)
		}
	}
	delete(repo.db.sections, id)
	return nil
}

func (repo *catalogRepository) CountSectionDependents(ctx context.Context, id string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.sections[id]; !ok {
		return 0, catalog.ErrSectionNotFound
	}
	var lessons int
	for _, l := range repo.db.lessons {
		if l.SectionID == id {
			lessons++
		}
	}
	return lessons, nil
}

func (repo *catalogRepository) CreateLesson(ctx context.Context, l catalog.Lesson) (catalog.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l.ID = uuid.New().String()
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *catalogRepository) GetLessonByID(ctx context.Context, id string) (catalog.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return *l, nil
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

func (repo *catalogRepository) FilterLessons(ctx context.Context, filter catalog.LessonFilter) ([]catalog.Lesson, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]catalog.Lesson, 0)
	for _, l := range repo.db.lessons {
		if filter.SectionID != "" && l.SectionID != filter.SectionID {
			continue
		}
		if filter.IsActive != nil && l.IsActive != *filter.IsActive {
			continue
		}
		if !matchSearch(filter.Search, l.Title, l.Content) {
			continue
		}
		matches = append(matches, *l)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Order != matches[j].Order {
			return matches[i].Order < matches[j].Order
		}
		return matches[i].ID < matches[j].ID
	})
	lessons, total := paginate(matches, filter.Params)
	return lessons, total, nil
}

func (repo *catalogRepository) UpdateLesson(ctx context.Context, l catalog.Lesson, order *int, isActive *bool) (catalog.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.lessons[l.ID]
	if !ok {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	if l.Title != "" {
		orig.Title = l.Title
	}
	if l.Content != "" {
		orig.Content = l.Content
	}
	if l.FileRef != "" {
		orig.FileRef = l.FileRef
	}
	if l.VideoRef != "" {
		orig.VideoRef = l.VideoRef
	}
	if order != nil {
		orig.Order = *order
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = l.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.lessons, id)
	}
	return nil
}

func (repo *catalogRepository) CreateEnrollment(ctx context.Context, e catalog.Enrollment) (catalog.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = uuid.New().String()
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *catalogRepository) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *catalogRepository) QueryEnrollmentsByUser(ctx context.Context, userID string) ([]catalog.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]catalog.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.UserID == userID {
			enrollments = append(enrollments, *e)
		}
	}
	sortByID(enrollments, func(e catalog.Enrollment) string { return e.ID })
	return enrollments, nil
}

func (repo *catalogRepository) DeleteEnrollment(ctx context.Context, userID, courseID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, e := range repo.db.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			delete(repo.db.enrollments, id)
			return nil
		}
	}
	return catalog.ErrCourseNotFound
}

func (repo *catalogRepository) UpsertLessonProgress(ctx context.Context, lp catalog.LessonProgress) (catalog.LessonProgress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, p := range repo.db.lessonProgress {
		if p.UserID == lp.UserID && p.LessonID == lp.LessonID {
			lp.ID = id
			repo.db.lessonProgress[id] = &lp
			return lp, nil
		}
	}
	lp.ID = uuid.New().String()
	repo.db.lessonProgress[lp.ID] = &lp
	return lp, nil
}

func (repo *catalogRepository) QueryLessonProgressByUser(ctx context.Context, userID string) ([]catalog.LessonProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	progress := make([]catalog.LessonProgress, 0)
	for _, p := range repo.db.lessonProgress {
		if p.UserID == userID {
			progress = append(progress, *p)
		}
	}
	sortByID(progress, func(p catalog.LessonProgress) string { return p.ID })
	return progress, nil
}
