package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrSectionExists      = errors.New("this course already has a section of this kind")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")
	ErrCourseUnassignable = errors.New("course does not belong to the student's branch")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// FilterCourses returns one page of non-deleted courses plus the total.
		FilterCourses(ctx context.Context, filter CourseFilter) ([]Course, int, error)
		UpdateCourse(ctx context.Context, c Course, isActive *bool) (Course, error)
		// DeleteCourse removes the course and, transitively, its sections and
		// lessons in a single call; the schema owns the cascade.
		DeleteCourse(ctx context.Context, id string) error
		CountCourseDependents(ctx context.Context, id string) (sections, lessons int, err error)

		CheckSectionUniqueness(ctx context.Context, courseID string, name SectionName) error
		CreateSection(ctx context.Context, s Section) (Section, error)
		GetSectionByID(ctx context.Context, id string) (Section, error)
		QuerySectionsByCourse(ctx context.Context, courseID string) ([]Section, error)
		UpdateSection(ctx context.Context, s Section, isActive *bool) (Section, error)
		// DeleteSection removes the section and its lessons in a single call.
		DeleteSection(ctx context.Context, id string) error
		CountSectionDependents(ctx context.Context, id string) (lessons int, err error)

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		FilterLessons(ctx context.Context, filter LessonFilter) ([]Lesson, int, error)
		UpdateLesson(ctx context.Context, l Lesson, order *int, isActive *bool) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...string) error

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error)
		QueryEnrollmentsByUser(ctx context.Context, userID string) ([]Enrollment, error)
		DeleteEnrollment(ctx context.Context, userID, courseID string) error

		UpsertLessonProgress(ctx context.Context, lp LessonProgress) (LessonProgress, error)
		QueryLessonProgressByUser(ctx context.Context, userID string) ([]LessonProgress, error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context, filter *CourseFilter) ([]Course, int, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		CourseDeletionImpact(ctx context.Context, id string) (DeletionImpact, error)
		DeleteCourse(ctx context.Context, id string) error
		// AssignableCourses is the set of courses a student in the given
		// branch may be enrolled into; empty when no branch resolves.
		AssignableCourses(ctx context.Context, branchID string) ([]Course, error)

		CreateSection(ctx context.Context, ns NewSection) (Section, error)
		GetSection(ctx context.Context, id string) (Section, error)
		CourseSections(ctx context.Context, courseID string) ([]Section, error)
		SectionDeletionImpact(ctx context.Context, id string) (DeletionImpact, error)
		DeleteSection(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error)
		QueryLessons(ctx context.Context, filter *LessonFilter) ([]Lesson, int, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error)
		DeleteLessons(ctx context.Context, ids ...string) error

		Enroll(ctx context.Context, userID, courseID, branchID string) (Enrollment, error)
		Enrollments(ctx context.Context, userID string) ([]Enrollment, error)
		Unenroll(ctx context.Context, userID, courseID string) error

		SaveProgress(ctx context.Context, userID string, up UpdateProgress) (LessonProgress, error)
		ProgressByUser(ctx context.Context, userID string) ([]LessonProgress, error)
	}

	service struct {
		repo Repository
		conf *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{repo: repo, conf: conf}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:      nc.Title,
		CourseType: nc.CourseType,
		BranchID:   nc.BranchID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *service) QueryCourses(ctx context.Context, filter *CourseFilter) ([]Course, int, error) {
	filter.Clean()
	return svc.repo.FilterCourses(ctx, *filter)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	return svc.repo.UpdateCourse(ctx, Course{
		ID:         id,
		Title:      uc.Title,
		CourseType: uc.CourseType,
		UpdatedAt:  time.Now().UTC(),
	}, uc.IsActive)
}

func (svc *service) CourseDeletionImpact(ctx context.Context, id string) (DeletionImpact, error) {
	sections, lessons, err := svc.repo.CountCourseDependents(ctx, id)
	if err != nil {
		return DeletionImpact{}, err
	}
	return DeletionImpact{
		Sections: sections,
		Lessons:  lessons,
		Warning: fmt.Sprintf(
			"Deleting this course will remove all %d sections and %d lessons under it. This cannot be undone.",
			sections, lessons,
		),
	}, nil
}

func (svc *service) DeleteCourse(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) AssignableCourses(ctx context.Context, branchID string) ([]Course, error) {
	if branchID == "" {
		return []Course{}, nil
	}
	active := true
	filter := CourseFilter{BranchID: branchID, IsActive: &active}
	filter.Clean()
	filter.PerPage = core.MaxPerPage
	courses, _, err := svc.repo.FilterCourses(ctx, filter)
	return courses, err
}

func (svc *service) CreateSection(ctx context.Context, ns NewSection) (Section, error) {
	if _, err := svc.repo.GetCourseByID(ctx, ns.CourseID); err != nil {
		return Section{}, err
	}
	// the client checks against its loaded list; this is the authoritative
	// check (the DB unique index backs it up)
	if err := svc.repo.CheckSectionUniqueness(ctx, ns.CourseID, ns.Name); err != nil {
		if errors.Cause(err) == ErrSectionExists {
			return Section{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Section{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateSection(ctx, Section{
		Name:      ns.Name,
		CourseID:  ns.CourseID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetSection(ctx context.Context, id string) (Section, error) {
	return svc.repo.GetSectionByID(ctx, id)
}

func (svc *service) CourseSections(ctx context.Context, courseID string) ([]Section, error) {
	return svc.repo.QuerySectionsByCourse(ctx, courseID)
}

func (svc *service) SectionDeletionImpact(ctx context.Context, id string) (DeletionImpact, error) {
	lessons, err := svc.repo.CountSectionDependents(ctx, id)
	if err != nil {
		return DeletionImpact{}, err
	}
	return DeletionImpact{
		Lessons: lessons,
		Warning: fmt.Sprintf(
			"Deleting this section will remove all %d lessons under it. This cannot be undone.",
			lessons,
		),
	}, nil
}

func (svc *service) DeleteSection(ctx context.Context, id string) error {
	return svc.repo.DeleteSection(ctx, id)
}

func (svc *service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetSectionByID(ctx, nl.SectionID); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	lsn, err := svc.repo.CreateLesson(ctx, Lesson{
		Title:     nl.Title,
		Content:   nl.Content,
		SectionID: nl.SectionID,
		Order:     nl.Order,
		FileRef:   nl.FileRef,
		VideoRef:  nl.VideoRef,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Lesson{}, err
	}
	return svc.resolveLesson(lsn), nil
}

// resolveLesson fills the derived absolute video URL.
func (svc *service) resolveLesson(lsn Lesson) Lesson {
	ref := lsn.VideoRef
	if ref == "" {
		ref = lsn.FileRef
	}
	lsn.VideoURL = ResolveAssetURL(svc.conf.APIBaseURL, ref)
	return lsn
}

func (svc *service) QueryLessons(ctx context.Context, filter *LessonFilter) ([]Lesson, int, error) {
	filter.Clean()
	lessons, total, err := svc.repo.FilterLessons(ctx, *filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range lessons {
		lessons[i] = svc.resolveLesson(lessons[i])
	}
	return lessons, total, nil
}

func (svc *service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	return svc.resolveLesson(lsn), nil
}

func (svc *service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.UpdateLesson(ctx, Lesson{
		ID:        id,
		Title:     ul.Title,
		Content:   ul.Content,
		FileRef:   ul.FileRef,
		VideoRef:  ul.VideoRef,
		UpdatedAt: time.Now().UTC(),
	}, ul.Order, ul.IsActive)
	if err != nil {
		return Lesson{}, err
	}
	return svc.resolveLesson(lsn), nil
}

func (svc *service) DeleteLessons(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLessonsByID(ctx, ids...)
}

// Enroll links a student to a course, enforcing branch scoping: the course
// must belong to the student's effective branch.
func (svc *service) Enroll(ctx context.Context, userID, courseID, branchID string) (Enrollment, error) {
	course, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if branchID == "" || course.BranchID != branchID {
		return Enrollment{}, ErrCourseUnassignable
	}
	exists, err := svc.repo.EnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled, core.FieldError{Field: "course_id", Error: ErrAlreadyEnrolled.Error()})
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Enrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByUser(ctx, userID)
}

func (svc *service) Unenroll(ctx context.Context, userID, courseID string) error {
	return svc.repo.DeleteEnrollment(ctx, userID, courseID)
}

func (svc *service) SaveProgress(ctx context.Context, userID string, up UpdateProgress) (LessonProgress, error) {
	if _, err := svc.repo.GetLessonByID(ctx, up.LessonID); err != nil {
		return LessonProgress{}, err
	}
	now := time.Now().UTC()
	lp := LessonProgress{
		UserID:    userID,
		LessonID:  up.LessonID,
		Progress:  up.Progress,
		UpdatedAt: now,
	}
	if up.Progress >= 100 {
		lp.CompletedAt = &now
	}
	return svc.repo.UpsertLessonProgress(ctx, lp)
}

func (svc *service) ProgressByUser(ctx context.Context, userID string) ([]LessonProgress, error) {
	return svc.repo.QueryLessonProgressByUser(ctx, userID)
}
