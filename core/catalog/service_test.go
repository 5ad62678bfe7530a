package catalog_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func newTestService(t *testing.T) catalog.Service {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)
	return catalog.NewService(inmemdb.NewCatalogRepository(db), &core.Config{TestMode: true})
}

func seedCourse(t *testing.T, svc catalog.Service, title, branchID string) catalog.Course {
	t.Helper()

	course, err := svc.CreateCourse(context.Background(), catalog.NewCourse{
		Title:      title,
		CourseType: catalog.CourseIELTS,
		BranchID:   branchID,
	})
	require.NoError(t, err)
	return course
}

func seedSection(t *testing.T, svc catalog.Service, courseID string, name catalog.SectionName) catalog.Section {
	t.Helper()

	section, err := svc.CreateSection(context.Background(), catalog.NewSection{Name: name, CourseID: courseID})
	require.NoError(t, err)
	return section
}

func seedLesson(t *testing.T, svc catalog.Service, sectionID, title string, order int) catalog.Lesson {
	t.Helper()

	lesson, err := svc.CreateLesson(context.Background(), catalog.NewLesson{
		Title:     title,
		SectionID: sectionID,
		Order:     order,
	})
	require.NoError(t, err)
	return lesson
}

func TestService_sectionUniquePerCourse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course := seedCourse(t, svc, "IELTS Prep", "b1")
	other := seedCourse(t, svc, "PTE Prep", "b1")
	seedSection(t, svc, course.ID, catalog.SectionListening)

	_, err := svc.CreateSection(ctx, catalog.NewSection{Name: catalog.SectionListening, CourseID: course.ID})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "name", vErr.Fields[0].Field)

	// same name under a different course is fine
	_, err = svc.CreateSection(ctx, catalog.NewSection{Name: catalog.SectionListening, CourseID: other.ID})
	assert.NoError(t, err)
}

func TestService_courseCascadeDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course := seedCourse(t, svc, "IELTS Prep", "b1")
	listening := seedSection(t, svc, course.ID, catalog.SectionListening)
	reading := seedSection(t, svc, course.ID, catalog.SectionReading)
	lesson := seedLesson(t, svc, listening.ID, "Intro", 1)
	seedLesson(t, svc, listening.ID, "Part 1", 2)
	seedLesson(t, svc, reading.ID, "Skimming", 1)

	impact, err := svc.CourseDeletionImpact(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, impact.Sections)
	assert.Equal(t, 3, impact.Lessons)
	assert.NotEmpty(t, impact.Warning)

	require.NoError(t, svc.DeleteCourse(ctx, course.ID))

	_, err = svc.GetCourse(ctx, course.ID)
	assert.Equal(t, catalog.ErrCourseNotFound, errors.Cause(err))
	_, err = svc.GetSection(ctx, listening.ID)
	assert.Equal(t, catalog.ErrSectionNotFound, errors.Cause(err))
	_, err = svc.GetLesson(ctx, lesson.ID)
	assert.Equal(t, catalog.ErrLessonNotFound, errors.Cause(err))
}

func TestService_sectionCascadeDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course := seedCourse(t, svc, "IELTS Prep", "b1")
	section := seedSection(t, svc, course.ID, catalog.SectionWriting)
	lesson := seedLesson(t, svc, section.ID, "Task 1", 1)

	impact, err := svc.SectionDeletionImpact(ctx, section.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, impact.Lessons)

	require.NoError(t, svc.DeleteSection(ctx, section.ID))

	_, err = svc.GetLesson(ctx, lesson.ID)
	assert.Equal(t, catalog.ErrLessonNotFound, errors.Cause(err))

	// the parent course survives
	_, err = svc.GetCourse(ctx, course.ID)
	assert.NoError(t, err)
}

func TestService_enroll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course := seedCourse(t, svc, "IELTS Prep", "b1")

	// cross-branch enrollment is refused
	_, err := svc.Enroll(ctx, "student-1", course.ID, "b2")
	assert.Equal(t, catalog.ErrCourseUnassignable, errors.Cause(err))

	enr, err := svc.Enroll(ctx, "student-1", course.ID, "b1")
	require.NoError(t, err)
	assert.Equal(t, course.ID, enr.CourseID)

	// enrolling twice is a field error, not a duplicate row
	_, err = svc.Enroll(ctx, "student-1", course.ID, "b1")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "course_id", vErr.Fields[0].Field)

	enrollments, err := svc.Enrollments(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)

	require.NoError(t, svc.Unenroll(ctx, "student-1", course.ID))
	enrollments, err = svc.Enrollments(ctx, "student-1")
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func TestService_lessonProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	course := seedCourse(t, svc, "IELTS Prep", "b1")
	section := seedSection(t, svc, course.ID, catalog.SectionListening)
	lesson := seedLesson(t, svc, section.ID, "Intro", 1)

	lp, err := svc.SaveProgress(ctx, "student-1", catalog.UpdateProgress{LessonID: lesson.ID, Progress: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, lp.Progress)
	assert.Nil(t, lp.CompletedAt)

	lp, err = svc.SaveProgress(ctx, "student-1", catalog.UpdateProgress{LessonID: lesson.ID, Progress: 100})
	require.NoError(t, err)
	require.NotNil(t, lp.CompletedAt)

	all, err := svc.ProgressByUser(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, all, 1) // upsert, not append
	assert.Equal(t, 100, all[0].Progress)
}
