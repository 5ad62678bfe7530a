package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
	"github.com/darasahq/darasa/core/org"
	"github.com/darasahq/darasa/core/user"
)

// DB is the in-memory store backing the test repositories. One RWMutex
// guards all tables; contention is irrelevant at test scale.
type DB struct {
	mutex sync.RWMutex

	users           map[string]*user.User
	userProfiles    map[string]*user.UserProfile    // by user ID
	studentProfiles map[string]*user.StudentProfile // by user ID
	teacherProfiles map[string]*user.TeacherProfile // by user ID

	branches map[string]*org.Branch

	courses        map[string]*catalog.Course
	sections       map[string]*catalog.Section
	lessons        map[string]*catalog.Lesson
	enrollments    map[string]*catalog.Enrollment
	lessonProgress map[string]*catalog.LessonProgress

	tests        map[string]*assessment.Test
	testSections map[string]*assessment.TestSection
	questions    map[string]*assessment.Question
	options      map[string]*assessment.QuestionOption

	attempts       map[string]*grading.TestAttempt
	answers        map[string]*grading.StudentAnswer
	results        map[string]*grading.TestResult
	sectionResults map[string]*grading.SectionResult
	evaluations    map[string]*grading.ManualEvaluation
	bandScores     map[string]*grading.BandScoreMapping
}

func Open() (*DB, error) {
	return &DB{
		users:           make(map[string]*user.User),
		userProfiles:    make(map[string]*user.UserProfile),
		studentProfiles: make(map[string]*user.StudentProfile),
		teacherProfiles: make(map[string]*user.TeacherProfile),
		branches:        make(map[string]*org.Branch),
		courses:         make(map[string]*catalog.Course),
		sections:        make(map[string]*catalog.Section),
		lessons:         make(map[string]*catalog.Lesson),
		enrollments:     make(map[string]*catalog.Enrollment),
		lessonProgress:  make(map[string]*catalog.LessonProgress),
		tests:           make(map[string]*assessment.Test),
		testSections:    make(map[string]*assessment.TestSection),
		questions:       make(map[string]*assessment.Question),
		options:         make(map[string]*assessment.QuestionOption),
		attempts:        make(map[string]*grading.TestAttempt),
		answers:         make(map[string]*grading.StudentAnswer),
		results:         make(map[string]*grading.TestResult),
		sectionResults:  make(map[string]*grading.SectionResult),
		evaluations:     make(map[string]*grading.ManualEvaluation),
		bandScores:      make(map[string]*grading.BandScoreMapping),
	}, nil
}
