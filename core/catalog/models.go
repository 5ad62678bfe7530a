package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Course types.
type CourseType string

const (
	CourseIELTS CourseType = "IELTS"
	CoursePTE   CourseType = "PTE"
)

var AllCourseTypes = []CourseType{CourseIELTS, CoursePTE}

func (ct CourseType) Known() bool {
	for _, t := range AllCourseTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Section kinds; every course is split into at most one section per kind.
type SectionName string

const (
	SectionListening SectionName = "listening"
	SectionReading   SectionName = "reading"
	SectionWriting   SectionName = "writing"
	SectionSpeaking  SectionName = "speaking"
)

var AllSectionNames = []SectionName{SectionListening, SectionReading, SectionWriting, SectionSpeaking}

func (sn SectionName) Known() bool {
	for _, n := range AllSectionNames {
		if sn == n {
			return true
		}
	}
	return false
}

type Course struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	CourseType CourseType `json:"course_type"`
	BranchID   string     `json:"branch_id"`
	IsActive   bool       `json:"is_active"`
	IsDeleted  bool       `json:"-"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

type Section struct {
	ID        string      `json:"id"`
	Name      SectionName `json:"name"`
	CourseID  string      `json:"course_id"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SectionID string    `json:"section_id"`
	Order     int       `json:"order"`
	FileRef   string    `json:"file_ref,omitempty"`
	VideoRef  string    `json:"video_ref,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"` // resolved, not stored
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Enrollment links a student to a course within the same branch.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// LessonProgress tracks how far a student got through a lesson.
type LessonProgress struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LessonID    string     `json:"lesson_id"`
	Progress    int        `json:"progress"` // 0..100
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// DeletionImpact previews what a course/section cascade delete will take
// with it; the client surfaces Warning before confirming.
type DeletionImpact struct {
	Sections int    `json:"sections"`
	Lessons  int    `json:"lessons"`
	Warning  string `json:"warning"`
}

type NewCourse struct {
	Title      string     `json:"title" validate:"required"`
	CourseType CourseType `json:"course_type" validate:"required,coursetype"`
	BranchID   string     `json:"branch_id" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Title      string     `json:"title"`
	CourseType CourseType `json:"course_type" validate:"omitempty,coursetype"`
	IsActive   *bool      `json:"is_active"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate, orig Course) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if uc.CourseType == "" {
		uc.CourseType = orig.CourseType
	}
	return validate.Struct(uc)
}

type NewSection struct {
	Name     SectionName `json:"name" validate:"required,sectionname"`
	CourseID string      `json:"course_id" validate:"required"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = SectionName(core.CleanString(string(ns.Name), true /* lower */))
	return validate.Struct(ns)
}

type NewLesson struct {
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content"`
	SectionID string `json:"section_id" validate:"required"`
	Order     int    `json:"order" validate:"min=0"`
	FileRef   string `json:"file_ref"`
	VideoRef  string `json:"video_ref"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Order    *int   `json:"order" validate:"omitempty,min=0"`
	FileRef  string `json:"file_ref"`
	VideoRef string `json:"video_ref"`
	IsActive *bool  `json:"is_active"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate, orig Lesson) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = orig.Title
	}
	return validate.Struct(ul)
}

type UpdateProgress struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Progress int    `json:"progress" validate:"min=0,max=100"`
}

func (up *UpdateProgress) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

type CourseFilter struct {
	Search     string     `query:"search"`
	CourseType CourseType `query:"course_type"`
	BranchID   string     `query:"branch_id"`
	IsActive   *bool      `query:"is_active"`

	core.Params
}

func (cf *CourseFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
	cf.Params.Clean()
}

type LessonFilter struct {
	Search    string `query:"search"`
	SectionID string `query:"section_id"`
	IsActive  *bool  `query:"is_active"`

	core.Params
}

func (lf *LessonFilter) Clean() {
	lf.Search = core.CleanString(lf.Search)
	lf.Params.Clean()
}
