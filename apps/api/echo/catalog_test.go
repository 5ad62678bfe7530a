package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/user"
)

func seedCourse(t *testing.T, svc catalog.Service, title string, branchID string) catalog.Course {
	course, err := svc.CreateCourse(context.Background(), catalog.NewCourse{
		Title:      title,
		CourseType: catalog.CourseIELTS,
		BranchID:   branchID,
	})
	if err != nil {
		t.Fatalf("seedCourse() failed: %v", err)
	}
	return course
}

func seedSection(t *testing.T, svc catalog.Service, courseID string, name catalog.SectionName) catalog.Section {
	section, err := svc.CreateSection(context.Background(), catalog.NewSection{Name: name, CourseID: courseID})
	if err != nil {
		t.Fatalf("seedSection() failed: %v", err)
	}
	return section
}

func seedLesson(t *testing.T, svc catalog.Service, sectionID, title string, order int) catalog.Lesson {
	lesson, err := svc.CreateLesson(context.Background(), catalog.NewLesson{
		Title:     title,
		SectionID: sectionID,
		Order:     order,
	})
	if err != nil {
		t.Fatalf("seedLesson() failed: %v", err)
	}
	return lesson
}

func Test_catalogApi_courseCascadeDelete(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	token := getToken(t, admin)

	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	listening := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionListening)
	reading := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionReading)
	seedLesson(t, deps.catalogSvc, listening.ID, "Intro", 1)
	seedLesson(t, deps.catalogSvc, listening.ID, "Dictation", 2)
	seedLesson(t, deps.catalogSvc, reading.ID, "Skimming", 1)

	t.Run("deletion impact", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+course.ID+"/deletion-impact", token)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data catalog.DeletionImpact `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Data.Sections != 2 || resp.Data.Lessons != 3 {
			t.Errorf("impact = %+v; want 2 sections, 3 lessons", resp.Data)
		}
		wantWarning := fmt.Sprintf(
			"Deleting this course will remove all %d sections and %d lessons under it. This cannot be undone.", 2, 3)
		if resp.Data.Warning != wantWarning {
			t.Errorf("Warning = %q; want %q", resp.Data.Warning, wantWarning)
		}
	})

	t.Run("cascade delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/"+course.ID, token)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		if _, err := deps.catalogSvc.GetCourse(ctx, course.ID); err != catalog.ErrCourseNotFound {
			t.Errorf("GetCourse() error = %v; want %v", err, catalog.ErrCourseNotFound)
		}
		if _, err := deps.catalogSvc.GetSection(ctx, listening.ID); err != catalog.ErrSectionNotFound {
			t.Errorf("GetSection() error = %v; want %v", err, catalog.ErrSectionNotFound)
		}
	})
}

func Test_catalogApi_duplicateSection(t *testing.T) {
	server, deps := newTestServer(t)

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	seedSection(t, deps.catalogSvc, course.ID, catalog.SectionListening)

	body := marchallObj(t, catalog.NewSection{Name: catalog.SectionListening, CourseID: course.ID})
	req, rec := newAuthRequest(http.MethodPost, "/v1/sections", getToken(t, admin), body)
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var fldErrs map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if _, ok := fldErrs["name"]; !ok {
		t.Errorf("expected a field error on 'name'; got %v", fldErrs)
	}
}

func Test_catalogApi_assignableCourses(t *testing.T) {
	server, deps := newTestServer(t)

	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)

	mine := seedCourse(t, deps.catalogSvc, "IELTS b1", "b1")
	seedCourse(t, deps.catalogSvc, "IELTS b2", "b2") // other branch

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/assignable", getToken(t, student))
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []catalog.Course `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != mine.ID {
		t.Errorf("unexpected courses: %+v", resp.Data)
	}
}

func Test_catalogApi_enroll(t *testing.T) {
	server, deps := newTestServer(t)

	teacher := createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b1", true)
	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)

	course := seedCourse(t, deps.catalogSvc, "IELTS b1", "b1")
	foreign := seedCourse(t, deps.catalogSvc, "IELTS b2", "b2")
	token := getToken(t, teacher)

	t.Run("ok", func(t *testing.T) {
		body := marchallObj(t, EnrollRequest{UserID: student.ID, CourseID: course.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", token, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("cross-branch course is rejected", func(t *testing.T) {
		body := marchallObj(t, EnrollRequest{UserID: student.ID, CourseID: foreign.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", token, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("students cannot enroll themselves", func(t *testing.T) {
		body := marchallObj(t, EnrollRequest{UserID: student.ID, CourseID: course.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", getToken(t, student), body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}
