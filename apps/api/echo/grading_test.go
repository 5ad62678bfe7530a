package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
	"github.com/darasahq/darasa/core/user"
)

func Test_gradingApi_attemptLifecycle(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	teacher := createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b1", true)
	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	section := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionWriting)
	test := seedTest(t, deps.assessSvc, course.ID)
	ts, err := deps.assessSvc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: section.ID, Marks: 10})
	if err != nil {
		t.Fatalf("AddTestSection() failed: %v", err)
	}
	question, err := deps.assessSvc.CreateQuestion(ctx, assessment.NewQuestion{
		TestSectionID: ts.ID,
		Text:          "Describe your hometown.",
		Type:          assessment.QuestionEssay,
		Marks:         10,
		Order:         1,
	})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}

	// a student may not open attempts, not even their own
	body := marchallObj(t, grading.NewAttempt{StudentID: student.ID, TestID: test.ID})
	req, rec := newAuthRequest(http.MethodPost, "/v1/test-attempts", studentToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student startAttempt code = %v; body %s", rec.Code, rec.Body.String())
	}
	if attempts, _, err := deps.gradingSvc.QueryAttempts(ctx, &grading.AttemptFilter{StudentID: student.ID}); err != nil || len(attempts) != 0 {
		t.Fatalf("attempts = %v, %v; want none", attempts, err)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/test-attempts", teacherToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("teacher startAttempt code = %v; body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data grading.TestAttempt `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	attempt := created.Data
	if attempt.CreatedBy != teacher.ID {
		t.Errorf("attempt.CreatedBy = %v; want %v", attempt.CreatedBy, teacher.ID)
	}

	// the student answers their own attempt
	body = marchallObj(t, grading.NewAnswer{QuestionID: question.ID, AnswerText: "My hometown is Goma."})
	req, rec = newAuthRequest(http.MethodPost, "/v1/test-attempts/"+attempt.ID+"/answers", studentToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submitAnswer code = %v; body %s", rec.Code, rec.Body.String())
	}

	// another student cannot see the attempt at all
	other := createUser(t, deps.usrRepo, "Other", "other", "other@darasa.cd", "", user.RoleStudent, "b1", true)
	req, rec = newAuthRequest(http.MethodGet, "/v1/test-attempts/"+attempt.ID, getToken(t, other))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign attempt code = %v; want %v", rec.Code, http.StatusNotFound)
	}

	// completing opens a pending result
	req, rec = newAuthRequest(http.MethodPost, "/v1/test-attempts/"+attempt.ID+"/complete", studentToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("completeAttempt code = %v; body %s", rec.Code, rec.Body.String())
	}
	result, err := deps.gradingSvc.ResultByAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("ResultByAttempt() failed: %v", err)
	}
	if result.Status != grading.StatusPending {
		t.Errorf("result.Status = %v; want %v", result.Status, grading.StatusPending)
	}

	// completing twice conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/test-attempts/"+attempt.ID+"/complete", studentToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second complete code = %v; want %v", rec.Code, http.StatusConflict)
	}

	// the student cannot see the pending result; the teacher can
	req, rec = newAuthRequest(http.MethodGet, "/v1/test-results/"+result.ID, studentToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("pending result code = %v; want %v", rec.Code, http.StatusNotFound)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/test-results/"+result.ID, teacherToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("staff result code = %v; body %s", rec.Code, rec.Body.String())
	}

	// publish, then the student sees it; publishing again conflicts
	body = marchallObj(t, PublishRequest{ObtainedScore: 32})
	req, rec = newAuthRequest(http.MethodPost, "/v1/test-results/"+result.ID+"/publish", teacherToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish code = %v; body %s", rec.Code, rec.Body.String())
	}
	var published struct {
		Data grading.TestResult `json:"data"`
	}
	if err = json.Unmarshal(rec.Body.Bytes(), &published); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if published.Data.ObtainedScore != 32 || !published.Data.IsPublished() {
		t.Errorf("published result = %+v; want score 32, published", published.Data)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/test-results/"+result.ID, studentToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("published result for owner code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/test-results/"+result.ID+"/publish", teacherToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second publish code = %v; want %v", rec.Code, http.StatusConflict)
	}
}

func Test_gradingApi_bandScores(t *testing.T) {
	server, deps := newTestServer(t)

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)
	adminToken := getToken(t, admin)

	for _, nbs := range []grading.NewBandScore{
		{CourseType: catalog.CourseIELTS, MinScore: 0, MaxScore: 29, Band: "5.5"},
		{CourseType: catalog.CourseIELTS, MinScore: 30, MaxScore: 40, Band: "7.0"},
	} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/band-scores", adminToken, marchallObj(t, nbs))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("addBandScore code = %v; body %s", rec.Code, rec.Body.String())
		}
	}

	// students cannot add mappings
	body := marchallObj(t, grading.NewBandScore{CourseType: catalog.CourseIELTS, MinScore: 41, MaxScore: 45, Band: "9.0"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/band-scores", getToken(t, student), body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student addBandScore code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/band-scores/resolve?course_type=IELTS&score=35", adminToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resolved struct {
		Data struct {
			Band string `json:"band"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if resolved.Data.Band != "7.0" {
		t.Errorf("band = %q; want %q", resolved.Data.Band, "7.0")
	}

	// no mapping covers the score
	req, rec = newAuthRequest(http.MethodGet, "/v1/band-scores/resolve?course_type=IELTS&score=99", adminToken)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmapped score code = %v; want %v", rec.Code, http.StatusNotFound)
	}
}
