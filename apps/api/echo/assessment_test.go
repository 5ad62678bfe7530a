package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/user"
)

func seedTest(t *testing.T, svc assessment.Service, courseID string) assessment.Test {
	test, err := svc.CreateTest(context.Background(), assessment.NewTest{
		Title:           "Mock Test 1",
		CourseID:        courseID,
		TestKind:        assessment.TestMock,
		TotalMarks:      40,
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("seedTest() failed: %v", err)
	}
	return test
}

func Test_assessmentApi_duplicateTestSection(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	teacher := createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b1", true)
	token := getToken(t, teacher)

	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	section := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionListening)
	test := seedTest(t, deps.assessSvc, course.ID)

	if _, err := deps.assessSvc.AddTestSection(ctx, assessment.NewTestSection{
		TestID: test.ID, SectionID: section.ID, Marks: 10,
	}); err != nil {
		t.Fatalf("AddTestSection() failed: %v", err)
	}

	body := marchallObj(t, assessment.NewTestSection{TestID: test.ID, SectionID: section.ID, Marks: 10})
	req, rec := newAuthRequest(http.MethodPost, "/v1/test-sections", token, body)
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var fldErrs map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if _, ok := fldErrs["section_id"]; !ok {
		t.Errorf("expected a field error on 'section_id'; got %v", fldErrs)
	}
}

func Test_assessmentApi_optionsOnlyForMCQ(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	teacher := createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b1", true)
	token := getToken(t, teacher)

	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	section := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionWriting)
	test := seedTest(t, deps.assessSvc, course.ID)
	ts, err := deps.assessSvc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: section.ID, Marks: 10})
	if err != nil {
		t.Fatalf("AddTestSection() failed: %v", err)
	}

	essay, err := deps.assessSvc.CreateQuestion(ctx, assessment.NewQuestion{
		TestSectionID: ts.ID,
		Text:          "Describe your hometown.",
		Type:          assessment.QuestionEssay,
		Marks:         10,
		Order:         1,
	})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}

	body := marchallObj(t, assessment.NewQuestionOption{QuestionID: essay.ID, Text: "N/A"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/question-options", token, body)
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var fldErrs map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if _, ok := fldErrs["question_id"]; !ok {
		t.Errorf("expected a field error on 'question_id'; got %v", fldErrs)
	}
}

func Test_assessmentApi_testSections(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)

	course := seedCourse(t, deps.catalogSvc, "IELTS Prep", "b1")
	listening := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionListening)
	reading := seedSection(t, deps.catalogSvc, course.ID, catalog.SectionReading)
	test := seedTest(t, deps.assessSvc, course.ID)
	for _, s := range []catalog.Section{listening, reading} {
		if _, err := deps.assessSvc.AddTestSection(ctx, assessment.NewTestSection{TestID: test.ID, SectionID: s.ID, Marks: 20}); err != nil {
			t.Fatalf("AddTestSection() failed: %v", err)
		}
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/tests/"+test.ID+"/sections", getToken(t, student))
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []assessment.TestSection `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("len(data) = %v; want 2", len(resp.Data))
	}

	// students cannot create tests
	body := marchallObj(t, assessment.NewTest{Title: "Nope", CourseID: course.ID, TestKind: assessment.TestPractice})
	req, rec = newAuthRequest(http.MethodPost, "/v1/tests", getToken(t, student), body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}
}
