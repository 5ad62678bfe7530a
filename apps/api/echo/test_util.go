package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assessment"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/grading"
	"github.com/darasahq/darasa/core/org"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	logsvc "github.com/darasahq/darasa/services/logger"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// testDeps exposes the repos and services behind a test server so tests
// can seed data directly.
type testDeps struct {
	conf        *core.Config
	db          *inmemdb.DB
	usrRepo     user.Repository
	usrSvc      user.Service
	profileSvc  user.ProfileService
	orgSvc      org.Service
	catalogSvc  catalog.Service
	assessSvc   assessment.Service
	gradingSvc  grading.Service
	catalogRepo catalog.Repository
	gradingRepo grading.Repository
}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		AppName:   "Darasa",
		SecretKey: "secret",
		Env:       "test",
		Build:     "test",

		FrontendBaseURL:           "http://localhost:3000",
		APIBaseURL:                "http://localhost:8000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,

		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func newTestServer(t *testing.T) (Server, *testDeps) {
	conf := newTestConfig()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("newTestServer() failed: %v", err)
	}

	usrRepo := inmemdb.NewUserRepository(db)
	catalogRepo := inmemdb.NewCatalogRepository(db)
	gradingRepo := inmemdb.NewGradingRepository(db)

	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	assessSvc := assessment.NewService(inmemdb.NewAssessmentRepository(db))

	deps := &testDeps{
		conf:        conf,
		db:          db,
		usrRepo:     usrRepo,
		usrSvc:      usrSvc,
		profileSvc:  user.NewProfileService(inmemdb.NewProfileRepository(db), usrRepo),
		orgSvc:      org.NewService(inmemdb.NewBranchRepository(db)),
		catalogSvc:  catalog.NewService(catalogRepo, conf),
		assessSvc:   assessSvc,
		gradingSvc:  grading.NewServiceMock(gradingRepo, assessSvc, usrRepo),
		catalogRepo: catalogRepo,
		gradingRepo: gradingRepo,
	}

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	assessment.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        deps.usrSvc,
		ProfileSvc:     deps.profileSvc,
		OrgSvc:         deps.orgSvc,
		CatalogSvc:     deps.catalogSvc,
		AssessmentSvc:  deps.assessSvc,
		GradingSvc:     deps.gradingSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return server, deps
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role user.Role,
	branchID string,
	isActive bool,
) user.User {
	tstamp := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		BranchID:  branchID,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
