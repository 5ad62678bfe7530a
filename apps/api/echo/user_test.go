package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasahq/darasa/core/user"
)

func Test_authApi_login(t *testing.T) {
	server, deps := newTestServer(t)

	createUser(t, deps.usrRepo, "Awe", "awe", "awe@darasa.cd", "LePassword", user.RoleStudent, "b1", true)
	createUser(t, deps.usrRepo, "Naughty", "ndog", "ndog@darasa.cd", "LePassword", user.RoleStudent, "b1", false)

	tests := []httpTest{
		{
			name: "ok", body: marchallObj(t, LoginRequest{Username: "awe", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, LoginRequest{Username: "awe@darasa.cd", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: "awe", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "ghost", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "ndog", Password: "LePassword"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			server.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			} else {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}
}

func Test_authApi_self(t *testing.T) {
	server, deps := newTestServer(t)

	usr := createUser(t, deps.usrRepo, "Awe", "awe", "awe@darasa.cd", "", user.RoleStudent, "b1", true)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/self")
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/self", getToken(t, usr))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data user.User `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Data.ID != usr.ID {
			t.Errorf("ID = %v; want %v", resp.Data.ID, usr.ID)
		}
	})
}

func Test_userApi_query(t *testing.T) {
	server, deps := newTestServer(t)

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)
	createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b1", true)

	t.Run("students are not allowed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("paginated envelope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?per_page=2&page=1", getToken(t, admin))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Results []user.User `json:"results"`
			Meta    struct {
				Total       int `json:"total"`
				CurrentPage int `json:"current_page"`
				LastPage    int `json:"last_page"`
				PerPage     int `json:"per_page"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(resp.Results) != 2 {
			t.Errorf("len(results) = %v; want 2", len(resp.Results))
		}
		if resp.Meta.Total != 3 || resp.Meta.LastPage != 2 || resp.Meta.PerPage != 2 || resp.Meta.CurrentPage != 1 {
			t.Errorf("unexpected meta: %+v", resp.Meta)
		}
	})

	t.Run("role filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/by-role?role=teacher", getToken(t, admin))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Results []user.User `json:"results"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(resp.Results) != 1 || resp.Results[0].Role != user.RoleTeacher {
			t.Errorf("unexpected results: %+v", resp.Results)
		}
	})
}

func Test_userApi_create(t *testing.T) {
	server, deps := newTestServer(t)

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	student := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)

	newStudent := user.NewUser{
		Name:            "Newbie",
		Username:        "newbie",
		Email:           "newbie@darasa.cd",
		Role:            user.RoleStudent,
		Password:        "LePassword123",
		PasswordConfirm: "LePassword123",
	}

	t.Run("students are not allowed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, student), marchallObj(t, newStudent))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		// the mutation must not have happened
		if _, err := deps.usrRepo.GetUserByUsername(context.Background(), "newbie"); err != user.ErrNotFound {
			t.Errorf("GetUserByUsername() error = %v; want %v", err, user.ErrNotFound)
		}
	})

	t.Run("admin creates a student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, admin), marchallObj(t, newStudent))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		usr, err := deps.usrRepo.GetUserByUsername(context.Background(), "newbie")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed: %v", err)
		}
		// branch auto-assigned from the acting admin
		if usr.BranchID != admin.BranchID {
			t.Errorf("BranchID = %v; want %v", usr.BranchID, admin.BranchID)
		}
	})

	t.Run("teacher creates a student", func(t *testing.T) {
		teacher := createUser(t, deps.usrRepo, "Teacher", "teacher", "teacher@darasa.cd", "", user.RoleTeacher, "b2", true)

		data := newStudent
		data.Username = "pupil"
		data.Email = "pupil@darasa.cd"
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, teacher), marchallObj(t, data))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		usr, err := deps.usrRepo.GetUserByUsername(context.Background(), "pupil")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed: %v", err)
		}
		// branch auto-assigned from the acting teacher
		if usr.BranchID != teacher.BranchID {
			t.Errorf("BranchID = %v; want %v", usr.BranchID, teacher.BranchID)
		}

		// other teachers are out of a teacher's reach
		data.Username = "peer"
		data.Email = "peer@darasa.cd"
		data.Role = user.RoleTeacher
		req, rec = newAuthRequest(http.MethodPost, "/v1/users", getToken(t, teacher), marchallObj(t, data))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err = deps.usrRepo.GetUserByUsername(context.Background(), "peer"); err != user.ErrNotFound {
			t.Errorf("GetUserByUsername() error = %v; want %v", err, user.ErrNotFound)
		}
	})

	t.Run("admin cannot create a superadmin", func(t *testing.T) {
		data := newStudent
		data.Username = "boss"
		data.Email = "boss@darasa.cd"
		data.Role = user.RoleSuperAdmin
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, admin), marchallObj(t, data))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_activateDeactivate(t *testing.T) {
	server, deps := newTestServer(t)

	admin := createUser(t, deps.usrRepo, "Admin", "admin", "admin@darasa.cd", "", user.RoleAdmin, "b1", true)
	usr := createUser(t, deps.usrRepo, "Hero", "hero", "hero@darasa.cd", "", user.RoleStudent, "b1", true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/"+usr.ID+"/deactivate", getToken(t, admin))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	got, err := deps.usrRepo.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if got.IsActive {
		t.Error("user should be deactivated")
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/"+usr.ID+"/activate", getToken(t, admin))
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	got, err = deps.usrRepo.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if !got.IsActive {
		t.Error("user should be active again")
	}
}
