package middleware

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "middleware-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	ok := func(c *gin.Context) { util.Success(c, nil) }
	r.GET("/member", AuthMiddleware(cfg), ok)
	r.GET("/staff", AuthMiddleware(cfg), RoleMiddleware(model.Staff), OrganizationMiddleware(), ok)
	r.GET("/maybe", TryAuthMiddleware(cfg), func(c *gin.Context) {
		if util.GetUserFromContext(c) == nil {
			util.Success(c, "anonymous")
			return
		}
		util.Success(c, "member")
	})
	return r
}

func tokens(t *testing.T, role model.UserRole, orgID uint) *util.TokenPair {
	t.Helper()
	user := &model.User{Email: "u@test.io", Role: role}
	user.ID = 1
	if orgID > 0 {
		user.OrganizationID = &orgID
	}
	pair, err := util.GenerateTokenPair(user, testSecret, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	return pair
}

func get(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	learner := tokens(t, model.Learner, 0)

	if code := get(r, "/member", ""); code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", code)
	}
	if code := get(r, "/member", learner.Refresh); code != http.StatusUnauthorized {
		t.Errorf("refresh token: expected 401, got %d", code)
	}
	if code := get(r, "/member", learner.Access); code != http.StatusOK {
		t.Errorf("access token: expected 200, got %d", code)
	}
	if code := get(r, "/member?token="+learner.Access, ""); code != http.StatusOK {
		t.Errorf("query token: expected 200, got %d", code)
	}
}

func TestRoleAndOrganization(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name  string
		role  model.UserRole
		orgID uint
		code  int
	}{
		{name: "learner", role: model.Learner, orgID: 1, code: http.StatusForbidden},
		{name: "staff without organization", role: model.Staff, code: http.StatusBadRequest},
		{name: "staff", role: model.Staff, orgID: 1, code: http.StatusOK},
		{name: "admin", role: model.Admin, orgID: 1, code: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := get(r, "/staff", tokens(t, tc.role, tc.orgID).Access); code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, code)
			}
		})
	}
}

func TestTryAuthMiddleware(t *testing.T) {
	r := newRouter()
	if code := get(r, "/maybe", "garbage"); code != http.StatusOK {
		t.Errorf("expected anonymous access, got %d", code)
	}
}
