package util

import (
	"bizbox_backend/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":      "hello-world",
		"  Already-a-slug  ": "already-a-slug",
		"2024 MidTerm":       "2024-midterm",
		"Crème brûlée":       "cr-me-br-l-e",
		"!!!":                "",
		"trailing ---":       "trailing",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseUintList(t *testing.T) {
	got := ParseUintList(" 3, 1,,x,0,7 ")
	want := []uint{3, 1, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseUintList = %v, want %v", got, want)
	}
	if ParseUintList("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestTokenPair(t *testing.T) {
	orgID := uint(9)
	user := &model.User{Email: "a@b.c", Role: model.Staff, OrganizationID: &orgID}
	user.ID = 4

	pair, err := GenerateTokenPair(user, "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	claims, err := ParseAccessToken(pair.Access, "secret")
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != 4 || claims.Role != model.Staff || claims.OrganizationID != 9 || claims.TokenType != TokenAccess {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ParseAccessToken(pair.Refresh, "secret"); err == nil {
		t.Error("refresh token accepted as access token")
	}
	if _, err := ParseJWT(pair.Access, "other"); err == nil {
		t.Error("token accepted with the wrong secret")
	}

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(expired, "secret"); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseProbeOutput(t *testing.T) {
	out := `{
	  "streams": [
	    {"codec_type": "audio"},
	    {"codec_type": "video", "width": 1280, "height": 720}
	  ],
	  "format": {"duration": "12.5", "size": "", "format_name": "mov,mp4,m4a"}
	}`
	info, err := parseProbeOutput(out, 2048)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	want := &VideoInfo{Duration: 12.5, Width: 1280, Height: 720, Format: "mov", Size: 2048}
	if !reflect.DeepEqual(info, want) {
		t.Errorf("got %+v, want %+v", info, want)
	}

	if _, err := parseProbeOutput("not json", 0); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("test: %w", ErrNotFound), http.StatusNotFound},
		{ErrAnswerNotOnQuestion, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", ErrInvalidInput), http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrInvalidSignature, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrUpstream, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondError(c, tc.err)
		if w.Code != tc.code {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.code, w.Code)
		}
		var body Response
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != tc.code {
			t.Errorf("%v: unexpected envelope %s", tc.err, w.Body.String())
		}
	}
}
