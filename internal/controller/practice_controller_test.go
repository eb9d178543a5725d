package controller

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/testutil"
	"bizbox_backend/internal/util"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func practiceRouter(t *testing.T, db *gorm.DB, claims *util.Claims) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cbtRepo := repository.NewCBTRepository(db)
	resultRepo := repository.NewTestResultRepository(db)
	catalog := service.NewCatalogService(cbtRepo, nil)
	ctrl := NewPracticeController(
		service.NewPracticeService(cbtRepo, nil),
		service.NewGradingService(db, cbtRepo, resultRepo, nil),
		service.NewResultService(resultRepo, catalog),
		nil,
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", claims)
		c.Next()
	})
	r.GET("/tests/available", ctrl.AvailableTests)
	r.GET("/results/:id", ctrl.GetResult)
	r.POST("/submit", ctrl.Submit)
	return r
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v (%s)", path, err, w.Body.String())
	}
	return w, body
}

func TestAvailableTestsEmptyCatalog(t *testing.T) {
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "acme")
	user := testutil.CreateUser(t, db, "learner@acme.test", model.Learner, org.ID)

	r := practiceRouter(t, db, &util.Claims{UserID: user.ID, Role: model.Learner, OrganizationID: org.ID})
	w, body := get(t, r, "/tests/available")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if string(body.Data) != "[]" {
		t.Errorf("data = %s, want []", body.Data)
	}
}

func TestGetResultOwnedByAnotherUser(t *testing.T) {
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "acme")
	owner := testutil.CreateUser(t, db, "owner@acme.test", model.Learner, org.ID)
	other := testutil.CreateUser(t, db, "other@acme.test", model.Learner, org.ID)

	result := &model.TestResult{UserID: owner.ID, Mark: 4, Breakdown: []byte(`{}`)}
	if err := db.Create(result).Error; err != nil {
		t.Fatalf("create result: %v", err)
	}
	path := fmt.Sprintf("/results/%d", result.ID)

	tests := []struct {
		name   string
		userID uint
		want   int
	}{
		{"owner", owner.ID, http.StatusOK},
		{"other user", other.ID, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := practiceRouter(t, db, &util.Claims{UserID: tt.userID, Role: model.Learner, OrganizationID: org.ID})
			w, body := get(t, r, path)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if body.Code != tt.want {
				t.Errorf("envelope code = %d, want %d", body.Code, tt.want)
			}
		})
	}
}

func TestGetResultRejectsBadID(t *testing.T) {
	db := testutil.NewDB(t)
	r := practiceRouter(t, db, &util.Claims{UserID: 1, Role: model.Learner})

	w, _ := get(t, r, "/results/abc")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func post(t *testing.T, r http.Handler, path, payload string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v (%s)", path, err, w.Body.String())
	}
	return w, body
}

// seedTest stores a one-subject test whose single question is worth 2 marks.
func seedTest(t *testing.T, db *gorm.DB, orgID uint) (*model.Test, *model.Question, *model.Answer) {
	t.Helper()
	correct := &model.Answer{Text: "4"}
	wrong := &model.Answer{Text: "5"}
	for _, a := range []*model.Answer{correct, wrong} {
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("create answer: %v", err)
		}
	}
	question := &model.Question{Text: "2+2", QuestionMark: 2, CorrectAnswerID: &correct.ID, Answers: []model.Answer{*correct, *wrong}}
	if err := db.Create(question).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	subject := &model.Subject{Name: "Math", Questions: []model.Question{{BaseModel: model.BaseModel{ID: question.ID}}}}
	if err := db.Omit("Questions.*").Create(subject).Error; err != nil {
		t.Fatalf("create subject: %v", err)
	}
	year := &model.Year{Year: 2024}
	testType := &model.TestType{Name: "MidTerm"}
	if err := db.Create(year).Error; err != nil {
		t.Fatalf("create year: %v", err)
	}
	if err := db.Create(testType).Error; err != nil {
		t.Fatalf("create test type: %v", err)
	}
	test := &model.Test{
		OrganizationID: orgID,
		YearID:         year.ID,
		TestTypeID:     testType.ID,
		TotalMark:      2,
		Subjects:       []model.Subject{{BaseModel: model.BaseModel{ID: subject.ID}}},
	}
	if err := db.Omit("Subjects.*").Create(test).Error; err != nil {
		t.Fatalf("create test: %v", err)
	}
	return test, question, correct
}

func TestSubmitAnswers(t *testing.T) {
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "acme")
	rival := testutil.CreateOrganization(t, db, "rival")
	user := testutil.CreateUser(t, db, "learner@acme.test", model.Learner, org.ID)
	outsider := testutil.CreateUser(t, db, "learner@rival.test", model.Learner, rival.ID)
	test, question, correct := seedTest(t, db, org.ID)

	answered := fmt.Sprintf(`{"testId":%d,"answers":[{"questionId":%d,"selectedAnswerId":%d}]}`, test.ID, question.ID, correct.ID)
	tests := []struct {
		name     string
		claims   *util.Claims
		payload  string
		want     int
		wantMark int
	}{
		{"graded", &util.Claims{UserID: user.ID, Role: model.Learner, OrganizationID: org.ID}, answered, http.StatusCreated, 2},
		{"another organization", &util.Claims{UserID: outsider.ID, Role: model.Learner, OrganizationID: rival.ID}, answered, http.StatusNotFound, 0},
		{"unknown question", &util.Claims{UserID: user.ID, Role: model.Learner, OrganizationID: org.ID},
			fmt.Sprintf(`{"testId":%d,"answers":[{"questionId":9999}]}`, test.ID), http.StatusNotFound, 0},
		{"duplicate question", &util.Claims{UserID: user.ID, Role: model.Learner, OrganizationID: org.ID},
			fmt.Sprintf(`{"testId":%d,"answers":[{"questionId":%d},{"questionId":%d}]}`, test.ID, question.ID, question.ID), http.StatusBadRequest, 0},
		{"missing test id", &util.Claims{UserID: user.ID, Role: model.Learner, OrganizationID: org.ID}, `{"answers":[]}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := practiceRouter(t, db, tt.claims)
			w, body := post(t, r, "/submit", tt.payload)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusCreated {
				return
			}
			var view struct {
				Mark  int `json:"mark"`
				Tests []struct {
					ID uint `json:"id"`
				} `json:"tests"`
			}
			if err := json.Unmarshal(body.Data, &view); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if view.Mark != tt.wantMark || len(view.Tests) != 1 || view.Tests[0].ID != test.ID {
				t.Errorf("unexpected result %s", body.Data)
			}
		})
	}
}
