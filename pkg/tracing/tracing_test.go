package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })
	return recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareRecordsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		orgID     uint
		wantError bool
	}{
		{"ok with organization", http.StatusOK, 4, false},
		{"not found without organization", http.StatusNotFound, 0, false},
		{"server error", http.StatusInternalServerError, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)
			r := gin.New()
			r.Use(GinMiddleware())
			r.GET("/items/:id", func(c *gin.Context) {
				SetIdentity(c.Request.Context(), 9, tt.orgID, "learner")
				c.Status(tt.status)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]
			if span.Name() != "GET /items/:id" {
				t.Errorf("span name = %q", span.Name())
			}
			got := attrs(span)
			if got["http.status_code"].AsInt64() != int64(tt.status) {
				t.Errorf("status attribute = %v", got["http.status_code"])
			}
			if got[UserIDKey].AsInt64() != 9 || got[RoleKey].AsString() != "learner" {
				t.Errorf("identity attributes = %v", got)
			}
			org, ok := got[OrganizationIDKey]
			if tt.orgID == 0 && ok {
				t.Errorf("unexpected organization attribute %v", org)
			}
			if tt.orgID > 0 && org.AsInt64() != int64(tt.orgID) {
				t.Errorf("organization attribute = %v", org)
			}
			if isError := span.Status().Code == codes.Error; isError != tt.wantError {
				t.Errorf("error status = %v, want %v", isError, tt.wantError)
			}
		})
	}
}

func TestSetIdentityWithoutSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	SetIdentity(req.Context(), 1, 2, "admin")
}
