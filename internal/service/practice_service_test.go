package service

import (
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/testutil"
	"bizbox_backend/internal/util"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBuildSessionTotals(t *testing.T) {
	f := newCBTFixture(t)
	practice := NewPracticeService(f.repo, nil)

	session, err := practice.BuildSession(context.Background(), f.org.ID, f.test.ID, nil)
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	if session.Name != "2024 MidTerm" {
		t.Errorf("expected name %q, got %q", "2024 MidTerm", session.Name)
	}
	if session.TotalQuestion != 2 {
		t.Errorf("expected 2 questions, got %d", session.TotalQuestion)
	}
	if session.TotalMark != 5 {
		t.Errorf("expected total mark 5, got %d", session.TotalMark)
	}
	if session.TotalDuration != 30 {
		t.Errorf("expected duration 30, got %d", session.TotalDuration)
	}
	if len(session.Subjects) != 1 || len(session.Subjects[0].Questions[0].Answers) != 2 {
		t.Fatalf("unexpected session shape: %+v", session.Subjects)
	}
}

func TestBuildSessionHidesCorrectAnswers(t *testing.T) {
	f := newCBTFixture(t)
	practice := NewPracticeService(f.repo, nil)

	session, err := practice.BuildSession(context.Background(), f.org.ID, f.test.ID, nil)
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "correct") {
		t.Errorf("session leaks correct answers: %s", raw)
	}
}

func TestBuildSessionSubjectSubset(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	english, err := f.catalog.CreateSubject(ctx, CreateSubjectRequest{Name: "English", Duration: 20})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if _, err := f.catalog.SetTestSubjects(ctx, f.org.ID, f.test.ID, SetTestSubjectsRequest{
		SubjectIDs: []uint{f.math.ID, english.ID},
	}); err != nil {
		t.Fatalf("SetTestSubjects: %v", err)
	}

	practice := NewPracticeService(f.repo, nil)
	session, err := practice.BuildSession(ctx, f.org.ID, f.test.ID, []uint{english.ID, 9999})
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	if len(session.Subjects) != 1 || session.Subjects[0].Name != "English" {
		t.Fatalf("expected only English, got %+v", session.Subjects)
	}
	if session.TotalQuestion != 0 || session.TotalMark != 0 || session.TotalDuration != 20 {
		t.Errorf("unexpected totals: %+v", session)
	}
}

func TestBuildSessionUnknownTest(t *testing.T) {
	f := newCBTFixture(t)
	practice := NewPracticeService(f.repo, nil)

	_, err := practice.BuildSession(context.Background(), f.org.ID, 9999, nil)
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAvailableTests(t *testing.T) {
	f := newCBTFixture(t)
	practice := NewPracticeService(f.repo, nil)
	ctx := context.Background()

	tests, err := practice.ListAvailableTests(ctx, repository.TestFilter{OrganizationID: f.org.ID})
	if err != nil {
		t.Fatalf("ListAvailableTests: %v", err)
	}
	if len(tests) != 1 {
		t.Fatalf("expected 1 test, got %d", len(tests))
	}
	if tests[0].Year != 2024 || tests[0].TestType != "MidTerm" || len(tests[0].Subjects) != 1 {
		t.Errorf("unexpected entry: %+v", tests[0])
	}

	other, err := practice.ListAvailableTests(ctx, repository.TestFilter{OrganizationID: f.org.ID + 1})
	if err != nil {
		t.Fatalf("ListAvailableTests: %v", err)
	}
	if other == nil || len(other) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", other)
	}
}

func TestBuildSessionScopedToOrganization(t *testing.T) {
	f := newCBTFixture(t)
	practice := NewPracticeService(f.repo, nil)
	ctx := context.Background()
	rival := testutil.CreateOrganization(t, f.db, "rival")

	if _, err := practice.BuildSession(ctx, rival.ID, f.test.ID, nil); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another organization, got %v", err)
	}
	if _, err := practice.BuildSession(ctx, 0, f.test.ID, nil); err != nil {
		t.Errorf("BuildSession without organization: %v", err)
	}
}

func TestSessionKey(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"order and duplicates", sessionKey(1, 7, []uint{3, 1, 3}), sessionKey(1, 7, []uint{1, 3}), true},
		{"different tests", sessionKey(1, 7, nil), sessionKey(1, 8, nil), false},
		{"different organizations", sessionKey(1, 7, nil), sessionKey(2, 7, nil), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if (tc.a == tc.b) != tc.equal {
				t.Errorf("keys %q and %q: equal = %v, want %v", tc.a, tc.b, tc.a == tc.b, tc.equal)
			}
		})
	}
}
