package service

import (
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDeleteSubjectKeepsTestAndQuestions(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	if err := f.catalog.DeleteSubject(ctx, f.math.ID); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	test, err := f.catalog.GetTest(ctx, f.org.ID, f.test.ID)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if len(test.Subjects) != 0 {
		t.Errorf("expected no subjects, got %d", len(test.Subjects))
	}
	if _, err := f.catalog.GetQuestion(ctx, f.q1.ID); err != nil {
		t.Errorf("question should survive: %v", err)
	}
	if err := f.catalog.DeleteSubject(ctx, f.math.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteAnswerClearsCorrectAnswer(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	if err := f.catalog.DeleteAnswer(ctx, f.four.ID); err != nil {
		t.Fatalf("DeleteAnswer: %v", err)
	}
	q, err := f.catalog.GetQuestion(ctx, f.q1.ID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.CorrectAnswerID != nil {
		t.Errorf("expected correct answer cleared, got %d", *q.CorrectAnswerID)
	}
	if len(q.Answers) != 1 || q.Answers[0].ID != f.five.ID {
		t.Errorf("expected only answer %d left, got %+v", f.five.ID, q.Answers)
	}
}

func TestUpdateQuestionIsPartial(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()
	text := "Two plus two"

	if _, err := f.catalog.UpdateQuestion(ctx, f.q1.ID, UpdateQuestionRequest{Text: &text}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	q, err := f.catalog.GetQuestion(ctx, f.q1.ID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Text != text {
		t.Errorf("expected text %q, got %q", text, q.Text)
	}
	if q.QuestionMark != 2 {
		t.Errorf("expected mark 2 untouched, got %d", q.QuestionMark)
	}
	if q.CorrectAnswerID == nil || *q.CorrectAnswerID != f.four.ID {
		t.Errorf("expected correct answer %d untouched, got %v", f.four.ID, q.CorrectAnswerID)
	}
}

func TestCorrectAnswerMustBelongToQuestion(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	_, err := f.catalog.UpdateQuestion(ctx, f.q1.ID, UpdateQuestionRequest{CorrectAnswerID: uintPtr(f.paris.ID)})
	if !errors.Is(err, util.ErrAnswerNotOnQuestion) {
		t.Errorf("UpdateQuestion: expected ErrAnswerNotOnQuestion, got %v", err)
	}

	_, err = f.catalog.SetQuestionAnswers(ctx, f.q1.ID, SetQuestionAnswersRequest{
		AnswerIDs:       []uint{f.four.ID, f.five.ID},
		CorrectAnswerID: uintPtr(f.london.ID),
	})
	if !errors.Is(err, util.ErrAnswerNotOnQuestion) {
		t.Errorf("SetQuestionAnswers: expected ErrAnswerNotOnQuestion, got %v", err)
	}
}

func TestSetQuestionAnswersDropsStaleCorrectAnswer(t *testing.T) {
	f := newCBTFixture(t)

	q, err := f.catalog.SetQuestionAnswers(context.Background(), f.q1.ID, SetQuestionAnswersRequest{
		AnswerIDs: []uint{f.five.ID, f.paris.ID},
	})
	if err != nil {
		t.Fatalf("SetQuestionAnswers: %v", err)
	}
	if q.CorrectAnswerID != nil {
		t.Errorf("expected correct answer cleared, got %d", *q.CorrectAnswerID)
	}
	if len(q.Answers) != 2 {
		t.Errorf("expected 2 answers, got %d", len(q.Answers))
	}
}

func TestTestsAreScopedToOrganization(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	if _, err := f.catalog.GetTest(ctx, f.org.ID+1, f.test.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound from another organization, got %v", err)
	}
	if err := f.catalog.DeleteTest(ctx, f.org.ID+1, f.test.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting from another organization, got %v", err)
	}
}

func TestCreateTestRejectsMissingSubjects(t *testing.T) {
	f := newCBTFixture(t)

	_, err := f.catalog.CreateTest(context.Background(), f.org.ID, CreateTestRequest{
		YearID:     f.test.YearID,
		TestTypeID: f.test.TestTypeID,
		SubjectIDs: []uint{f.math.ID, 9999},
	})
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportForTest(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	if _, err := f.grading(nil).Submit(ctx, f.user.ID, f.org.ID, SubmitRequest{
		TestID:  f.test.ID,
		Answers: []SubmittedAnswer{{QuestionID: f.q2.ID, SelectedAnswerID: uintPtr(f.paris.ID)}},
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var buf bytes.Buffer
	results := NewResultService(repository.NewTestResultRepository(f.db), f.catalog)
	if err := results.ExportForTest(ctx, f.org.ID, f.test.ID, &buf); err != nil {
		t.Fatalf("ExportForTest: %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("Results")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d rows", len(rows))
	}
	if rows[0][5] != "Math" {
		t.Errorf("expected Math column, got %v", rows[0])
	}
	if rows[1][2] != f.user.Email || rows[1][4] != "3" || rows[1][5] != "3" {
		t.Errorf("unexpected row %v", rows[1])
	}

	if err := results.ExportForTest(ctx, f.org.ID+1, f.test.ID, &bytes.Buffer{}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another organization, got %v", err)
	}
}

func TestDeleteYearRemovesItsTests(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()

	if _, err := f.grading(nil).Submit(ctx, f.user.ID, f.org.ID, SubmitRequest{TestID: f.test.ID}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.catalog.DeleteYear(ctx, f.test.YearID); err != nil {
		t.Fatalf("DeleteYear: %v", err)
	}
	if _, err := f.catalog.GetTest(ctx, f.org.ID, f.test.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected test deleted with its year, got %v", err)
	}
	if _, err := f.catalog.GetSubject(ctx, f.math.ID); err != nil {
		t.Errorf("subject should survive: %v", err)
	}
	// Results are snapshots and outlive the test.
	if n := countResults(t, f); n != 1 {
		t.Errorf("expected result kept, got %d", n)
	}
}
