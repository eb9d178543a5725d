package service

import (
	"bizbox_backend/internal/util"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseQuestionRows(t *testing.T) {
	rows := [][]string{
		{"Question", "Mark", "Required", "Explanation", "Correct", "A", "B"},
		{"2+2", "2", "yes", "basic sum", "1", "4", "5"},
		{"", "", "", "", "", "", ""},
		{"No answers", "", "", "", "", ""},
		{"Bad mark", "x", "", "", "", "a"},
		{"Out of range", "1", "", "", "3", "a", "b"},
		{"", "1", "", "", "", "a"},
	}

	result := &ImportResult{}
	questions := parseQuestionRows(rows, result)

	if result.Processed != 5 {
		t.Errorf("expected 5 processed, got %d", result.Processed)
	}
	if result.Skipped != 3 {
		t.Errorf("expected 3 skipped, got %d: %v", result.Skipped, result.Errors)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	q := questions[0]
	if q.Row != 2 || q.Mark != 2 || !q.Required || q.Correct != 0 || len(q.Answers) != 2 {
		t.Errorf("unexpected first question %+v", q)
	}
	if questions[1].Mark != 1 || questions[1].Correct != -1 {
		t.Errorf("expected defaults on second question, got %+v", questions[1])
	}
	if !strings.HasPrefix(result.Errors[0], "Row 5:") {
		t.Errorf("expected row number in error, got %q", result.Errors[0])
	}
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestImportQuestions(t *testing.T) {
	f := newCBTFixture(t)
	ctx := context.Background()
	importer := NewQuestionImportService(f.db, f.repo, nil)

	book := workbook(t, [][]interface{}{
		{"Question", "Mark", "Required", "Explanation", "Correct", "A", "B", "C"},
		{"3*3", 4, "", "", 2, "6", "9", "12"},
		{"Broken", "", "", "", 5, "a"},
	})
	result, err := importer.Import(ctx, f.math.ID, book)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Created != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 created and 1 skipped, got %+v", result)
	}

	questions, err := f.catalog.ListQuestions(ctx, f.math.ID)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions in Math, got %d", len(questions))
	}
	imported := questions[2]
	if imported.QuestionMark != 4 || len(imported.Answers) != 3 {
		t.Fatalf("unexpected imported question %+v", imported)
	}
	if imported.CorrectAnswerID == nil || *imported.CorrectAnswerID != imported.Answers[1].ID {
		t.Errorf("expected answer %q to be correct", "9")
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	f := newCBTFixture(t)
	importer := NewQuestionImportService(f.db, f.repo, nil)
	ctx := context.Background()

	if _, err := importer.Import(ctx, f.math.ID, strings.NewReader("not a workbook")); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	book := workbook(t, [][]interface{}{{"Question"}})
	if _, err := importer.Import(ctx, 9999, book); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
