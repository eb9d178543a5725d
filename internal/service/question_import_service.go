package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Spreadsheet layout, one question per row after the header.
const (
	colText = iota
	colMark
	colRequired
	colExplanation
	colCorrect
	colFirstAnswer
)

type ImportResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

type importedQuestion struct {
	Row         int
	Text        string
	Mark        int
	Required    bool
	Explanation string
	Answers     []string
	Correct     int // Index into Answers, -1 for none.
}

type QuestionImportService struct {
	DB    *gorm.DB
	Repo  *repository.CBTRepository
	Cache *SessionCache
}

func NewQuestionImportService(db *gorm.DB, repo *repository.CBTRepository, cache *SessionCache) *QuestionImportService {
	return &QuestionImportService{DB: db, Repo: repo, Cache: cache}
}

// Import reads the first sheet of an xlsx workbook into subjectID. Bad rows
// are reported and skipped; good rows are written one transaction each.
func (s *QuestionImportService) Import(ctx context.Context, subjectID uint, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", util.ErrInvalidInput, err)
	}
	defer f.Close()
	return s.importWorkbook(ctx, subjectID, f)
}

func (s *QuestionImportService) ImportFile(ctx context.Context, subjectID uint, path string) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return s.importWorkbook(ctx, subjectID, f)
}

func (s *QuestionImportService) importWorkbook(ctx context.Context, subjectID uint, f *excelize.File) (*ImportResult, error) {
	if _, err := s.Repo.FindSubject(ctx, subjectID); err != nil {
		return nil, notFound(err, "subject")
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", util.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result := &ImportResult{Errors: []string{}}
	questions := parseQuestionRows(rows, result)
	for _, q := range questions {
		if err := s.createQuestion(ctx, subjectID, q); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", q.Row, err))
			continue
		}
		result.Created++
	}
	if result.Created > 0 {
		s.Cache.Invalidate(ctx)
	}
	return result, nil
}

// parseQuestionRows validates rows after the header. Invalid rows are
// counted as skipped in result.
func parseQuestionRows(rows [][]string, result *ImportResult) []importedQuestion {
	var out []importedQuestion
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if blankRow(row) {
			continue
		}
		result.Processed++

		q, err := parseQuestionRow(row, i+1)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		out = append(out, q)
	}
	return out
}

func parseQuestionRow(row []string, rowNum int) (importedQuestion, error) {
	cell := func(idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	q := importedQuestion{
		Row:         rowNum,
		Text:        cell(colText),
		Mark:        1,
		Explanation: cell(colExplanation),
		Correct:     -1,
	}
	if q.Text == "" {
		return q, errors.New("question text is empty")
	}

	if m := cell(colMark); m != "" {
		mark, err := strconv.Atoi(m)
		if err != nil || mark < 0 {
			return q, fmt.Errorf("invalid mark %q", m)
		}
		q.Mark = mark
	}

	switch strings.ToLower(cell(colRequired)) {
	case "1", "yes", "y", "true":
		q.Required = true
	}

	for idx := colFirstAnswer; idx < len(row); idx++ {
		if text := cell(idx); text != "" {
			q.Answers = append(q.Answers, text)
		}
	}

	if c := cell(colCorrect); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 || n > len(q.Answers) {
			return q, fmt.Errorf("correct answer %q is not between 1 and %d", c, len(q.Answers))
		}
		q.Correct = n - 1
	}
	return q, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *QuestionImportService) createQuestion(ctx context.Context, subjectID uint, q importedQuestion) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		answers := make([]model.Answer, len(q.Answers))
		for i, text := range q.Answers {
			answers[i] = model.Answer{Text: text}
			if err := repo.CreateAnswer(ctx, &answers[i]); err != nil {
				return err
			}
		}

		question := &model.Question{
			Text:                     q.Text,
			QuestionMark:             q.Mark,
			Required:                 q.Required,
			CorrectAnswerExplanation: q.Explanation,
			Answers:                  answers,
		}
		if q.Correct >= 0 {
			question.CorrectAnswerID = &answers[q.Correct].ID
		}
		if err := repo.CreateQuestion(ctx, question); err != nil {
			return err
		}
		return repo.AppendSubjectQuestion(ctx, subjectID, question)
	})
}
