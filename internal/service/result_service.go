package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

type ResultService struct {
	Repo    *repository.TestResultRepository
	Catalog *CatalogService
}

func NewResultService(repo *repository.TestResultRepository, catalog *CatalogService) *ResultService {
	return &ResultService{Repo: repo, Catalog: catalog}
}

// ResultView is a TestResult with its breakdown decoded.
type ResultView struct {
	ID          uint                              `json:"id"`
	Mark        int                               `json:"mark"`
	SubmittedAt string                            `json:"submittedAt"`
	Tests       []ResultTest                      `json:"tests"`
	Breakdown   map[string]model.SubjectBreakdown `json:"breakdown"`
}

type ResultTest struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	TotalMark int    `json:"totalMark"`
}

func toResultView(r *model.TestResult) (*ResultView, error) {
	breakdown, err := r.DecodeBreakdown()
	if err != nil {
		return nil, fmt.Errorf("decode breakdown of result %d: %w", r.ID, err)
	}
	view := &ResultView{
		ID:          r.ID,
		Mark:        r.Mark,
		SubmittedAt: r.CreatedAt.Format(util.TimeFormat),
		Tests:       make([]ResultTest, 0, len(r.Tests)),
		Breakdown:   breakdown,
	}
	for i := range r.Tests {
		t := &r.Tests[i]
		view.Tests = append(view.Tests, ResultTest{ID: t.ID, Name: t.DisplayName(), TotalMark: t.TotalMark})
	}
	return view, nil
}

// ListForUser returns the user's results, newest first.
func (s *ResultService) ListForUser(ctx context.Context, userID uint) ([]*ResultView, error) {
	results, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*ResultView, 0, len(results))
	for i := range results {
		v, err := toResultView(&results[i])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetForUser never returns another user's result; those read as not found.
func (s *ResultService) GetForUser(ctx context.Context, userID, resultID uint) (*ResultView, error) {
	result, err := s.Repo.FindForUser(ctx, userID, resultID)
	if err != nil {
		return nil, notFound(err, "result")
	}
	return toResultView(result)
}

// ExportForTest writes every result of the organization's test as an xlsx
// sheet with one score column per subject.
func (s *ResultService) ExportForTest(ctx context.Context, orgID, testID uint, w io.Writer) error {
	test, err := s.Catalog.GetTest(ctx, orgID, testID)
	if err != nil {
		return err
	}
	results, err := s.Repo.ListByTest(ctx, testID)
	if err != nil {
		return err
	}

	decoded := make([]map[string]model.SubjectBreakdown, len(results))
	subjectSet := map[string]struct{}{}
	for i := range results {
		b, err := results[i].DecodeBreakdown()
		if err != nil {
			return err
		}
		decoded[i] = b
		for name := range b {
			subjectSet[name] = struct{}{}
		}
	}
	subjects := make([]string, 0, len(subjectSet))
	for name := range subjectSet {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := []interface{}{"Result ID", "Name", "Email", "Submitted At", "Mark"}
	for _, name := range subjects {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cellName(len(header)+2, 1), test.DisplayName()); err != nil {
		return err
	}

	for i := range results {
		r := &results[i]
		row := []interface{}{r.ID, "", "", r.CreatedAt.Format(util.TimeFormat), r.Mark}
		if r.User != nil {
			row[1] = r.User.Name
			row[2] = r.User.Email
		}
		for _, name := range subjects {
			row = append(row, decoded[i][name].Score)
		}
		if err := f.SetSheetRow(sheet, cellName(1, i+2), &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
