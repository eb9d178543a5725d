package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"context"
	"fmt"
	"sort"
)

// CatalogService manages the CBT catalog. Every write invalidates cached
// practice sessions.
type CatalogService struct {
	Repo  *repository.CBTRepository
	Cache *SessionCache
}

func NewCatalogService(repo *repository.CBTRepository, cache *SessionCache) *CatalogService {
	return &CatalogService{Repo: repo, Cache: cache}
}

func (s *CatalogService) changed(ctx context.Context) {
	s.Cache.Invalidate(ctx)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missing(what string, want, got int) error {
	if want != got {
		return fmt.Errorf("%d of %d %s: %w", want-got, want, what, util.ErrNotFound)
	}
	return nil
}

// Years

type CreateYearRequest struct {
	Year int `json:"year" binding:"required,min=1900,max=3000"`
}

type UpdateYearRequest struct {
	Year *int `json:"year" binding:"omitempty,min=1900,max=3000"`
}

func (s *CatalogService) CreateYear(ctx context.Context, req CreateYearRequest) (*model.Year, error) {
	year := &model.Year{Year: req.Year}
	if err := s.Repo.CreateYear(ctx, year); err != nil {
		return nil, err
	}
	return year, nil
}

func (s *CatalogService) GetYear(ctx context.Context, id uint) (*model.Year, error) {
	year, err := s.Repo.FindYear(ctx, id)
	if err != nil {
		return nil, notFound(err, "year")
	}
	return year, nil
}

func (s *CatalogService) ListYears(ctx context.Context) ([]model.Year, error) {
	return s.Repo.ListYears(ctx)
}

func (s *CatalogService) UpdateYear(ctx context.Context, id uint, req UpdateYearRequest) (*model.Year, error) {
	year, err := s.GetYear(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Year != nil {
		fields["year"] = *req.Year
		year.Year = *req.Year
	}
	if err := s.Repo.Updates(ctx, year, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return year, nil
}

func (s *CatalogService) DeleteYear(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteYear(ctx, id); err != nil {
		return notFound(err, "year")
	}
	s.changed(ctx)
	return nil
}

// Test types

type CreateTestTypeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type UpdateTestTypeRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=100"`
}

func (s *CatalogService) CreateTestType(ctx context.Context, req CreateTestTypeRequest) (*model.TestType, error) {
	tt := &model.TestType{Name: req.Name}
	if err := s.Repo.CreateTestType(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *CatalogService) GetTestType(ctx context.Context, id uint) (*model.TestType, error) {
	tt, err := s.Repo.FindTestType(ctx, id)
	if err != nil {
		return nil, notFound(err, "test type")
	}
	return tt, nil
}

func (s *CatalogService) ListTestTypes(ctx context.Context) ([]model.TestType, error) {
	return s.Repo.ListTestTypes(ctx)
}

func (s *CatalogService) UpdateTestType(ctx context.Context, id uint, req UpdateTestTypeRequest) (*model.TestType, error) {
	tt, err := s.GetTestType(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
		tt.Name = *req.Name
	}
	if err := s.Repo.Updates(ctx, tt, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return tt, nil
}

func (s *CatalogService) DeleteTestType(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteTestType(ctx, id); err != nil {
		return notFound(err, "test type")
	}
	s.changed(ctx)
	return nil
}

// Subjects

type CreateSubjectRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Duration    int    `json:"duration" binding:"min=0"`
	QuestionIDs []uint `json:"questionIds"`
}

type UpdateSubjectRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=150"`
	Duration *int    `json:"duration" binding:"omitempty,min=0"`
}

func (s *CatalogService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*model.Subject, error) {
	ids := uniqueIDs(req.QuestionIDs)
	questions, err := s.Repo.FindQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := missing("questions", len(ids), len(questions)); err != nil {
		return nil, err
	}

	subject := &model.Subject{Name: req.Name, Duration: req.Duration, Questions: questions}
	if err := s.Repo.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) GetSubject(ctx context.Context, id uint) (*model.Subject, error) {
	subject, err := s.Repo.FindSubject(ctx, id)
	if err != nil {
		return nil, notFound(err, "subject")
	}
	return subject, nil
}

func (s *CatalogService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.Repo.ListSubjects(ctx)
}

func (s *CatalogService) UpdateSubject(ctx context.Context, id uint, req UpdateSubjectRequest) (*model.Subject, error) {
	subject, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
		subject.Name = *req.Name
	}
	if req.Duration != nil {
		fields["duration"] = *req.Duration
		subject.Duration = *req.Duration
	}
	if err := s.Repo.Updates(ctx, &model.Subject{BaseModel: model.BaseModel{ID: id}}, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return subject, nil
}

// DeleteSubject removes the subject; its tests and questions survive.
func (s *CatalogService) DeleteSubject(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteSubject(ctx, id); err != nil {
		return notFound(err, "subject")
	}
	s.changed(ctx)
	return nil
}

type SetSubjectQuestionsRequest struct {
	QuestionIDs []uint `json:"questionIds"`
}

func (s *CatalogService) SetSubjectQuestions(ctx context.Context, id uint, req SetSubjectQuestionsRequest) (*model.Subject, error) {
	subject, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.QuestionIDs)
	questions, err := s.Repo.FindQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := missing("questions", len(ids), len(questions)); err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceSubjectQuestions(ctx, subject, questions); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return s.GetSubject(ctx, id)
}

// Answers

type CreateAnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

type UpdateAnswerRequest struct {
	Text *string `json:"text" binding:"omitempty,min=1"`
}

func (s *CatalogService) CreateAnswer(ctx context.Context, req CreateAnswerRequest) (*model.Answer, error) {
	answer := &model.Answer{Text: req.Text}
	if err := s.Repo.CreateAnswer(ctx, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *CatalogService) GetAnswer(ctx context.Context, id uint) (*model.Answer, error) {
	answer, err := s.Repo.FindAnswer(ctx, id)
	if err != nil {
		return nil, notFound(err, "answer")
	}
	return answer, nil
}

func (s *CatalogService) ListAnswers(ctx context.Context) ([]model.Answer, error) {
	return s.Repo.ListAnswers(ctx)
}

func (s *CatalogService) UpdateAnswer(ctx context.Context, id uint, req UpdateAnswerRequest) (*model.Answer, error) {
	answer, err := s.GetAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Text != nil {
		fields["text"] = *req.Text
		answer.Text = *req.Text
	}
	if err := s.Repo.Updates(ctx, answer, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return answer, nil
}

// DeleteAnswer also clears it as the correct answer of any question.
func (s *CatalogService) DeleteAnswer(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteAnswer(ctx, id); err != nil {
		return notFound(err, "answer")
	}
	s.changed(ctx)
	return nil
}

// Questions

type CreateQuestionRequest struct {
	Text                     string `json:"text" binding:"required"`
	QuestionMark             *int   `json:"questionMark" binding:"omitempty,min=0"`
	Required                 bool   `json:"required"`
	CorrectAnswerExplanation string `json:"correctAnswerExplanation"`
	AnswerIDs                []uint `json:"answerIds"`
	CorrectAnswerID          *uint  `json:"correctAnswerId"`
	SubjectIDs               []uint `json:"subjectIds"`
}

type UpdateQuestionRequest struct {
	Text                     *string `json:"text" binding:"omitempty,min=1"`
	QuestionMark             *int    `json:"questionMark" binding:"omitempty,min=0"`
	Required                 *bool   `json:"required"`
	CorrectAnswerExplanation *string `json:"correctAnswerExplanation"`
	CorrectAnswerID          *uint   `json:"correctAnswerId"`
}

func (s *CatalogService) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*model.Question, error) {
	answerIDs := uniqueIDs(req.AnswerIDs)
	answers, err := s.Repo.FindAnswersByIDs(ctx, answerIDs)
	if err != nil {
		return nil, err
	}
	if err := missing("answers", len(answerIDs), len(answers)); err != nil {
		return nil, err
	}
	subjectIDs := uniqueIDs(req.SubjectIDs)
	subjects, err := s.Repo.FindSubjectsByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	if err := missing("subjects", len(subjectIDs), len(subjects)); err != nil {
		return nil, err
	}

	mark := 1
	if req.QuestionMark != nil {
		mark = *req.QuestionMark
	}
	question := &model.Question{
		Text:                     req.Text,
		QuestionMark:             mark,
		Required:                 req.Required,
		CorrectAnswerExplanation: req.CorrectAnswerExplanation,
		Answers:                  answers,
		Subjects:                 subjects,
	}
	if req.CorrectAnswerID != nil {
		if !question.HasAnswer(*req.CorrectAnswerID) {
			return nil, util.ErrAnswerNotOnQuestion
		}
		question.CorrectAnswerID = req.CorrectAnswerID
	}

	if err := s.Repo.CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return question, nil
}

func (s *CatalogService) GetQuestion(ctx context.Context, id uint) (*model.Question, error) {
	question, err := s.Repo.FindQuestion(ctx, id)
	if err != nil {
		return nil, notFound(err, "question")
	}
	return question, nil
}

func (s *CatalogService) ListQuestions(ctx context.Context, subjectID uint) ([]model.Question, error) {
	return s.Repo.ListQuestions(ctx, subjectID)
}

func (s *CatalogService) UpdateQuestion(ctx context.Context, id uint, req UpdateQuestionRequest) (*model.Question, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Text != nil {
		fields["text"] = *req.Text
		question.Text = *req.Text
	}
	if req.QuestionMark != nil {
		fields["question_mark"] = *req.QuestionMark
		question.QuestionMark = *req.QuestionMark
	}
	if req.Required != nil {
		fields["required"] = *req.Required
		question.Required = *req.Required
	}
	if req.CorrectAnswerExplanation != nil {
		fields["correct_answer_explanation"] = *req.CorrectAnswerExplanation
		question.CorrectAnswerExplanation = *req.CorrectAnswerExplanation
	}
	if req.CorrectAnswerID != nil {
		if !question.HasAnswer(*req.CorrectAnswerID) {
			return nil, util.ErrAnswerNotOnQuestion
		}
		fields["correct_answer_id"] = *req.CorrectAnswerID
		question.CorrectAnswerID = req.CorrectAnswerID
	}
	if err := s.Repo.Updates(ctx, &model.Question{BaseModel: model.BaseModel{ID: id}}, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return question, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteQuestion(ctx, id); err != nil {
		return notFound(err, "question")
	}
	s.changed(ctx)
	return nil
}

type SetQuestionAnswersRequest struct {
	AnswerIDs       []uint `json:"answerIds"`
	CorrectAnswerID *uint  `json:"correctAnswerId"`
}

// SetQuestionAnswers replaces the answer set. A correct answer outside the
// new set is rejected; when omitted, the previous one is kept only if it is
// still among the answers.
func (s *CatalogService) SetQuestionAnswers(ctx context.Context, id uint, req SetQuestionAnswersRequest) (*model.Question, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.AnswerIDs)
	answers, err := s.Repo.FindAnswersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := missing("answers", len(ids), len(answers)); err != nil {
		return nil, err
	}

	candidate := &model.Question{Answers: answers}
	correct := req.CorrectAnswerID
	if correct == nil {
		correct = question.CorrectAnswerID
		if correct != nil && !candidate.HasAnswer(*correct) {
			correct = nil
		}
	} else if !candidate.HasAnswer(*correct) {
		return nil, util.ErrAnswerNotOnQuestion
	}

	if err := s.Repo.ReplaceQuestionAnswers(ctx, question, answers, correct); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return s.GetQuestion(ctx, id)
}

// Tests

type CreateTestRequest struct {
	YearID     uint   `json:"yearId" binding:"required"`
	TestTypeID uint   `json:"testTypeId" binding:"required"`
	TimeLimit  int    `json:"timeLimit" binding:"min=0"`
	TotalMark  int    `json:"totalMark" binding:"min=0"`
	SubjectIDs []uint `json:"subjectIds"`
}

type UpdateTestRequest struct {
	YearID     *uint `json:"yearId"`
	TestTypeID *uint `json:"testTypeId"`
	TimeLimit  *int  `json:"timeLimit" binding:"omitempty,min=0"`
	TotalMark  *int  `json:"totalMark" binding:"omitempty,min=0"`
}

func (s *CatalogService) CreateTest(ctx context.Context, orgID uint, req CreateTestRequest) (*model.Test, error) {
	if _, err := s.GetYear(ctx, req.YearID); err != nil {
		return nil, err
	}
	if _, err := s.GetTestType(ctx, req.TestTypeID); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.SubjectIDs)
	subjects, err := s.Repo.FindSubjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := missing("subjects", len(ids), len(subjects)); err != nil {
		return nil, err
	}

	test := &model.Test{
		OrganizationID: orgID,
		YearID:         req.YearID,
		TestTypeID:     req.TestTypeID,
		TimeLimit:      req.TimeLimit,
		TotalMark:      req.TotalMark,
		Subjects:       subjects,
	}
	if err := s.Repo.CreateTest(ctx, test); err != nil {
		return nil, err
	}
	return s.Repo.FindTest(ctx, test.ID)
}

// GetTest returns the test if it belongs to orgID.
func (s *CatalogService) GetTest(ctx context.Context, orgID, id uint) (*model.Test, error) {
	test, err := s.Repo.FindTest(ctx, id)
	if err != nil {
		return nil, notFound(err, "test")
	}
	if test.OrganizationID != orgID {
		return nil, fmt.Errorf("test: %w", util.ErrNotFound)
	}
	return test, nil
}

func (s *CatalogService) ListTests(ctx context.Context, filter repository.TestFilter) ([]model.Test, error) {
	return s.Repo.ListTests(ctx, filter)
}

func (s *CatalogService) UpdateTest(ctx context.Context, orgID, id uint, req UpdateTestRequest) (*model.Test, error) {
	test, err := s.GetTest(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.YearID != nil {
		if _, err := s.GetYear(ctx, *req.YearID); err != nil {
			return nil, err
		}
		fields["year_id"] = *req.YearID
	}
	if req.TestTypeID != nil {
		if _, err := s.GetTestType(ctx, *req.TestTypeID); err != nil {
			return nil, err
		}
		fields["test_type_id"] = *req.TestTypeID
	}
	if req.TimeLimit != nil {
		fields["time_limit"] = *req.TimeLimit
	}
	if req.TotalMark != nil {
		fields["total_mark"] = *req.TotalMark
	}
	if err := s.Repo.Updates(ctx, &model.Test{BaseModel: model.BaseModel{ID: test.ID}}, fields); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return s.Repo.FindTest(ctx, id)
}

func (s *CatalogService) DeleteTest(ctx context.Context, orgID, id uint) error {
	if _, err := s.GetTest(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteTest(ctx, id); err != nil {
		return notFound(err, "test")
	}
	s.changed(ctx)
	return nil
}

type SetTestSubjectsRequest struct {
	SubjectIDs []uint `json:"subjectIds"`
}

func (s *CatalogService) SetTestSubjects(ctx context.Context, orgID, id uint, req SetTestSubjectsRequest) (*model.Test, error) {
	test, err := s.GetTest(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.SubjectIDs)
	subjects, err := s.Repo.FindSubjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := missing("subjects", len(ids), len(subjects)); err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceTestSubjects(ctx, test, subjects); err != nil {
		return nil, err
	}
	s.changed(ctx)
	return s.Repo.FindTest(ctx, id)
}
