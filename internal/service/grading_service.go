package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmitRequest struct {
	TestID  uint              `json:"testId" binding:"required"`
	Answers []SubmittedAnswer `json:"answers" binding:"dive"`
}

type SubmittedAnswer struct {
	QuestionID       uint  `json:"questionId" binding:"required"`
	SelectedAnswerID *uint `json:"selectedAnswerId"`
}

type GradingService struct {
	DB         *gorm.DB
	CBTRepo    *repository.CBTRepository
	ResultRepo *repository.TestResultRepository
	Events     EventPublisher
}

func NewGradingService(db *gorm.DB, cbtRepo *repository.CBTRepository, resultRepo *repository.TestResultRepository, events EventPublisher) *GradingService {
	return &GradingService{DB: db, CBTRepo: cbtRepo, ResultRepo: resultRepo, Events: events}
}

// Submit grades the answers and stores one TestResult. Every answered
// question must belong to the test and appear once; an unknown test,
// question or answer aborts the submission before anything is written.
// Every call creates a new result.
func (s *GradingService) Submit(ctx context.Context, userID, orgID uint, req SubmitRequest) (*model.TestResult, error) {
	var result *model.TestResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cbt := s.CBTRepo.WithTx(tx)

		test, err := cbt.FindTestTree(ctx, req.TestID)
		if err != nil {
			return notFound(err, "test")
		}
		if !visibleTo(test, orgID) {
			return fmt.Errorf("test: %w", util.ErrNotFound)
		}
		questions := indexQuestions(test)

		breakdown := map[string]*model.SubjectBreakdown{}
		seen := make(map[uint]bool, len(req.Answers))
		total := 0
		for _, entry := range req.Answers {
			owned, ok := questions[entry.QuestionID]
			if !ok {
				return fmt.Errorf("question %d: %w", entry.QuestionID, util.ErrNotFound)
			}
			if seen[entry.QuestionID] {
				return fmt.Errorf("%w: question %d answered twice", util.ErrInvalidInput, entry.QuestionID)
			}
			seen[entry.QuestionID] = true

			bucket, ok := breakdown[owned.subject]
			if !ok {
				bucket = &model.SubjectBreakdown{Answers: []uint{}}
				breakdown[owned.subject] = bucket
			}

			if entry.SelectedAnswerID == nil {
				continue
			}
			answer, err := cbt.FindAnswer(ctx, *entry.SelectedAnswerID)
			if err != nil {
				return notFound(err, fmt.Sprintf("answer %d", *entry.SelectedAnswerID))
			}
			bucket.Answers = append(bucket.Answers, answer.ID)
			question := owned.question
			if question.CorrectAnswerID != nil && *question.CorrectAnswerID == answer.ID {
				bucket.Score += question.QuestionMark
				total += question.QuestionMark
			}
		}

		raw, err := json.Marshal(breakdown)
		if err != nil {
			return err
		}

		summary := *test
		summary.Subjects = nil
		result = &model.TestResult{
			UserID:    userID,
			Mark:      total,
			Breakdown: datatypes.JSON(raw),
			Tests:     []model.Test{summary},
		}
		if orgID > 0 {
			result.OrganizationID = &orgID
		}
		return s.ResultRepo.WithTx(tx).Create(ctx, result)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gorm.ErrRecordNotFound) || isNotFound(err) || errors.Is(err, util.ErrInvalidInput) {
			outcome = "rejected"
		}
		monitoring.SubmissionsGraded.WithLabelValues(outcome).Inc()
		return nil, err
	}
	monitoring.SubmissionsGraded.WithLabelValues("graded").Inc()

	if s.Events != nil {
		event := Event{Op: "result.created", Data: result}
		if err := s.Events.Publish(ctx, UserResultsTopic(userID), event); err != nil {
			logger.Log.Warn("Publish result failed", zap.Uint("resultId", result.ID), zap.Error(err))
		}
	}
	return result, nil
}

type testQuestion struct {
	question *model.Question
	subject  string
}

// indexQuestions maps every question of the test to the first of its
// subjects the test lists. test.Subjects is ordered by id.
func indexQuestions(test *model.Test) map[uint]testQuestion {
	out := map[uint]testQuestion{}
	for i := range test.Subjects {
		subject := &test.Subjects[i]
		for j := range subject.Questions {
			q := &subject.Questions[j]
			if _, ok := out[q.ID]; !ok {
				out[q.ID] = testQuestion{question: q, subject: subject.Name}
			}
		}
	}
	return out
}
