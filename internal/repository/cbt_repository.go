package repository

import (
	"bizbox_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// CBTRepository persists the practice-exam catalog: years, subjects, test
// types, questions, answers and tests.
type CBTRepository struct {
	DB *gorm.DB
}

func NewCBTRepository(db *gorm.DB) *CBTRepository {
	return &CBTRepository{DB: db}
}

// WithTx returns a repository bound to tx.
func (r *CBTRepository) WithTx(tx *gorm.DB) *CBTRepository {
	return &CBTRepository{DB: tx}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Years

func (r *CBTRepository) CreateYear(ctx context.Context, year *model.Year) error {
	return r.DB.WithContext(ctx).Create(year).Error
}

func (r *CBTRepository) FindYear(ctx context.Context, id uint) (*model.Year, error) {
	var year model.Year
	err := r.DB.WithContext(ctx).First(&year, id).Error
	return &year, err
}

func (r *CBTRepository) ListYears(ctx context.Context) ([]model.Year, error) {
	var years []model.Year
	err := r.DB.WithContext(ctx).Order("year desc").Find(&years).Error
	return years, err
}

// DeleteYear removes the year together with every test of that year.
func (r *CBTRepository) DeleteYear(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var testIDs []uint
		if err := tx.Model(&model.Test{}).Where("year_id = ?", id).Pluck("id", &testIDs).Error; err != nil {
			return err
		}
		if err := deleteTests(tx, testIDs); err != nil {
			return err
		}
		return deleted(tx.Delete(&model.Year{}, id))
	})
}

// Test types

func (r *CBTRepository) CreateTestType(ctx context.Context, tt *model.TestType) error {
	return r.DB.WithContext(ctx).Create(tt).Error
}

func (r *CBTRepository) FindTestType(ctx context.Context, id uint) (*model.TestType, error) {
	var tt model.TestType
	err := r.DB.WithContext(ctx).First(&tt, id).Error
	return &tt, err
}

func (r *CBTRepository) ListTestTypes(ctx context.Context) ([]model.TestType, error) {
	var types []model.TestType
	err := byID(r.DB.WithContext(ctx)).Find(&types).Error
	return types, err
}

// DeleteTestType removes the test type together with every test of that type.
func (r *CBTRepository) DeleteTestType(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var testIDs []uint
		if err := tx.Model(&model.Test{}).Where("test_type_id = ?", id).Pluck("id", &testIDs).Error; err != nil {
			return err
		}
		if err := deleteTests(tx, testIDs); err != nil {
			return err
		}
		return deleted(tx.Delete(&model.TestType{}, id))
	})
}

// Subjects

func (r *CBTRepository) CreateSubject(ctx context.Context, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Create(subject).Error
}

func (r *CBTRepository) FindSubject(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.WithContext(ctx).
		Preload("Questions", byID).
		Preload("Questions.Answers", byID).
		First(&subject, id).Error
	return &subject, err
}

func (r *CBTRepository) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	err := byID(r.DB.WithContext(ctx)).Find(&subjects).Error
	return subjects, err
}

func (r *CBTRepository) FindSubjectsByIDs(ctx context.Context, ids []uint) ([]model.Subject, error) {
	var subjects []model.Subject
	if len(ids) == 0 {
		return subjects, nil
	}
	err := byID(r.DB.WithContext(ctx)).Where("id IN ?", ids).Find(&subjects).Error
	return subjects, err
}

// DeleteSubject unlinks the subject from its tests and questions; neither is deleted.
func (r *CBTRepository) DeleteSubject(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cbt_test_subjects WHERE subject_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM cbt_subject_questions WHERE subject_id = ?", id).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&model.Subject{}, id))
	})
}

func (r *CBTRepository) ReplaceSubjectQuestions(ctx context.Context, subject *model.Subject, questions []model.Question) error {
	return r.DB.WithContext(ctx).Model(subject).Association("Questions").Replace(questions)
}

func (r *CBTRepository) AppendSubjectQuestion(ctx context.Context, subjectID uint, question *model.Question) error {
	subject := model.Subject{BaseModel: model.BaseModel{ID: subjectID}}
	return r.DB.WithContext(ctx).Model(&subject).Association("Questions").Append(question)
}

// Answers

func (r *CBTRepository) CreateAnswer(ctx context.Context, answer *model.Answer) error {
	return r.DB.WithContext(ctx).Create(answer).Error
}

func (r *CBTRepository) FindAnswer(ctx context.Context, id uint) (*model.Answer, error) {
	var answer model.Answer
	err := r.DB.WithContext(ctx).First(&answer, id).Error
	return &answer, err
}

func (r *CBTRepository) ListAnswers(ctx context.Context) ([]model.Answer, error) {
	var answers []model.Answer
	err := byID(r.DB.WithContext(ctx)).Find(&answers).Error
	return answers, err
}

func (r *CBTRepository) FindAnswersByIDs(ctx context.Context, ids []uint) ([]model.Answer, error) {
	var answers []model.Answer
	if len(ids) == 0 {
		return answers, nil
	}
	err := byID(r.DB.WithContext(ctx)).Where("id IN ?", ids).Find(&answers).Error
	return answers, err
}

// DeleteAnswer unlinks the answer and clears it as any question's correct answer.
func (r *CBTRepository) DeleteAnswer(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cbt_question_answers WHERE answer_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Question{}).
			Where("correct_answer_id = ?", id).
			Update("correct_answer_id", nil).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&model.Answer{}, id))
	})
}

// Questions

func (r *CBTRepository) CreateQuestion(ctx context.Context, question *model.Question) error {
	return r.DB.WithContext(ctx).Create(question).Error
}

// FindQuestion loads the question with its answers and subjects, both ordered by id.
func (r *CBTRepository) FindQuestion(ctx context.Context, id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", byID).
		Preload("Subjects", byID).
		First(&question, id).Error
	return &question, err
}

func (r *CBTRepository) ListQuestions(ctx context.Context, subjectID uint) ([]model.Question, error) {
	var questions []model.Question
	query := r.DB.WithContext(ctx).Preload("Answers", byID)
	if subjectID > 0 {
		query = query.Where("id IN (?)",
			r.DB.Table("cbt_subject_questions").Select("question_id").Where("subject_id = ?", subjectID))
	}
	err := byID(query).Find(&questions).Error
	return questions, err
}

func (r *CBTRepository) FindQuestionsByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := byID(r.DB.WithContext(ctx)).Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *CBTRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cbt_subject_questions WHERE question_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM cbt_question_answers WHERE question_id = ?", id).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&model.Question{}, id))
	})
}

// ReplaceQuestionAnswers swaps the answer set and correct answer in one transaction.
func (r *CBTRepository) ReplaceQuestionAnswers(ctx context.Context, question *model.Question, answers []model.Answer, correctID *uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(question).Association("Answers").Replace(answers); err != nil {
			return err
		}
		question.CorrectAnswerID = correctID
		return tx.Model(question).Update("correct_answer_id", correctID).Error
	})
}

// Tests

func (r *CBTRepository) CreateTest(ctx context.Context, test *model.Test) error {
	return r.DB.WithContext(ctx).Create(test).Error
}

// FindTest loads the test header with its year, type and subjects.
func (r *CBTRepository) FindTest(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).
		Preload("Year").
		Preload("TestType").
		Preload("Subjects", byID).
		First(&test, id).Error
	return &test, err
}

// FindTestTree loads the test with every subject, question and answer beneath it.
func (r *CBTRepository) FindTestTree(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).
		Preload("Year").
		Preload("TestType").
		Preload("Subjects", byID).
		Preload("Subjects.Questions", byID).
		Preload("Subjects.Questions.Answers", byID).
		First(&test, id).Error
	return &test, err
}

type TestFilter struct {
	OrganizationID uint
	YearID         uint
	TestTypeID     uint
}

func (r *CBTRepository) ListTests(ctx context.Context, filter TestFilter) ([]model.Test, error) {
	tests := []model.Test{}
	query := r.DB.WithContext(ctx).
		Preload("Year").
		Preload("TestType").
		Preload("Subjects", byID)
	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.YearID > 0 {
		query = query.Where("year_id = ?", filter.YearID)
	}
	if filter.TestTypeID > 0 {
		query = query.Where("test_type_id = ?", filter.TestTypeID)
	}
	err := byID(query).Find(&tests).Error
	return tests, err
}

// TestIDsForSubject returns the tests a subject belongs to.
func (r *CBTRepository) TestIDsForSubject(ctx context.Context, subjectID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Table("cbt_test_subjects").
		Where("subject_id = ?", subjectID).
		Pluck("test_id", &ids).Error
	return ids, err
}

func (r *CBTRepository) ReplaceTestSubjects(ctx context.Context, test *model.Test, subjects []model.Subject) error {
	return r.DB.WithContext(ctx).Model(test).Association("Subjects").Replace(subjects)
}

func (r *CBTRepository) DeleteTest(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Test{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return deleteTests(tx, []uint{id})
	})
}

func deleteTests(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM cbt_test_subjects WHERE test_id IN ?", ids).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM cbt_test_result_tests WHERE test_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.Test{}).Error
}

// Updates applies a column map to any catalog row.
func (r *CBTRepository) Updates(ctx context.Context, row interface{}, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(row).Updates(fields).Error
}
