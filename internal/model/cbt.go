package model

import "strconv"

// swagger:model Year
type Year struct {
	BaseModel
	Year int `gorm:"uniqueIndex;not null" json:"year"`
}

func (Year) TableName() string {
	return "cbt_years"
}

// swagger:model TestType
type TestType struct {
	BaseModel
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

func (TestType) TableName() string {
	return "cbt_test_types"
}

// Answer is a candidate answer. Whether it is correct is decided by the
// question that points at it through CorrectAnswerID, so one answer can be
// shared between questions.
// swagger:model Answer
type Answer struct {
	BaseModel
	Text string `gorm:"type:text;not null" json:"text"`
}

func (Answer) TableName() string {
	return "cbt_answers"
}

// swagger:model Question
type Question struct {
	BaseModel
	Text                     string    `gorm:"type:text;not null" json:"text"`
	QuestionMark             int       `gorm:"not null" json:"questionMark"`
	Required                 bool      `gorm:"default:false" json:"required"`
	CorrectAnswerID          *uint     `gorm:"index" json:"correctAnswerId"`
	CorrectAnswer            *Answer   `gorm:"foreignKey:CorrectAnswerID;constraint:OnDelete:SET NULL" json:"-"`
	CorrectAnswerExplanation string    `gorm:"type:text" json:"correctAnswerExplanation"`
	Answers                  []Answer  `gorm:"many2many:cbt_question_answers;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	Subjects                 []Subject `gorm:"many2many:cbt_subject_questions;constraint:OnDelete:CASCADE" json:"-"`
}

func (Question) TableName() string {
	return "cbt_questions"
}

// HasAnswer reports whether answerID is one of the question's answers.
func (q *Question) HasAnswer(answerID uint) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// swagger:model Subject
type Subject struct {
	BaseModel
	Name      string     `gorm:"size:150;not null" json:"name"`
	Duration  int        `gorm:"default:0" json:"duration"` // Minutes
	Questions []Question `gorm:"many2many:cbt_subject_questions;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Tests     []Test     `gorm:"many2many:cbt_test_subjects;constraint:OnDelete:CASCADE" json:"-"`
}

func (Subject) TableName() string {
	return "cbt_subjects"
}

// swagger:model Test
type Test struct {
	BaseModel
	TimeLimit      int           `gorm:"default:0" json:"timeLimit"` // Minutes
	TotalMark      int           `gorm:"default:0" json:"totalMark"`
	OrganizationID uint          `gorm:"index;not null" json:"organizationId"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	YearID         uint          `gorm:"index;not null" json:"yearId"`
	Year           *Year         `gorm:"constraint:OnDelete:CASCADE" json:"year,omitempty"`
	TestTypeID     uint          `gorm:"index;not null" json:"testTypeId"`
	TestType       *TestType     `gorm:"constraint:OnDelete:CASCADE" json:"testType,omitempty"`
	Subjects       []Subject     `gorm:"many2many:cbt_test_subjects;constraint:OnDelete:CASCADE" json:"subjects,omitempty"`
}

func (Test) TableName() string {
	return "cbt_tests"
}

// DisplayName is "<year> <test type>", e.g. "2024 MidTerm".
func (t *Test) DisplayName() string {
	name := ""
	if t.Year != nil {
		name = strconv.Itoa(t.Year.Year)
	}
	if t.TestType != nil {
		if name != "" {
			name += " "
		}
		name += t.TestType.Name
	}
	return name
}
