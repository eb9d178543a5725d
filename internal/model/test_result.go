package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// TestResult is a graded attempt. Mark is a snapshot taken at submission
// and never recomputed.
// swagger:model TestResult
type TestResult struct {
	BaseModel
	UserID         uint           `gorm:"index;not null" json:"userId"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OrganizationID *uint          `gorm:"index" json:"organizationId,omitempty"`
	Organization   *Organization  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tests          []Test         `gorm:"many2many:cbt_test_result_tests;constraint:OnDelete:CASCADE" json:"tests,omitempty"`
	Mark           int            `gorm:"default:0" json:"mark"`
	Breakdown      datatypes.JSON `json:"breakdown"`
}

func (TestResult) TableName() string {
	return "cbt_test_results"
}

// SubjectBreakdown is one entry of TestResult.Breakdown, keyed by subject name.
type SubjectBreakdown struct {
	Answers []uint `json:"answers"`
	Score   int    `json:"score"`
}

func (r *TestResult) DecodeBreakdown() (map[string]SubjectBreakdown, error) {
	out := map[string]SubjectBreakdown{}
	if len(r.Breakdown) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.Breakdown, &out); err != nil {
		return nil, err
	}
	return out, nil
}
