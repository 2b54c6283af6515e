package models

import (
	"fmt"
	"math"
)

// FarmingDetails carries the agronomic terms of a farming contract
type FarmingDetails struct {
	CropType                 string             `json:"cropType" bson:"cropType"`
	Variety                  string             `json:"variety,omitempty" bson:"variety,omitempty"`
	LandArea                 float64            `json:"landArea" bson:"landArea"`
	LandUnit                 string             `json:"landUnit" bson:"landUnit"`
	ExpectedYield            float64            `json:"expectedYield" bson:"expectedYield"`
	YieldUnit                string             `json:"yieldUnit" bson:"yieldUnit"`
	FarmingPractices         []string           `json:"farmingPractices,omitempty" bson:"farmingPractices,omitempty"`
	SeedsProvided            bool               `json:"seedsProvided" bson:"seedsProvided"`
	FertilizerProvided       bool               `json:"fertilizerProvided" bson:"fertilizerProvided"`
	PesticidesProvided       bool               `json:"pesticidesProvided" bson:"pesticidesProvided"`
	TechnicalSupportProvided bool               `json:"technicalSupportProvided" bson:"technicalSupportProvided"`
	QualityParameters        []QualityParameter `json:"qualityParameters,omitempty" bson:"qualityParameters,omitempty"`
	PaymentSchedule          []PaymentMilestone `json:"paymentSchedule,omitempty" bson:"paymentSchedule,omitempty"`
	AACC                     *AACCRequirements  `json:"aacc,omitempty" bson:"aacc,omitempty"`
}

// QualityParameter is a measurable produce property with an accepted range
type QualityParameter struct {
	Name string   `json:"name" bson:"name"`
	Min  *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" bson:"max,omitempty"`
	Unit string   `json:"unit,omitempty" bson:"unit,omitempty"`
}

// PaymentMilestone is one installment of a farming payment schedule
type PaymentMilestone struct {
	Milestone   string  `json:"milestone" bson:"milestone"`
	Percentage  float64 `json:"percentage" bson:"percentage"`
	DueDays     int     `json:"dueDays,omitempty" bson:"dueDays,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
}

// AACCRequirements describes produce certification terms
type AACCRequirements struct {
	MinimumGrade      string   `json:"minimumGrade" bson:"minimumGrade"`
	MinQualityScore   *float64 `json:"minQualityScore,omitempty" bson:"minQualityScore,omitempty"`
	MinSafetyScore    *float64 `json:"minSafetyScore,omitempty" bson:"minSafetyScore,omitempty"`
	RequiredStandards []string `json:"requiredStandards,omitempty" bson:"requiredStandards,omitempty"`
	CostCoverage      string   `json:"costCoverage" bson:"costCoverage"`
	CostSharingRatio  *float64 `json:"costSharingRatio,omitempty" bson:"costSharingRatio,omitempty"`
}

// AACC grades and cost coverage values
const (
	GradeA   = "A"
	GradeB   = "B"
	GradeC   = "C"
	GradeD   = "D"
	GradeAny = "any"

	CostCoverageBuyer  = "buyer"
	CostCoverageFarmer = "farmer"
	CostCoverageShared = "shared"
)

// StructuredBidding defines the parameters bidders answer and how bids are scored
type StructuredBidding struct {
	Parameters            []BidParameter         `json:"parameters" bson:"parameters"`
	EvaluationMethod      string                 `json:"evaluationMethod" bson:"evaluationMethod"`
	MinimumQualifications *MinimumQualifications `json:"minimumQualifications,omitempty" bson:"minimumQualifications,omitempty"`
}

// BidParameter is one scored question of a structured tender
type BidParameter struct {
	Name           string   `json:"name" bson:"name"`
	Type           string   `json:"type" bson:"type"`
	Weight         float64  `json:"weight" bson:"weight"`
	Required       bool     `json:"required" bson:"required"`
	Min            *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max            *float64 `json:"max,omitempty" bson:"max,omitempty"`
	HigherIsBetter bool     `json:"higherIsBetter" bson:"higherIsBetter"`
	Unit           string   `json:"unit,omitempty" bson:"unit,omitempty"`
}

// MinimumQualifications gate which bidders may bid at all
type MinimumQualifications struct {
	MinExperienceYears *int `json:"minExperienceYears,omitempty" bson:"minExperienceYears,omitempty"`
	RequireVerified    bool `json:"requireVerified" bson:"requireVerified"`
	RequireGST         bool `json:"requireGst" bson:"requireGst"`
}

// Parameter types and evaluation methods
const (
	ParamTypeNumber  = "number"
	ParamTypeBoolean = "boolean"
	ParamTypeText    = "text"

	EvaluationAutomatic = "automatic"
	EvaluationManual    = "manual"
)

// Land units
const (
	LandUnitAcre    = "acre"
	LandUnitHectare = "hectare"
)

// Conversion factors between land units
const (
	AcresToHectares = 0.404686
	HectaresToAcres = 2.47105
)

// PercentTolerance is the allowed deviation when percentages must sum to 100
const PercentTolerance = 0.01

// ConvertLandArea converts value from one land unit to another
func ConvertLandArea(value float64, from, to string) (float64, error) {
	if !IsValidLandUnit(from) {
		return 0, fmt.Errorf("unknown land unit %q", from)
	}
	if !IsValidLandUnit(to) {
		return 0, fmt.Errorf("unknown land unit %q", to)
	}
	switch {
	case from == to:
		return value, nil
	case from == LandUnitAcre:
		return value * AcresToHectares, nil
	default:
		return value * HectaresToAcres, nil
	}
}

// IsValidLandUnit reports whether u is acre or hectare
func IsValidLandUnit(u string) bool {
	return u == LandUnitAcre || u == LandUnitHectare
}

// SumsToHundred reports whether total is 100 within PercentTolerance
func SumsToHundred(total float64) bool {
	return math.Abs(total-100) <= PercentTolerance
}

// ScheduleTotal sums the milestone percentages
func (f *FarmingDetails) ScheduleTotal() float64 {
	var total float64
	for _, m := range f.PaymentSchedule {
		total += m.Percentage
	}
	return total
}

// WeightTotal sums the parameter weights
func (s *StructuredBidding) WeightTotal() float64 {
	var total float64
	for _, p := range s.Parameters {
		total += p.Weight
	}
	return total
}
