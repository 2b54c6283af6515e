package services

import (
	"strings"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
)

// ContractInput is the caller-supplied description of a new contract
type ContractInput struct {
	Title               string                    `json:"title"`
	Type                string                    `json:"type"`
	IsTender            bool                      `json:"isTender"`
	Draft               bool                      `json:"draft"`
	SecondPartyUsername string                    `json:"secondPartyUsername,omitempty"`
	StartDate           time.Time                 `json:"startDate"`
	EndDate             time.Time                 `json:"endDate"`
	TenderEndDate       *time.Time                `json:"tenderEndDate,omitempty"`
	Value               float64                   `json:"value"`
	Quantity            *float64                  `json:"quantity,omitempty"`
	Unit                string                    `json:"unit,omitempty"`
	PricePerUnit        *float64                  `json:"pricePerUnit,omitempty"`
	Description         string                    `json:"description"`
	Terms               []string                  `json:"terms"`
	QualityStandards    string                    `json:"qualityStandards,omitempty"`
	PaymentTerms        string                    `json:"paymentTerms,omitempty"`
	DeliveryTerms       string                    `json:"deliveryTerms,omitempty"`
	FarmingDetails      *models.FarmingDetails    `json:"farmingDetails,omitempty"`
	StructuredBidding   *models.StructuredBidding `json:"structuredBidding,omitempty"`
}

// BidInput is the caller-supplied content of a bid
type BidInput struct {
	BidAmount       float64                `json:"bidAmount"`
	CompanyProfile  models.CompanyProfile  `json:"companyProfile"`
	Notes           string                 `json:"notes,omitempty"`
	ParameterValues map[string]interface{} `json:"parameterValues,omitempty"`
	Documents       []string               `json:"documents,omitempty"`
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateContractInput(in *ContractInput) error {
	switch {
	case blank(in.Title):
		return validationErr("title is required")
	case !models.IsValidContractType(in.Type):
		return validationErr("type must be one of %s", strings.Join(models.ContractTypes, ", "))
	case blank(in.Description):
		return validationErr("description is required")
	case in.Value <= 0:
		return validationErr("value must be greater than 0")
	case in.Quantity != nil && *in.Quantity <= 0:
		return validationErr("quantity must be greater than 0")
	case in.PricePerUnit != nil && *in.PricePerUnit <= 0:
		return validationErr("pricePerUnit must be greater than 0")
	case !hasTerm(in.Terms):
		return validationErr("at least one non-empty term is required")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return validationErr("startDate and endDate are required")
	case !in.StartDate.Before(in.EndDate):
		return validationErr("startDate must be before endDate")
	}

	if in.IsTender {
		if in.TenderEndDate != nil && in.TenderEndDate.After(in.StartDate) {
			return validationErr("tenderEndDate must not be after startDate")
		}
		if !blank(in.SecondPartyUsername) {
			return validationErr("a tender cannot name a second party")
		}
	} else {
		if in.TenderEndDate != nil {
			return validationErr("tenderEndDate only applies to tenders")
		}
		if in.StructuredBidding != nil {
			return validationErr("structuredBidding only applies to tenders")
		}
		if blank(in.SecondPartyUsername) {
			return validationErr("secondPartyUsername is required for direct contracts")
		}
	}

	isFarming := in.Type == models.ContractTypeFarming
	switch {
	case isFarming && in.FarmingDetails == nil:
		return validationErr("farmingDetails is required for farming contracts")
	case !isFarming && in.FarmingDetails != nil:
		return validationErr("farmingDetails only applies to farming contracts")
	}
	if in.FarmingDetails != nil {
		if err := validateFarmingDetails(in.FarmingDetails); err != nil {
			return err
		}
	}
	if in.StructuredBidding != nil {
		if err := validateStructuredBidding(in.StructuredBidding); err != nil {
			return err
		}
	}
	return nil
}

func hasTerm(terms []string) bool {
	for _, t := range terms {
		if !blank(t) {
			return true
		}
	}
	return false
}

func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}

func validateFarmingDetails(f *models.FarmingDetails) error {
	switch {
	case blank(f.CropType):
		return validationErr("farmingDetails.cropType is required")
	case f.LandArea <= 0:
		return validationErr("farmingDetails.landArea must be greater than 0")
	case !models.IsValidLandUnit(f.LandUnit):
		return validationErr("farmingDetails.landUnit must be acre or hectare")
	case f.ExpectedYield <= 0:
		return validationErr("farmingDetails.expectedYield must be greater than 0")
	case blank(f.YieldUnit):
		return validationErr("farmingDetails.yieldUnit is required")
	case !hasTerm(f.FarmingPractices):
		return validationErr("farmingDetails.farmingPractices must not be empty")
	case len(f.PaymentSchedule) == 0:
		return validationErr("farmingDetails.paymentSchedule must not be empty")
	}

	for _, m := range f.PaymentSchedule {
		if blank(m.Milestone) {
			return validationErr("every payment milestone needs a name")
		}
		if !inPercentRange(m.Percentage) {
			return validationErr("milestone %q percentage must be between 0 and 100", m.Milestone)
		}
	}
	if !models.SumsToHundred(f.ScheduleTotal()) {
		return validationErr("payment schedule percentages must sum to 100, got %.2f", f.ScheduleTotal())
	}

	for _, q := range f.QualityParameters {
		if blank(q.Name) {
			return validationErr("every quality parameter needs a name")
		}
		if q.Min != nil && q.Max != nil && *q.Min > *q.Max {
			return validationErr("quality parameter %q has min greater than max", q.Name)
		}
	}

	if f.AACC != nil {
		return validateAACC(f.AACC)
	}
	return nil
}

func validateAACC(a *models.AACCRequirements) error {
	switch a.MinimumGrade {
	case models.GradeA, models.GradeB, models.GradeC, models.GradeD, models.GradeAny:
	default:
		return validationErr("aacc.minimumGrade must be A, B, C, D or any")
	}
	if a.MinQualityScore != nil && !inPercentRange(*a.MinQualityScore) {
		return validationErr("aacc.minQualityScore must be between 0 and 100")
	}
	if a.MinSafetyScore != nil && !inPercentRange(*a.MinSafetyScore) {
		return validationErr("aacc.minSafetyScore must be between 0 and 100")
	}

	switch a.CostCoverage {
	case models.CostCoverageBuyer, models.CostCoverageFarmer:
		if a.CostSharingRatio != nil {
			return validationErr("aacc.costSharingRatio only applies to shared coverage")
		}
	case models.CostCoverageShared:
		if a.CostSharingRatio != nil && !inPercentRange(*a.CostSharingRatio) {
			return validationErr("aacc.costSharingRatio must be between 0 and 100")
		}
	default:
		return validationErr("aacc.costCoverage must be buyer, farmer or shared")
	}
	return nil
}

func validateStructuredBidding(sb *models.StructuredBidding) error {
	if len(sb.Parameters) == 0 {
		return validationErr("structuredBidding.parameters must not be empty")
	}
	switch sb.EvaluationMethod {
	case models.EvaluationAutomatic, models.EvaluationManual:
	default:
		return validationErr("structuredBidding.evaluationMethod must be automatic or manual")
	}

	seen := make(map[string]struct{}, len(sb.Parameters))
	for _, p := range sb.Parameters {
		if blank(p.Name) {
			return validationErr("every bid parameter needs a name")
		}
		if _, dup := seen[p.Name]; dup {
			return validationErr("bid parameter %q is defined twice", p.Name)
		}
		seen[p.Name] = struct{}{}

		switch p.Type {
		case models.ParamTypeNumber, models.ParamTypeBoolean, models.ParamTypeText:
		default:
			return validationErr("bid parameter %q has unknown type %q", p.Name, p.Type)
		}
		if !inPercentRange(p.Weight) {
			return validationErr("bid parameter %q weight must be between 0 and 100", p.Name)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return validationErr("bid parameter %q has min greater than max", p.Name)
		}
	}
	if !models.SumsToHundred(sb.WeightTotal()) {
		return validationErr("bid parameter weights must sum to 100, got %.2f", sb.WeightTotal())
	}

	if q := sb.MinimumQualifications; q != nil && q.MinExperienceYears != nil && *q.MinExperienceYears < 0 {
		return validationErr("minimumQualifications.minExperienceYears must not be negative")
	}
	return nil
}

func validateBidInput(in *BidInput) error {
	p := in.CompanyProfile
	switch {
	case in.BidAmount <= 0:
		return validationErr("bidAmount must be greater than 0")
	case blank(p.Name):
		return validationErr("companyProfile.name is required")
	case blank(p.Address):
		return validationErr("companyProfile.address is required")
	case blank(p.ContactPerson):
		return validationErr("companyProfile.contactPerson is required")
	case blank(p.Phone):
		return validationErr("companyProfile.phone is required")
	case p.ExperienceYears != nil && *p.ExperienceYears < 0:
		return validationErr("companyProfile.experienceYears must not be negative")
	}
	return nil
}
