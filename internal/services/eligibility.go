package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/repository"
)

// bidderRoles may submit bids
var bidderRoles = map[string]bool{
	models.RoleFarmer: true,
	models.RoleVendor: true,
	models.RoleBuyer:  true,
}

// checkBidEligibility runs the fixed-order eligibility checks. The order
// decides which reason a caller sees when several apply.
func (s *ContractService) checkBidEligibility(ctx context.Context, c *models.Contract, actor Actor, now time.Time) error {
	if c.CreatorID == actor.ID {
		return conflictErr(CodeSelfBidForbidden, "the contract creator cannot bid on it")
	}
	if c.Parties.FirstPartyID == actor.ID || c.Parties.SecondPartyID == actor.ID {
		return conflictErr(CodeAlreadyParty, "bidder is already a party to this contract")
	}
	if !c.IsOpenTender() {
		return conflictErr(CodeNotATender, "contract is not open for bidding")
	}
	if c.TenderClosed(now) {
		return conflictErr(CodeTenderClosed, "tender closed on %s", c.TenderEndDate.Format(time.RFC3339))
	}
	if _, ok := c.Bids.ByBidder(actor.ID); ok {
		return conflictErr(CodeAlreadyBid, "bidder has already submitted a bid on this contract")
	}
	if !bidderRoles[actor.Role] {
		return &Error{Kind: KindAuthorization, Code: CodeRoleNotEligible, Reason: fmt.Sprintf("role %q may not bid", actor.Role)}
	}
	if c.IsFarming() && actor.Role == models.RoleFarmer {
		if err := s.checkLand(ctx, c.FarmingDetails, actor.ID); err != nil {
			return err
		}
	}
	return nil
}

// checkLand compares the bidder's land, converted into the contract's unit,
// with the land the contract requires
func (s *ContractService) checkLand(ctx context.Context, details *models.FarmingDetails, bidderID string) error {
	if details == nil {
		return nil
	}

	var user *models.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.directory.FindByID(ctx, bidderID)
		return err
	})
	if repository.IsNotFound(err) {
		return conflictErr(CodeInsufficientLand, "bidder has no land area on record")
	}
	if err != nil {
		return dependencyErr("identity lookup", err)
	}

	have, ok := user.LandIn(details.LandUnit)
	if !ok {
		return conflictErr(CodeInsufficientLand, "bidder has no land area on record")
	}
	if have < details.LandArea {
		return conflictErr(CodeInsufficientLand, "bidder has %.2f %s, contract requires %.2f %s",
			have, details.LandUnit, details.LandArea, details.LandUnit)
	}
	return nil
}

// checkQualifications applies the tender's minimum qualifications
func (s *ContractService) checkQualifications(ctx context.Context, c *models.Contract, actor Actor, in *BidInput) error {
	if c.StructuredBidding == nil || c.StructuredBidding.MinimumQualifications == nil {
		return nil
	}
	q := c.StructuredBidding.MinimumQualifications

	if q.MinExperienceYears != nil {
		years := in.CompanyProfile.ExperienceYears
		if years == nil || *years < *q.MinExperienceYears {
			return conflictErr(CodeQualificationNotMet, "at least %d years of experience required", *q.MinExperienceYears)
		}
	}
	if q.RequireGST && blank(in.CompanyProfile.GSTNumber) {
		return conflictErr(CodeQualificationNotMet, "a GST number is required")
	}
	if q.RequireVerified {
		var verified bool
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			verified, err = s.directory.IsVerified(ctx, actor.ID)
			return err
		})
		if err != nil {
			return dependencyErr("identity lookup", err)
		}
		if !verified {
			return conflictErr(CodeQualificationNotMet, "only verified bidders may bid")
		}
	}
	return nil
}

// validateParameterValues checks the answers against the tender's parameters
func validateParameterValues(sb *models.StructuredBidding, values map[string]interface{}) error {
	if sb == nil {
		if len(values) > 0 {
			return validationErr("this tender does not take parameter values")
		}
		return nil
	}

	known := make(map[string]models.BidParameter, len(sb.Parameters))
	for _, p := range sb.Parameters {
		known[p.Name] = p
	}
	for name := range values {
		if _, ok := known[name]; !ok {
			return validationErr("unknown bid parameter %q", name)
		}
	}

	for _, p := range sb.Parameters {
		v, present := values[p.Name]
		if !present || v == nil {
			if p.Required {
				return validationErr("bid parameter %q is required", p.Name)
			}
			continue
		}
		switch p.Type {
		case models.ParamTypeNumber:
			n, ok := toFloat(v)
			if !ok {
				return validationErr("bid parameter %q must be a number", p.Name)
			}
			if p.Min != nil && n < *p.Min {
				return validationErr("bid parameter %q must be at least %g", p.Name, *p.Min)
			}
			if p.Max != nil && n > *p.Max {
				return validationErr("bid parameter %q must be at most %g", p.Name, *p.Max)
			}
		case models.ParamTypeBoolean:
			if _, ok := v.(bool); !ok {
				return validationErr("bid parameter %q must be true or false", p.Name)
			}
		case models.ParamTypeText:
			if _, ok := v.(string); !ok {
				return validationErr("bid parameter %q must be text", p.Name)
			}
		}
	}
	return nil
}

// scoreBid computes the weighted 0-100 score of an automatically evaluated
// tender. Numbers are normalized within [min,max]; without a range a
// present number counts fully.
func scoreBid(sb *models.StructuredBidding, values map[string]interface{}) *float64 {
	if sb == nil || sb.EvaluationMethod != models.EvaluationAutomatic {
		return nil
	}

	var score float64
	for _, p := range sb.Parameters {
		v, ok := values[p.Name]
		if !ok || v == nil {
			continue
		}
		var part float64
		switch p.Type {
		case models.ParamTypeNumber:
			n, _ := toFloat(v)
			part = 1
			if p.Min != nil && p.Max != nil && *p.Max > *p.Min {
				part = (n - *p.Min) / (*p.Max - *p.Min)
				if !p.HigherIsBetter {
					part = 1 - part
				}
			}
		case models.ParamTypeBoolean:
			if b, _ := v.(bool); b {
				part = 1
			}
		case models.ParamTypeText:
			if str, _ := v.(string); !blank(str) {
				part = 1
			}
		}
		score += p.Weight * math.Max(0, math.Min(1, part))
	}

	rounded := math.Round(score*100) / 100
	return &rounded
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
