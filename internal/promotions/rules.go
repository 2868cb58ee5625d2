package promotions

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
)

// RuleWithConditions pairs a promo rule with its loaded condition rows.
type RuleWithConditions struct {
	Rule       models.PromoRule
	Conditions []models.PromoRuleCondition
}

// LineContext describes one cart line for rule matching.
type LineContext struct {
	VariantID  uuid.UUID
	ProductID  *uuid.UUID
	CategoryID *uuid.UUID
	BrandID    *uuid.UUID
	Channel    enums.OfferVisibility
	Qty        int
}

// RuleRepository loads promo rules for matching.
type RuleRepository interface {
	WithTx(tx *gorm.DB) RuleRepository
	ListCandidates(ctx context.Context, at time.Time) ([]RuleWithConditions, error)
}

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository returns a promo rule repository bound to the database.
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) WithTx(tx *gorm.DB) RuleRepository {
	if tx == nil {
		return r
	}
	return &ruleRepository{db: tx}
}

func (r *ruleRepository) ListCandidates(ctx context.Context, at time.Time) ([]RuleWithConditions, error) {
	var rules []models.PromoRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("valid_from IS NULL OR valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to >= ?", at).
		Order("priority DESC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	ruleIDs := make([]uuid.UUID, 0, len(rules))
	for _, rule := range rules {
		ruleIDs = append(ruleIDs, rule.ID)
	}
	var conditions []models.PromoRuleCondition
	if err := r.db.WithContext(ctx).
		Where("promo_rule_id IN ?", ruleIDs).
		Find(&conditions).Error; err != nil {
		return nil, err
	}

	byRule := make(map[uuid.UUID][]models.PromoRuleCondition, len(rules))
	for _, cond := range conditions {
		byRule[cond.PromoRuleID] = append(byRule[cond.PromoRuleID], cond)
	}

	out := make([]RuleWithConditions, 0, len(rules))
	for _, rule := range rules {
		out = append(out, RuleWithConditions{Rule: rule, Conditions: byRule[rule.ID]})
	}
	return out, nil
}

// FindBestRule picks the winning rule for a line among pre-loaded candidates.
// Candidates are filtered on validity, channel, scope and condition groups,
// then ordered by priority descending with rule id ascending as the
// tie-break, so equal-priority rules resolve the same way on every node.
func FindBestRule(candidates []RuleWithConditions, line LineContext, now time.Time) *models.PromoRule {
	matched := make([]models.PromoRule, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Rule.IsValidAt(now) {
			continue
		}
		if candidate.Rule.Channel != "" && candidate.Rule.Channel != string(line.Channel) {
			continue
		}
		if !scopeMatches(candidate.Rule, line) {
			continue
		}
		if !conditionsMatch(candidate.Conditions, line) {
			continue
		}
		matched = append(matched, candidate.Rule)
	}
	if len(matched) == 0 {
		return nil
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return strings.Compare(matched[i].ID.String(), matched[j].ID.String()) < 0
	})
	best := matched[0]
	return &best
}

func scopeMatches(rule models.PromoRule, line LineContext) bool {
	switch rule.Scope {
	case enums.PromoScopeAll:
		return true
	case enums.PromoScopeVariant:
		return rule.ScopeRefID != nil && *rule.ScopeRefID == line.VariantID
	case enums.PromoScopeProduct:
		return refMatches(rule.ScopeRefID, line.ProductID)
	case enums.PromoScopeCategory:
		return refMatches(rule.ScopeRefID, line.CategoryID)
	case enums.PromoScopeBrand:
		return refMatches(rule.ScopeRefID, line.BrandID)
	}
	return false
}

func refMatches(want, have *uuid.UUID) bool {
	return want != nil && have != nil && *want == *have
}

// conditionsMatch evaluates condition groups: conditions sharing a group
// index are ANDed, distinct groups are ORed. No conditions means the rule
// applies unconditionally.
func conditionsMatch(conditions []models.PromoRuleCondition, line LineContext) bool {
	if len(conditions) == 0 {
		return true
	}
	groups := make(map[int][]models.PromoRuleCondition)
	for _, cond := range conditions {
		groups[cond.GroupIndex] = append(groups[cond.GroupIndex], cond)
	}
	for _, group := range groups {
		allMet := true
		for _, cond := range group {
			if !conditionMet(cond, line) {
				allMet = false
				break
			}
		}
		if allMet {
			return true
		}
	}
	return false
}

func conditionMet(cond models.PromoRuleCondition, line LineContext) bool {
	if cond.MinQty != nil && line.Qty < *cond.MinQty {
		return false
	}
	switch cond.Kind {
	case enums.PromoConditionVariant:
		return cond.RefID != nil && *cond.RefID == line.VariantID
	case enums.PromoConditionProduct:
		return refMatches(cond.RefID, line.ProductID)
	case enums.PromoConditionCategory:
		return refMatches(cond.RefID, line.CategoryID)
	case enums.PromoConditionBrand:
		return refMatches(cond.RefID, line.BrandID)
	}
	return false
}

// ApplyPromoToUnitNet applies a rule's discount to a unit net price, subject
// to the offer's gating flags. offerDiscounted reports whether the lot
// already carries its own price override or percent discount. Returns the
// resulting unit net and whether the rule actually lowered the price.
func ApplyPromoToUnitNet(unitNet decimal.Decimal, rule *models.PromoRule, item models.InventoryItem, offerDiscounted bool) (decimal.Decimal, bool) {
	if rule == nil {
		return unitNet, false
	}
	if item.NeverDiscount {
		return unitNet, false
	}
	if offerDiscounted && !item.AllowAdditionalPromotions {
		return unitNet, false
	}

	discounted := unitNet
	switch {
	case rule.PercentOff != nil && *rule.PercentOff > 0:
		factor := decimal.NewFromInt(int64(100 - *rule.PercentOff)).
			Div(decimal.NewFromInt(100))
		discounted = pricing.QuantizeMoney(unitNet.Mul(factor))
	case rule.AmountOffNet != nil:
		discounted = pricing.QuantizeMoney(unitNet.Sub(*rule.AmountOffNet))
	default:
		return unitNet, false
	}

	if discounted.IsNegative() {
		discounted = decimal.Zero.Round(2)
	}
	if discounted.GreaterThanOrEqual(unitNet) {
		return unitNet, false
	}
	return discounted, true
}
