package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

// FeeRepository lists active fee rules in evaluation order.
type FeeRepository interface {
	WithTx(tx *gorm.DB) FeeRepository
	ListActive(ctx context.Context) ([]models.FeeRule, error)
}

type feeRepository struct {
	db *gorm.DB
}

// NewFeeRepository returns a fee rule repository bound to the database.
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{db: db}
}

func (r *feeRepository) WithTx(tx *gorm.DB) FeeRepository {
	if tx == nil {
		return r
	}
	return &feeRepository{db: tx}
}

func (r *feeRepository) ListActive(ctx context.Context) ([]models.FeeRule, error) {
	var rules []models.FeeRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC").
		Find(&rules).Error
	return rules, err
}

// MatchFeeRules filters rules against the order context. Blank gates match
// everything; the gross band is inclusive at both ends.
func MatchFeeRules(rules []models.FeeRule, countryCode, paymentMethod string, itemsGross decimal.Decimal) []models.FeeRule {
	matched := make([]models.FeeRule, 0, len(rules))
	for _, rule := range rules {
		if rule.CountryCode != "" && rule.CountryCode != countryCode {
			continue
		}
		if rule.PaymentMethodCode != "" && rule.PaymentMethodCode != paymentMethod {
			continue
		}
		if rule.MinItemsGross != nil && itemsGross.LessThan(*rule.MinItemsGross) {
			continue
		}
		if rule.MaxItemsGross != nil && itemsGross.GreaterThan(*rule.MaxItemsGross) {
			continue
		}
		matched = append(matched, rule)
	}
	return matched
}

// priceFee derives the fee's VAT from its rule tax class, or charges it
// VAT-free when the rule carries none.
func (e *PreviewEngine) priceFee(ctx context.Context, rule models.FeeRule, countryCode string, now time.Time) (PricedFee, error) {
	rate := decimal.Zero
	if rule.TaxClassID != nil {
		found, err := e.rates.RateFor(ctx, *rule.TaxClassID, countryCode, now)
		if err != nil {
			return PricedFee{}, err
		}
		rate = found
	}
	breakdown := pricing.ComputeVAT(rule.AmountNet, rate, 1)
	ruleID := rule.ID
	return PricedFee{
		RuleID:  &ruleID,
		Code:    rule.Code,
		Name:    rule.Name,
		Net:     breakdown.TotalNet,
		VATRate: rate,
		VAT:     breakdown.TotalVAT,
		Gross:   breakdown.TotalGross,
	}, nil
}
