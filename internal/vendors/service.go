package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

// Service is the vendor directory plus payout rule resolution.
type Service interface {
	WithTx(tx *gorm.DB) Service
	GetByName(ctx context.Context, name string) (*models.Vendor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListActive(ctx context.Context) ([]models.Vendor, error)
	RegisterVendor(ctx context.Context, input RegisterVendorInput) (*models.Vendor, error)
	SetProductRule(ctx context.Context, input ProductRuleInput) (*models.ProductPayoutRule, error)
	ResolvePayoutRule(ctx context.Context, productID string, vendor *models.Vendor) (PayoutRule, error)
	NormalizeToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

// RegisterVendorInput creates or updates a directory entry by name.
type RegisterVendorInput struct {
	Name                 string              `json:"name" validate:"required"`
	CollectorIdentifier  string              `json:"collectorIdentifier" validate:"required"`
	PayPalEmail          *string             `json:"paypalEmail" validate:"omitempty,email"`
	StripeAccountID      *string             `json:"stripeAccountId" validate:"omitempty,startswith=acct_"`
	DefaultPaymentMethod enums.PaymentMethod `json:"defaultPaymentMethod" validate:"omitempty,oneof=paypal stripe manual"`
	PayoutPercentage     *decimal.Decimal    `json:"payoutPercentage"`
	PayoutFlatRate       *decimal.Decimal    `json:"payoutFlatRate"`
	TaxID                *string             `json:"taxId"`
	LegalName            *string             `json:"legalName"`
	TaxCountry           *string             `json:"taxCountry"`
}

// ProductRuleInput overrides the payout rule of a single product.
type ProductRuleInput struct {
	ProductID        string           `json:"productId" validate:"required"`
	PayoutPercentage *decimal.Decimal `json:"payoutPercentage"`
	PayoutFlatRate   *decimal.Decimal `json:"payoutFlatRate"`
}

type service struct {
	repo       Repository
	converter  *Converter
	defaultPct decimal.Decimal
}

// NewService wires the directory. defaultPct is the platform-wide vendor share.
func NewService(repo Repository, converter *Converter, defaultPct decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if converter == nil {
		return nil, fmt.Errorf("currency converter required")
	}
	if defaultPct.IsNegative() || defaultPct.GreaterThan(decimal.NewFromInt(hundred)) {
		return nil, fmt.Errorf("default payout percentage must be within 0..100")
	}
	return &service{repo: repo, converter: converter, defaultPct: defaultPct}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), converter: s.converter, defaultPct: s.defaultPct}
}

func (s *service) GetByName(ctx context.Context, name string) (*models.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}
	vendor, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("vendor %q not found", name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Vendor, error) {
	vendors, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return vendors, nil
}

func (s *service) RegisterVendor(ctx context.Context, input RegisterVendorInput) (*models.Vendor, error) {
	name := strings.TrimSpace(input.Name)
	identifier := strings.TrimSpace(input.CollectorIdentifier)
	if name == "" || identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name and collector identifier are required")
	}
	method := input.DefaultPaymentMethod
	if method == "" {
		method = enums.PaymentMethodManual
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
	pct, flat, err := validateRuleFields(input.PayoutPercentage, input.PayoutFlatRate)
	if err != nil {
		return nil, err
	}

	vendor := &models.Vendor{
		Name:                 name,
		CollectorIdentifier:  identifier,
		PayPalEmail:          input.PayPalEmail,
		StripeAccountID:      input.StripeAccountID,
		DefaultPaymentMethod: method,
		PayoutPercentage:     pct,
		PayoutFlatRate:       flat,
		TaxID:                input.TaxID,
		LegalName:            input.LegalName,
		TaxCountry:           input.TaxCountry,
		Active:               true,
	}
	if err := s.repo.Upsert(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("save vendor %s", name))
	}
	return s.GetByName(ctx, name)
}

func (s *service) SetProductRule(ctx context.Context, input ProductRuleInput) (*models.ProductPayoutRule, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	pct, flat, err := validateRuleFields(input.PayoutPercentage, input.PayoutFlatRate)
	if err != nil {
		return nil, err
	}
	if !pct.Valid && !flat.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a percentage or flat rate is required")
	}
	rule := &models.ProductPayoutRule{ProductID: productID, PayoutPercentage: pct, PayoutFlatRate: flat}
	if err := s.repo.UpsertProductRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product payout rule")
	}
	return s.repo.FindProductRule(ctx, productID)
}

func validateRuleFields(pct, flat *decimal.Decimal) (decimal.NullDecimal, decimal.NullDecimal, error) {
	var outPct, outFlat decimal.NullDecimal
	if pct != nil {
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(hundred)) {
			return outPct, outFlat, pkgerrors.New(pkgerrors.CodeValidation, "payout percentage must be within 0..100")
		}
		outPct = decimal.NewNullDecimal(*pct)
	}
	if flat != nil {
		if flat.IsNegative() {
			return outPct, outFlat, pkgerrors.New(pkgerrors.CodeValidation, "payout flat rate must not be negative")
		}
		outFlat = decimal.NewNullDecimal(flat.Round(centsPlaces))
	}
	return outPct, outFlat, nil
}

// ResolvePayoutRule looks up the product override, then the vendor's own
// rule, then the platform default.
func (s *service) ResolvePayoutRule(ctx context.Context, productID string, vendor *models.Vendor) (PayoutRule, error) {
	var product *models.ProductPayoutRule
	if productID = strings.TrimSpace(productID); productID != "" {
		found, err := s.repo.FindProductRule(ctx, productID)
		switch {
		case err == nil:
			product = found
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return PayoutRule{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product payout rule")
		}
	}
	return ResolveRule(product, vendor, s.defaultPct), nil
}

func (s *service) NormalizeToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return s.converter.ToUSD(amount, currency)
}
