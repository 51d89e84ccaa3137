package entity

import (
	"cannapos/internal/core/apperror"
	"cannapos/internal/core/types"
	"cannapos/internal/core/units"
)

// ProductUnit is the unit a product is sold in.
type ProductUnit string

const (
	ProductUnitEach      ProductUnit = "Ea"
	ProductUnitGram      ProductUnit = "g"
	ProductUnitOunce     ProductUnit = "oz"
	ProductUnitMilligram ProductUnit = "mg"
)

// IsEach reports whether the product is sold per piece.
func (u ProductUnit) IsEach() bool { return u == ProductUnitEach }

// LimitWeightBasis selects which product weight counts for per-each items.
type LimitWeightBasis string

const (
	LimitByUnitWeight LimitWeightBasis = "unitWeight"
	LimitByNetWeight  LimitWeightBasis = "netWeight"
)

// Product is a catalog entry.
type Product struct {
	ID            int64       `db:"id" json:"id"`
	DispensaryID  int64       `db:"dispensary_id" json:"dispensaryId"`
	CategoryID    int64       `db:"item_category_id" json:"itemCategoryId"`
	Name          string      `db:"name" json:"name"`
	SKU           string      `db:"sku" json:"sku"`
	UPC           string      `db:"upc" json:"upc"`
	Price         types.Money `db:"price" json:"price"`
	Cost          types.Money `db:"cost" json:"cost"`
	UnitOfMeasure ProductUnit `db:"product_unit_of_measure" json:"productUnitOfMeasure"`

	UnitWeight        types.Money `db:"unit_weight" json:"unitWeight"`
	UnitOfUnitWeight  units.Unit  `db:"unit_of_unit_weight" json:"unitOfUnitWeight"`
	NetWeight         types.Money `db:"net_weight" json:"netWeight"`
	UnitOfNetWeight   units.Unit  `db:"unit_of_net_weight" json:"unitOfNetWeight"`
	IsApplyUnitWeight bool        `db:"is_apply_unit_weight" json:"isApplyUnitWeight"`
}

// Validate implements Validatable.
func (p *Product) Validate() error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	for field, v := range map[string]types.Money{
		"price":      p.Price,
		"cost":       p.Cost,
		"unitWeight": p.UnitWeight,
		"netWeight":  p.NetWeight,
	} {
		if err := requireNonNegative(field, v); err != nil {
			return err
		}
	}
	for field, u := range map[string]units.Unit{
		"unitOfUnitWeight": p.UnitOfUnitWeight,
		"unitOfNetWeight":  p.UnitOfNetWeight,
	} {
		if u != "" && !u.Valid() {
			return apperror.NewValidation("unknown unit " + string(u)).WithDetail("field", field)
		}
	}
	return nil
}

// EffectiveUnitWeight returns the unit weight, or 1 when it is not configured.
func (p *Product) EffectiveUnitWeight() types.Money {
	if p.UnitWeight.IsPositive() {
		return p.UnitWeight
	}
	return types.MustMoney("1")
}

// EffectiveNetWeight returns the net weight, or 1 when it is not configured.
func (p *Product) EffectiveNetWeight() types.Money {
	if p.NetWeight.IsPositive() {
		return p.NetWeight
	}
	return types.MustMoney("1")
}

// ApplyUnitWeightFactor returns the multiplier applied to a sold quantity
// before it is persisted on an order item. Only each-products scale.
func (p *Product) ApplyUnitWeightFactor() types.Money {
	if p.UnitOfMeasure.IsEach() && p.IsApplyUnitWeight && p.UnitWeight.IsPositive() {
		return p.UnitWeight
	}
	return types.MustMoney("1")
}

// ItemCategory groups products for tax and purchase-limit purposes.
type ItemCategory struct {
	ID                int64  `db:"id" json:"id"`
	DispensaryID      int64  `db:"dispensary_id" json:"dispensaryId"`
	Name              string `db:"name" json:"name"`
	ContainMj         bool   `db:"contain_mj" json:"containMj"`
	PurchaseLimitType string `db:"purchase_limit_type" json:"purchaseLimitType"`
}

// MjType returns the classifier inherited by items of this category.
func (c *ItemCategory) MjType() MjType {
	if c.ContainMj {
		return MjTypeMJ
	}
	return MjTypeNMJ
}

// PurchaseLimit is a per-dispensary cap for one limit type.
type PurchaseLimit struct {
	ID           int64            `db:"id" json:"id"`
	DispensaryID int64            `db:"dispensary_id" json:"dispensaryId"`
	LimitType    string           `db:"purchase_limit_type" json:"purchaseLimitType"`
	LimitAmount  types.Money      `db:"limit_amount" json:"limitAmount"`
	LimitUnit    units.Unit       `db:"limit_unit" json:"limitUnit"`
	LimitWeight  LimitWeightBasis `db:"limit_weight" json:"limitWeight"`
}

// Validate implements Validatable.
func (l *PurchaseLimit) Validate() error {
	if l.LimitType == "" {
		return apperror.NewValidation("purchase limit type is required").WithDetail("field", "purchaseLimitType")
	}
	if !l.LimitUnit.Valid() {
		return apperror.NewValidation("unknown unit " + string(l.LimitUnit)).WithDetail("field", "limitUnit")
	}
	switch l.LimitWeight {
	case LimitByUnitWeight, LimitByNetWeight:
	default:
		return apperror.NewValidation("unknown limit weight " + string(l.LimitWeight)).WithDetail("field", "limitWeight")
	}
	return requireNonNegative("limitAmount", l.LimitAmount)
}

// Customer is a registered patient or shopper.
type Customer struct {
	ID             int64       `db:"id" json:"id"`
	DispensaryID   int64       `db:"dispensary_id" json:"dispensaryId"`
	Name           string      `db:"name" json:"name"`
	MedicalLicense string      `db:"medical_license" json:"medicalLicense"`
	IsTaxExempt    bool        `db:"is_tax_exempt" json:"isTaxExempt"`
	LoyaltyPoints  types.Money `db:"loyalty_points" json:"loyaltyPoints"`
}

// Dispensary is a licensed store.
type Dispensary struct {
	ID                    int64  `db:"id" json:"id"`
	OrganizationID        int64  `db:"organization_id" json:"organizationId"`
	Name                  string `db:"name" json:"name"`
	CannabisLicense       string `db:"cannabis_license" json:"cannabisLicense"`
	StateOfUsa            string `db:"state_of_usa" json:"stateOfUsa"`
	MetrcAPIKey           string `db:"metrc_api_key" json:"-"`
	MetrcConnectionStatus bool   `db:"metrc_connection_status" json:"metrcConnectionStatus"`
}

// MetrcConnected reports whether the dispensary reports to the regulator.
func (d *Dispensary) MetrcConnected() bool {
	return d.MetrcConnectionStatus && d.MetrcAPIKey != ""
}

// Drawer is a cash register session.
type Drawer struct {
	ID           int64 `db:"id" json:"id"`
	DispensaryID int64 `db:"dispensary_id" json:"dispensaryId"`
	UserID       int64 `db:"user_id" json:"userId"`
	IsUsing      bool  `db:"is_using" json:"isUsing"`
	Timestamps
}
