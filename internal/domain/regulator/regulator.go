// Package regulator describes the state traceability API consumed by the
// order and compliance services.
package regulator

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cannapos/internal/core/entity"
)

// Credentials identify a dispensary to the regulator.
type Credentials struct {
	DispensaryID int64
	APIKey       string
	License      string
	State        string
}

// CredentialsFor builds credentials from a dispensary record.
func CredentialsFor(d *entity.Dispensary) Credentials {
	return Credentials{
		DispensaryID: d.ID,
		APIKey:       d.MetrcAPIKey,
		License:      d.CannabisLicense,
		State:        d.StateOfUsa,
	}
}

// PackageKind selects the active or inactive package listing.
type PackageKind string

const (
	PackagesActive   PackageKind = "active"
	PackagesInactive PackageKind = "inactive"
)

// RemoteItem is the item block of a regulator package.
type RemoteItem struct {
	Name                string `json:"Name"`
	ProductCategoryName string `json:"ProductCategoryName"`
}

// RemotePackage is a package as listed by the regulator.
type RemotePackage struct {
	ID                      int64           `json:"Id"`
	Label                   string          `json:"Label"`
	Quantity                decimal.Decimal `json:"Quantity"`
	UnitOfMeasureName       string          `json:"UnitOfMeasureName"`
	OriginalPackageQuantity decimal.Decimal `json:"OriginalPackageQuantity"`
	Item                    RemoteItem      `json:"Item"`
	IsOnHold                bool            `json:"IsOnHold"`
	IsFinished              bool            `json:"IsFinished"`
	FinishedDate            *string         `json:"FinishedDate"`
	LastModified            *time.Time      `json:"LastModified"`
}

// Status maps regulator flags onto a package status.
func (p RemotePackage) Status() entity.PackageStatus {
	switch {
	case p.IsOnHold:
		return entity.PackageHold
	case p.IsFinished || p.FinishedDate != nil:
		return entity.PackageFinished
	default:
		return entity.PackageActive
	}
}

// Adjustment is one inventory adjustment sent to the regulator.
type Adjustment struct {
	Label            string          `json:"Label"`
	Quantity         decimal.Decimal `json:"Quantity"`
	UnitOfMeasure    string          `json:"UnitOfMeasure"`
	AdjustmentReason string          `json:"AdjustmentReason"`
	AdjustmentDate   string          `json:"AdjustmentDate"`
	ReasonNote       string          `json:"ReasonNote"`
}

// FinishRequest finishes one package.
type FinishRequest struct {
	Label      string `json:"Label"`
	ActualDate string `json:"ActualDate"`
}

// UnfinishRequest reopens one package.
type UnfinishRequest struct {
	Label string `json:"Label"`
}

// ReceiptTransaction is one line of a sales receipt.
type ReceiptTransaction struct {
	PackageLabel  string          `json:"PackageLabel"`
	Quantity      decimal.Decimal `json:"Quantity"`
	UnitOfMeasure string          `json:"UnitOfMeasure"`
	TotalAmount   decimal.Decimal `json:"TotalAmount"`

	UnitThcPercent              *string `json:"UnitThcPercent"`
	UnitThcContent              *string `json:"UnitThcContent"`
	UnitThcContentUnitOfMeasure *string `json:"UnitThcContentUnitOfMeasure"`
	UnitWeight                  *string `json:"UnitWeight"`
	UnitWeightUnitOfMeasure     *string `json:"UnitWeightUnitOfMeasure"`
	InvoiceNumber               *string `json:"InvoiceNumber"`
	Price                       *string `json:"Price"`
	ExciseTax                   *string `json:"ExciseTax"`
	CityTax                     *string `json:"CityTax"`
	CountyTax                   *string `json:"CountyTax"`
	MunicipalTax                *string `json:"MunicipalTax"`
	DiscountAmount              *string `json:"DiscountAmount"`
	SubTotal                    *string `json:"SubTotal"`
	SalesTax                    *string `json:"SalesTax"`
}

// Receipt is a sales receipt reported for a paid order.
type Receipt struct {
	SalesDateTime                 string               `json:"SalesDateTime"`
	SalesCustomerType             string               `json:"SalesCustomerType"`
	PatientLicenseNumber          string               `json:"PatientLicenseNumber"`
	CaregiverLicenseNumber        *string              `json:"CaregiverLicenseNumber"`
	IdentificationMethod          *string              `json:"IdentificationMethod"`
	PatientRegistrationLocationID *string              `json:"PatientRegistrationLocationId"`
	Transactions                  []ReceiptTransaction `json:"Transactions"`
}

// ReceiptResult is the outcome of posting a receipt.
type ReceiptResult struct {
	Status int
	ID     int64
}

// Client is the regulator API. Write calls return the HTTP status; only
// transport failures are returned as errors.
type Client interface {
	// ListPackages returns every page modified since lastModifiedStart.
	// Failures degrade to an empty result.
	ListPackages(ctx context.Context, creds Credentials, kind PackageKind, lastModifiedStart string) []RemotePackage
	Adjust(ctx context.Context, creds Credentials, adjustments []Adjustment) (int, error)
	Finish(ctx context.Context, creds Credentials, reqs []FinishRequest) (int, error)
	Unfinish(ctx context.Context, creds Credentials, reqs []UnfinishRequest) (int, error)
	PostReceipt(ctx context.Context, creds Credentials, receipt Receipt) (ReceiptResult, error)
	DeleteReceipt(ctx context.Context, creds Credentials, receiptID int64) (int, error)
}

// OK reports whether status is a success.
func OK(status int) bool { return status == http.StatusOK }
