package order

import (
	"strings"
	"time"

	"cannapos/internal/core/entity"
	"cannapos/internal/domain/regulator"
	"cannapos/internal/domain/totals"
)

// SalesDateTimeLayout is the regulator's local sales timestamp format.
const SalesDateTimeLayout = "2006-01-02T15:04:05.000"

// BuildReceipt renders the regulator receipt of an order. Only MJ lines
// are reported. units maps package labels to their unit of measure.
func BuildReceipt(
	o *entity.Order,
	customer *entity.Customer,
	items []*entity.OrderItem,
	taxes []entity.TaxHistory,
	units map[string]string,
	loc *time.Location,
) regulator.Receipt {
	license := ""
	if customer != nil {
		license = strings.ToUpper(customer.MedicalLicense)
	}

	taxByItem := totals.TaxByItem(taxes)
	transactions := make([]regulator.ReceiptTransaction, 0, len(items))
	for _, item := range items {
		if !item.IsRegulated() {
			continue
		}
		transactions = append(transactions, regulator.ReceiptTransaction{
			PackageLabel:  item.PackageLabel,
			Quantity:      item.Quantity,
			UnitOfMeasure: units[item.PackageLabel],
			TotalAmount:   totals.ItemNet(item, taxByItem[item.ID]),
		})
	}

	return regulator.Receipt{
		SalesDateTime:        o.CreatedAt.In(loc).Format(SalesDateTimeLayout),
		SalesCustomerType:    "Patient",
		PatientLicenseNumber: license,
		Transactions:         transactions,
	}
}
