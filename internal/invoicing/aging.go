package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Age groups outstanding invoices by days past their due date. Paid invoices are
// skipped and invoices without a due date count as current.
func Age(invoices []Invoice, asOf time.Time) AgingBucket {
	bucket := AgingBucket{
		Current:   decimal.Zero,
		Bucket30:  decimal.Zero,
		Bucket60:  decimal.Zero,
		Bucket90:  decimal.Zero,
		Bucket120: decimal.Zero,
	}
	for _, inv := range invoices {
		if inv.PaymentStatus == StatusPaid {
			continue
		}
		days := 0
		if inv.DueDate != nil {
			days = int(asOf.Sub(*inv.DueDate).Hours() / 24)
		}
		total := inv.Totals.Grand
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(total)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(total)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(total)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(total)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(total)
		}
	}
	return bucket
}
