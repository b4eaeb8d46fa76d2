package aggregator

import "invoxtract/internal/domain"

// Aggregator folds a page-ordered stream of records into invoices. Records that
// repeat the current invoice number continue it; any other record closes the
// current invoice and opens a new one. Line items are only ever appended.
//
// An Aggregator belongs to a single document and is not safe for concurrent use.
type Aggregator struct {
	current   *domain.Invoice
	finalized []domain.Invoice
}

// New returns an Aggregator with no current invoice.
func New() *Aggregator {
	return &Aggregator{}
}

// Ingest applies each record in order. Empty records are ignored.
func (a *Aggregator) Ingest(records ...domain.Record) {
	for i := range records {
		a.ingestOne(records[i])
	}
}

func (a *Aggregator) ingestOne(rec domain.Record) {
	if IsEmpty(rec) {
		return
	}

	if a.current != nil && a.current.InvoiceNumber == rec.InvoiceNumber {
		continueInvoice(a.current, rec)
		return
	}

	if a.current != nil {
		a.finalized = append(a.finalized, *a.current)
	}
	inv := rec.Invoice.Clone()
	if inv.Items == nil {
		inv.Items = []domain.LineItem{}
	}
	a.current = &inv
}

// Flush closes the current invoice, if any, and returns every finalized invoice.
func (a *Aggregator) Flush() []domain.Invoice {
	if a.current != nil {
		a.finalized = append(a.finalized, *a.current)
		a.current = nil
	}
	return a.Finalized()
}

// Current returns a copy of the invoice still open for merging.
func (a *Aggregator) Current() (domain.Invoice, bool) {
	if a.current == nil {
		return domain.Invoice{}, false
	}
	return a.current.Clone(), true
}

// Finalized returns copies of the closed invoices in order.
func (a *Aggregator) Finalized() []domain.Invoice {
	out := make([]domain.Invoice, len(a.finalized))
	for i := range a.finalized {
		out[i] = a.finalized[i].Clone()
	}
	return out
}

// continueInvoice merges a continuation record into cur. Items append and a
// present total overwrites. Header fields and attributes only fill blanks.
func continueInvoice(cur *domain.Invoice, rec domain.Record) {
	cur.Items = append(cur.Items, rec.Items...)
	if rec.HasTotal {
		cur.Total = rec.Total
	}

	fillBlank(&cur.SupplierName, rec.SupplierName)
	fillBlank(&cur.SoldToAddress, rec.SoldToAddress)
	fillBlank(&cur.OrderDate, rec.OrderDate)
	fillBlank(&cur.ShipDate, rec.ShipDate)
	fillBlank(&cur.ShippingAddress, rec.ShippingAddress)

	for k, v := range rec.Attributes {
		if cur.Attributes == nil {
			cur.Attributes = make(map[string]any, len(rec.Attributes))
		}
		if _, ok := cur.Attributes[k]; !ok {
			cur.Attributes[k] = v
		}
	}
}

func fillBlank(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// IsEmpty reports whether rec carries nothing the aggregator would keep.
func IsEmpty(rec domain.Record) bool {
	inv := rec.Invoice
	return inv.InvoiceNumber == "" &&
		!rec.HasTotal &&
		len(inv.Items) == 0 &&
		inv.SupplierName == "" &&
		inv.SoldToAddress == "" &&
		inv.OrderDate == "" &&
		inv.ShipDate == "" &&
		inv.ShippingAddress == "" &&
		len(inv.Attributes) == 0
}
