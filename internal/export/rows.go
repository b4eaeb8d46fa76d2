package export

import (
	"sort"
	"strconv"

	"invoxtract/internal/domain"
)

// headerColumns are the invoice-level columns repeated on every item row.
var headerColumns = []string{
	"Invoice Number",
	"Supplier Name",
	"Sold to Address",
	"Order Date",
	"Ship Date",
	"Shipping Address",
	"Total",
}

// Columns returns the header row for a set of invoices: invoice fields, the
// item template keys, then any other item keys in sorted order.
func Columns(invoices []domain.Invoice) []string {
	known := make(map[string]bool, len(domain.ItemTemplateKeys))
	for _, k := range domain.ItemTemplateKeys {
		known[k] = true
	}

	extraSet := make(map[string]bool)
	for _, inv := range invoices {
		for _, item := range inv.Items {
			for k := range item {
				if !known[k] {
					extraSet[k] = true
				}
			}
		}
	}
	extra := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	cols := make([]string, 0, len(headerColumns)+len(known)+len(extra))
	cols = append(cols, headerColumns...)
	cols = append(cols, domain.ItemTemplateKeys...)
	return append(cols, extra...)
}

// row is one exported line: the invoice header plus one item (nil for an
// invoice without items).
type row struct {
	inv  *domain.Invoice
	item domain.LineItem
}

func rows(invoices []domain.Invoice) []row {
	var out []row
	for i := range invoices {
		inv := &invoices[i]
		if len(inv.Items) == 0 {
			out = append(out, row{inv: inv})
			continue
		}
		for _, item := range inv.Items {
			out = append(out, row{inv: inv, item: item})
		}
	}
	return out
}

// values returns the raw cell values for cols. Header fields are strings
// except Total; item values keep their decoded type.
func (r row) values(cols []string) []any {
	out := make([]any, len(cols))
	out[0] = r.inv.InvoiceNumber
	out[1] = r.inv.SupplierName
	out[2] = r.inv.SoldToAddress
	out[3] = r.inv.OrderDate
	out[4] = r.inv.ShipDate
	out[5] = r.inv.ShippingAddress
	out[6] = r.inv.Total
	for i := len(headerColumns); i < len(cols); i++ {
		out[i] = r.item[cols[i]]
	}
	return out
}

// Rows renders invoices as text rows matching Columns, one row per line item.
func Rows(invoices []domain.Invoice) [][]string {
	cols := Columns(invoices)
	rs := rows(invoices)
	out := make([][]string, len(rs))
	for i, r := range rs {
		vals := r.values(cols)
		line := make([]string, len(vals))
		for j, v := range vals {
			line[j] = domain.FormatValue(v)
		}
		line[6] = formatMoney(r.inv.Total)
		out[i] = line
	}
	return out
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
