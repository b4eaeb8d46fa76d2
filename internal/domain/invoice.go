package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is an opaque mapping of item attributes. It is only ever appended.
type LineItem map[string]any

// Invoice is the assembled invoice entity.
type Invoice struct {
	InvoiceNumber   string         `json:"invoice_number"`
	SupplierName    string         `json:"supplier_name,omitempty"`
	SoldToAddress   string         `json:"sold_to_address,omitempty"`
	OrderDate       string         `json:"order_date,omitempty"`
	ShipDate        string         `json:"ship_date,omitempty"`
	ShippingAddress string         `json:"shipping_address,omitempty"`
	Total           float64        `json:"total"`
	Items           []LineItem     `json:"items"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

// Clone returns a copy whose item slice and attribute map are not shared.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append([]LineItem(nil), inv.Items...)
	if inv.Items != nil && out.Items == nil {
		out.Items = []LineItem{}
	}
	if inv.Attributes != nil {
		out.Attributes = make(map[string]any, len(inv.Attributes))
		for k, v := range inv.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Record is one extracted record: all or part of a single invoice.
// HasTotal is set only when the source carried a parseable, non-zero total.
type Record struct {
	Invoice
	HasTotal bool `json:"has_total"`
}

// ItemTemplateKeys lists the line-item fields requested from the model, in prompt order.
var ItemTemplateKeys = []string{
	"Item Number",
	"Item Name",
	"Product Category",
	"Quantity Shipped",
	"Extended Price",
	"Quantity In a Case",
	"Measurement Of Each Item",
	"Measured In",
	"Total Units Ordered",
	"Case Price",
	"Catch Weight",
	"Priced By",
	"Splitable",
	"Split Price",
	"Cost of a Unit",
	"Currency",
	"Cost of Each Item",
}

type recordField int

const (
	fieldInvoiceNumber recordField = iota
	fieldTotal
	fieldItems
	fieldSupplierName
	fieldSoldToAddress
	fieldOrderDate
	fieldShipDate
	fieldShippingAddress
)

// Aliases are normalized keys in priority order.
var recordFieldAliases = []struct {
	field   recordField
	aliases []string
}{
	{fieldInvoiceNumber, []string{"invoicenumber", "invoiceno", "invoiceid", "invoicenum", "invoice"}},
	{fieldTotal, []string{"total", "totalamount", "amountdue", "invoicetotal", "grandtotal"}},
	{fieldItems, []string{"listofitems", "items", "lineitems"}},
	{fieldSupplierName, []string{"suppliername", "vendor", "vendorname", "supplier"}},
	{fieldSoldToAddress, []string{"soldtoaddress", "billto", "billtoaddress"}},
	{fieldOrderDate, []string{"orderdate"}},
	{fieldShipDate, []string{"shipdate", "deliverydate"}},
	{fieldShippingAddress, []string{"shippingaddress", "shipto", "shiptoaddress"}},
}

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		switch r {
		case ' ', '_', '-', '#', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RecordFromMap converts a recovered JSON object into a Record. The boolean is
// false when the object carries none of the recognized invoice fields; callers
// treat that as an empty record.
func RecordFromMap(m map[string]any) (Record, bool) {
	var rec Record
	if len(m) == 0 {
		return rec, false
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// first (lexicographically smallest) original key wins a normalized collision
	byNorm := make(map[string]string, len(keys))
	for _, k := range keys {
		n := normalizeKey(k)
		if _, seen := byNorm[n]; !seen {
			byNorm[n] = k
		}
	}

	consumed := make(map[string]bool)
	recognized := false
	for _, fa := range recordFieldAliases {
		for _, alias := range fa.aliases {
			orig, ok := byNorm[alias]
			if !ok {
				continue
			}
			consumed[orig] = true
			recognized = true
			assignField(&rec, fa.field, m[orig])
			break
		}
	}
	if !recognized {
		return Record{}, false
	}

	for _, k := range keys {
		if consumed[k] {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes[k] = m[k]
	}
	if rec.Items == nil {
		rec.Items = []LineItem{}
	}
	return rec, true
}

func assignField(rec *Record, f recordField, v any) {
	switch f {
	case fieldInvoiceNumber:
		rec.InvoiceNumber = FormatValue(v)
	case fieldTotal:
		if total, ok := ParseAmount(v); ok && total != 0 {
			rec.Total = total
			rec.HasTotal = true
		}
	case fieldItems:
		rec.Items = itemsFrom(v)
	case fieldSupplierName:
		rec.SupplierName = FormatValue(v)
	case fieldSoldToAddress:
		rec.SoldToAddress = FormatValue(v)
	case fieldOrderDate:
		rec.OrderDate = FormatValue(v)
	case fieldShipDate:
		rec.ShipDate = FormatValue(v)
	case fieldShippingAddress:
		rec.ShippingAddress = FormatValue(v)
	}
}

func itemsFrom(v any) []LineItem {
	switch t := v.(type) {
	case []any:
		items := make([]LineItem, 0, len(t))
		for _, el := range t {
			if obj, ok := el.(map[string]any); ok {
				items = append(items, LineItem(obj))
			}
		}
		return items
	case map[string]any:
		return []LineItem{LineItem(t)}
	}
	return nil
}

// FormatValue renders a decoded JSON value as display text. Numbers keep
// their decoded form and objects or arrays are re-encoded as JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// amountToken matches one number: either comma-grouped thousands or plain
// digits, with an optional sign and fraction.
var amountToken = regexp.MustCompile(`-?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`)

// ParseAmount reads a monetary amount from a decoded JSON value. A string must
// hold exactly one number, optionally with a currency symbol or code and
// thousands separators ("$1,234.50", "12 USD"); text with several numbers is
// rejected rather than guessed at.
func ParseAmount(v any) (float64, bool) {
	var d decimal.Decimal
	switch t := v.(type) {
	case json.Number:
		parsed, err := decimal.NewFromString(t.String())
		if err != nil {
			return 0, false
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case string:
		tokens := amountToken.FindAllString(t, -1)
		if len(tokens) != 1 {
			return 0, false
		}
		parsed, err := decimal.NewFromString(strings.ReplaceAll(tokens[0], ",", ""))
		if err != nil {
			return 0, false
		}
		d = parsed
	default:
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
