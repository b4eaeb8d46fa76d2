package extractor

import (
	"encoding/json"
	"strings"

	"invoxtract/internal/domain"
)

// SystemPrompt frames the model as a wholesale invoice analyst.
const SystemPrompt = `You are an invoice analysis assistant specialised in wholesale food-service and produce invoices.
Extract structured data exactly as printed, keep every field consistent across the document, apply the
validation and default rules you are given, and calculate derived values precisely.
Extract every line item, including items that appear more than once.`

// outputTemplate is rendered into the prompt so the model mirrors its keys exactly.
func outputTemplate() string {
	item := make(map[string]any, len(domain.ItemTemplateKeys))
	for _, k := range domain.ItemTemplateKeys {
		item[k] = ""
	}
	for _, k := range []string{"Quantity Shipped", "Extended Price", "Quantity In a Case",
		"Measurement Of Each Item", "Total Units Ordered", "Cost of a Unit", "Cost of Each Item"} {
		item[k] = 1.0
	}
	item["Case Price"] = 0
	item["Split Price"] = "N/A"

	tmpl := map[string]any{
		"Supplier Name":    "",
		"Sold to Address":  "",
		"Order Date":       "",
		"Ship Date":        "",
		"Invoice Number":   "",
		"Shipping Address": "",
		"Total":            0,
		"List of Items":    []any{item},
	}
	b, _ := json.MarshalIndent(tmpl, "", "  ")
	return string(b)
}

// BuildInvoicePrompt returns the extraction instructions followed by one chunk of page text.
func BuildInvoicePrompt(chunkText string) string {
	var b strings.Builder
	b.WriteString(`INVOICE EXTRACTION INSTRUCTIONS

1. HEADER FIELDS
- Supplier Name: look for "Vendor:", "Supplier:", "From:", "Sold By:". Use the first name found, verbatim.
- Sold to Address: look for "Sold To:", "Bill To:", "Customer:". Full address including street, city, state and ZIP.
- Order Date: look for "Order Date:", "Date Ordered:", "PO Date:". Format YYYY-MM-DD.
- Ship Date: look for "Ship Date:", "Delivery Date:", "Shipped:". Format YYYY-MM-DD.
- Invoice Number: look for "Invoice #", "Invoice No", "Invoice Number", "Invoice ID". Keep every character and all leading zeros.
- Shipping Address: look for "Ship To:", "Deliver To:", "Destination:". Full delivery address.
- Total: look for "Total:", "Amount Due:", "Balance Due:". Include tax if listed, round to 2 decimals.

2. LINE ITEMS
Extract every item, even exact duplicates. For each item:
- Item Number: "Product Code", "Item Number", "SKU", "UPC". Keep the full identifier with leading zeros.
- Item Name: "Description", "Product", "Item". Full description including any size.
- Product Category: one of PRODUCE, DAIRY, MEAT, SEAFOOD, Beverages, Dry Grocery, BAKERY, FROZEN,
  paper goods and Disposables, liquor, Chemical, OTHER.
- Quantity Shipped: "Qty", "Quantity", "Shipped". Positive; default 1.
- Quantity In a Case: "Units/Case", "Pack Size", "Case Pack". "24/12oz" means 24, "2/12ct" means 24. Default 1.
- Measurement Of Each Item: "Size", "Weight", "Volume", or from the description ("5 LB BAG" is 5).
- Measured In: normalise to pounds, ounces, kilos, grams, each, case, dozen, pack, bundle, gallons, quarts,
  pints, fluid_ounces, liters, milliliters, cans, jars, bottles, containers, tubs, bags, bunch, head,
  basket, crate or carton.
- Total Units Ordered: Measurement Of Each Item * Quantity In a Case * Quantity Shipped.
- Extended Price: "Ext Price", "Total", "Amount". Equals Case Price * Quantity Shipped.
- Case Price: the unit price column.
- Cost of a Unit: Extended Price / Total Units Ordered.
- Currency: default "USD".
- Cost of Each Item: Cost of a Unit * Measurement Of Each Item; "N/A" if it cannot be derived.
- Catch Weight: "YES" when the item number repeats the previous item with a different quantity, else "N/A".
- Priced By: "per pound", "per case", "per each", "per dozen" or "per Ounce", following Measured In.
- Splitable: "YES" only when the invoice says so; "NO" for bulk-only or single-unit items.
- Split Price: Case Price / Quantity In a Case when Splitable is "YES", otherwise "N/A".

3. VALIDATION
- Quantities and prices are positive; Total matches the sum of the line items.
- Required: Supplier Name, Invoice Number, Total, Item Name, Extended Price.
- Defaults: Quantity 1.0, Currency "USD", Split Price "N/A", Product Category "OTHER".

OUTPUT FORMAT
Return a JSON array with one object per invoice, each matching this template:
`)
	b.WriteString(outputTemplate())
	b.WriteString("\n\nINVOICE TEXT TO PROCESS:\n")
	b.WriteString(chunkText)
	b.WriteString("\n")
	return b.String()
}
