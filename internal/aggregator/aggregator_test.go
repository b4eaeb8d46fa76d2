package aggregator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoxtract/internal/aggregator"
	"invoxtract/internal/domain"
)

func rec(number string, items ...domain.LineItem) domain.Record {
	return domain.Record{Invoice: domain.Invoice{InvoiceNumber: number, Items: items}}
}

func withTotal(r domain.Record, total float64) domain.Record {
	r.Total = total
	r.HasTotal = true
	return r
}

func TestIngest_ContinuationKeepsDuplicateItems(t *testing.T) {
	x := domain.LineItem{"Item Name": "Kale", "Quantity Shipped": 1}
	agg := aggregator.New()

	agg.Ingest(rec("100", x))
	agg.Ingest(rec("100", x))
	got := agg.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].InvoiceNumber)
	assert.Equal(t, []domain.LineItem{x, x}, got[0].Items)
}

func TestIngest_ContinuationPreservesOrder(t *testing.T) {
	x := domain.LineItem{"Item Name": "X"}
	y := domain.LineItem{"Item Name": "Y"}
	agg := aggregator.New()

	agg.Ingest(rec("100", x), rec("100", y))

	got := agg.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, []domain.LineItem{x, y}, got[0].Items)
}

func TestIngest_NewInvoiceBoundary(t *testing.T) {
	agg := aggregator.New()

	agg.Ingest(rec("100"))
	agg.Ingest(rec("200"))
	assert.Len(t, agg.Finalized(), 1)

	got := agg.Flush()
	require.Len(t, got, 2)
	assert.Equal(t, "100", got[0].InvoiceNumber)
	assert.Equal(t, "200", got[1].InvoiceNumber)
}

func TestIngest_ExactStringEquality(t *testing.T) {
	agg := aggregator.New()

	agg.Ingest(rec("0042"), rec("42"), rec("42 "))

	got := agg.Flush()
	require.Len(t, got, 3)
}

func TestIngest_TotalOverwrittenOnlyWhenPresent(t *testing.T) {
	agg := aggregator.New()

	agg.Ingest(withTotal(rec("7"), 10))
	agg.Ingest(rec("7"))
	cur, ok := agg.Current()
	require.True(t, ok)
	assert.InDelta(t, 10.0, cur.Total, 1e-9)

	agg.Ingest(withTotal(rec("7"), 25))
	cur, _ = agg.Current()
	assert.InDelta(t, 25.0, cur.Total, 1e-9)
}

func TestIngest_ContinuationKeepsOriginalHeader(t *testing.T) {
	agg := aggregator.New()
	first := rec("7")
	first.SupplierName = "Fresh Farms"
	second := rec("7")
	second.SupplierName = "Other"

	agg.Ingest(first, second)

	cur, _ := agg.Current()
	assert.Equal(t, "Fresh Farms", cur.SupplierName)
}

func TestIngest_ContinuationFillsBlankHeader(t *testing.T) {
	agg := aggregator.New()
	first := rec("7")
	first.OrderDate = "2024-03-01"
	first.Attributes = map[string]any{"Discount": 1}
	second := rec("7")
	second.SupplierName = "Fresh Farms"
	second.OrderDate = "2024-03-09"
	second.Attributes = map[string]any{"Tax": 3, "Discount": 9}

	agg.Ingest(first, second)
	got := agg.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, "Fresh Farms", got[0].SupplierName)
	assert.Equal(t, "2024-03-01", got[0].OrderDate)
	assert.Equal(t, map[string]any{"Discount": 1, "Tax": 3}, got[0].Attributes)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, aggregator.IsEmpty(domain.Record{}))
	assert.True(t, aggregator.IsEmpty(domain.Record{Invoice: domain.Invoice{Attributes: map[string]any{}}}))
	assert.False(t, aggregator.IsEmpty(rec("1")))
	assert.False(t, aggregator.IsEmpty(withTotal(rec(""), 0)))
	assert.False(t, aggregator.IsEmpty(domain.Record{Invoice: domain.Invoice{Attributes: map[string]any{"Tax": 3}}}))
}

func TestIngest_EmptyRecordIsNoop(t *testing.T) {
	agg := aggregator.New()

	agg.Ingest(domain.Record{})
	_, ok := agg.Current()
	assert.False(t, ok)

	agg.Ingest(rec("1"), domain.Record{}, rec("1", domain.LineItem{"a": 1}))
	got := agg.Flush()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 1)
}

func TestFlush_SingleInvoiceNeverDropped(t *testing.T) {
	agg := aggregator.New()
	for i := 0; i < 5; i++ {
		agg.Ingest(rec("555", domain.LineItem{"page": i}))
	}

	got := agg.Flush()

	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 5)
}

func TestFlush_EmptyAndRepeated(t *testing.T) {
	agg := aggregator.New()
	assert.Empty(t, agg.Flush())

	agg.Ingest(rec("1"))
	assert.Len(t, agg.Flush(), 1)
	assert.Len(t, agg.Flush(), 1)
	_, ok := agg.Current()
	assert.False(t, ok)
}

func TestFinalized_ReturnsCopies(t *testing.T) {
	agg := aggregator.New()
	agg.Ingest(rec("1", domain.LineItem{"a": 1}), rec("2"))

	snapshot := agg.Finalized()
	snapshot[0].Items = append(snapshot[0].Items, domain.LineItem{"b": 2})
	snapshot[0].InvoiceNumber = "mutated"

	again := agg.Finalized()
	assert.Equal(t, "1", again[0].InvoiceNumber)
	assert.Len(t, again[0].Items, 1)
}

func TestIngest_AdoptedRecordNotAliased(t *testing.T) {
	items := []domain.LineItem{{"a": 1}}
	r := rec("1", items...)
	agg := aggregator.New()

	agg.Ingest(r)
	agg.Ingest(rec("1", domain.LineItem{"b": 2}))

	assert.Len(t, r.Items, 1)
}

func TestIngest_SeparateInstancesDoNotShareState(t *testing.T) {
	a := aggregator.New()
	b := aggregator.New()

	a.Ingest(rec("1"))

	_, ok := b.Current()
	assert.False(t, ok)
}
