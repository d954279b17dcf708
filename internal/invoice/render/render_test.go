package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/agencyflow/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshot(items []Item) Snapshot {
	mi := make([]money.LineItem, 0, len(items))
	for _, it := range items {
		mi = append(mi, money.LineItem{Quantity: it.Quantity, Rate: it.Rate, TaxPercent: it.TaxPercent})
	}
	totals := money.Compute(mi)
	due := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		InvoiceID: "123",
		Number:    "INV-20240601-000001",
		Status:    "SENT",
		IssuedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		DueAt:     &due,
		Currency:  "usd",
		Subtotal:  totals.Subtotal,
		Tax:       totals.Tax,
		Total:     totals.Total,
		Items:     items,
		Business:  Party{Name: "Pixel Studio", Address: "1 Main St", TaxID: "TX-9"},
		Client:    Party{Name: "Acme", Email: "billing@acme.test"},
	}
}

func TestBuildLayout(t *testing.T) {
	layout := BuildLayout(snapshot([]Item{
		{Description: "Design", Quantity: d("2"), Rate: d("100"), TaxPercent: d("10")},
		{Description: "Hosting", Quantity: d("1"), Rate: d("1500"), TaxPercent: d("0")},
	}))

	assert.Equal(t, "Pixel Studio", layout.Header.BusinessName)
	assert.Equal(t, "TX-9", layout.Header.TaxID)
	assert.Equal(t, "INV-20240601-000001", layout.Meta.Number)
	assert.Equal(t, "01 Jun 2024", layout.Meta.Date)
	assert.Equal(t, "30 Jun 2024", layout.Meta.DueDate)
	assert.Equal(t, "billing@acme.test", layout.Billing.ClientEmail)
	assert.Equal(t, []string{"Description", "Qty", "Rate", "Tax %", "Total"}, layout.Table.Columns)

	require.Len(t, layout.Table.Rows, 2)
	assert.Equal(t, "220.00", layout.Table.Rows[0].Total)
	assert.Equal(t, "1,500.00", layout.Table.Rows[1].Total)

	assert.Equal(t, "USD", layout.Summary.Currency)
	assert.Equal(t, "USD 1,700.00", layout.Summary.Subtotal)
	assert.Equal(t, "USD 20.00", layout.Summary.Tax)
	assert.Equal(t, "USD 1,720.00", layout.Summary.Total)
}

func TestRowTotalsMatchStoredTotal(t *testing.T) {
	items := []Item{
		{Description: "a", Quantity: d("3"), Rate: d("0.335"), TaxPercent: d("7.5")},
		{Description: "b", Quantity: d("1.5"), Rate: d("19.99"), TaxPercent: d("12.345")},
		{Description: "c", Quantity: d("7"), Rate: d("0.01"), TaxPercent: d("21")},
		{Description: "d", Quantity: d("2"), Rate: d("1234.565"), TaxPercent: d("0")},
	}
	s := snapshot(items)
	layout := BuildLayout(s)

	sum := decimal.Zero
	for _, row := range layout.Table.Rows {
		sum = sum.Add(row.RowTotal)
	}
	tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(items))))
	assert.True(t, sum.Sub(s.Total).Abs().LessThanOrEqual(tolerance), "rows %s total %s", sum, s.Total)
}

func TestPDFRendererProducesPDF(t *testing.T) {
	body, err := NewPDFRenderer().Render(snapshot([]Item{
		{Description: "Design", Quantity: d("2"), Rate: d("100"), TaxPercent: d("10")},
	}))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "invoice-123.pdf", Filename("123"))
}
