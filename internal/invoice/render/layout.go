// Package render turns a finalized invoice snapshot into a PDF.
//
// BuildLayout decides what goes on the page as plain data; PDFRenderer only
// places that data. Nothing here reads or writes state.
package render

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/agencyflow/internal/money"
)

const ContentType = "application/pdf"

const dateLayout = "02 Jan 2006"

// Snapshot is an invoice with its tenant and client display fields.
type Snapshot struct {
	InvoiceID string
	Number    string
	Status    string
	IssuedAt  time.Time
	DueAt     *time.Time
	Currency  string
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Items     []Item
	Business  Party
	Client    Party
}

type Item struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	TaxPercent  decimal.Decimal
}

type Party struct {
	Name    string
	Email   string
	Address string
	TaxID   string
}

type Layout struct {
	Header  Header
	Meta    Meta
	Billing Billing
	Table   Table
	Summary Summary
}

type Header struct {
	BusinessName string
	Address      string
	TaxID        string
}

type Meta struct {
	Number  string
	Date    string
	DueDate string
	Status  string
}

type Billing struct {
	ClientName  string
	ClientEmail string
}

type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one rendered line. RowTotal is rounded on its own, so the sum of
// rows may differ from the stored total by at most a cent per row.
type Row struct {
	Description string
	Quantity    string
	Rate        string
	TaxPercent  string
	Total       string
	RowTotal    decimal.Decimal
}

type Summary struct {
	Currency string
	Subtotal string
	Tax      string
	Total    string
}

var tableColumns = []string{"Description", "Qty", "Rate", "Tax %", "Total"}

func BuildLayout(s Snapshot) Layout {
	currency := money.NormalizeCurrency(s.Currency)

	rows := make([]Row, 0, len(s.Items))
	for _, item := range s.Items {
		rowTotal := money.RowTotal(money.LineItem{
			Quantity:   item.Quantity,
			Rate:       item.Rate,
			TaxPercent: item.TaxPercent,
		})
		rows = append(rows, Row{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        money.FormatAmount(item.Rate),
			TaxPercent:  item.TaxPercent.String() + "%",
			Total:       money.FormatAmount(rowTotal),
			RowTotal:    rowTotal,
		})
	}

	meta := Meta{
		Number: s.Number,
		Date:   s.IssuedAt.Format(dateLayout),
		Status: s.Status,
	}
	if s.DueAt != nil {
		meta.DueDate = s.DueAt.Format(dateLayout)
	}

	return Layout{
		Header: Header{
			BusinessName: s.Business.Name,
			Address:      s.Business.Address,
			TaxID:        s.Business.TaxID,
		},
		Meta: meta,
		Billing: Billing{
			ClientName:  s.Client.Name,
			ClientEmail: s.Client.Email,
		},
		Table: Table{
			Columns: append([]string(nil), tableColumns...),
			Rows:    rows,
		},
		Summary: Summary{
			Currency: currency,
			Subtotal: money.Format(s.Subtotal, currency),
			Tax:      money.Format(s.Tax, currency),
			Total:    money.Format(s.Total, currency),
		},
	}
}

// Filename is the download name of an invoice PDF.
func Filename(invoiceID string) string {
	return "invoice-" + invoiceID + ".pdf"
}
