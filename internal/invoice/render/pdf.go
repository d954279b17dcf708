package render

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type Renderer interface {
	Render(s Snapshot) ([]byte, error)
}

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(s Snapshot) ([]byte, error) {
	layout := BuildLayout(s)

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, layout.Header.BusinessName, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(16,
		col.New(6).Add(
			text.New(layout.Header.Address, props.Text{Size: 9}),
			text.New(taxIDLine(layout.Header.TaxID), props.Text{Size: 9, Top: 5}),
		),
		col.New(6).Add(
			text.New("Number: "+layout.Meta.Number, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+layout.Meta.Date, props.Text{Size: 9, Align: align.Right, Top: 4}),
			text.New(dueLine(layout.Meta.DueDate), props.Text{Size: 9, Align: align.Right, Top: 8}),
			text.New("Status: "+layout.Meta.Status, props.Text{Size: 9, Align: align.Right, Top: 12}),
		),
	)

	m.AddRow(18,
		col.New(12).Add(
			text.New("Bill to", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}),
			text.New(layout.Billing.ClientName, props.Text{Size: 9, Top: 9}),
			text.New(layout.Billing.ClientEmail, props.Text{Size: 9, Top: 13}),
		),
	)

	header := props.Text{Size: 9, Style: fontstyle.Bold}
	headerRight := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	m.AddRow(8,
		text.NewCol(5, layout.Table.Columns[0], header),
		text.NewCol(1, layout.Table.Columns[1], headerRight),
		text.NewCol(2, layout.Table.Columns[2], headerRight),
		text.NewCol(2, layout.Table.Columns[3], headerRight),
		text.NewCol(2, layout.Table.Columns[4], headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, row := range layout.Table.Rows {
		m.AddRow(7,
			text.NewCol(5, row.Description, cell),
			text.NewCol(1, row.Quantity, cellRight),
			text.NewCol(2, row.Rate, cellRight),
			text.NewCol(2, row.TaxPercent, cellRight),
			text.NewCol(2, row.Total, cellRight),
		)
	}

	summaryLabel := props.Text{Size: 9}
	m.AddRow(7, col.New(7), text.NewCol(2, "Subtotal", summaryLabel), text.NewCol(3, layout.Summary.Subtotal, cellRight))
	m.AddRow(7, col.New(7), text.NewCol(2, "Tax", summaryLabel), text.NewCol(3, layout.Summary.Tax, cellRight))
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(3, layout.Summary.Total, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func taxIDLine(taxID string) string {
	if taxID == "" {
		return ""
	}
	return "Tax ID: " + taxID
}

func dueLine(due string) string {
	if due == "" {
		return ""
	}
	return "Due: " + due
}
