package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type marotoRenderer struct{}

func New() Renderer {
	return &marotoRenderer{}
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func addHeader(m core.Maroto, h Header, title string) {
	m.AddRow(12,
		text.NewCol(8, h.CompanyName, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)
	if h.CompanyAddress != "" {
		m.AddRow(8, text.NewCol(12, h.CompanyAddress, props.Text{Size: 9}))
	}
	m.AddRow(4, line.NewCol(12))
}

func addPair(m core.Maroto, label, value string) {
	m.AddRow(6,
		text.NewCol(4, label, props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(8, value, props.Text{Size: 9}),
	)
}

func addLines(m core.Maroto, title string, lines []Line, currency string) {
	m.AddRow(8, text.NewCol(12, title, props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}))
	for _, l := range lines {
		m.AddRow(6,
			text.NewCol(8, l.Label, props.Text{Size: 9}),
			text.NewCol(4, withCurrency(currency, l.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTotal(m core.Maroto, label, amount, currency string, bold bool) {
	style := props.Text{Size: 9, Align: align.Right}
	if bold {
		style.Style = fontstyle.Bold
	}
	m.AddRow(6,
		col.New(4),
		text.NewCol(4, label, props.Text{Size: 9, Style: style.Style}),
		text.NewCol(4, withCurrency(currency, amount), style),
	)
}

func withCurrency(currency, amount string) string {
	if currency == "" || amount == "" {
		return amount
	}
	return currency + " " + amount
}

func (r *marotoRenderer) RenderBill(ctx context.Context, doc BillDocument) ([]byte, error) {
	m := newDocument()
	addHeader(m, doc.Header, "Bill")

	addPair(m, "Bill", doc.BillID)
	addPair(m, "Period", doc.Period)
	addPair(m, "Issued", doc.IssueDate)
	addPair(m, "Due", doc.DueDate)
	addPair(m, "Status", doc.Status)
	addPair(m, "House", doc.HouseNumber)
	addPair(m, "Owner", doc.OwnerName)
	if doc.Mohalla != "" {
		addPair(m, "Mohalla", doc.Mohalla)
	}
	if doc.MeterNumber != "" {
		addPair(m, "Meter", doc.MeterNumber)
	}

	if len(doc.Meter) > 0 {
		m.AddRow(8, text.NewCol(12, "Meter readings", props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}))
		for _, l := range doc.Meter {
			addPair(m, l.Label, l.Amount)
		}
	}

	addLines(m, "Bill 1: electricity", doc.Bill1, doc.Currency)
	addTotal(m, "Amount", doc.Bill1Standard, doc.Currency, false)
	addTotal(m, "After due date", doc.Bill1Penalty, doc.Currency, false)

	addLines(m, "Bill 2: property and water", doc.Bill2, doc.Currency)
	addTotal(m, "Amount", doc.Bill2Standard, doc.Currency, false)
	addTotal(m, "After due date", doc.Bill2Penalty, doc.Currency, false)

	m.AddRow(4, line.NewCol(12))
	addTotal(m, "Total payable", doc.TotalStandard, doc.Currency, true)
	addTotal(m, "Total after due date", doc.TotalPenalty, doc.Currency, true)
	if doc.AmountPaid != "" {
		addTotal(m, "Paid", doc.AmountPaid, doc.Currency, false)
	}
	if doc.PenaltyNote != "" {
		m.AddRow(10, text.NewCol(12, doc.PenaltyNote, props.Text{Size: 8, Top: 3}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render bill %s: %w", doc.BillID, err)
	}
	return out.GetBytes(), nil
}

func (r *marotoRenderer) RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	m := newDocument()
	addHeader(m, doc.Header, "Receipt")

	addPair(m, "Receipt", doc.ReceiptNumber)
	addPair(m, "Paid on", doc.PaidAt)
	addPair(m, "Bill period", doc.BillPeriod)
	addPair(m, "House", doc.HouseNumber)
	addPair(m, "Owner", doc.OwnerName)
	addPair(m, "Method", doc.Method)
	if doc.Reference != "" {
		addPair(m, "Reference", doc.Reference)
	}

	m.AddRow(4, line.NewCol(12))
	addTotal(m, "Amount received", doc.Amount, doc.Currency, true)
	addTotal(m, "Bill status", doc.StatusAfter, "", false)
	if doc.Outstanding != "" {
		addTotal(m, "Outstanding", doc.Outstanding, doc.Currency, false)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", doc.ReceiptNumber, err)
	}
	return out.GetBytes(), nil
}
