package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Renderer turns billing documents into PDF bytes.
type Renderer interface {
	RenderBill(ctx context.Context, doc BillDocument) ([]byte, error)
	RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error)
}

// Line is one labelled amount on a document. Amounts are preformatted.
type Line struct {
	Label  string
	Amount string
}

type Header struct {
	CompanyName    string
	CompanyAddress string
	Currency       string
}

type BillDocument struct {
	Header

	BillID    string
	Period    string
	IssueDate string
	DueDate   string
	Status    string

	HouseNumber string
	OwnerName   string
	Mohalla     string
	MeterNumber string

	// Meter is the reading summary, e.g. previous and current import.
	Meter []Line

	Bill1         []Line
	Bill1Standard string
	Bill1Penalty  string
	Bill2         []Line
	Bill2Standard string
	Bill2Penalty  string

	TotalStandard string
	TotalPenalty  string
	AmountPaid    string
	PenaltyNote   string
}

type ReceiptDocument struct {
	Header

	ReceiptNumber string
	PaidAt        string
	BillPeriod    string
	HouseNumber   string
	OwnerName     string
	Amount        string
	Method        string
	Reference     string
	StatusAfter   string
	Outstanding   string
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)
