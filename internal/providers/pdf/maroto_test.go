package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBillProducesPDF(t *testing.T) {
	out, err := New().RenderBill(context.Background(), BillDocument{
		Header:        Header{CompanyName: "Utility Office", Currency: "INR"},
		BillID:        "1",
		Period:        "2024-05",
		Bill1:         []Line{{Label: "Fixed charge", Amount: "100.00"}},
		Bill1Standard: "100.00",
		Bill1Penalty:  "101.50",
		TotalStandard: "100.00",
		TotalPenalty:  "101.50",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderReceiptProducesPDF(t *testing.T) {
	out, err := New().RenderReceipt(context.Background(), ReceiptDocument{
		Header:        Header{CompanyName: "Utility Office"},
		ReceiptNumber: "01HZX",
		Amount:        "50.00",
		StatusAfter:   "PARTIALLY_PAID",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
