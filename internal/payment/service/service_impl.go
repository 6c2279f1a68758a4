package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/events"
	"github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"github.com/smallbiznis/utilitybill/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/utilitybill/internal/payment/domain"
	"github.com/smallbiznis/utilitybill/internal/providers/pdf"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Repo     paymentdomain.Repository
	BillRepo billdomain.Repository
	Outbox   events.Recorder
	Billing  *config.BillingConfigHolder
	Renderer pdf.Renderer
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	repo     paymentdomain.Repository
	billRepo billdomain.Repository
	outbox   events.Recorder
	billing  *config.BillingConfigHolder
	renderer pdf.Renderer
	metrics  *metrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
		billRepo: p.BillRepo,
		outbox:   p.Outbox,
		billing:  p.Billing,
		renderer: p.Renderer,
		metrics:  p.Metrics,
	}
}

type paymentEvent struct {
	PaymentID     string `json:"payment_id"`
	BillID        string `json:"bill_id"`
	HouseID       string `json:"house_id"`
	ReceiptNumber string `json:"receipt_number"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	StatusAfter   string `json:"status_after"`
	Outstanding   string `json:"outstanding"`
}

func (s *Service) Record(ctx context.Context, req paymentdomain.RecordRequest) (resp *paymentdomain.Response, err error) {
	billID, err := snowflake.ParseString(strings.TrimSpace(req.BillID))
	if err != nil || billID <= 0 {
		return nil, paymentdomain.ErrInvalidBill
	}
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}
	amount := billingrules.RoundMoney(*req.Amount)
	if !amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = paymentdomain.MethodCash
	}
	if !paymentdomain.IsMethod(method) {
		return nil, paymentdomain.ErrInvalidMethod
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db.WithContext(ctx), key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return toResponse(existing), nil
		}
	}

	ctx, span := tracing.StartSpan(ctx, "payment.record", attribute.String("bill.id", billID.String()))
	defer func() { tracing.EndSpan(span, err) }()

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}

	var (
		payment  *paymentdomain.Payment
		bill     *billdomain.Bill
		replayed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err = s.billRepo.FindByID(ctx, tx, billID, true)
		if err != nil {
			return err
		}
		if bill == nil {
			return paymentdomain.ErrBillNotFound
		}

		paid := bill.AmountPaid.Add(amount)
		outcome, err := s.billing.Get().Rules().ApplyPayment(bill.Record(), paid)
		if err != nil {
			return err
		}

		payment = &paymentdomain.Payment{
			ID:            s.genID.Generate(),
			BillID:        bill.ID,
			ReceiptNumber: ulid.Make().String(),
			Amount:        amount,
			Method:        method,
			Reference:     strings.TrimSpace(req.Reference),
			Notes:         strings.TrimSpace(req.Notes),
			PaidAt:        paidAt,
			StatusAfter:   outcome.Status,
			CreatedAt:     now,
		}
		if key != "" {
			payment.IdempotencyKey = &key
		}
		inserted, err := s.repo.Insert(ctx, tx, payment)
		if err != nil {
			return err
		}
		if !inserted {
			if key == "" {
				return errors.New("payment insert skipped")
			}
			// A concurrent request with the same key won.
			payment, err = s.repo.FindByIdempotencyKey(ctx, tx, key)
			if err != nil {
				return err
			}
			if payment == nil {
				return errors.New("payment insert skipped without a matching idempotency key")
			}
			replayed = true
			return nil
		}

		bill.AmountPaid = paid
		bill.Status = outcome.Status
		bill.Bill1Arrear = outcome.Bill1Arrear
		bill.Bill2Arrear = outcome.Bill2Arrear
		bill.Version++
		bill.UpdatedAt = now
		if outcome.Status == billingrules.StatusPaid {
			bill.PaidAt = &paidAt
		}
		if err := s.billRepo.Save(ctx, tx, bill); err != nil {
			return err
		}

		if err := s.outbox.Record(ctx, tx, events.EventPaymentRecorded, payment.ID, paymentEvent{
			PaymentID:     payment.ID.String(),
			BillID:        bill.ID.String(),
			HouseID:       bill.HouseID.String(),
			ReceiptNumber: payment.ReceiptNumber,
			Amount:        amount.StringFixed(2),
			Method:        method,
			StatusAfter:   string(outcome.Status),
			Outstanding:   outcome.Remaining.StringFixed(2),
		}); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "payment.record",
			TargetType: "bill",
			TargetID:   bill.ID.String(),
			Metadata: map[string]any{
				"payment_id":     payment.ID.String(),
				"receipt_number": payment.ReceiptNumber,
				"amount":         amount.StringFixed(2),
				"method":         method,
				"status_after":   string(outcome.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		return toResponse(payment), nil
	}

	s.metrics.RecordPayment(ctx, string(payment.StatusAfter), method)
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("bill_id", bill.ID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("status", string(payment.StatusAfter)),
	)
	return toResponse(payment), nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListRequest) (paymentdomain.ListResponse, error) {
	filter := paymentdomain.ListFilter{Limit: req.Size()}
	if raw := strings.TrimSpace(req.BillID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidBill
		}
		filter.BillID = id
	}
	if raw := strings.TrimSpace(req.HouseID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidHouse
		}
		filter.HouseID = id
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}
	filter.BeforeID = cursor.ID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(p *paymentdomain.Payment) int64 {
		return int64(p.ID)
	})

	resp := paymentdomain.ListResponse{PageInfo: pageInfo, Payments: make([]paymentdomain.Response, 0, len(items))}
	for _, item := range items {
		resp.Payments = append(resp.Payments, *toResponse(item))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*paymentdomain.Response, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(payment), nil
}

func (s *Service) Receipt(ctx context.Context, id string) (*paymentdomain.Receipt, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, err := s.billRepo.FindRegisterEntry(ctx, s.db, payment.BillID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, paymentdomain.ErrBillNotFound
	}

	cfg := s.billing.Get()
	outstanding := decimal.Zero
	if entry.Status != billingrules.StatusPaid {
		outstanding = entry.TotalPenalty.Sub(entry.AmountPaid)
	}
	body, err := s.renderer.RenderReceipt(ctx, pdf.ReceiptDocument{
		Header: pdf.Header{
			CompanyName:    cfg.CompanyName,
			CompanyAddress: cfg.CompanyAddress,
			Currency:       cfg.Currency,
		},
		ReceiptNumber: payment.ReceiptNumber,
		PaidAt:        payment.PaidAt.Format("02 Jan 2006"),
		BillPeriod:    entry.PeriodStart.Format("January 2006"),
		HouseNumber:   entry.HouseNumber,
		OwnerName:     entry.OwnerName,
		Amount:        payment.Amount.StringFixed(2),
		Method:        payment.Method,
		Reference:     payment.Reference,
		StatusAfter:   string(payment.StatusAfter),
		Outstanding:   outstanding.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	return &paymentdomain.Receipt{
		Filename:    "receipt-" + payment.ReceiptNumber + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func (s *Service) find(ctx context.Context, rawID string) (*paymentdomain.Payment, error) {
	id, err := paymentdomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func toResponse(p *paymentdomain.Payment) *paymentdomain.Response {
	return &paymentdomain.Response{
		ID:            p.ID.String(),
		BillID:        p.BillID.String(),
		ReceiptNumber: p.ReceiptNumber,
		Amount:        p.Amount,
		Method:        p.Method,
		Reference:     p.Reference,
		Notes:         p.Notes,
		PaidAt:        p.PaidAt,
		StatusAfter:   string(p.StatusAfter),
		CreatedAt:     p.CreatedAt,
	}
}
