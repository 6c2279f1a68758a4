package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/providers/pdf"
	"github.com/smallbiznis/utilitybill/internal/providers/xlsx"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "02 Jan 2006"
)

func (s *Service) RenderPDF(ctx context.Context, id string) (*billdomain.Document, error) {
	billID, err := billdomain.ParseID(id)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindRegisterEntry(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, billdomain.ErrNotFound
	}
	if entry.Status == billingrules.StatusPending {
		return nil, billdomain.ErrNotGenerated
	}

	cfg := s.billing.Get()
	doc := pdf.BillDocument{
		Header:        header(cfg),
		BillID:        entry.ID.String(),
		Period:        entry.PeriodStart.Format("January 2006"),
		IssueDate:     formatDate(entry.GeneratedAt),
		DueDate:       formatDate(entry.DueDate),
		Status:        string(entry.Status),
		HouseNumber:   entry.HouseNumber,
		OwnerName:     entry.OwnerName,
		Mohalla:       entry.MohallaName,
		MeterNumber:   entry.ElectricityMeterNumber,
		Bill1Standard: money(entry.Bill1Standard),
		Bill1Penalty:  money(entry.Bill1Penalty),
		Bill2Standard: money(entry.Bill2Standard),
		Bill2Penalty:  money(entry.Bill2Penalty),
		TotalStandard: money(entry.TotalStandard),
		TotalPenalty:  money(entry.TotalPenalty),
		AmountPaid:    money(entry.AmountPaid),
		PenaltyNote:   fmt.Sprintf("A late payment surcharge of %s%% applies after the due date.", cfg.Rules().PenaltyRate.Shift(2).String()),
		Bill1: []pdf.Line{
			{Label: "Fixed charge", Amount: money(entry.FixedCharge)},
			{Label: "Electricity charge", Amount: money(entry.ElectricityCharge)},
			{Label: "Electricity duty", Amount: money(entry.ElectricityDuty)},
			{Label: "Previous arrears", Amount: money(entry.PreviousBill1Arrear)},
		},
		Bill2: []pdf.Line{
			{Label: "License fee", Amount: money(entry.LicenseFee)},
			{Label: "Residence fee", Amount: money(entry.ResidenceFee)},
			{Label: "Maintenance charge", Amount: money(entry.MaintenanceCharge)},
			{Label: "Water charge", Amount: money(entry.WaterCharge)},
			{Label: "Other charges", Amount: money(entry.OtherCharges)},
			{Label: "Previous arrears", Amount: money(entry.PreviousBill2Arrear)},
		},
	}

	if entry.ReadingID != nil {
		reading, err := s.readingRepo.FindByID(ctx, s.db, *entry.ReadingID)
		if err != nil {
			return nil, err
		}
		if reading != nil {
			doc.Meter = []pdf.Line{
				{Label: "Import reading", Amount: reading.ImportReading.StringFixed(3)},
				{Label: "Export reading", Amount: reading.ExportReading.StringFixed(3)},
				{Label: "Consumption (kWh)", Amount: reading.Consumption.StringFixed(3)},
				{Label: "Billed energy (kWh)", Amount: reading.BilledEnergy.StringFixed(3)},
				{Label: "Export carried forward (kWh)", Amount: reading.CarryForward.StringFixed(3)},
				{Label: "Water reading", Amount: reading.WaterReading.StringFixed(3)},
				{Label: "Water consumption", Amount: reading.WaterConsumption.StringFixed(3)},
			}
		}
	}

	body, err := s.renderer.RenderBill(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render bill: %w", err)
	}
	return &billdomain.Document{
		Filename:    fmt.Sprintf("bill-%s-%s.pdf", entry.HouseNumber, billingrules.FormatPeriod(entry.PeriodStart)),
		ContentType: contentTypePDF,
		Body:        body,
	}, nil
}

func (s *Service) ExportRegister(ctx context.Context, period string) (*billdomain.Document, error) {
	at, err := billingrules.ParsePeriod(period)
	if err != nil {
		return nil, billdomain.ErrInvalidPeriod
	}
	entries, err := s.repo.Register(ctx, s.db, at)
	if err != nil {
		return nil, err
	}

	rows := make([]xlsx.RegisterRow, 0, len(entries))
	for _, entry := range entries {
		bill1, bill2 := entry.Arrears()
		rows = append(rows, xlsx.RegisterRow{
			BillID:        entry.ID.String(),
			Mohalla:       entry.MohallaName,
			HouseNumber:   entry.HouseNumber,
			OwnerName:     entry.OwnerName,
			Status:        string(entry.Status),
			BilledEnergy:  entry.BilledEnergy.StringFixed(3),
			Bill1Standard: money(entry.Bill1Standard),
			Bill2Standard: money(entry.Bill2Standard),
			TotalStandard: money(entry.TotalStandard),
			TotalPenalty:  money(entry.TotalPenalty),
			AmountPaid:    money(entry.AmountPaid),
			Outstanding:   money(bill1.Add(bill2)),
			DueDate:       formatDate(entry.DueDate),
		})
	}

	label := billingrules.FormatPeriod(at)
	body, err := xlsx.BuildBillRegister(label, rows)
	if err != nil {
		return nil, fmt.Errorf("build register: %w", err)
	}
	return &billdomain.Document{
		Filename:    fmt.Sprintf("bills-%s.xlsx", label),
		ContentType: contentTypeXLSX,
		Body:        body,
	}, nil
}

func header(cfg config.BillingConfig) pdf.Header {
	return pdf.Header{
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		Currency:       cfg.Currency,
	}
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
