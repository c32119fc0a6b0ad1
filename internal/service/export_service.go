package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// --- Interface ---

type ExportService interface {
	// ExportPeriodPayout renders a payout spreadsheet for an approved or
	// paid period: one row per labourer entry plus a grand total. Returns
	// the workbook and a suggested filename.
	ExportPeriodPayout(ctx context.Context, actor Actor, periodID string) (*excelize.File, string, error)
}

type exportService struct {
	periodRepo  repository.PeriodRepository
	projectRepo repository.ProjectRepository
}

func NewExportService(periodRepo repository.PeriodRepository, projectRepo repository.ProjectRepository) ExportService {
	return &exportService{periodRepo: periodRepo, projectRepo: projectRepo}
}

// --- Implementation ---

func (s *exportService) ExportPeriodPayout(ctx context.Context, actor Actor, periodID string) (*excelize.File, string, error) {
	if err := authz.Require(actor.Role, authz.ResReport, authz.ActExport); err != nil {
		return nil, "", err
	}

	id, err := uuid.Parse(periodID)
	if err != nil {
		return nil, "", apperr.Validationf("invalid period id")
	}

	period, err := s.periodRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: payment period %s", apperr.ErrNotFound, id)
		}
		return nil, "", fmt.Errorf("failed to fetch payment period: %w", err)
	}
	if period.Status != model.PeriodApproved && period.Status != model.PeriodPaid {
		return nil, "", apperr.Validationf("payout export requires an approved or paid period; status is %q", period.Status)
	}

	project, err := s.projectRepo.FindByID(ctx, period.ProjectID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch project: %w", err)
	}

	entries, err := s.periodRepo.ListEntries(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch period entries: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Payout"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	f.SetCellValue(sheet, "A1", fmt.Sprintf("Payout - %s (%s to %s)",
		project.Name,
		period.StartDate.Format("2006-01-02"),
		period.EndDate.Format("2006-01-02")))
	f.SetCellValue(sheet, "A2", fmt.Sprintf("Status: %s", period.Status))

	headers := []string{"Labourer", "ID Number", "Bank", "Account No", "Branch Code", "Days Worked", "Open Meters", "Close Meters", "Total Meters", "Total Earnings"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	row := 5
	for _, e := range entries {
		name := ""
		idNumber := ""
		bankName := ""
		accountNo := ""
		branchCode := ""
		if e.Labourer != nil {
			name = e.Labourer.FullName
			idNumber = e.Labourer.IDNumber
			bankName = e.Labourer.BankName
			accountNo = e.Labourer.AccountNo
			branchCode = e.Labourer.BranchCode
		}

		values := []interface{}{
			name,
			idNumber,
			bankName,
			accountNo,
			branchCode,
			e.DaysWorked,
			e.OpenMeters.StringFixed(2),
			e.CloseMeters.StringFixed(2),
			e.TotalMeters.StringFixed(2),
			e.TotalEarnings.StringFixed(2),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	totalLabelCell, _ := excelize.CoordinatesToCellName(len(headers)-1, row)
	totalValueCell, _ := excelize.CoordinatesToCellName(len(headers), row)
	f.SetCellValue(sheet, totalLabelCell, "Total")
	f.SetCellValue(sheet, totalValueCell, period.TotalAmount.StringFixed(2))
	f.SetCellStyle(sheet, totalLabelCell, totalValueCell, headerStyle)

	filename := fmt.Sprintf("payout_%s_%s.xlsx", project.Name, period.StartDate.Format("2006-01-02"))
	return f, filename, nil
}
