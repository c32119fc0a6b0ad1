package service

import (
	"context"
	"testing"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportPeriodPayout(t *testing.T) {
	ctx := context.Background()
	periodRepo := newFakePeriodRepo()
	projectRepo := newFakeProjectRepo()

	project := &model.Project{Name: "Mamelodi Link", Status: model.ProjectActive}
	require.NoError(t, projectRepo.Create(ctx, project))

	period := &model.PaymentPeriod{
		ProjectID:   project.ID,
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:      model.PeriodApproved,
		TotalAmount: dec("1090.00"),
	}
	require.NoError(t, periodRepo.Create(ctx, period))
	periodRepo.entries[period.ID] = []model.PaymentPeriodEntry{
		{
			PeriodID:      period.ID,
			LabourerID:    uuid.New(),
			DaysWorked:    2,
			OpenMeters:    dec("18"),
			CloseMeters:   dec("5"),
			TotalMeters:   dec("23"),
			TotalEarnings: dec("550.00"),
			Labourer: &model.Labourer{
				FullName:  "Sipho Dlamini",
				BankName:  "Capitec",
				AccountNo: "1122334455",
			},
		},
		{
			PeriodID:      period.ID,
			LabourerID:    uuid.New(),
			DaysWorked:    1,
			OpenMeters:    dec("12"),
			CloseMeters:   dec("12"),
			TotalMeters:   dec("24"),
			TotalEarnings: dec("540.00"),
			Labourer:      &model.Labourer{FullName: "Thabo Nkosi"},
		},
	}

	svc := NewExportService(periodRepo, projectRepo)
	manager := Actor{ID: uuid.New(), Role: model.RoleProjectManager}

	book, filename, err := svc.ExportPeriodPayout(ctx, manager, period.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "payout_Mamelodi Link_2026-03-01.xlsx", filename)

	name, err := book.GetCellValue("Payout", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Sipho Dlamini", name)

	earnings, err := book.GetCellValue("Payout", "J5")
	require.NoError(t, err)
	assert.Equal(t, "550.00", earnings)

	// Grand total row sits under the entries.
	total, err := book.GetCellValue("Payout", "J7")
	require.NoError(t, err)
	assert.Equal(t, "1090.00", total)
}

func TestExportPeriodPayout_Rejections(t *testing.T) {
	ctx := context.Background()
	periodRepo := newFakePeriodRepo()
	projectRepo := newFakeProjectRepo()

	project := &model.Project{Name: "Mamelodi Link", Status: model.ProjectActive}
	require.NoError(t, projectRepo.Create(ctx, project))

	period := &model.PaymentPeriod{
		ProjectID: project.ID,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    model.PeriodOpen,
	}
	require.NoError(t, periodRepo.Create(ctx, period))

	svc := NewExportService(periodRepo, projectRepo)

	// Figures are not final until approval.
	_, _, err := svc.ExportPeriodPayout(ctx, Actor{ID: uuid.New(), Role: model.RoleAdmin}, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = svc.ExportPeriodPayout(ctx, Actor{ID: uuid.New(), Role: model.RoleSupervisor}, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, _, err = svc.ExportPeriodPayout(ctx, Actor{ID: uuid.New(), Role: model.RoleAdmin}, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
