package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/money"
)

// brokenRevenue always fails the recompute, standing in for a revenue
// write hitting an unavailable store.
type brokenRevenue struct{}

func (brokenRevenue) Recompute(context.Context, uuid.UUID) (money.Cents, error) {
	return 0, errors.New("revenue store unavailable")
}

func TestCreateInvoiceUpdatesRevenue(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")

	invoice, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID:   project.ID,
		Amount:      money.MustParse("150.00"),
		Description: "Design sprint",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)

	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, money.MustParse("150.00"), stored.RevenueCents)
}

func TestCreateInvoiceMissingProject(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)

	_, err := svc.Create(context.Background(), &models.CreateInvoiceRequest{
		ProjectID: uuid.New(),
		Amount:    money.MustParse("10.00"),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInvoiceNegativeAmount(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)

	project := mustProject(t, db, "Website Redesign")
	_, err := svc.Create(context.Background(), &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.Cents(-100),
	})
	_, ok := IsValidationError(err)
	assert.True(t, ok)
}

func TestUpdateInvoiceAmountRecomputes(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")
	invoice, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("150.00"),
	})
	require.NoError(t, err)

	newAmount := money.MustParse("200.00")
	_, err = svc.Update(ctx, invoice.ID, &models.UpdateInvoiceRequest{Amount: &newAmount})
	require.NoError(t, err)

	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, money.MustParse("200.00"), stored.RevenueCents)
}

func TestUpdateInvoiceStatusKeepsRevenue(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")
	invoice, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("150.00"),
	})
	require.NoError(t, err)

	// A status flip does not change the sum; revenue stays put even if we
	// poison the stored value first to prove no recompute ran.
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).
		Update("revenue_cents", money.MustParse("42.00")).Error)

	paid := models.InvoiceStatusPaid
	updated, err := svc.Update(ctx, invoice.ID, &models.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, money.MustParse("42.00"), stored.RevenueCents)
}

func TestCreateInvoiceSurvivesRecomputeFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewInvoiceService(db, brokenRevenue{}, nil, testLogger())
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")

	invoice, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("150.00"),
	})

	// The invoice mutation committed; the failed recompute surfaces as a
	// partial error alongside the created invoice, not as a rollback.
	partial, ok := IsPartialError(err)
	require.True(t, ok)
	assert.Contains(t, partial.Message, "revenue not updated")
	require.NotNil(t, invoice)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).
		Where("project_id = ?", project.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Stored revenue stays stale until the reconciler catches it.
	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, money.Cents(0), stored.RevenueCents)
}

func TestDeleteInvoiceSurvivesRecomputeFailure(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	healthy := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	broken := NewInvoiceService(db, brokenRevenue{}, nil, logger)
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")
	invoice, err := healthy.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("150.00"),
	})
	require.NoError(t, err)

	err = broken.Delete(ctx, invoice.ID)
	_, ok := IsPartialError(err)
	require.True(t, ok)

	// The delete itself stuck.
	_, err = healthy.Get(invoice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInvoiceRecomputes(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	ctx := context.Background()

	project := mustProject(t, db, "Website Redesign")
	keep, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("150.00"),
	})
	require.NoError(t, err)
	victim, err := svc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("50.00"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, victim.ID))

	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, money.MustParse("150.00"), stored.RevenueCents)

	_, err = svc.Get(victim.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(keep.ID)
	assert.NoError(t, err)
}

func TestBulkDeleteRecomputesEachProject(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)
	ctx := context.Background()

	first := mustProject(t, db, "First Project")
	second := mustProject(t, db, "Second Project")

	a, err := svc.Create(ctx, &models.CreateInvoiceRequest{ProjectID: first.ID, Amount: money.MustParse("100.00")})
	require.NoError(t, err)
	b, err := svc.Create(ctx, &models.CreateInvoiceRequest{ProjectID: first.ID, Amount: money.MustParse("40.00")})
	require.NoError(t, err)
	c, err := svc.Create(ctx, &models.CreateInvoiceRequest{ProjectID: second.ID, Amount: money.MustParse("75.00")})
	require.NoError(t, err)

	deleted, err := svc.BulkDelete(ctx, []uuid.UUID{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	assert.Equal(t, money.MustParse("100.00"), reloadProject(t, db, first.ID).RevenueCents)
	assert.Equal(t, money.Cents(0), reloadProject(t, db, second.ID).RevenueCents)

	_, err = svc.Get(a.ID)
	assert.NoError(t, err)
}

func TestBulkDeleteUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	svc := NewInvoiceService(db, NewRevenueService(db, logger), nil, logger)

	_, err := svc.BulkDelete(context.Background(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}
