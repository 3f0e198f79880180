package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/money"
)

const testJWTSecret = "test-secret"

func newPortalService(t *testing.T) (PortalService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewPortalService(db, cache.NewPortalCache(nil), testJWTSecret, testLogger())
	return svc, db
}

func mustPortalProject(t *testing.T, db *gorm.DB, name, password string) *models.Project {
	t.Helper()
	project := mustProject(t, db, name)
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).
		Update("portal_password", password).Error)
	project.PortalPassword = password
	return project
}

func TestPortalVerifyIssuesToken(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")

	token, err := svc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestPortalVerifyWrongPassword(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")

	_, err := svc.Verify(ctx, project.PortalSlug, "wrong")
	assert.ErrorIs(t, err, ErrPortalAccessDenied)
}

func TestPortalVerifyEmptyStoredPassword(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	// A project without a configured password is never reachable, even
	// with an empty supplied password.
	project := mustProject(t, db, "Website Redesign")
	_, err := svc.Verify(ctx, project.PortalSlug, "")
	assert.ErrorIs(t, err, ErrPortalAccessDenied)
}

func TestPortalVerifyUnknownSlug(t *testing.T) {
	svc, _ := newPortalService(t)

	_, err := svc.Verify(context.Background(), "no-such-project", "hunter2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPortalGetProjectView(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")
	mustInvoice(t, db, project, money.MustParse("150.00"), models.InvoiceStatusPending)
	mustInvoice(t, db, project, money.MustParse("50.00"), models.InvoiceStatusPaid)

	token, err := svc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)

	view, err := svc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)

	assert.Equal(t, "Website Redesign", view.Name)
	assert.Equal(t, models.NoClient, view.ClientName)
	assert.Len(t, view.Invoices, 2)
	assert.Equal(t, money.MustParse("200.00"), view.InvoiceTotal)

	// Subsequent reads come from cache and stay identical.
	cached, err := svc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	assert.Equal(t, view.InvoiceTotal, cached.InvoiceTotal)
}

func TestPortalViewRefreshesAfterBillingChange(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	portalCache := cache.NewPortalCache(nil)
	portalSvc := NewPortalService(db, portalCache, testJWTSecret, logger)
	invoiceSvc := NewInvoiceService(db, NewRevenueService(db, logger), portalCache, logger)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")
	mustInvoice(t, db, project, money.MustParse("150.00"), models.InvoiceStatusPending)

	token, err := portalSvc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)

	view, err := portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	require.Equal(t, money.MustParse("150.00"), view.InvoiceTotal)

	// A billing mutation must not leave the cached view serving the old
	// total for the rest of its TTL.
	_, err = invoiceSvc.Create(ctx, &models.CreateInvoiceRequest{
		ProjectID: project.ID,
		Amount:    money.MustParse("50.00"),
	})
	require.NoError(t, err)

	view, err = portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("200.00"), view.InvoiceTotal)
	assert.Equal(t, money.MustParse("200.00"), view.Revenue)
	assert.Len(t, view.Invoices, 2)
}

func TestPortalViewDroppedAfterProjectDelete(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	portalCache := cache.NewPortalCache(nil)
	portalSvc := NewPortalService(db, portalCache, testJWTSecret, logger)
	projectSvc := NewProjectService(db, portalCache, logger)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")

	token, err := portalSvc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)
	_, err = portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)

	require.NoError(t, projectSvc.Delete(ctx, project.ID))

	_, err = portalSvc.GetProject(ctx, project.PortalSlug, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPortalViewRefreshesAfterPrimaryClientChange(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	portalCache := cache.NewPortalCache(nil)
	portalSvc := NewPortalService(db, portalCache, testJWTSecret, logger)
	assignSvc := NewAssignmentService(db, portalCache, logger)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")
	client := mustClient(t, db, "Acme Corp")

	token, err := portalSvc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)

	view, err := portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	require.Equal(t, models.NoClient, view.ClientName)

	_, err = assignSvc.Assign(ctx, client.ID, project.ID)
	require.NoError(t, err)

	view, err = portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", view.ClientName)
}

func TestPortalViewRefreshesAfterClientRename(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	portalCache := cache.NewPortalCache(nil)
	portalSvc := NewPortalService(db, portalCache, testJWTSecret, logger)
	assignSvc := NewAssignmentService(db, portalCache, logger)
	clientSvc := NewClientService(db, portalCache, logger)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")
	client := mustClient(t, db, "Acme Corp")
	_, err := assignSvc.Assign(ctx, client.ID, project.ID)
	require.NoError(t, err)

	token, err := portalSvc.Verify(ctx, project.PortalSlug, "hunter2")
	require.NoError(t, err)
	view, err := portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", view.ClientName)

	newName := "Acme Industries"
	_, err = clientSvc.Update(ctx, client.ID, &models.UpdateClientRequest{CompanyName: &newName})
	require.NoError(t, err)

	view, err = portalSvc.GetProject(ctx, project.PortalSlug, token)
	require.NoError(t, err)
	assert.Equal(t, "Acme Industries", view.ClientName)
}

func TestPortalTokenScopedToSlug(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	first := mustPortalProject(t, db, "First Project", "hunter2")
	second := mustPortalProject(t, db, "Second Project", "hunter2")

	token, err := svc.Verify(ctx, first.PortalSlug, "hunter2")
	require.NoError(t, err)

	_, err = svc.GetProject(ctx, second.PortalSlug, token)
	assert.ErrorIs(t, err, ErrPortalAccessDenied)
}

func TestPortalGarbageToken(t *testing.T) {
	svc, db := newPortalService(t)
	ctx := context.Background()

	project := mustPortalProject(t, db, "Website Redesign", "hunter2")

	_, err := svc.GetProject(ctx, project.PortalSlug, "not-a-jwt")
	assert.ErrorIs(t, err, ErrPortalAccessDenied)

	_, err = svc.GetProject(ctx, project.PortalSlug, "")
	assert.ErrorIs(t, err, ErrPortalAccessDenied)
}
