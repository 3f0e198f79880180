package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/money"
)

func TestMakeSlug(t *testing.T) {
	cases := map[string]string{
		"Website Redesign":     "website-redesign",
		"  ACME -- Phase 2!  ": "acme-phase-2",
		"Déjà Vu":              "d-j-vu",
		"!!!":                  "project",
	}
	for input, want := range cases {
		assert.Equal(t, want, makeSlug(input), "input %q", input)
	}
}

func TestCreateProjectDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())

	project, err := svc.Create(context.Background(), &models.CreateProjectRequest{Name: "Website Redesign"})
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusOnboarding, project.Status)
	assert.Equal(t, models.ProjectPriorityMedium, project.Priority)
	assert.Nil(t, project.ClientID)
	assert.Equal(t, models.NoClient, project.ClientName)
	assert.Equal(t, money.Cents(0), project.RevenueCents)
	assert.Equal(t, "website-redesign", project.PortalSlug)
}

func TestCreateProjectSlugCollision(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, &models.CreateProjectRequest{Name: "Website Redesign"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &models.CreateProjectRequest{Name: "Website Redesign"})
	require.NoError(t, err)
	third, err := svc.Create(ctx, &models.CreateProjectRequest{Name: "Website Redesign"})
	require.NoError(t, err)

	assert.Equal(t, "website-redesign", first.PortalSlug)
	assert.Equal(t, "website-redesign-2", second.PortalSlug)
	assert.Equal(t, "website-redesign-3", third.PortalSlug)
}

func TestCreateProjectWithClientAndSeedRevenue(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())

	client := mustClient(t, db, "Acme Corp")
	seed := money.MustParse("500.00")

	project, err := svc.Create(context.Background(), &models.CreateProjectRequest{
		Name:           "Website Redesign",
		ClientID:       &client.ID,
		InitialRevenue: &seed,
	})
	require.NoError(t, err)

	require.NotNil(t, project.ClientID)
	assert.Equal(t, client.ID, *project.ClientID)
	assert.Equal(t, "Acme Corp", project.ClientName)
	assert.Equal(t, seed, project.RevenueCents)

	// Seed revenue materializes as the first pending invoice so a later
	// recompute reproduces the same figure.
	var invoices []models.Invoice
	require.NoError(t, db.Where("project_id = ?", project.ID).Find(&invoices).Error)
	require.Len(t, invoices, 1)
	assert.Equal(t, seed, invoices[0].AmountCents)
	assert.Equal(t, models.InvoiceStatusPending, invoices[0].Status)

	var assignmentCount int64
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("client_id = ? AND project_id = ?", client.ID, project.ID).
		Count(&assignmentCount).Error)
	assert.Equal(t, int64(1), assignmentCount)
}

func TestCreateProjectInvalidEnums(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())
	ctx := context.Background()

	bad := models.ProjectStatus("archived")
	_, err := svc.Create(ctx, &models.CreateProjectRequest{Name: "X", Status: &bad})
	_, ok := IsValidationError(err)
	assert.True(t, ok)

	badPriority := models.ProjectPriority("urgent")
	_, err = svc.Create(ctx, &models.CreateProjectRequest{Name: "X", Priority: &badPriority})
	_, ok = IsValidationError(err)
	assert.True(t, ok)
}

func TestUpdateProject(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())
	ctx := context.Background()

	project, err := svc.Create(ctx, &models.CreateProjectRequest{Name: "Website Redesign"})
	require.NoError(t, err)

	active := models.ProjectStatusActive
	high := models.ProjectPriorityHigh
	updated, err := svc.Update(ctx, project.ID, &models.UpdateProjectRequest{
		Status:   &active,
		Priority: &high,
	})
	require.NoError(t, err)
	assert.Equal(t, active, updated.Status)
	assert.Equal(t, high, updated.Priority)

	stored := reloadProject(t, db, project.ID)
	assert.Equal(t, active, stored.Status)
	assert.Equal(t, high, stored.Priority)
}

func TestDeleteProjectCascades(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	projectSvc := NewProjectService(db, nil, logger)
	assignSvc := NewAssignmentService(db, nil, logger)
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")
	seed := money.MustParse("100.00")
	project, err := projectSvc.Create(ctx, &models.CreateProjectRequest{
		Name:           "Website Redesign",
		ClientID:       &client.ID,
		InitialRevenue: &seed,
	})
	require.NoError(t, err)

	require.NoError(t, projectSvc.Delete(ctx, project.ID))

	_, err = projectSvc.Get(project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var invoiceCount int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("project_id = ?", project.ID).Count(&invoiceCount).Error)
	assert.Zero(t, invoiceCount)

	// The client itself is never touched.
	projects, err := assignSvc.ListProjectsForClient(client.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)

	var clientCount int64
	require.NoError(t, db.Model(&models.Client{}).Where("id = ?", client.ID).Count(&clientCount).Error)
	assert.Equal(t, int64(1), clientCount)
}

func TestGetMissingProject(t *testing.T) {
	db := newTestDB(t)
	svc := NewProjectService(db, nil, testLogger())

	_, err := svc.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
