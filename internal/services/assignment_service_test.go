package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/agency-service/internal/models"
)

func TestAssignPromotesFirstClient(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")
	project := mustProject(t, db, "Website Redesign")

	returned, err := svc.Assign(ctx, acme.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ClientID)
	assert.Equal(t, acme.ID, *returned.ClientID)
	assert.Equal(t, "Acme Corp", returned.ClientName)

	// A second assignment never displaces the existing primary.
	returned, err = svc.Assign(ctx, globex.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ClientID)
	assert.Equal(t, acme.ID, *returned.ClientID)
	assert.Equal(t, "Acme Corp", returned.ClientName)

	stored := reloadProject(t, db, project.ID)
	require.NotNil(t, stored.ClientID)
	assert.Equal(t, acme.ID, *stored.ClientID)
	assert.Equal(t, "Acme Corp", stored.ClientName)
}

func TestAssignDuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Assign(ctx, client.ID, project.ID)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, client.ID, project.ID)
	require.Error(t, err)
	_, ok := IsConflictError(err)
	assert.True(t, ok)
}

func TestAssignMissingEntities(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Assign(ctx, uuid.New(), project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Assign(ctx, client.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnassignPromotesOldestRemaining(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")
	initech := mustClient(t, db, "Initech")
	project := mustProject(t, db, "Website Redesign")

	for _, c := range []*models.Client{acme, globex, initech} {
		_, err := svc.Assign(ctx, c.ID, project.ID)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	// Removing the primary promotes the oldest remaining assignee.
	returned, err := svc.Unassign(ctx, acme.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ClientID)
	assert.Equal(t, globex.ID, *returned.ClientID)
	assert.Equal(t, "Globex", returned.ClientName)

	_, err = svc.Unassign(ctx, globex.ID, project.ID)
	require.NoError(t, err)

	// The last unassignment resets the pointer to the sentinel.
	returned, err = svc.Unassign(ctx, initech.ID, project.ID)
	require.NoError(t, err)
	assert.Nil(t, returned.ClientID)
	assert.Equal(t, models.NoClient, returned.ClientName)

	stored := reloadProject(t, db, project.ID)
	assert.Nil(t, stored.ClientID)
	assert.Equal(t, models.NoClient, stored.ClientName)
}

func TestUnassignNonPrimaryKeepsPointer(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Assign(ctx, acme.ID, project.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, globex.ID, project.ID)
	require.NoError(t, err)

	returned, err := svc.Unassign(ctx, globex.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ClientID)
	assert.Equal(t, acme.ID, *returned.ClientID)
}

func TestUnassignMissingAssignment(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Unassign(ctx, client.ID, project.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPrimaryRequiresAssignment(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Assign(ctx, acme.ID, project.ID)
	require.NoError(t, err)

	// Unassigned client cannot become primary.
	_, err = svc.SetPrimary(ctx, globex.ID, project.ID)
	require.Error(t, err)
	_, ok := IsConflictError(err)
	assert.True(t, ok)

	_, err = svc.Assign(ctx, globex.ID, project.ID)
	require.NoError(t, err)

	returned, err := svc.SetPrimary(ctx, globex.ID, project.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ClientID)
	assert.Equal(t, globex.ID, *returned.ClientID)
	assert.Equal(t, "Globex", returned.ClientName)

	stored := reloadProject(t, db, project.ID)
	require.NotNil(t, stored.ClientID)
	assert.Equal(t, globex.ID, *stored.ClientID)
}

func TestDeleteClientResetsPrimaries(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")

	primary := mustProject(t, db, "Primary Project")
	shared := mustProject(t, db, "Shared Project")

	// acme is primary on both; globex is also assigned to the shared one.
	_, err := svc.Assign(ctx, acme.ID, primary.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, acme.ID, shared.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, globex.ID, shared.ID)
	require.NoError(t, err)

	contact := &models.Contact{ClientID: acme.ID, Name: "Jane Doe"}
	require.NoError(t, db.Create(contact).Error)

	require.NoError(t, svc.DeleteClient(ctx, acme.ID))

	// Projects survive with reset pointers; globex keeps its assignment
	// but is not auto-promoted by deletion.
	for _, id := range []uuid.UUID{primary.ID, shared.ID} {
		stored := reloadProject(t, db, id)
		assert.Nil(t, stored.ClientID)
		assert.Equal(t, models.NoClient, stored.ClientName)
	}

	var clientCount int64
	require.NoError(t, db.Model(&models.Client{}).Where("id = ?", acme.ID).Count(&clientCount).Error)
	assert.Zero(t, clientCount)

	var contactCount int64
	require.NoError(t, db.Model(&models.Contact{}).Where("client_id = ?", acme.ID).Count(&contactCount).Error)
	assert.Zero(t, contactCount)

	var assignmentCount int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("client_id = ?", acme.ID).Count(&assignmentCount).Error)
	assert.Zero(t, assignmentCount)

	// The surviving assignment still lists the shared project.
	projects, err := svc.ListProjectsForClient(globex.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, shared.ID, projects[0].ID)
}

func TestDeleteMissingClient(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())

	err := svc.DeleteClient(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListAssignedAndAvailableClients(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil, testLogger())
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")
	mustClient(t, db, "Initech")
	project := mustProject(t, db, "Website Redesign")

	_, err := svc.Assign(ctx, acme.ID, project.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, globex.ID, project.ID)
	require.NoError(t, err)

	assigned, err := svc.ListAssignedClients(project.ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	available, err := svc.ListAvailableClients(project.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Initech", available[0].CompanyName)
}
