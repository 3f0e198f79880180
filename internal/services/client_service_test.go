package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/agency-service/internal/models"
)

func TestCreateClientWithMetadata(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, nil, testLogger())

	client, err := svc.Create(context.Background(), &models.CreateClientRequest{
		CompanyName: "Acme Corp",
		Metadata:    map[string]interface{}{"industry": "manufacturing"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, client.ID)
	assert.JSONEq(t, `{"industry":"manufacturing"}`, string(client.Metadata))
}

func TestUpdateClientRefreshesCachedNames(t *testing.T) {
	db := newTestDB(t)
	logger := testLogger()
	clientSvc := NewClientService(db, nil, logger)
	assignSvc := NewAssignmentService(db, nil, logger)
	ctx := context.Background()

	acme := mustClient(t, db, "Acme Corp")
	globex := mustClient(t, db, "Globex")

	primaryProject := mustProject(t, db, "Primary Project")
	otherProject := mustProject(t, db, "Other Project")

	_, err := assignSvc.Assign(ctx, acme.ID, primaryProject.ID)
	require.NoError(t, err)
	_, err = assignSvc.Assign(ctx, globex.ID, otherProject.ID)
	require.NoError(t, err)
	_, err = assignSvc.Assign(ctx, acme.ID, otherProject.ID)
	require.NoError(t, err)

	newName := "Acme Industries"
	_, err = clientSvc.Update(ctx, acme.ID, &models.UpdateClientRequest{CompanyName: &newName})
	require.NoError(t, err)

	// Only projects where acme is primary pick up the new cached name.
	assert.Equal(t, "Acme Industries", reloadProject(t, db, primaryProject.ID).ClientName)
	assert.Equal(t, "Globex", reloadProject(t, db, otherProject.ID).ClientName)
}

func TestContactPrimaryIsExclusive(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, nil, testLogger())
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")

	first, err := svc.CreateContact(ctx, client.ID, &models.CreateContactRequest{
		Name:      "Jane Doe",
		IsPrimary: true,
	})
	require.NoError(t, err)

	second, err := svc.CreateContact(ctx, client.ID, &models.CreateContactRequest{
		Name:      "John Smith",
		IsPrimary: true,
	})
	require.NoError(t, err)

	contacts, err := svc.ListContacts(client.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	var primaries int
	for _, contact := range contacts {
		if contact.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, contact.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	// Promoting the first demotes the second again.
	promote := true
	_, err = svc.UpdateContact(ctx, first.ID, &models.UpdateContactRequest{IsPrimary: &promote})
	require.NoError(t, err)

	contacts, err = svc.ListContacts(client.ID)
	require.NoError(t, err)
	primaries = 0
	for _, contact := range contacts {
		if contact.IsPrimary {
			primaries++
			assert.Equal(t, first.ID, contact.ID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestDeleteContact(t *testing.T) {
	db := newTestDB(t)
	svc := NewClientService(db, nil, testLogger())
	ctx := context.Background()

	client := mustClient(t, db, "Acme Corp")
	contact, err := svc.CreateContact(ctx, client.ID, &models.CreateContactRequest{Name: "Jane Doe"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContact(ctx, contact.ID))

	contacts, err := svc.ListContacts(client.ID)
	require.NoError(t, err)
	assert.Empty(t, contacts)

	err = svc.DeleteContact(ctx, contact.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
