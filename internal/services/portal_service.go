package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// ErrPortalAccessDenied covers both a wrong password and an invalid or
// expired portal token; the portal never distinguishes the two.
var ErrPortalAccessDenied = errors.New("portal access denied")

const portalTokenTTL = 2 * time.Hour

// PortalService is the client-facing soft gate: a plaintext password
// check per project slug, trading a short-lived token for subsequent
// reads. Deliberately unhardened (no hashing, no lockout); the portal
// exposes nothing beyond the client's own project and invoices.
type PortalService interface {
	Verify(ctx context.Context, slug, password string) (string, error)
	GetProject(ctx context.Context, slug, token string) (*models.PortalProject, error)
}

type portalService struct {
	db        *gorm.DB
	cache     *cache.PortalCache
	jwtSecret []byte
	logger    *logrus.Entry
}

// NewPortalService creates a new portal service
func NewPortalService(db *gorm.DB, portalCache *cache.PortalCache, jwtSecret string, logger *logrus.Logger) PortalService {
	return &portalService{
		db:        db,
		cache:     portalCache,
		jwtSecret: []byte(jwtSecret),
		logger:    logger.WithField("component", "services.portal"),
	}
}

// Verify compares the supplied password against the project's stored
// plaintext portal password and issues a scoped token on a match.
func (s *portalService) Verify(ctx context.Context, slug, password string) (string, error) {
	project, err := repository.NewProjectRepository(s.db.WithContext(ctx)).GetByPortalSlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("project: %w", ErrNotFound)
		}
		return "", err
	}

	if project.PortalPassword == "" ||
		subtle.ConstantTimeCompare([]byte(project.PortalPassword), []byte(password)) != 1 {
		s.logger.WithField("slug", slug).Warn("Portal password rejected")
		return "", ErrPortalAccessDenied
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": "portal",
		"slug": slug,
		"iat": now.Unix(),
		"exp": now.Add(portalTokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign portal token: %w", err)
	}
	return token, nil
}

func (s *portalService) validateToken(tokenString, slug string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrPortalAccessDenied
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrPortalAccessDenied
	}
	// A token is scoped to the slug it was issued for.
	if tokenSlug, _ := claims["slug"].(string); tokenSlug != slug {
		return ErrPortalAccessDenied
	}
	return nil
}

// GetProject returns the client-facing project view, served from cache
// when fresh.
func (s *portalService) GetProject(ctx context.Context, slug, token string) (*models.PortalProject, error) {
	if err := s.validateToken(token, slug); err != nil {
		return nil, err
	}

	if view, ok := s.cache.Get(ctx, slug); ok {
		return view, nil
	}

	db := s.db.WithContext(ctx)
	project, err := repository.NewProjectRepository(db).GetByPortalSlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, err
	}

	invoices, err := repository.NewInvoiceRepository(db).ListByProject(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	view := buildPortalView(project, invoices)
	s.cache.Set(ctx, slug, view)
	return view, nil
}

func buildPortalView(project *models.Project, invoices []models.Invoice) *models.PortalProject {
	view := &models.PortalProject{
		Name:       project.Name,
		Status:     project.Status,
		Priority:   project.Priority,
		ClientName: project.ClientName,
		Revenue:    project.RevenueCents,
		StartDate:  formatDate(project.StartDate),
		DueDate:    formatDate(project.DueDate),
		Invoices:   make([]models.PortalInvoice, 0, len(invoices)),
	}
	for _, invoice := range invoices {
		view.Invoices = append(view.Invoices, models.PortalInvoice{
			Amount:      invoice.AmountCents,
			Status:      invoice.Status,
			IssueDate:   invoice.IssueDate.Format("2006-01-02"),
			DueDate:     formatDate(invoice.DueDate),
			Description: invoice.Description,
		})
		view.InvoiceTotal += invoice.AmountCents
	}
	return view
}

// invalidatePortalView drops a project's cached portal view after a
// mutation that changes what the portal shows. Best effort: services
// built without a cache skip it, and a project that no longer resolves
// has nothing worth keeping cached.
func invalidatePortalView(ctx context.Context, db *gorm.DB, portalCache *cache.PortalCache, projectID uuid.UUID) {
	if portalCache == nil {
		return
	}
	project, err := repository.NewProjectRepository(db).GetByID(projectID)
	if err != nil {
		return
	}
	portalCache.Invalidate(ctx, project.PortalSlug)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
