package service

import (
	"context"
	"errors"
	"strings"

	"dealer_crm_backend/internal/identity/repository"
	"dealer_crm_backend/internal/identity/transport"
	"dealer_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	userNotFound   = "user not found"
	tenantNotFound = "tenant not found"

	// LinkCodeLength is the number of trailing id characters used as the bot linking code.
	LinkCodeLength = 6
)

// Store is the repository surface the service uses.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (repository.Tenant, error)
	ListActiveManagers(ctx context.Context, tenantID uuid.UUID, withTelegram bool) ([]repository.User, error)
	UnlinkTelegram(ctx context.Context, userID uuid.UUID) (repository.User, error)
}

type Service struct {
	repo Store
}

func New(repo Store) *Service {
	return &Service{repo: repo}
}

// LinkCode is the code a user sends to the bot: the last characters of the id, upper-cased.
func LinkCode(userID uuid.UUID) string {
	id := strings.ToUpper(userID.String())
	return id[len(id)-LinkCodeLength:]
}

func (s *Service) TelegramStatus(ctx context.Context, userID uuid.UUID) (transport.TelegramLinkResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return transport.TelegramLinkResponse{}, mapErr(err, userNotFound)
	}
	return transport.TelegramLinkResponse{
		Code:             LinkCode(user.ID),
		Linked:           user.HasTelegram(),
		TelegramUsername: user.TelegramUsername,
	}, nil
}

func (s *Service) UnlinkTelegram(ctx context.Context, userID uuid.UUID) (transport.TelegramLinkResponse, error) {
	user, err := s.repo.UnlinkTelegram(ctx, userID)
	if err != nil {
		return transport.TelegramLinkResponse{}, mapErr(err, userNotFound)
	}
	return transport.TelegramLinkResponse{Code: LinkCode(user.ID)}, nil
}

// ListManagers returns the active managers of a tenant, e.g. for the assignment picker.
func (s *Service) ListManagers(ctx context.Context, tenantID uuid.UUID) (transport.ManagerListResponse, error) {
	if _, err := s.repo.GetTenant(ctx, tenantID); err != nil {
		return transport.ManagerListResponse{}, mapErr(err, tenantNotFound)
	}
	users, err := s.repo.ListActiveManagers(ctx, tenantID, false)
	if err != nil {
		return transport.ManagerListResponse{}, apperr.Store("identity.ListManagers", err)
	}

	items := make([]transport.ManagerResponse, 0, len(users))
	for _, u := range users {
		items = append(items, transport.ManagerResponse{
			ID:               u.ID,
			FullName:         u.FullName,
			Email:            u.Email,
			Phone:            u.Phone,
			TenantID:         u.TenantID,
			TelegramLinked:   u.HasTelegram(),
			TelegramUsername: u.TelegramUsername,
		})
	}
	return transport.ManagerListResponse{Items: items}, nil
}

func mapErr(err error, notFound string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Store("identity", err)
}
