package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"invomitra/internal/common"
	"invomitra/internal/models"
	"invomitra/internal/repositories"
)

type ClientService interface {
	Create(ctx context.Context, userID uuid.UUID, client *models.Client) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error)
	Update(ctx context.Context, userID uuid.UUID, client *models.Client) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Client, error)
}

type clientService struct {
	clientRepo repositories.ClientRepository
}

func NewClientService(clientRepo repositories.ClientRepository) ClientService {
	return &clientService{
		clientRepo: clientRepo,
	}
}

func (s *clientService) Create(ctx context.Context, userID uuid.UUID, client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}
	client.UserID = userID
	client.ID = uuid.New()

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return clientRepoError(err)
	}
	return nil
}

func (s *clientService) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, clientRepoError(err)
	}
	return client, nil
}

func (s *clientService) Update(ctx context.Context, userID uuid.UUID, client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}
	client.UserID = userID
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return clientRepoError(err)
	}
	return nil
}

func (s *clientService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.clientRepo.Delete(ctx, userID, id); err != nil {
		return clientRepoError(err)
	}
	return nil
}

func (s *clientService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Client, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, common.ValidationError("offset", err.Error())
	}
	clients, err := s.clientRepo.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, clientRepoError(err)
	}
	return clients, nil
}

func normalizeClient(client *models.Client) error {
	client.Name = common.SanitizeText(client.Name)
	if client.Name == "" {
		return common.ValidationError("name", "client name is required")
	}
	client.Email = common.StringPtr(common.NormalizeEmail(common.SafeString(client.Email)))
	client.Phone = common.SanitizeOptional(client.Phone)
	client.Address = common.SanitizeOptional(client.Address)
	if client.GSTIN != nil {
		gstin := strings.ToUpper(strings.TrimSpace(*client.GSTIN))
		if err := common.ValidateGSTIN(gstin, "gstin"); err != nil {
			return common.ValidationError("gstin", err.Error())
		}
		client.GSTIN = common.StringPtr(gstin)
	}
	return nil
}

func clientRepoError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return common.NewError(common.KindNotFound, "Client not found")
	}
	return common.WrapError(common.KindPersistence, "Client storage failed", err)
}
