package service

import (
	"context"
	"fmt"

	"github.com/IshaNayal/swasth-saathi/internal/model"
)

// AccountService serves the signed-in account's own profile.
type AccountService interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	UpdateLanguage(ctx context.Context, accountID, language string) (*model.Account, error)
}

type accountService struct {
	directory *UserDirectory
}

// NewAccountService creates a new AccountService
func NewAccountService(directory *UserDirectory) AccountService {
	return &accountService{directory: directory}
}

func (s *accountService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.directory.Get(ctx, accountID)
}

// UpdateLanguage sets a non-empty preferred language.
func (s *accountService) UpdateLanguage(ctx context.Context, accountID, language string) (*model.Account, error) {
	language, err := normalizeLanguage(language)
	if err != nil {
		return nil, err
	}
	if language == "" {
		return nil, fmt.Errorf("%w: language is required", ErrValidation)
	}
	return s.directory.SetLanguage(ctx, accountID, language)
}
