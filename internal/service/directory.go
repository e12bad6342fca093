package service

import (
	"context"
	"fmt"
	"log"

	"github.com/IshaNayal/swasth-saathi/internal/model"
	"github.com/IshaNayal/swasth-saathi/internal/repository"
	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

// UserDirectory maps phone numbers to accounts.
type UserDirectory struct {
	repo repository.AccountRepository
	now  utils.Clock
}

// NewUserDirectory creates a UserDirectory. A nil clock uses the system clock.
func NewUserDirectory(repo repository.AccountRepository, now utils.Clock) *UserDirectory {
	if now == nil {
		now = utils.SystemClock
	}
	return &UserDirectory{repo: repo, now: now}
}

// FindOrCreate returns the account for phone, creating a patient account on
// first sight. The write is durable before it returns.
func (d *UserDirectory) FindOrCreate(ctx context.Context, phone, language string) (*model.Account, error) {
	account, created, err := d.repo.FindOrCreate(ctx, phone, language, d.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if created {
		log.Printf("INFO: created account %s for %s", account.ID, utils.MaskPhone(phone))
	}
	return account, nil
}

// Lookup returns the account for phone or ErrAccountNotFound.
func (d *UserDirectory) Lookup(ctx context.Context, phone string) (*model.Account, error) {
	account, err := d.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// Get returns the account with id or ErrAccountNotFound.
func (d *UserDirectory) Get(ctx context.Context, id string) (*model.Account, error) {
	account, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// SetLanguage replaces the preferred language of account id.
func (d *UserDirectory) SetLanguage(ctx context.Context, id, language string) (*model.Account, error) {
	account, err := d.repo.UpdateLanguage(ctx, id, language, d.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}
