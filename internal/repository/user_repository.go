package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/store"
)

const usersCollection = "users"

type UserRepository struct {
	store store.Client
}

func NewUserRepository(st store.Client) *UserRepository {
	return &UserRepository{store: st}
}

// GetByID fetches a user document. Returns (nil, nil) when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.store.Get(ctx, usersCollection, id, &user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Create writes a fresh user document.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.store.Set(ctx, usersCollection, user.ID, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetInTx fetches a user inside a transaction, so a later write in the
// same transaction is guarded against the version read here. Returns
// (nil, nil) when absent.
func (r *UserRepository) GetInTx(ctx context.Context, tx store.DocTx, id string) (*model.User, error) {
	var user model.User
	if err := tx.Get(ctx, usersCollection, id, &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// SetInTx writes the full user document inside a transaction.
func (r *UserRepository) SetInTx(ctx context.Context, tx store.DocTx, user *model.User) error {
	if err := tx.Set(ctx, usersCollection, user.ID, user); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

// MergeProfile overlays only the given top-level fields onto the user
// document, leaving the events array and everything else untouched.
func (r *UserRepository) MergeProfile(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Merge(ctx, usersCollection, id, fields); err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	return nil
}
