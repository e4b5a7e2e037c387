package repository

import (
	"context"
	"errors"

	"catalog-api/internal/domain"
	"catalog-api/internal/listing"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrProductNotFound   = errors.New("product not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ProductRepository defines the interface for product data access.
// FindByID returns inactive products too; callers decide visibility.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, query listing.Query) ([]*domain.Product, error)
	Count(ctx context.Context, filter listing.Filter) (int64, error)
}

// Store bundles the repositories of one storage backend
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
