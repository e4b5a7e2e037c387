package repository

import (
	"context"
	"database/sql"
)

type postgresStore struct {
	db       *sql.DB
	users    UserRepository
	products ProductRepository
}

// NewPostgresStore creates a Store backed by a PostgreSQL connection pool
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{
		db:       db,
		users:    NewUserRepository(db),
		products: NewProductRepository(db),
	}
}

func (s *postgresStore) Users() UserRepository       { return s.users }
func (s *postgresStore) Products() ProductRepository { return s.products }

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *postgresStore) Close(_ context.Context) error {
	return s.db.Close()
}
