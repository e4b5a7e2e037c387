package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"catalog-api/internal/apperror"
	"catalog-api/internal/domain"
	"catalog-api/internal/listing"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
)

// Limits mirror the products table: price is NUMERIC(12,2) and stock INTEGER.
const (
	MaxProductNameLength        = 200
	MaxProductDescriptionLength = 2000
	MaxProductPrice             = 9_999_999_999.99
	MaxProductStock             = math.MaxInt32
)

// CreateProductInput holds the client-settable fields of a new product
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
}

// ListResult is one page of active products
type ListResult struct {
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Total int64             `json:"total"`
	Items []*domain.Product `json:"items"`
}

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, identity domain.Identity, input CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, params listing.Params) (*ListResult, error)
	Update(ctx context.Context, identity domain.Identity, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, identity domain.Identity, id uuid.UUID) error
}

// Timestamps are kept at millisecond precision, the finest both storage
// backends round-trip.
type productService struct {
	products repository.ProductRepository
	now      func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{
		products: products,
		now:      time.Now,
	}
}

// Create stores a new active product owned by the caller
func (s *productService) Create(ctx context.Context, identity domain.Identity, input CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	patch := domain.ProductPatch{
		Name:        &name,
		Description: &input.Description,
		Price:       &input.Price,
		Stock:       &input.Stock,
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	product := &domain.Product{
		ID:        uuid.New(),
		Active:    true,
		Owner:     identity.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	patch.Apply(product)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Get returns an active product; inactive and missing products are not found
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, apperror.NewNotFound("product not found")
	}
	return product, nil
}

// List returns one page of active products with the total match count
func (s *productService) List(ctx context.Context, params listing.Params) (*ListResult, error) {
	query, err := listing.Build(params)
	if err != nil {
		return nil, err
	}

	items, err := s.products.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	total, err := s.products.Count(ctx, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	if items == nil {
		items = []*domain.Product{}
	}

	return &ListResult{
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
		Items: items,
	}, nil
}

// Update applies a partial update on behalf of the product owner
func (s *productService) Update(ctx context.Context, identity domain.Identity, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(product, identity.ID); err != nil {
		return nil, err
	}

	patch.Apply(product)
	product.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.save(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Delete soft-deletes a product by marking it inactive
func (s *productService) Delete(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	product, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(product, identity.ID); err != nil {
		return err
	}

	product.Active = false
	product.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	return s.save(ctx, product)
}

// find loads a product, returning nil without error when it does not exist
func (s *productService) find(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

func (s *productService) save(ctx context.Context, product *domain.Product) error {
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperror.NewNotFound("product not found")
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// validatePatch checks every set field against the product constraints
func validatePatch(patch domain.ProductPatch) error {
	var violations []apperror.FieldError

	if patch.Name != nil {
		n := utf8.RuneCountInString(*patch.Name)
		if n == 0 || n > MaxProductNameLength {
			violations = append(violations, apperror.FieldError{
				Field:   "name",
				Message: fmt.Sprintf("must be between 1 and %d characters", MaxProductNameLength),
			})
		}
	}
	if patch.Description != nil && utf8.RuneCountInString(*patch.Description) > MaxProductDescriptionLength {
		violations = append(violations, apperror.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("must be at most %d characters", MaxProductDescriptionLength),
		})
	}
	if patch.Price != nil {
		price := *patch.Price
		switch {
		case math.IsNaN(price) || price < 0 || price > MaxProductPrice:
			violations = append(violations, apperror.FieldError{
				Field:   "price",
				Message: fmt.Sprintf("must be a number between 0 and %.2f", MaxProductPrice),
			})
		case !wholeCents(price):
			violations = append(violations, apperror.FieldError{Field: "price", Message: "must have at most 2 decimal places"})
		}
	}
	if patch.Stock != nil && (*patch.Stock < 0 || *patch.Stock > MaxProductStock) {
		violations = append(violations, apperror.FieldError{
			Field:   "stock",
			Message: fmt.Sprintf("must be between 0 and %d", MaxProductStock),
		})
	}

	if len(violations) > 0 {
		return apperror.NewValidation(violations)
	}
	return nil
}

// wholeCents reports whether price is stored without rounding at two decimals
func wholeCents(price float64) bool {
	return math.Round(price*100)/100 == price
}
