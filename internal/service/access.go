package service

import (
	"catalog-api/internal/apperror"
	"catalog-api/internal/domain"

	"github.com/google/uuid"
)

// AuthorizeMutation decides whether actorID may modify product. A missing or
// inactive product is reported as not found before ownership is considered.
func AuthorizeMutation(product *domain.Product, actorID uuid.UUID) error {
	if product == nil || !product.Active {
		return apperror.NewNotFound("product not found")
	}
	if product.Owner != actorID {
		return apperror.NewForbidden("you do not own this product")
	}
	return nil
}
