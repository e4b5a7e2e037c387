package transport

import (
	"net/http"

	"catalog-api/internal/apperror"
	"catalog-api/internal/domain"
	"catalog-api/internal/listing"
	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload.
// The owner is always the caller and cannot be supplied.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Price       *float64 `json:"price" validate:"required,gte=0,lte=9999999999.99"`
	Stock       int      `json:"stock" validate:"gte=0,lte=2147483647"`
}

// UpdateProductRequest represents a partial product update. Omitted fields
// are left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitnil,min=1,max=200"`
	Description *string  `json:"description" validate:"omitnil,max=2000"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0,lte=9999999999.99"`
	Stock       *int     `json:"stock" validate:"omitnil,gte=0,lte=2147483647"`
	Active      *bool    `json:"active"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateProduct)
			r.Patch("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})
}

// ListProducts godoc
// @Summary List products
// @Description Returns one page of active products.
// @Tags Products
// @Produce json
// @Param page query int false "Page number, starting at 1" default(1)
// @Param limit query int false "Page size, 1 to 100" default(10)
// @Param search query string false "Full-text search over name and description"
// @Param sort query string false "Comma-separated fields, prefix with - for descending (name, price, stock, created_at, updated_at)" default(-created_at)
// @Success 200 {object} service.ListResult
// @Failure 422 {object} middleware.ErrorResponse "Invalid query parameters"
// @Router /api/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.productService.List(r.Context(), listing.Params{
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// GetProduct godoc
// @Summary Get a product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} middleware.ErrorResponse "Product not found"
// @Router /api/products/{id} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithAppError(w, r, apperror.NewNotFound("product not found"), h.logger)
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct godoc
// @Summary Create a product
// @Description The caller becomes the owner.
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateProductRequest true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} middleware.ErrorResponse "Malformed body"
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid token"
// @Failure 422 {object} middleware.ErrorResponse "Validation failed"
// @Router /api/products [post]
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	product, err := h.productService.Create(r.Context(), identity, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("owner_id", identity.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Description Partially updates a product owned by the caller. Setting active to false hides it.
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param body body UpdateProductRequest true "Fields to change"
// @Success 200 {object} domain.Product
// @Failure 400 {object} middleware.ErrorResponse "Malformed body"
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} middleware.ErrorResponse "Not the owner"
// @Failure 404 {object} middleware.ErrorResponse "Product not found"
// @Failure 422 {object} middleware.ErrorResponse "Validation failed"
// @Router /api/products/{id} [patch]
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	id, err := parseProductID(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      req.Active,
	}
	if patch.IsEmpty() {
		h.logger.Debug("Empty product update", zap.String("product_id", id.String()))
	}

	product, err := h.productService.Update(r.Context(), identity, id, patch)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Description Soft-deletes a product owned by the caller.
// @Tags Products
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} middleware.ErrorResponse "Not the owner"
// @Failure 404 {object} middleware.ErrorResponse "Product not found"
// @Failure 422 {object} middleware.ErrorResponse "Invalid id"
// @Router /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	id, err := parseProductID(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	if err := h.productService.Delete(r.Context(), identity, id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("owner_id", identity.ID.String()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.RespondWithAppError(w, r, apperror.NewUnauthenticated("invalid or expired token"), h.logger)
	}
	return identity, ok
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperror.NewFieldValidation("id", "must be a valid product id")
	}
	return id, nil
}
