package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/domain"
	"catalog-api/internal/listing"
	"catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Mock repositories for testing
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockProductRepository) List(ctx context.Context, q listing.Query) ([]*domain.Product, error) {
	active := m.active()
	if q.Skip >= len(active) {
		return nil, nil
	}
	end := q.Skip + q.Limit
	if end > len(active) {
		end = len(active)
	}
	return active[q.Skip:end], nil
}

func (m *mockProductRepository) Count(ctx context.Context, filter listing.Filter) (int64, error) {
	return int64(len(m.active())), nil
}

func (m *mockProductRepository) active() []*domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.products {
		if p.Active {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// testAPI is the auth and product routes wired over in-memory repositories
type testAPI struct {
	router   http.Handler
	users    *mockUserRepository
	products *mockProductRepository
	tokens   service.TokenService
	logs     *observer.ObservedLogs
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	tokens, err := service.NewTokenService(config.JWTConfig{Secret: "handler-test-secret", AccessExpiry: time.Hour})
	require.NoError(t, err)

	users := &mockUserRepository{users: make(map[string]*domain.User)}
	products := &mockProductRepository{products: make(map[uuid.UUID]domain.Product)}
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	auth := middleware.AuthMiddleware(tokens, logger)
	NewAuthHandler(service.NewUserService(users, tokens), logger).RegisterRoutes(r, auth, nil)
	NewProductHandler(service.NewProductService(products), logger).RegisterRoutes(r, auth)

	return &testAPI{router: r, users: users, products: products, tokens: tokens, logs: logs}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and id
func (a *testAPI) register(t *testing.T, email string) (string, uuid.UUID) {
	t.Helper()

	w := a.do(t, "POST", "/api/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp service.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

func (a *testAPI) createProduct(t *testing.T, token string, body interface{}) domain.Product {
	t.Helper()

	w := a.do(t, "POST", "/api/products", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var product domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	return product
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			ValidationErrors []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"validation_errors"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func validationFields(body errorBody) []string {
	var fields []string
	for _, v := range body.Error.Details.ValidationErrors {
		fields = append(fields, v.Field)
	}
	return fields
}
