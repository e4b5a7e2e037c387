package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catalog-api/internal/apperror"
	"catalog-api/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(t *testing.T) (UserService, *mockUserRepository, TokenService) {
	t.Helper()
	tokens, err := NewTokenService(testJWTConfig)
	require.NoError(t, err)
	users := newMockUserRepository()
	return NewUserService(users, tokens), users, tokens
}

func TestProperty_RegistrationHashesPasswords(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10 // bcrypt is slow
	properties := gopter.NewProperties(parameters)

	properties.Property("passwords are stored as bcrypt hashes, never plaintext", prop.ForAll(
		func(local string, password string) bool {
			svc, users, _ := newTestUserService(t)

			result, err := svc.Register(context.Background(), RegisterInput{
				Name:     "Test User",
				Email:    local + "@example.com",
				Password: password,
			})
			if err != nil {
				return false
			}

			stored := users.users[result.User.Email]
			if stored == nil || stored.PasswordHash == password {
				return false
			}
			cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
			if err != nil || cost != BcryptCost {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.Identifier(),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) >= 8 && len(s) <= MaxPasswordBytes }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_ReturnsUsableToken(t *testing.T) {
	svc, _, tokens := newTestUserService(t)

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Ada  ",
		Email:    "  Ada@Example.COM ",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", result.User.Name)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.False(t, result.User.CreatedAt.IsZero())

	identity, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, identity.ID)
	assert.Equal(t, "ada@example.com", identity.Email)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "password2"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Conflict))
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, _, _ := newTestUserService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Long",
		Email:    "long@example.com",
		Password: strings.Repeat("x", MaxPasswordBytes+1),
	})

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.Validation, appErr.Type)
	assert.Equal(t, "password", appErr.Fields[0].Field)
}

func TestRegister_TokenFailurePropagates(t *testing.T) {
	svc := NewUserService(newMockUserRepository(), failingTokenService{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "password1"})
	require.Error(t, err)
	_, isApp := apperror.As(err)
	assert.False(t, isApp)
}

func TestRegister_StoreFailurePropagates(t *testing.T) {
	svc, users, _ := newTestUserService(t)
	users.err = errors.New("connection reset")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "password1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestLogin_MismatchesAreIndistinguishable(t *testing.T) {
	svc, _, tokens := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "grace@example.com", Password: "cobol-rules"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "grace@example.com", "fortran-rules")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "cobol-rules")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Same(t, apperror.ErrInvalidCredentials, wrongPassword)
	assert.Same(t, apperror.ErrInvalidCredentials, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	result, err := svc.Login(ctx, " GRACE@example.com", "cobol-rules")
	require.NoError(t, err)
	identity, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, identity.ID)
}

func TestLogin_UnknownEmailStillComparesHash(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "grace@example.com", Password: "cobol-rules"})
	require.NoError(t, err)

	var compared [][]byte
	impl := svc.(*userService)
	impl.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, wrongPassword := svc.Login(ctx, "grace@example.com", "fortran-rules")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "fortran-rules")

	assert.Same(t, apperror.ErrInvalidCredentials, wrongPassword)
	assert.Same(t, apperror.ErrInvalidCredentials, unknownEmail)
	require.Len(t, compared, 2, "both failures must run one bcrypt comparison")

	for _, hash := range compared {
		cost, err := bcrypt.Cost(hash)
		require.NoError(t, err)
		assert.Equal(t, BcryptCost, cost)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Linus", Email: "linus@example.com", Password: "penguins!"})
	require.NoError(t, err)

	user, err := svc.Me(ctx, domain.Identity{ID: registered.User.ID, Email: registered.User.Email})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)

	_, err = svc.Me(ctx, domain.Identity{ID: uuid.New(), Email: "ghost@example.com"})
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))
}
