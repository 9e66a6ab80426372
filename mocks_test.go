package bookshelf_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-bookshelf"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements bookshelf.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx executes the closure with a zero tx handle so handler logic
// runs against the repository mocks; a mocked non-nil return simulates a
// failure opening the transaction.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}

	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() bookshelf.Users {
	args := m.Called()
	return args.Get(0).(bookshelf.Users)
}

func (m *MockRepositoryManager) Activations() bookshelf.Activations {
	args := m.Called()
	return args.Get(0).(bookshelf.Activations)
}

func (m *MockRepositoryManager) Libraries() bookshelf.Libraries {
	args := m.Called()
	return args.Get(0).(bookshelf.Libraries)
}

func (m *MockRepositoryManager) Books() bookshelf.Books {
	args := m.Called()
	return args.Get(0).(bookshelf.Books)
}

func (m *MockRepositoryManager) Profiles() bookshelf.Profiles {
	args := m.Called()
	return args.Get(0).(bookshelf.Profiles)
}

func runTx(repo *MockRepositoryManager) *mock.Call {
	return repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil)
}

// MockUsers implements bookshelf.Users for the methods handlers touch.
type MockUsers struct {
	mock.Mock
	bookshelf.Users
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*bookshelf.User, error) {
	args := m.Called(ctx, id, criteria)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*bookshelf.User, error) {
	args := m.Called(ctx, tx, identifier, criteria)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*bookshelf.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ListActive(ctx context.Context) ([]*bookshelf.User, error) {
	args := m.Called(ctx)
	if u, ok := args.Get(0).([]*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *bookshelf.User) (*bookshelf.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *bookshelf.User) (*bookshelf.User, error) {
	args := m.Called(ctx, tx, user)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *bookshelf.User, criteria ...repository.UpdateCriteria) (*bookshelf.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) EmailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Activate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockUsers) ChangeEmail(ctx context.Context, id uuid.UUID, email string) error {
	args := m.Called(ctx, id, email)
	return args.Error(0)
}

func (m *MockUsers) ChangeEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	args := m.Called(ctx, tx, id, email)
	return args.Error(0)
}

func (m *MockUsers) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) VerifyIdentity(ctx context.Context, identifier, password string) (*bookshelf.User, error) {
	args := m.Called(ctx, identifier, password)
	if u, ok := args.Get(0).(*bookshelf.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockActivations implements bookshelf.Activations for the methods
// handlers touch.
type MockActivations struct {
	mock.Mock
	bookshelf.Activations
}

func (m *MockActivations) GetByCode(ctx context.Context, code string) (*bookshelf.Activation, error) {
	args := m.Called(ctx, code)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*bookshelf.Activation, error) {
	args := m.Called(ctx, tx, code)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) LatestForUser(ctx context.Context, userID uuid.UUID) (*bookshelf.Activation, error) {
	args := m.Called(ctx, userID)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) LatestForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lock bool) (*bookshelf.Activation, error) {
	args := m.Called(ctx, tx, userID, lock)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) Issue(ctx context.Context, userID uuid.UUID, pendingEmail string) (*bookshelf.Activation, error) {
	args := m.Called(ctx, userID, pendingEmail)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, pendingEmail string) (*bookshelf.Activation, error) {
	args := m.Called(ctx, tx, userID, pendingEmail)
	if a, ok := args.Get(0).(*bookshelf.Activation); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivations) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockActivations) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockMailer implements bookshelf.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, recipient, subject, body string) error {
	args := m.Called(ctx, recipient, subject, body)
	return args.Error(0)
}

// MockResetTokens implements bookshelf.ResetTokenService
type MockResetTokens struct {
	mock.Mock
}

func (m *MockResetTokens) Make(user *bookshelf.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockResetTokens) Verify(user *bookshelf.User, token string) error {
	args := m.Called(user, token)
	return args.Error(0)
}
