package bookshelf

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"

	repository "github.com/goliatone/go-repository-bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Activations() Activations
	Libraries() Libraries
	Books() Books
	Profiles() Profiles
}

type mngr struct {
	db          *bun.DB
	users       Users
	activations Activations
	libraries   Libraries
	books       Books
	profiles    Profiles
}

// NewRepositoryManager wires every repository over the same bun handle.
// The m2m join model has to be registered before any favorites query runs.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	if db != nil {
		db.RegisterModel((*ProfileFavorite)(nil))
	}

	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		activations: NewActivationsRepository(db),
		libraries:   NewLibrariesRepository(db),
		books:       NewBooksRepository(db),
		profiles:    NewProfilesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.activations == nil {
		return errors.New("repository activations should be initialized")
	}

	if m.libraries == nil {
		return errors.New("repository libraries should be initialized")
	}

	if m.books == nil {
		return errors.New("repository books should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Activations() Activations {
	return m.activations
}

func (m mngr) Libraries() Libraries {
	return m.libraries
}

func (m mngr) Books() Books {
	return m.books
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}
