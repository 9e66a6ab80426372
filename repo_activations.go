package bookshelf

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	repository "github.com/goliatone/go-repository-bun"
)

// Activations is the ledger of pending one-time actions. The business rule
// is at most one live record per user; Issue and the resend flow maintain
// it by deleting before creating.
type Activations interface {
	repository.Repository[*Activation]

	GetByCode(ctx context.Context, code string) (*Activation, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Activation, error)

	LatestForUser(ctx context.Context, userID uuid.UUID) (*Activation, error)
	LatestForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lock bool) (*Activation, error)

	Issue(ctx context.Context, userID uuid.UUID, pendingEmail string) (*Activation, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, pendingEmail string) (*Activation, error)

	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type activations struct {
	repository.Repository[*Activation]
	db *bun.DB
}

var (
	_ Activations                        = (*activations)(nil)
	_ repository.Repository[*Activation] = (*activations)(nil)
)

func NewActivationsRepository(db *bun.DB) Activations {
	repo := repository.NewRepository[*Activation](db, repository.ModelHandlers[*Activation]{
		NewRecord: func() *Activation { return &Activation{} },
		GetID: func(a *Activation) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Activation, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &activations{
		Repository: repo,
		db:         db,
	}
}

func (a *activations) GetByCode(ctx context.Context, code string) (*Activation, error) {
	return a.GetByCodeTx(ctx, a.db, code)
}

func (a *activations) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Activation, error) {
	record := &Activation{}

	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"code": code})
		}
		return nil, err
	}

	return record, nil
}

func (a *activations) LatestForUser(ctx context.Context, userID uuid.UUID) (*Activation, error) {
	return a.LatestForUserTx(ctx, a.db, userID, false)
}

// LatestForUserTx returns the user's current pending record. With lock set
// the row is selected FOR UPDATE where the dialect supports it, so two
// concurrent resend attempts serialize on the same record instead of both
// passing the cooldown check. Under sqlite the write transaction itself
// serializes.
func (a *activations) LatestForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, lock bool) (*Activation, error) {
	record := &Activation{}

	q := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Limit(1)

	if lock && a.db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}

	if err := q.Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *activations) Issue(ctx context.Context, userID uuid.UUID, pendingEmail string) (*Activation, error) {
	return a.IssueTx(ctx, a.db, userID, pendingEmail)
}

// IssueTx generates a fresh code and inserts the record. The unique
// constraint on code turns the astronomically unlikely collision into a
// hard insert error.
func (a *activations) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, pendingEmail string) (*Activation, error) {
	code, err := NewActivationCode()
	if err != nil {
		return nil, err
	}

	record := &Activation{
		ID:           uuid.New(),
		UserID:       &userID,
		Code:         code,
		PendingEmail: pendingEmail,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *activations) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Activation)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	return err
}

func (a *activations) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Activation)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)

	return err
}
