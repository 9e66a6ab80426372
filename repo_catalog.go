package bookshelf

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	repository "github.com/goliatone/go-repository-bun"
)

// SearchFieldName and friends select which column a catalog search
// matches; anything else falls back to matching both.
const (
	SearchFieldName   = "name"
	SearchFieldAuthor = "author"
	SearchFieldAny    = "any"
)

// BookSearchFilter carries the browse listing parameters.
type BookSearchFilter struct {
	Query  string
	Field  string
	Limit  int
	Offset int
}

type Libraries interface {
	repository.Repository[*Library]

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Library, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type Books interface {
	repository.Repository[*Book]

	Search(ctx context.Context, filter BookSearchFilter) ([]*Book, int, error)
	OwnedBy(ctx context.Context, bookID, userID uuid.UUID) (*Book, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type Profiles interface {
	repository.Repository[*Profile]

	GetForUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	AddFavorite(ctx context.Context, profileID, bookID uuid.UUID) error
	RemoveFavorite(ctx context.Context, profileID, bookID uuid.UUID) error
	ListFavorites(ctx context.Context, profileID uuid.UUID) ([]*Book, error)
}

type libraries struct {
	repository.Repository[*Library]
	db *bun.DB
}

var _ Libraries = (*libraries)(nil)

func NewLibrariesRepository(db *bun.DB) Libraries {
	repo := repository.NewRepository[*Library](db, repository.ModelHandlers[*Library]{
		NewRecord: func() *Library { return &Library{} },
		GetID: func(l *Library) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *Library, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &libraries{Repository: repo, db: db}
}

func (r *libraries) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Library, error) {
	var records []*Library

	err := r.db.NewSelect().
		Model(&records).
		Relation("Books").
		Where("?TableAlias.user_id = ?", userID).
		Order("name ASC").
		Scan(ctx)

	return records, err
}

// DeleteByID removes the library and cascades to its books, mirroring the
// schema's ON DELETE CASCADE for drivers that do not enforce it.
func (r *libraries) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Book)(nil)).
			Where("?TableAlias.library_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewDelete().
			Model((*Library)(nil)).
			Where("?TableAlias.id = ?", id).
			Exec(ctx)

		return err
	})
}

type books struct {
	repository.Repository[*Book]
	db *bun.DB
}

var _ Books = (*books)(nil)

func NewBooksRepository(db *bun.DB) Books {
	repo := repository.NewRepository[*Book](db, repository.ModelHandlers[*Book]{
		NewRecord: func() *Book { return &Book{} },
		GetID: func(b *Book) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Book, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &books{Repository: repo, db: db}
}

// Search lists catalog books filtered by a case-insensitive substring on
// name, author, or either. Returns the page plus the unpaged match count.
func (r *books) Search(ctx context.Context, filter BookSearchFilter) ([]*Book, int, error) {
	var records []*Book

	q := r.db.NewSelect().
		Model(&records).
		Relation("Library")

	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"

		switch filter.Field {
		case SearchFieldName:
			q = q.Where("LOWER(?TableAlias.name) LIKE ?", pattern)
		case SearchFieldAuthor:
			q = q.Where("LOWER(?TableAlias.author) LIKE ?", pattern)
		default:
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					WhereOr("LOWER(?TableAlias.name) LIKE ?", pattern).
					WhereOr("LOWER(?TableAlias.author) LIKE ?", pattern)
			})
		}
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	total, err := q.Order("name ASC").ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// OwnedBy fetches the book only when it sits in one of the user's
// libraries.
func (r *books) OwnedBy(ctx context.Context, bookID, userID uuid.UUID) (*Book, error) {
	record := &Book{}

	err := r.db.NewSelect().
		Model(record).
		Join("JOIN libraries AS lib ON lib.id = ?TableAlias.library_id").
		Where("?TableAlias.id = ?", bookID).
		Where("lib.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"book_id": bookID.String(),
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *books) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Book)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	return err
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{Repository: repo, db: db}
}

func (r *profiles) GetForUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	record := &Profile{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}

	return record, nil
}

// AddFavorite is idempotent, re-favoriting an already favorite book is a
// no-op.
func (r *profiles) AddFavorite(ctx context.Context, profileID, bookID uuid.UUID) error {
	_, err := r.db.NewInsert().
		Model(&ProfileFavorite{
			ProfileID: profileID,
			BookID:    bookID,
		}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}

// RemoveFavorite drops the association only, the book itself survives.
func (r *profiles) RemoveFavorite(ctx context.Context, profileID, bookID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*ProfileFavorite)(nil)).
		Where("?TableAlias.profile_id = ?", profileID).
		Where("?TableAlias.book_id = ?", bookID).
		Exec(ctx)

	return err
}

func (r *profiles) ListFavorites(ctx context.Context, profileID uuid.UUID) ([]*Book, error) {
	var records []*Book

	err := r.db.NewSelect().
		Model(&records).
		Join("JOIN profile_favorites AS pfv ON pfv.book_id = ?TableAlias.id").
		Where("pfv.profile_id = ?", profileID).
		Order("name ASC").
		Scan(ctx)

	return records, err
}
