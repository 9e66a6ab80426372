package bookshelf

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the user's position in the activation lifecycle
type AccountStatus = string

const (
	// StatusPendingActivation is a signed-up account waiting for its code
	StatusPendingActivation AccountStatus = "pending_activation"
	// StatusActive is a fully activated account
	StatusActive AccountStatus = "active"
	// StatusPendingEmailChange is an active account with an email change in flight
	StatusPendingEmailChange AccountStatus = "pending_email_change"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	IsActive      bool       `bun:"is_active" json:"is_active,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Profile   *Profile   `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	Libraries []*Library `bun:"rel:has-many,join:id=user_id" json:"libraries,omitempty"`
}

// Status derives the lifecycle status from the persisted flag and the
// user's pending activation record, if any.
func (u *User) Status(pending *Activation) AccountStatus {
	if u == nil || !u.IsActive {
		return StatusPendingActivation
	}

	if pending != nil && pending.IsEmailChange() {
		return StatusPendingEmailChange
	}

	return StatusActive
}

// HasEmail compares emails the way the unique constraint does, case
// insensitive.
func (u *User) HasEmail(email string) bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.Email, email)
}

// Activation is a one-time-use ledger entry linking a user to a pending
// action via an unguessable code. A blank PendingEmail means the record
// activates the account; otherwise it carries the address waiting to
// replace the user's current email.
type Activation struct {
	bun.BaseModel `bun:"table:activations,alias:act"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Code          string     `bun:"code,notnull,unique" json:"code,omitempty"`
	PendingEmail  string     `bun:"pending_email" json:"pending_email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsEmailChange reports whether the record was issued for an email change
// rather than account activation.
func (a *Activation) IsEmailChange() bool {
	return a != nil && a.PendingEmail != ""
}

// Library is a user-owned collection of books. Names are globally unique.
type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:lib"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Books         []*Book    `bun:"rel:has-many,join:id=library_id" json:"books,omitempty"`
}

// Book belongs to exactly one library; it may appear in any number of
// favorite sets without lifecycle coupling.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:bk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	LibraryID     *uuid.UUID `bun:"library_id,notnull" json:"library_id,omitempty"`
	Library       *Library   `bun:"rel:belongs-to,join:library_id=id" json:"library,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Author        string     `bun:"author,notnull" json:"author,omitempty"`
	Genre         string     `bun:"genre" json:"genre,omitempty"`
	PublishDate   *time.Time `bun:"publish_date,nullzero" json:"publish_date,omitempty"`
}

// Profile is the dependent one-to-one companion of User, created in the
// same transaction as the user itself. It owns nothing but the favorites
// association.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull,unique" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Favorites     []*Book    `bun:"m2m:profile_favorites,join:Profile=Book" json:"favorites,omitempty"`
}

// ProfileFavorite is the favorites join row. Removing one never deletes
// the book.
type ProfileFavorite struct {
	bun.BaseModel `bun:"table:profile_favorites,alias:pfv"`
	ProfileID     uuid.UUID `bun:"profile_id,pk,type:uuid" json:"profile_id,omitempty"`
	Profile       *Profile  `bun:"rel:belongs-to,join:profile_id=id" json:"profile,omitempty"`
	BookID        uuid.UUID `bun:"book_id,pk,type:uuid" json:"book_id,omitempty"`
	Book          *Book     `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
