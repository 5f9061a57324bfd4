package storage

import (
	"context"
	"errors"

	"tinylinker/internal/domain"
)

// ErrNotFound is returned when a link or account identifier does not
// resolve to a stored document.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when registering an account with an email that
// is already in use.
var ErrEmailTaken = errors.New("email already registered")

// LinkRepository defines storage operations for link documents.
// All mutations of a document run inside a single serializable transaction,
// so concurrent click appends to the same link never lose records.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLink(ctx context.Context, id string) (*domain.Link, error)

	// DeleteLink removes the link and strips its id from every account
	// that references it, in one transaction.
	DeleteLink(ctx context.Context, id string) error

	ListLinks(ctx context.Context) ([]domain.Link, error)

	// ListLinksByIDs returns the links that exist among ids; missing ids
	// are skipped, not errors.
	ListLinksByIDs(ctx context.Context, ids []string) ([]domain.Link, error)

	// AppendClick atomically appends one click to the link's history and
	// returns the updated document.
	AppendClick(ctx context.Context, id string, click domain.Click) (*domain.Link, error)

	// UpdateLinkTargets replaces the target configuration wholesale.
	// Callers validate the configuration before invoking; the store does
	// not re-check it.
	UpdateLinkTargets(ctx context.Context, id, paramName string, values []domain.TargetValue) (*domain.Link, error)

	UpdateLinkURL(ctx context.Context, id, originalURL string) (*domain.Link, error)
	UpdateLinkTitle(ctx context.Context, id, title string) error
}

// AccountRepository defines storage operations for accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	AddLinkToAccount(ctx context.Context, accountID, linkID string) error
	RemoveLinkFromAccounts(ctx context.Context, linkID string) error
}

// Repository is the full persistence surface backed by one store.
type Repository interface {
	LinkRepository
	AccountRepository

	// Close gracefully shuts down the store.
	Close() error
}
