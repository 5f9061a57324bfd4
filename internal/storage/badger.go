package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"tinylinker/internal/domain"
)

// BadgerRepository implements Repository using BadgerDB. Links and accounts
// are stored as JSON documents:
//
//	link:{id}      -> domain.Link (clicks embedded)
//	account:{id}   -> domain.Account
//	email:{email}  -> account id (unique index)
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository opens the database at dbPath and returns a repository
// backed by it.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the underlying database.
func (r *BadgerRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger db: %w", err)
	}
	return nil
}

func linkKey(id string) []byte    { return []byte("link:" + id) }
func accountKey(id string) []byte { return []byte("account:" + id) }
func emailKey(email string) []byte {
	return []byte("email:" + email)
}

var linkPrefix = []byte("link:")
var accountPrefix = []byte("account:")

// update runs fn in a read-write transaction, retrying serialization
// conflicts. Badger's serializable transactions detect racing writes to the
// same key; retrying the whole closure re-reads the document, so concurrent
// appends to one link all land.
func (r *BadgerRepository) update(fn func(txn *badger.Txn) error) error {
	for {
		err := r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// --- Links ---

func (r *BadgerRepository) CreateLink(ctx context.Context, link *domain.Link) error {
	err := r.update(func(txn *badger.Txn) error {
		return setJSON(txn, linkKey(link.ID), link)
	})
	if err != nil {
		return fmt.Errorf("failed to create link %s: %w", link.ID, err)
	}

	r.log.WithFields(logrus.Fields{
		"link_id": link.ID,
		"url":     link.OriginalURL,
	}).Info("Link created")
	return nil
}

func (r *BadgerRepository) GetLink(ctx context.Context, id string) (*domain.Link, error) {
	var link domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, linkKey(id), &link)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link %s: %w", id, err)
	}
	return &link, nil
}

// DeleteLink removes the link document and strips its id from every account
// referencing it. Both happen in one transaction so a crash can never leave
// an account pointing at a dead link.
func (r *BadgerRepository) DeleteLink(ctx context.Context, id string) error {
	err := r.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(linkKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		if err := txn.Delete(linkKey(id)); err != nil {
			return err
		}
		return removeLinkFromAccountsTxn(txn, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete link %s: %w", id, err)
	}

	r.log.WithField("link_id", id).Info("Link deleted")
	return nil
}

func (r *BadgerRepository) ListLinks(ctx context.Context) ([]domain.Link, error) {
	var links []domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(linkPrefix); it.ValidForPrefix(linkPrefix); it.Next() {
			var link domain.Link
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &link)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal link %s: %w", it.Item().Key(), err)
			}
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

func (r *BadgerRepository) ListLinksByIDs(ctx context.Context, ids []string) ([]domain.Link, error) {
	var links []domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var link domain.Link
			err := getJSON(txn, linkKey(id), &link)
			if errors.Is(err, ErrNotFound) {
				// Stale reference; the link set is advisory.
				continue
			}
			if err != nil {
				return err
			}
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links by ids: %w", err)
	}
	return links, nil
}

func (r *BadgerRepository) AppendClick(ctx context.Context, id string, click domain.Click) (*domain.Link, error) {
	var updated domain.Link
	err := r.update(func(txn *badger.Txn) error {
		var link domain.Link
		if err := getJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		link.Clicks = append(link.Clicks, click)
		if err := setJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		updated = link
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to append click to link %s: %w", id, err)
	}

	r.log.WithFields(logrus.Fields{
		"link_id":      id,
		"target_value": click.TargetParamValue,
	}).Debug("Click appended")
	return &updated, nil
}

func (r *BadgerRepository) UpdateLinkTargets(ctx context.Context, id, paramName string, values []domain.TargetValue) (*domain.Link, error) {
	var updated domain.Link
	err := r.update(func(txn *badger.Txn) error {
		var link domain.Link
		if err := getJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		link.TargetParamName = paramName
		link.TargetValues = values
		if err := setJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		updated = link
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update targets for link %s: %w", id, err)
	}

	r.log.WithFields(logrus.Fields{
		"link_id":    id,
		"param_name": paramName,
		"values":     len(values),
	}).Info("Link target configuration replaced")
	return &updated, nil
}

func (r *BadgerRepository) UpdateLinkURL(ctx context.Context, id, originalURL string) (*domain.Link, error) {
	var updated domain.Link
	err := r.update(func(txn *badger.Txn) error {
		var link domain.Link
		if err := getJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		link.OriginalURL = originalURL
		if err := setJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		updated = link
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update url for link %s: %w", id, err)
	}
	return &updated, nil
}

func (r *BadgerRepository) UpdateLinkTitle(ctx context.Context, id, title string) error {
	err := r.update(func(txn *badger.Txn) error {
		var link domain.Link
		if err := getJSON(txn, linkKey(id), &link); err != nil {
			return err
		}
		link.Title = title
		return setJSON(txn, linkKey(id), &link)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update title for link %s: %w", id, err)
	}
	return nil
}

// --- Accounts ---

func (r *BadgerRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := r.update(func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(account.Email))
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, accountKey(account.ID), account); err != nil {
			return err
		}
		return txn.Set(emailKey(account.Email), []byte(account.ID))
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      account.Email,
	}).Info("Account created")
	return nil
}

func (r *BadgerRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, accountKey(id), &account)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &account, nil
}

func (r *BadgerRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, accountKey(id), &account)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return &account, nil
}

func (r *BadgerRepository) AddLinkToAccount(ctx context.Context, accountID, linkID string) error {
	err := r.update(func(txn *badger.Txn) error {
		var account domain.Account
		if err := getJSON(txn, accountKey(accountID), &account); err != nil {
			return err
		}
		for _, id := range account.LinkIDs {
			if id == linkID {
				return nil
			}
		}
		account.LinkIDs = append(account.LinkIDs, linkID)
		return setJSON(txn, accountKey(accountID), &account)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add link %s to account %s: %w", linkID, accountID, err)
	}
	return nil
}

func (r *BadgerRepository) RemoveLinkFromAccounts(ctx context.Context, linkID string) error {
	err := r.update(func(txn *badger.Txn) error {
		return removeLinkFromAccountsTxn(txn, linkID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove link %s from accounts: %w", linkID, err)
	}
	return nil
}

// removeLinkFromAccountsTxn strips linkID from the LinkIDs of every account
// that references it, within the caller's transaction.
func removeLinkFromAccountsTxn(txn *badger.Txn, linkID string) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	type patch struct {
		key     []byte
		account domain.Account
	}
	var patches []patch

	for it.Seek(accountPrefix); it.ValidForPrefix(accountPrefix); it.Next() {
		item := it.Item()
		var account domain.Account
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal account %s: %w", item.Key(), err)
		}

		kept := account.LinkIDs[:0]
		removed := false
		for _, id := range account.LinkIDs {
			if id == linkID {
				removed = true
				continue
			}
			kept = append(kept, id)
		}
		if removed {
			account.LinkIDs = kept
			patches = append(patches, patch{key: item.KeyCopy(nil), account: account})
		}
	}

	// Writes happen after iteration; badger forbids Set while an iterator
	// on the same transaction is open.
	it.Close()
	for _, p := range patches {
		if err := setJSON(txn, p.key, &p.account); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger adapts logrus.FieldLogger to badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Infof(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }

var _ Repository = (*BadgerRepository)(nil)
