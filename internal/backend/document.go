package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// Document is the self-hosted backend variant: an embedded document store
// living under the organization's own data directory. Always org-scoped.
type Document struct {
	tenant domain.TenantKey
	db     *badger.DB
	store  *docStore
}

// OpenDocument opens (or creates) the document store at path.
func OpenDocument(tenant domain.TenantKey, path string) (*Document, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open document store %s: %w", path, err)
	}

	return &Document{
		tenant: tenant,
		db:     db,
		store:  &docStore{db: db},
	}, nil
}

func (d *Document) Kind() domain.BackendKind { return domain.BackendOrgHosted }
func (d *Document) Tenant() domain.TenantKey { return d.tenant }
func (d *Document) Store() Store             { return d.store }
func (d *Document) Close() error             { return d.db.Close() }
func (d *Document) sealed()                  {}

// Ping verifies the store is still usable.
func (d *Document) Ping(_ context.Context) error {
	if d.db.IsClosed() {
		return fmt.Errorf("document store %s: %w", d.tenant, badger.ErrDBClosed)
	}
	return nil
}

// docEnvelope is the on-disk JSON shape of a document.
type docEnvelope struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	ParentID   *string        `json:"parent_id,omitempty"`
	ParentType *string        `json:"parent_type,omitempty"`
	Data       map[string]any `json:"data"`
}

// docStore implements Store on badger. Keys are "<collection>/<id>";
// values are JSON envelopes.
type docStore struct {
	db *badger.DB
}

func docKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func toEnvelope(doc *domain.Document) docEnvelope {
	env := docEnvelope{
		ID:         doc.ID,
		Collection: doc.Collection,
		ParentID:   doc.ParentID,
		Data:       doc.Data,
	}
	if doc.ParentType != nil {
		t := string(*doc.ParentType)
		env.ParentType = &t
	}
	return env
}

func fromEnvelope(env docEnvelope) *domain.Document {
	doc := &domain.Document{
		ID:         env.ID,
		Collection: env.Collection,
		ParentID:   env.ParentID,
		Data:       env.Data,
	}
	if env.ParentType != nil {
		t := domain.EntityType(*env.ParentType)
		doc.ParentType = &t
	}
	return doc
}

func (s *docStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	var env docEnvelope

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}

	return fromEnvelope(env), nil
}

func (s *docStore) Insert(ctx context.Context, doc *domain.Document) error {
	val, err := json.Marshal(toEnvelope(doc))
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", doc.Collection, doc.ID, err)
	}

	key := docKey(doc.Collection, doc.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(key); getErr == nil {
			return domain.ErrAlreadyExists
		} else if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("insert document %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *docStore) Delete(ctx context.Context, collection, id string) error {
	key := docKey(collection, id)

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, getErr := txn.Get(key); getErr != nil {
			return getErr
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *docStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.mutate(collection, id, func(env *docEnvelope) {
		if env.Data == nil {
			env.Data = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			env.Data[k] = v
		}
	})
}

func (s *docStore) SetParent(ctx context.Context, collection, id, parentID string, parentType domain.EntityType) error {
	t := string(parentType)
	return s.mutate(collection, id, func(env *docEnvelope) {
		env.ParentID = &parentID
		env.ParentType = &t
	})
}

// mutate applies a read-modify-write inside one badger transaction.
func (s *docStore) mutate(collection, id string, apply func(*docEnvelope)) error {
	key := docKey(collection, id)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		var env docEnvelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}

		apply(&env)

		val, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *docStore) FindByField(ctx context.Context, collection, field, value string) ([]*domain.Document, error) {
	prefix := []byte(collection + "/")
	docs := make([]*domain.Document, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var env docEnvelope
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			if got, ok := env.Data[field]; ok && fmt.Sprint(got) == value {
				docs = append(docs, fromEnvelope(env))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find documents %s by %s: %w", collection, field, err)
	}

	return docs, nil
}
