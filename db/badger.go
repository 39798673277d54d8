// ABOUTME: Badger key-value snapshot backend
// ABOUTME: Entities live under "<kind>/<id>" keys and are rewritten in a single transaction
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/funnel/models"
)

// Key prefixes, one per entity kind.
const (
	prefixContact  = "contact/"
	prefixLead     = "lead/"
	prefixCampaign = "campaign/"
	prefixDocument = "document/"
)

var prefixes = []string{prefixContact, prefixLead, prefixCampaign, prefixDocument}

// BadgerBackend stores each entity as a JSON value.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (creating if needed) a badger store in dir.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, persistence("open badger "+dir, err)
	}
	return &BadgerBackend{db: db}, nil
}

// entityKey zero-pads ids so iteration order matches numeric order.
func entityKey(prefix string, id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefix, id))
}

func (b *BadgerBackend) Load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := models.EmptySnapshot()
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		if snap.Contacts, err = scanPrefix[models.Contact](txn, prefixContact); err != nil {
			return err
		}
		if snap.Leads, err = scanPrefix[models.Lead](txn, prefixLead); err != nil {
			return err
		}
		if snap.Campaigns, err = scanPrefix[models.Campaign](txn, prefixCampaign); err != nil {
			return err
		}
		snap.Documents, err = scanPrefix[models.Document](txn, prefixDocument)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func scanPrefix[T any](txn *badger.Txn, prefix string) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	out := []T{}
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var v T
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return nil, corrupt(string(item.Key()), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *BadgerBackend) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, p := range prefixes {
			if err := dropPrefix(txn, p); err != nil {
				return err
			}
		}
		for _, c := range snap.Contacts {
			if err := putJSON(txn, entityKey(prefixContact, c.ID), c); err != nil {
				return err
			}
		}
		for _, l := range snap.Leads {
			if err := putJSON(txn, entityKey(prefixLead, l.ID), l); err != nil {
				return err
			}
		}
		for _, c := range snap.Campaigns {
			if err := putJSON(txn, entityKey(prefixCampaign, c.ID), c); err != nil {
				return err
			}
		}
		for _, d := range snap.Documents {
			if err := putJSON(txn, entityKey(prefixDocument, d.ID), d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistence("save badger snapshot", err)
	}
	return nil
}

func dropPrefix(txn *badger.Txn, prefix string) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func (b *BadgerBackend) Close() error { return b.db.Close() }
