// ABOUTME: Persistence gateway selecting a snapshot backend by kind
// ABOUTME: Backends load and save the full entity snapshot; corrupt data is reported, never guessed at
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/funnel/models"
)

// Backend kinds accepted by Open.
const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Kinds lists every supported backend kind.
var Kinds = []string{KindJSON, KindSQLite, KindBadger}

// ErrCorruptSnapshot is returned by Load when stored data cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Backend persists a whole snapshot at a time. Load on a backend that has
// never been saved returns an empty snapshot and no error.
type Backend interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// Open returns the backend of the given kind rooted at path. An empty kind
// means json.
func Open(kind, path string) (Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open %s backend: empty path", kind)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindJSON:
		return NewJSONFileBackend(path), nil
	case KindSQLite:
		return NewSQLiteBackend(path)
	case KindBadger:
		return NewBadgerBackend(path)
	default:
		return nil, fmt.Errorf("unknown backend %q (expected one of %s)", kind, strings.Join(Kinds, ", "))
	}
}

// ParseLocation splits "kind:path" into its parts. A location without a
// known kind prefix is a json path.
func ParseLocation(loc string) (kind, path string) {
	if k, p, ok := strings.Cut(loc, ":"); ok {
		for _, known := range Kinds {
			if strings.EqualFold(k, known) {
				return known, p
			}
		}
	}
	return KindJSON, loc
}

func corrupt(where string, err error) error {
	return fmt.Errorf("%s: %w: %v", where, ErrCorruptSnapshot, err)
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
}
