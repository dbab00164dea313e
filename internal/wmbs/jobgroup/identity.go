package jobgroup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
)

type keyKind int

const (
	keyNone keyKind = iota
	keyID
	keyUID
)

// Key identifies a job group either by its surrogate id or by its uid
type Key struct {
	kind keyKind
	id   int64
	uid  string
}

// ByID returns a key resolving the job group with the given surrogate id
func ByID(id int64) Key {
	return Key{kind: keyID, id: id}
}

// ByUID returns a key resolving the job group with the given uid.
// An empty uid yields the zero key.
func ByUID(uid string) Key {
	if uid == "" {
		return Key{}
	}
	return Key{kind: keyUID, uid: uid}
}

// IsZero reports whether the key carries no identity at all
func (k Key) IsZero() bool {
	return k.kind == keyNone
}

func (k Key) String() string {
	switch k.kind {
	case keyID:
		return "id:" + strconv.FormatInt(k.id, 10)
	case keyUID:
		return "uid:" + k.uid
	default:
		return "none"
	}
}

// resolve maps a key onto the canonical surrogate id visible to q
func resolve(ctx context.Context, store Store, q storage.Querier, key Key) (int64, bool, error) {
	switch key.kind {
	case keyID:
		return store.JobGroupIDByID(ctx, q, key.id)
	case keyUID:
		return store.JobGroupIDByUID(ctx, q, key.uid)
	default:
		return 0, false, domain.ErrInvalidIdentity
	}
}

// Exists resolves the group's identity against q and returns its canonical id.
// ok is false when no row is visible in q's transactional view.
func (g *Group) Exists(ctx context.Context, q storage.Querier) (id int64, ok bool, err error) {
	id, ok, err = resolve(ctx, g.svc.store, q, g.Key())
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve job group %s: %w", g.Key(), err)
	}
	return id, ok, nil
}

// mustExist resolves the group and fails with ErrNotFound when it is absent
func (g *Group) mustExist(ctx context.Context, q storage.Querier) (int64, error) {
	id, ok, err := g.Exists(ctx, q)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("job group %s: %w", g.Key(), domain.ErrNotFound)
	}
	return id, nil
}
