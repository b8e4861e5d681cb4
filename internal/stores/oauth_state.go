package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/store"
)

// ErrOAuthStateUnavailable wraps backend failures.
var ErrOAuthStateUnavailable = errors.New("oauth state backend unavailable")

// OAuthStateRecord is the payload bound to a state token.
type OAuthStateRecord struct {
	AccountID string `json:"user_id"`
	Provider  string `json:"provider"`
}

// OAuthStateStore keeps single-use OAuth state tokens.
type OAuthStateStore struct {
	kv  *store.Store
	ttl time.Duration
}

func NewOAuthStateStore(kv *store.Store, ttl time.Duration) *OAuthStateStore {
	return &OAuthStateStore{kv: kv, ttl: ttl}
}

func (s *OAuthStateStore) Put(ctx context.Context, state string, rec OAuthStateRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, internal.OAuthStateKey(state), data, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrOAuthStateUnavailable, err)
	}
	return nil
}

// Take reads and deletes state in one GETDEL. ok is false when the state is
// unknown, expired, already taken, or holds an undecodable payload.
func (s *OAuthStateStore) Take(ctx context.Context, state string) (rec OAuthStateRecord, ok bool, err error) {
	data, found, err := s.kv.GetDel(ctx, internal.OAuthStateKey(state))
	if err != nil {
		return OAuthStateRecord{}, false, fmt.Errorf("%w: %v", ErrOAuthStateUnavailable, err)
	}
	if !found {
		return OAuthStateRecord{}, false, nil
	}
	if err := json.Unmarshal([]byte(data), &rec); err != nil || rec.AccountID == "" || rec.Provider == "" {
		return OAuthStateRecord{}, false, nil
	}
	return rec, true, nil
}
