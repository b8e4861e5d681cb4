package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/schedauth"
)

// Platforms implements schedauth.PlatformRepository. (provider,
// provider user id) is unique whenever the provider user id is set.
type Platforms struct {
	mu   sync.RWMutex
	byID map[string]schedauth.ConnectedPlatform
}

func NewPlatforms() *Platforms {
	return &Platforms{byID: make(map[string]schedauth.ConnectedPlatform)}
}

func clonePlatform(p schedauth.ConnectedPlatform) *schedauth.ConnectedPlatform {
	if p.TokenExpiresAt != nil {
		t := *p.TokenExpiresAt
		p.TokenExpiresAt = &t
	}
	if p.Metadata != nil {
		md := make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = v
		}
		p.Metadata = md
	}
	return &p
}

func (s *Platforms) Create(_ context.Context, p *schedauth.ConnectedPlatform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return schedauth.ErrDuplicate
	}
	for _, other := range s.byID {
		if other.AccountID == p.AccountID && other.Provider == p.Provider {
			return schedauth.ErrDuplicate
		}
		if p.ProviderUserID != "" && other.Provider == p.Provider && other.ProviderUserID == p.ProviderUserID {
			return schedauth.ErrDuplicate
		}
	}
	s.byID[p.ID] = *clonePlatform(*p)
	return nil
}

func (s *Platforms) FindByID(_ context.Context, id string) (*schedauth.ConnectedPlatform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return clonePlatform(p), nil
}

func (s *Platforms) FindByAccountAndProvider(_ context.Context, accountID, provider string) (*schedauth.ConnectedPlatform, error) {
	return s.find(func(p schedauth.ConnectedPlatform) bool {
		return p.AccountID == accountID && p.Provider == provider
	}), nil
}

func (s *Platforms) FindByProviderAndProviderUserID(_ context.Context, provider, providerUserID string) (*schedauth.ConnectedPlatform, error) {
	if providerUserID == "" {
		return nil, nil
	}
	return s.find(func(p schedauth.ConnectedPlatform) bool {
		return p.Provider == provider && p.ProviderUserID == providerUserID
	}), nil
}

func (s *Platforms) find(match func(schedauth.ConnectedPlatform) bool) *schedauth.ConnectedPlatform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.byID {
		if match(p) {
			return clonePlatform(p)
		}
	}
	return nil
}

// ListByAccount orders by creation time, then id.
func (s *Platforms) ListByAccount(_ context.Context, accountID string) ([]schedauth.ConnectedPlatform, error) {
	s.mu.RLock()
	out := make([]schedauth.ConnectedPlatform, 0)
	for _, p := range s.byID {
		if p.AccountID == accountID {
			out = append(out, *clonePlatform(p))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Platforms) UpdateTokens(_ context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil
	}
	p.AccessTokenEnc = accessTokenEnc
	p.RefreshTokenEnc = refreshTokenEnc
	p.TokenExpiresAt = nil
	if expiresAt != nil {
		t := *expiresAt
		p.TokenExpiresAt = &t
	}
	p.UpdatedAt = time.Now().UTC()
	s.byID[id] = p
	return nil
}

func (s *Platforms) UpdateProviderUserID(_ context.Context, id, providerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil
	}
	if providerUserID != "" {
		for otherID, other := range s.byID {
			if otherID != id && other.Provider == p.Provider && other.ProviderUserID == providerUserID {
				return schedauth.ErrDuplicate
			}
		}
	}
	p.ProviderUserID = providerUserID
	p.UpdatedAt = time.Now().UTC()
	s.byID[id] = p
	return nil
}

func (s *Platforms) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}
