package store

import (
	"context"
	"sync"
	"time"

	"zeropass/internal/credential/models"
	id "zeropass/pkg/domain"
)

// InMemoryStore keeps credentials in a map for tests and single-node demos.
type InMemoryStore struct {
	mu    sync.RWMutex
	byUID map[id.UserID]*models.Credential
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byUID: make(map[id.UserID]*models.Credential)}
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID id.UserID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

// FindByWallet returns the most recently updated credential for wallet.
func (s *InMemoryStore) FindByWallet(_ context.Context, wallet id.WalletAddress) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Credential
	for _, c := range s.byUID {
		if c.WalletAddress != wallet {
			continue
		}
		if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

// FindLiveByWallet returns the most recently updated live credential for
// wallet that exclude does not own.
func (s *InMemoryStore) FindLiveByWallet(_ context.Context, wallet id.WalletAddress, exclude id.UserID, now time.Time) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Credential
	for uid, c := range s.byUID {
		if c.WalletAddress != wallet || uid == exclude || !c.IsLive(now) {
			continue
		}
		if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *InMemoryStore) FindByCredentialID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byUID {
		if c.CredentialID == credentialID {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Upsert(_ context.Context, c *models.Credential) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *c
	if existing, ok := s.byUID[c.UserID]; ok {
		next.CreatedAt = existing.CreatedAt
		if existing.Status == models.StatusRevoked {
			next.Status = existing.Status
			next.CredentialID = existing.CredentialID
			next.IssuedAt = existing.IssuedAt
			next.ExpiresAt = existing.ExpiresAt
			next.RevokedAt = existing.RevokedAt
		}
	}
	s.byUID[c.UserID] = &next
	out := next
	return &out, nil
}
