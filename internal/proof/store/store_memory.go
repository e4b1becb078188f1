package store

import (
	"context"
	"sync"

	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
)

type recordKey struct {
	credentialID id.CredentialID
	wallet       id.WalletAddress
}

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[recordKey]models.Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{r.CredentialID, r.WalletAddress}] = *r
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, credentialID id.CredentialID, wallet id.WalletAddress) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{credentialID, wallet}]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}
