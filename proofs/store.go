package proofs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/paymesh/paymesh/types"
)

// BadgerStore persists proofs in an embedded Badger database keyed by proof
// hash.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a proof store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening proof store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func proofKey(hash string) []byte {
	return []byte("proof:" + hash)
}

// Save stores a proof under its hash. Saving the same proof twice is
// harmless: the value is identical by construction.
func (s *BadgerStore) Save(_ context.Context, proof *types.Proof) error {
	payload, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("encoding proof: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(proofKey(proof.Hash), payload)
	})
}

// Get loads a proof by hash.
func (s *BadgerStore) Get(_ context.Context, hash string) (*types.Proof, error) {
	var proof types.Proof
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(proofKey(hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &proof)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &types.Error{
			Code:    types.ErrNotFound,
			Message: fmt.Sprintf("proof %s not found", hash),
		}
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
