package ledgerd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/internal/signer"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

type balanceKey struct {
	account string
	flavor  string
}

// store is the ledger's whole mutable state, guarded by one lock.
type store struct {
	mu sync.RWMutex

	chain   chain.Ledger
	keyring *signer.Keyring
	keys    []sequence.Key

	accounts    []*sequence.Account
	accountByID map[string]*sequence.Account

	flavors    []*sequence.Flavor
	flavorByID map[string]*sequence.Flavor

	txs       []sequence.Transaction // commit order
	balances  map[balanceKey]uint64
	submitted map[string]bool // template IDs already committed
	seq       int64
}

func newStore(ledger chain.Ledger, keyring *signer.Keyring) *store {
	s := &store{chain: ledger, keyring: keyring}
	s.clear()
	return s
}

// clear drops all state. Callers hold mu, except newStore.
func (s *store) clear() {
	s.keyring.Reset()
	s.keys = nil
	s.accounts = nil
	s.accountByID = make(map[string]*sequence.Account)
	s.flavors = nil
	s.flavorByID = make(map[string]*sequence.Flavor)
	s.txs = nil
	s.balances = make(map[balanceKey]uint64)
	s.submitted = make(map[string]bool)
	s.seq = 0
}

// reset wipes state. The chain is an audit log and only records the reset.
func (s *store) reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.chain.Append(ctx, chain.KindReset, "", 0, nil); err != nil {
		return fmt.Errorf("record reset: %w", err)
	}
	s.clear()
	return nil
}

func (s *store) createKey(p sequence.CreateKeyParams) (sequence.Key, error) {
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.keyring.Create(id); err != nil {
		if errors.Is(err, signer.ErrDuplicateKey) {
			return sequence.Key{}, errDuplicate("key", id)
		}
		return sequence.Key{}, err
	}
	k := sequence.Key{ID: id}
	s.keys = append(s.keys, k)
	return k, nil
}

// checkSigners validates the key set shared by accounts and flavors and
// returns the effective quorum. Callers hold mu.
func (s *store) checkSigners(keyIDs []string, quorum int) (int, error) {
	if len(keyIDs) == 0 {
		return 0, errInvalidBody("key_ids must name at least one key")
	}
	seen := make(map[string]bool, len(keyIDs))
	for _, id := range keyIDs {
		if seen[id] {
			return 0, errInvalidBody("key %q listed twice", id)
		}
		seen[id] = true
		if !s.keyring.Has(id) {
			return 0, errNotFound("key", id)
		}
	}
	if quorum == 0 {
		quorum = len(keyIDs)
	}
	if quorum < 0 || quorum > len(keyIDs) {
		return 0, errInvalidBody("quorum %d must be between 1 and %d", quorum, len(keyIDs))
	}
	return quorum, nil
}

func (s *store) createAccount(p sequence.CreateAccountParams) (sequence.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	if _, ok := s.accountByID[id]; ok {
		return sequence.Account{}, errDuplicate("account", id)
	}
	quorum, err := s.checkSigners(p.KeyIDs, p.Quorum)
	if err != nil {
		return sequence.Account{}, err
	}

	a := &sequence.Account{ID: id, KeyIDs: append([]string(nil), p.KeyIDs...), Quorum: quorum, Tags: p.Tags}
	s.accounts = append(s.accounts, a)
	s.accountByID[id] = a
	return *a, nil
}

func (s *store) createFlavor(p sequence.CreateFlavorParams) (sequence.Flavor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	if _, ok := s.flavorByID[id]; ok {
		return sequence.Flavor{}, errDuplicate("flavor", id)
	}
	quorum, err := s.checkSigners(p.KeyIDs, p.Quorum)
	if err != nil {
		return sequence.Flavor{}, err
	}

	f := &sequence.Flavor{ID: id, KeyIDs: append([]string(nil), p.KeyIDs...), Quorum: quorum, Tags: p.Tags}
	s.flavors = append(s.flavors, f)
	s.flavorByID[id] = f
	return *f, nil
}

// Tags are replaced, never mutated, so snapshots taken earlier stay valid.
func (s *store) updateAccountTags(p sequence.UpdateTagsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accountByID[p.ID]
	if !ok {
		return errNotFound("account", p.ID)
	}
	a.Tags = p.Tags
	return nil
}

func (s *store) updateFlavorTags(p sequence.UpdateTagsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flavorByID[p.ID]
	if !ok {
		return errNotFound("flavor", p.ID)
	}
	f.Tags = p.Tags
	return nil
}

// ── snapshots for listing ───────────────────────────────────────────────────

func (s *store) listKeys() []sequence.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sequence.Key(nil), s.keys...)
}

func (s *store) listAccounts() []sequence.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sequence.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = *a
	}
	return out
}

func (s *store) listFlavors() []sequence.Flavor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sequence.Flavor, len(s.flavors))
	for i, f := range s.flavors {
		out[i] = *f
	}
	return out
}

// listTransactions returns newest first.
func (s *store) listTransactions() []sequence.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sequence.Transaction, len(s.txs))
	for i, tx := range s.txs {
		out[len(s.txs)-1-i] = tx
	}
	return out
}

// listActions returns newest first; actions of one transaction keep their order.
func (s *store) listActions() []sequence.ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sequence.ActionRecord
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		for _, a := range tx.Actions {
			out = append(out, sequence.ActionRecord{
				TransactionAction: a,
				TransactionID:     tx.ID,
				Timestamp:         tx.Timestamp,
			})
		}
	}
	return out
}

// listTokens returns non-zero balances in account then flavor creation order.
func (s *store) listTokens() []sequence.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sequence.Token
	for _, a := range s.accounts {
		for _, f := range s.flavors {
			amt := s.balances[balanceKey{a.ID, f.ID}]
			if amt == 0 {
				continue
			}
			out = append(out, sequence.Token{
				Amount:      amt,
				FlavorID:    f.ID,
				FlavorTags:  f.Tags,
				AccountID:   a.ID,
				AccountTags: a.Tags,
			})
		}
	}
	return out
}
