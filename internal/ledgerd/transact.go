package ledgerd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// Template is a built transaction travelling through sign and submit.
// Hash covers ID, Actions and ReferenceData; Signatures do not.
type Template struct {
	ID            string            `json:"id"`
	Actions       []sequence.Action `json:"actions"`
	ReferenceData any               `json:"reference_data,omitempty"`
	Hash          string            `json:"hash"`
	Signatures    []string          `json:"signatures,omitempty"`
}

func (t *Template) digest() (string, error) {
	raw, err := json.Marshal(struct {
		ID            string            `json:"id"`
		Actions       []sequence.Action `json:"actions"`
		ReferenceData any               `json:"reference_data,omitempty"`
	}{t.ID, t.Actions, t.ReferenceData})
	if err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// checkHash rejects templates altered since build.
func (t *Template) checkHash() error {
	if t == nil {
		return errInvalidBody("missing transaction")
	}
	h, err := t.digest()
	if err != nil {
		return err
	}
	if h != t.Hash {
		return errRejected("template %q was modified after build", t.ID)
	}
	return nil
}

type buildRequest struct {
	Actions       []sequence.Action `json:"actions"`
	ReferenceData any               `json:"reference_data,omitempty"`
}

type templateRequest struct {
	Transaction *Template `json:"transaction"`
}

// signerSet is an account or flavor whose keys must authorise an action.
type signerSet struct {
	kind   string
	id     string
	keyIDs []string
	quorum int
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// build resolves deprecated identifiers, checks every referenced account
// and flavor exists, and returns an unsigned template.
func (s *store) build(req buildRequest) (*Template, error) {
	if len(req.Actions) == 0 {
		return nil, errRejected("transaction has no actions")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	actions := make([]sequence.Action, len(req.Actions))
	for i, a := range req.Actions {
		if a.SourceContractID != "" {
			return nil, errRejected("action %d: contract spends are not supported", i)
		}
		if a.Amount == 0 {
			return nil, errRejected("action %d: amount must be positive", i)
		}

		flavorID := firstNonEmpty(a.FlavorID, a.AssetID, a.AssetAlias)
		if flavorID == "" {
			return nil, errRejected("action %d: missing flavor_id", i)
		}
		if _, ok := s.flavorByID[flavorID]; !ok {
			return nil, errNotFound("flavor", flavorID)
		}

		src := firstNonEmpty(a.SourceAccountID, a.SourceAccountAlias)
		dst := firstNonEmpty(a.DestinationAccountID, a.DestinationAccountAlias)
		switch a.Type {
		case sequence.ActionIssue:
			src = ""
			if dst == "" {
				return nil, errRejected("action %d: issue needs a destination account", i)
			}
		case sequence.ActionTransfer:
			if src == "" || dst == "" {
				return nil, errRejected("action %d: transfer needs source and destination accounts", i)
			}
		case sequence.ActionRetire:
			dst = ""
			if src == "" {
				return nil, errRejected("action %d: retire needs a source account", i)
			}
		default:
			return nil, errRejected("action %d: unknown type %q", i, a.Type)
		}
		for _, id := range []string{src, dst} {
			if _, ok := s.accountByID[id]; id != "" && !ok {
				return nil, errNotFound("account", id)
			}
		}

		actions[i] = sequence.Action{
			Type:                 a.Type,
			FlavorID:             flavorID,
			Amount:               a.Amount,
			SourceAccountID:      src,
			DestinationAccountID: dst,
			ReferenceData:        a.ReferenceData,
			ChangeReferenceData:  a.ChangeReferenceData,
		}
	}

	tpl := &Template{ID: uuid.New().String(), Actions: actions, ReferenceData: req.ReferenceData}
	h, err := tpl.digest()
	if err != nil {
		return nil, err
	}
	tpl.Hash = h
	return tpl, nil
}

// requiredSigners lists, without duplicates, the flavors being issued and
// the accounts being spent from. Callers hold mu.
func (s *store) requiredSigners(actions []sequence.Action) ([]signerSet, error) {
	var out []signerSet
	seen := make(map[string]bool)
	for _, a := range actions {
		var set signerSet
		switch a.Type {
		case sequence.ActionIssue:
			f, ok := s.flavorByID[a.FlavorID]
			if !ok {
				return nil, errNotFound("flavor", a.FlavorID)
			}
			set = signerSet{kind: "flavor", id: f.ID, keyIDs: f.KeyIDs, quorum: f.Quorum}
		default:
			acct, ok := s.accountByID[a.SourceAccountID]
			if !ok {
				return nil, errNotFound("account", a.SourceAccountID)
			}
			set = signerSet{kind: "account", id: acct.ID, keyIDs: acct.KeyIDs, quorum: acct.Quorum}
		}
		if k := set.kind + "/" + set.id; !seen[k] {
			seen[k] = true
			out = append(out, set)
		}
	}
	return out, nil
}

// sign adds a signature from every key of every required signer.
func (s *store) sign(tpl *Template) (*Template, error) {
	if err := tpl.checkHash(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sets, err := s.requiredSigners(tpl.Actions)
	if err != nil {
		return nil, err
	}

	out := *tpl
	out.Signatures = append([]string(nil), tpl.Signatures...)
	signed := make(map[string]bool)
	for _, set := range sets {
		for _, keyID := range set.keyIDs {
			if signed[keyID] {
				continue
			}
			sig, err := s.keyring.Sign(keyID, tpl.Hash)
			if err != nil {
				return nil, err
			}
			out.Signatures = append(out.Signatures, sig)
			signed[keyID] = true
		}
	}
	return &out, nil
}

// submit verifies signatures and balances, records the transaction on the
// chain, and only then applies it.
func (s *store) submit(ctx context.Context, tpl *Template) (*sequence.Transaction, error) {
	if err := tpl.checkHash(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted[tpl.ID] {
		return nil, errRejected("template %q was already submitted", tpl.ID)
	}

	verified := make(map[string]bool)
	for i, sig := range tpl.Signatures {
		keyID, err := s.keyring.Verify(sig, tpl.Hash)
		if err != nil {
			return nil, errSignature("signature %d: %v", i, err)
		}
		verified[keyID] = true
	}

	sets, err := s.requiredSigners(tpl.Actions)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		n := 0
		for _, id := range set.keyIDs {
			if verified[id] {
				n++
			}
		}
		if n < set.quorum {
			return nil, errSignature("%s %q needs %d signatures, got %d", set.kind, set.id, set.quorum, n)
		}
	}

	next := make(map[balanceKey]uint64)
	get := func(k balanceKey) uint64 {
		if v, ok := next[k]; ok {
			return v
		}
		return s.balances[k]
	}

	tx := sequence.Transaction{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		SequenceNumber: s.seq + 1,
		ReferenceData:  tpl.ReferenceData,
		Actions:        make([]sequence.TransactionAction, len(tpl.Actions)),
	}
	for i, a := range tpl.Actions {
		if a.SourceAccountID != "" {
			k := balanceKey{a.SourceAccountID, a.FlavorID}
			have := get(k)
			if have < a.Amount {
				return nil, errInsufficientFunds(k.account, k.flavor, have, a.Amount)
			}
			next[k] = have - a.Amount
		}
		if a.DestinationAccountID != "" {
			k := balanceKey{a.DestinationAccountID, a.FlavorID}
			have := get(k)
			if have > math.MaxUint64-a.Amount {
				return nil, errRejected("action %d: balance overflow", i)
			}
			next[k] = have + a.Amount
		}

		flavor, ok := s.flavorByID[a.FlavorID]
		if !ok {
			return nil, errNotFound("flavor", a.FlavorID)
		}
		ta := sequence.TransactionAction{
			ID:                   uuid.New().String(),
			Type:                 a.Type,
			FlavorID:             a.FlavorID,
			FlavorTags:           flavor.Tags,
			Amount:               a.Amount,
			SourceAccountID:      a.SourceAccountID,
			DestinationAccountID: a.DestinationAccountID,
			ReferenceData:        a.ReferenceData,
		}
		if acct, ok := s.accountByID[a.SourceAccountID]; ok {
			ta.SourceAccountTags = acct.Tags
		}
		if acct, ok := s.accountByID[a.DestinationAccountID]; ok {
			ta.DestinationAccountTags = acct.Tags
		}
		tx.Actions[i] = ta
	}

	if _, err := s.chain.Append(ctx, chain.KindTransaction, tx.ID, len(tx.Actions), tx); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	for k, v := range next {
		s.balances[k] = v
	}
	s.txs = append(s.txs, tx)
	s.submitted[tpl.ID] = true
	s.seq = tx.SequenceNumber
	return &tx, nil
}
