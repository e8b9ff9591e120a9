package sequence

import (
	"encoding/json"
	"strings"
)

// ActionType identifies the kind of ledger operation an action performs.
type ActionType string

const (
	ActionIssue    ActionType = "issue"
	ActionTransfer ActionType = "transfer"
	ActionRetire   ActionType = "retire"
)

// Action is one entry in a transaction under construction. Fields not used
// by its Type are left empty and omitted on the wire.
type Action struct {
	Type                    ActionType `json:"type"`
	FlavorID                string     `json:"flavor_id,omitempty"`
	AssetID                 string     `json:"asset_id,omitempty"`
	AssetAlias              string     `json:"asset_alias,omitempty"`
	Amount                  uint64     `json:"amount"`
	SourceAccountID         string     `json:"source_account_id,omitempty"`
	SourceAccountAlias      string     `json:"source_account_alias,omitempty"`
	SourceContractID        string     `json:"source_contract_id,omitempty"`
	DestinationAccountID    string     `json:"destination_account_id,omitempty"`
	DestinationAccountAlias string     `json:"destination_account_alias,omitempty"`
	ReferenceData           any        `json:"reference_data,omitempty"`
	ChangeReferenceData     any        `json:"change_reference_data,omitempty"`
}

// IssueParams creates new units of a flavor in a destination account.
type IssueParams struct {
	// FlavorID is required unless a deprecated asset identifier is given.
	FlavorID string
	// Deprecated: use FlavorID.
	AssetID string
	// Deprecated: use FlavorID.
	AssetAlias string
	// Amount is required and must be positive.
	Amount uint64
	// DestinationAccountID is required unless DestinationAccountAlias is set.
	DestinationAccountID string
	// Deprecated: use DestinationAccountID.
	DestinationAccountAlias string
	ReferenceData           any
}

// TransferParams moves units of a flavor from a source to a destination account.
type TransferParams struct {
	// One of SourceAccountID, SourceAccountAlias or SourceContractID is required.
	SourceAccountID string
	// Deprecated: use SourceAccountID.
	SourceAccountAlias string
	SourceContractID   string
	// FlavorID is required unless a deprecated asset identifier is given.
	FlavorID string
	// Deprecated: use FlavorID.
	AssetID string
	// Deprecated: use FlavorID.
	AssetAlias string
	// Amount is required and must be positive.
	Amount uint64
	// DestinationAccountID is required unless DestinationAccountAlias is set.
	DestinationAccountID string
	// Deprecated: use DestinationAccountID.
	DestinationAccountAlias string
	ReferenceData           any
	// ChangeReferenceData is attached to the change output, if one is needed.
	ChangeReferenceData any
}

// RetireParams removes units of a flavor from circulation.
type RetireParams struct {
	// One of SourceAccountID, SourceAccountAlias or SourceContractID is required.
	SourceAccountID string
	// Deprecated: use SourceAccountID.
	SourceAccountAlias string
	SourceContractID   string
	// FlavorID is required unless a deprecated asset identifier is given.
	FlavorID string
	// Deprecated: use FlavorID.
	AssetID string
	// Deprecated: use FlavorID.
	AssetAlias string
	// Amount is required and must be positive.
	Amount              uint64
	ReferenceData       any
	ChangeReferenceData any
}

// TransactionBuilder accumulates the actions of one transaction. Actions run
// in the order they are added. A builder is used for a single Transact call.
type TransactionBuilder struct {
	actions       []Action
	referenceData any
	err           *ConstructionError
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// Issue appends an issuance.
//
// Required fields are checked at append time rather than left to the
// ledger: an action without a flavor, a positive amount or a destination is
// not appended, and the first such failure is kept as a *ConstructionError
// that Err and Transact report before any request is sent. Everything else
// is validated by the ledger.
func (b *TransactionBuilder) Issue(p IssueParams) *TransactionBuilder {
	return b.add(Action{
		Type:                    ActionIssue,
		FlavorID:                p.FlavorID,
		AssetID:                 p.AssetID,
		AssetAlias:              p.AssetAlias,
		Amount:                  p.Amount,
		DestinationAccountID:    p.DestinationAccountID,
		DestinationAccountAlias: p.DestinationAccountAlias,
		ReferenceData:           p.ReferenceData,
	})
}

// Transfer appends a transfer. As with Issue, an action missing its flavor,
// a positive amount, a source or a destination is not appended and is
// recorded as the builder's *ConstructionError instead.
func (b *TransactionBuilder) Transfer(p TransferParams) *TransactionBuilder {
	return b.add(Action{
		Type:                    ActionTransfer,
		FlavorID:                p.FlavorID,
		AssetID:                 p.AssetID,
		AssetAlias:              p.AssetAlias,
		Amount:                  p.Amount,
		SourceAccountID:         p.SourceAccountID,
		SourceAccountAlias:      p.SourceAccountAlias,
		SourceContractID:        p.SourceContractID,
		DestinationAccountID:    p.DestinationAccountID,
		DestinationAccountAlias: p.DestinationAccountAlias,
		ReferenceData:           p.ReferenceData,
		ChangeReferenceData:     p.ChangeReferenceData,
	})
}

// Retire appends a retirement. As with Issue, an action missing its flavor,
// a positive amount or a source is not appended and is recorded as the
// builder's *ConstructionError instead.
func (b *TransactionBuilder) Retire(p RetireParams) *TransactionBuilder {
	return b.add(Action{
		Type:                ActionRetire,
		FlavorID:            p.FlavorID,
		AssetID:             p.AssetID,
		AssetAlias:          p.AssetAlias,
		Amount:              p.Amount,
		SourceAccountID:     p.SourceAccountID,
		SourceAccountAlias:  p.SourceAccountAlias,
		SourceContractID:    p.SourceContractID,
		ReferenceData:       p.ReferenceData,
		ChangeReferenceData: p.ChangeReferenceData,
	})
}

// SetReferenceData sets the transaction-level reference data.
func (b *TransactionBuilder) SetReferenceData(data any) *TransactionBuilder {
	b.referenceData = data
	return b
}

// Actions returns a copy of the actions added so far, in order.
func (b *TransactionBuilder) Actions() []Action {
	out := make([]Action, len(b.actions))
	copy(out, b.actions)
	return out
}

// ReferenceData returns the transaction-level reference data.
func (b *TransactionBuilder) ReferenceData() any { return b.referenceData }

// Err returns the first action that failed to validate, or nil.
func (b *TransactionBuilder) Err() error {
	if b.err == nil {
		return nil
	}
	return b.err
}

// MarshalJSON encodes the builder as a build-transaction request.
func (b *TransactionBuilder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Actions       []Action `json:"actions"`
		ReferenceData any      `json:"reference_data,omitempty"`
	}{
		Actions:       b.Actions(),
		ReferenceData: b.referenceData,
	})
}

func (b *TransactionBuilder) add(a Action) *TransactionBuilder {
	if reason := validateAction(a); reason != "" {
		if b.err == nil {
			b.err = &ConstructionError{Index: len(b.actions), Type: a.Type, Reason: reason}
		}
		return b
	}
	b.actions = append(b.actions, a)
	return b
}

func validateAction(a Action) string {
	var missing []string
	if a.Amount == 0 {
		missing = append(missing, "amount")
	}
	if a.FlavorID == "" && a.AssetID == "" && a.AssetAlias == "" {
		missing = append(missing, "flavor_id")
	}
	hasSource := a.SourceAccountID != "" || a.SourceAccountAlias != "" || a.SourceContractID != ""
	hasDestination := a.DestinationAccountID != "" || a.DestinationAccountAlias != ""
	switch a.Type {
	case ActionIssue:
		if !hasDestination {
			missing = append(missing, "destination_account_id")
		}
	case ActionTransfer:
		if !hasSource {
			missing = append(missing, "source_account_id")
		}
		if !hasDestination {
			missing = append(missing, "destination_account_id")
		}
	case ActionRetire:
		if !hasSource {
			missing = append(missing, "source_account_id")
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing " + strings.Join(missing, ", ")
}
