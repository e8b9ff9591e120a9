package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// actionFile is the YAML document accepted by "seq transact -f".
//
//	reference_data:
//	  batch: payroll-2024-06
//	actions:
//	  - type: issue
//	    flavor_id: usd
//	    amount: 1000
//	    destination_account_id: treasury
//	  - type: transfer
//	    flavor_id: usd
//	    amount: 250
//	    source_account_id: treasury
//	    destination_account_id: alice
type actionFile struct {
	ReferenceData any          `yaml:"reference_data"`
	Actions       []actionSpec `yaml:"actions"`
}

type actionSpec struct {
	Type                 string `yaml:"type"`
	FlavorID             string `yaml:"flavor_id"`
	Amount               uint64 `yaml:"amount"`
	SourceAccountID      string `yaml:"source_account_id"`
	SourceContractID     string `yaml:"source_contract_id"`
	DestinationAccountID string `yaml:"destination_account_id"`
	ReferenceData        any    `yaml:"reference_data"`
	ChangeReferenceData  any    `yaml:"change_reference_data"`
}

func parseActionFile(r io.Reader) (*actionFile, error) {
	var f actionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse action file: %w", err)
	}
	if len(f.Actions) == 0 {
		return nil, fmt.Errorf("action file has no actions")
	}
	return &f, nil
}

// apply adds the file's actions to b in order.
func (f *actionFile) apply(b *sequence.TransactionBuilder) error {
	for i, a := range f.Actions {
		switch sequence.ActionType(a.Type) {
		case sequence.ActionIssue:
			b.Issue(sequence.IssueParams{
				FlavorID:             a.FlavorID,
				Amount:               a.Amount,
				DestinationAccountID: a.DestinationAccountID,
				ReferenceData:        a.ReferenceData,
			})
		case sequence.ActionTransfer:
			b.Transfer(sequence.TransferParams{
				SourceAccountID:      a.SourceAccountID,
				SourceContractID:     a.SourceContractID,
				FlavorID:             a.FlavorID,
				Amount:               a.Amount,
				DestinationAccountID: a.DestinationAccountID,
				ReferenceData:        a.ReferenceData,
				ChangeReferenceData:  a.ChangeReferenceData,
			})
		case sequence.ActionRetire:
			b.Retire(sequence.RetireParams{
				SourceAccountID:     a.SourceAccountID,
				SourceContractID:    a.SourceContractID,
				FlavorID:            a.FlavorID,
				Amount:              a.Amount,
				ReferenceData:       a.ReferenceData,
				ChangeReferenceData: a.ChangeReferenceData,
			})
		default:
			return fmt.Errorf("action %d: unknown type %q", i, a.Type)
		}
	}
	if f.ReferenceData != nil {
		b.SetReferenceData(f.ReferenceData)
	}
	return nil
}

// ── transact ─────────────────────────────────────────────────────────────────

var transactFile string

var transactCmd = &cobra.Command{
	Use:   "transact -f <actions.yaml>",
	Short: "Build, sign and submit a transaction from a YAML action file",
	Long: `transact reads a list of issue, transfer and retire actions and submits
them as one transaction. Nothing is sent if the file fails to parse or an
action is missing a required field. Use "-f -" to read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if transactFile != "-" {
			fh, err := os.Open(transactFile)
			if err != nil {
				return err
			}
			defer fh.Close()
			in = fh
		}
		f, err := parseActionFile(in)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		tx, err := c.Transactions.Transact(cmd.Context(), f.apply)
		if err != nil {
			return err
		}

		if format == "json" {
			return printJSON(tx)
		}
		fmt.Printf("✓ Transaction committed\n\n")
		fmt.Printf("  ID:       %s\n", tx.ID)
		fmt.Printf("  Sequence: %s\n", strconv.FormatInt(tx.SequenceNumber, 10))
		fmt.Printf("  Actions:  %d\n", len(tx.Actions))
		return nil
	},
}

func init() {
	transactCmd.Flags().StringVarP(&transactFile, "file", "f", "", "YAML action file, or - for stdin")
	_ = transactCmd.MarkFlagRequired("file")
}
