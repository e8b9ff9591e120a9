package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// queryer is the listing surface every resource API shares.
type queryer[T any] interface {
	QueryPage(ctx context.Context, params sequence.QueryParams, cb ...sequence.Callback[*sequence.Page[T]]) (*sequence.Page[T], error)
	QueryAll(ctx context.Context, params sequence.QueryParams, cb ...sequence.Callback[[]T]) ([]T, error)
}

var (
	listFilter   string
	listParams   []string
	listPageSize int
	listCursor   string
	listAll      bool
	listSince    time.Duration
	sumGroupBy   []string
)

func queryParams() sequence.QueryParams {
	p := sequence.QueryParams{
		Filter:   listFilter,
		PageSize: listPageSize,
		Cursor:   listCursor,
	}
	for _, v := range listParams {
		p.FilterParams = append(p.FilterParams, parseValue(v))
	}
	if listSince > 0 {
		p.StartTime = time.Now().Add(-listSince)
	}
	return p
}

// fetch returns one page, or every page with --all.
func fetch[T any](ctx context.Context, q queryer[T]) ([]T, string, error) {
	if listAll {
		items, err := q.QueryAll(ctx, queryParams())
		return items, "", err
	}
	page, err := q.QueryPage(ctx, queryParams())
	if err != nil {
		return nil, "", err
	}
	return page.Items, page.Cursor, nil
}

// show prints items and, when there are more, the cursor for the next page.
func show[T any](items []T, cursor string, header []string, row func(T) []string) error {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = row(it)
	}
	if format == "json" {
		return printJSON(map[string]any{"items": items, "cursor": cursor})
	}
	if err := printTable(items, header, rows); err != nil {
		return err
	}
	if cursor != "" {
		fmt.Printf("\nmore results: --cursor %s\n", cursor)
	}
	return nil
}

func listResource[T any](ctx context.Context, q queryer[T], header []string, row func(T) []string) error {
	items, cursor, err := fetch(ctx, q)
	if err != nil {
		return err
	}
	return show(items, cursor, header, row)
}

func u64(n uint64) string { return strconv.FormatUint(n, 10) }

// ── list ─────────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:       "list <keys|accounts|flavors|transactions|actions|tokens>",
	Short:     "List ledger resources",
	ValidArgs: []string{"keys", "accounts", "flavors", "transactions", "actions", "tokens"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Example: `  seq list accounts --filter 'tags.type=$1' --param checking
  seq list actions --filter 'type=$1 AND flavor_id=$2' --param transfer --param usd --all
  seq list transactions --since 1h --page-size 10`,
	RunE: runList,
}

func init() {
	for _, cmd := range []*cobra.Command{listCmd, sumCmd} {
		cmd.Flags().StringVar(&listFilter, "filter", "", "filter expression, e.g. 'tags.type=$1'")
		cmd.Flags().StringArrayVar(&listParams, "param", nil, "filter parameter for $1, $2, ...; repeatable")
		cmd.Flags().IntVar(&listPageSize, "page-size", 0, "items per page (ledger default when 0)")
		cmd.Flags().StringVar(&listCursor, "cursor", "", "cursor from a previous page")
		cmd.Flags().BoolVar(&listAll, "all", false, "fetch every page")
		cmd.Flags().DurationVar(&listSince, "since", 0, "only items newer than this (transactions and actions)")
	}
	sumCmd.Flags().StringSliceVar(&sumGroupBy, "group-by", nil, "fields to group by, e.g. account_id,flavor_id")
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	switch args[0] {
	case "keys":
		return listResource[sequence.Key](ctx, c.Keys, []string{"ID"},
			func(k sequence.Key) []string { return []string{k.ID} })
	case "accounts":
		return listResource[sequence.Account](ctx, c.Accounts, []string{"ID", "KEYS", "QUORUM", "TAGS"},
			func(a sequence.Account) []string {
				return []string{a.ID, strings.Join(a.KeyIDs, ","), strconv.Itoa(a.Quorum), formatTags(a.Tags)}
			})
	case "flavors":
		return listResource[sequence.Flavor](ctx, c.Flavors, []string{"ID", "KEYS", "QUORUM", "TAGS"},
			func(f sequence.Flavor) []string {
				return []string{f.ID, strings.Join(f.KeyIDs, ","), strconv.Itoa(f.Quorum), formatTags(f.Tags)}
			})
	case "transactions":
		return listResource[sequence.Transaction](ctx, c.Transactions, []string{"ID", "SEQ", "TIMESTAMP", "ACTIONS"},
			func(tx sequence.Transaction) []string {
				return []string{tx.ID, strconv.FormatInt(tx.SequenceNumber, 10),
					tx.Timestamp.Format(time.RFC3339), strconv.Itoa(len(tx.Actions))}
			})
	case "actions":
		return listResource[sequence.ActionRecord](ctx, c.Actions, []string{"TRANSACTION", "TYPE", "FLAVOR", "AMOUNT", "SOURCE", "DESTINATION"},
			func(a sequence.ActionRecord) []string {
				return []string{a.TransactionID, string(a.Type), a.FlavorID, u64(a.Amount),
					a.SourceAccountID, a.DestinationAccountID}
			})
	case "tokens":
		return listResource[sequence.Token](ctx, c.Tokens, []string{"ACCOUNT", "FLAVOR", "AMOUNT"},
			func(t sequence.Token) []string { return []string{t.AccountID, t.FlavorID, u64(t.Amount)} })
	}
	return fmt.Errorf("unknown resource %q", args[0])
}

// ── sum ──────────────────────────────────────────────────────────────────────

var sumCmd = &cobra.Command{
	Use:       "sum <actions|tokens>",
	Short:     "Sum action amounts or balances, grouped by fields",
	ValidArgs: []string{"actions", "tokens"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Example:   `  seq sum tokens --group-by account_id --filter 'flavor_id=$1' --param usd`,
	RunE:      runSum,
}

func runSum(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	params := sequence.SumParams{QueryParams: queryParams(), GroupBy: sumGroupBy}
	header := append(append([]string(nil), sumGroupBy...), "amount")
	for i := range header {
		header[i] = strings.ToUpper(header[i])
	}

	switch args[0] {
	case "actions":
		items, cursor, err := sumPages(ctx, c.Actions.Sum(params))
		if err != nil {
			return err
		}
		return show(items, cursor, header, func(s sequence.ActionSum) []string {
			fields := map[string]string{
				"type":                   s.Type,
				"flavor_id":              s.FlavorID,
				"source_account_id":      s.SourceAccountID,
				"destination_account_id": s.DestinationAccountID,
			}
			return groupRow(fields, s.Amount)
		})
	case "tokens":
		items, cursor, err := sumPages(ctx, c.Tokens.Sum(params))
		if err != nil {
			return err
		}
		return show(items, cursor, header, func(s sequence.TokenSum) []string {
			return groupRow(map[string]string{"flavor_id": s.FlavorID, "account_id": s.AccountID}, s.Amount)
		})
	}
	return fmt.Errorf("unknown resource %q", args[0])
}

func sumPages[T any](ctx context.Context, q *sequence.Query[T]) ([]T, string, error) {
	if !listAll {
		page, err := q.Page(ctx, sequence.PageParams{})
		if err != nil {
			return nil, "", err
		}
		return page.Items, page.Cursor, nil
	}
	var items []T
	err := q.All(ctx, func(_ context.Context, it T) (sequence.Step, error) {
		items = append(items, it)
		return sequence.Continue, nil
	})
	return items, "", err
}

func groupRow(fields map[string]string, amount uint64) []string {
	row := make([]string, 0, len(sumGroupBy)+1)
	for _, g := range sumGroupBy {
		row = append(row, fields[g])
	}
	return append(row, u64(amount))
}
