package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	ledgerURL  string
	credential string
	debug      bool
	format     string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seq",
	Short: "Sequence ledger CLI",
	Long: `seq is a command-line client for a Sequence-style ledger.

It creates keys, accounts and flavors, lists any ledger resource page by page
or exhaustively, and submits transactions described in a YAML file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.seq")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("seq")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if ledgerURL == "" {
			ledgerURL = viper.GetString("ledger_url")
		}
		if ledgerURL == "" {
			ledgerURL = "http://localhost:1999"
		}
		if credential == "" {
			credential = viper.GetString("credential")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.seq/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerURL, "ledger-url", "", "ledger URL (env SEQ_LEDGER_URL, default http://localhost:1999)")
	rootCmd.PersistentFlags().StringVar(&credential, "credential", "", "ledger API credential (env SEQ_CREDENTIAL)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log every ledger request")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format: text or json")

	rootCmd.AddCommand(versionCmd, keysCmd, accountsCmd, flavorsCmd,
		listCmd, sumCmd, transactCmd, resetCmd, credentialHashCmd)
}

func newClient() (*sequence.Client, error) {
	opts := []sequence.Option{sequence.WithUserAgent("seq-cli/" + version)}
	if credential != "" {
		opts = append(opts, sequence.WithCredential(credential))
	}
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sequence.WithLogger(logger))
	}
	return sequence.New(ledgerURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows under header, or the raw value in json format.
func printTable(v any, header []string, rows [][]string) error {
	if format == "json" {
		return printJSON(v)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

// parseTags turns repeated key=value flags into a tag map. Values that parse
// as JSON (numbers, booleans, objects) keep their type.
func parseTags(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", p)
		}
		tags[k] = parseValue(v)
	}
	return tags, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func formatTags(tags map[string]any) string {
	if len(tags) == 0 {
		return ""
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI and SDK versions",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seq %s (sequence-sdk-go %s)\n", version, sequence.Version)
	},
}

// ── keys ─────────────────────────────────────────────────────────────────────

var keysCmd = &cobra.Command{Use: "keys", Short: "Manage signing keys"}

var keyID string

var keyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a key",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		key, err := c.Keys.Create(cmd.Context(), sequence.CreateKeyParams{ID: keyID})
		if err != nil {
			return fmt.Errorf("create key: %w", err)
		}
		if format == "json" {
			return printJSON(key)
		}
		fmt.Printf("✓ Key created: %s\n", key.ID)
		return nil
	},
}

func init() {
	keyCreateCmd.Flags().StringVar(&keyID, "id", "", "key ID (generated when empty)")
	keysCmd.AddCommand(keyCreateCmd)
}

// ── accounts & flavors ───────────────────────────────────────────────────────

// signedParams holds the flags shared by account and flavor creation.
type signedParams struct {
	id     string
	keys   []string
	quorum int
	tags   []string
}

func (p *signedParams) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.id, "id", "", "ID (generated when empty)")
	cmd.Flags().StringSliceVar(&p.keys, "key", nil, "key ID; repeat for multi-key control")
	cmd.Flags().IntVar(&p.quorum, "quorum", 0, "signatures required (default: all keys)")
	cmd.Flags().StringArrayVar(&p.tags, "tag", nil, "tag as key=value; repeatable")
	_ = cmd.MarkFlagRequired("key")
}

var (
	accountsCmd = &cobra.Command{Use: "accounts", Short: "Manage accounts"}
	flavorsCmd  = &cobra.Command{Use: "flavors", Short: "Manage flavors"}

	accountFlags, flavorFlags     signedParams
	accountTagID, flavorTagID     string
	accountNewTags, flavorNewTags []string
)

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTags(accountFlags.tags)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		acct, err := c.Accounts.Create(cmd.Context(), sequence.CreateAccountParams{
			ID: accountFlags.id, KeyIDs: accountFlags.keys, Quorum: accountFlags.quorum, Tags: tags,
		})
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if format == "json" {
			return printJSON(acct)
		}
		fmt.Printf("✓ Account created: %s (quorum %d of %d)\n", acct.ID, acct.Quorum, len(acct.KeyIDs))
		return nil
	},
}

var accountTagsCmd = &cobra.Command{
	Use:   "update-tags",
	Short: "Replace an account's tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTags(accountNewTags)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Accounts.UpdateTags(cmd.Context(), sequence.UpdateTagsParams{ID: accountTagID, Tags: tags}); err != nil {
			return fmt.Errorf("update account tags: %w", err)
		}
		fmt.Printf("✓ Tags updated: %s\n", accountTagID)
		return nil
	},
}

var flavorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a flavor",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTags(flavorFlags.tags)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		flavor, err := c.Flavors.Create(cmd.Context(), sequence.CreateFlavorParams{
			ID: flavorFlags.id, KeyIDs: flavorFlags.keys, Quorum: flavorFlags.quorum, Tags: tags,
		})
		if err != nil {
			return fmt.Errorf("create flavor: %w", err)
		}
		if format == "json" {
			return printJSON(flavor)
		}
		fmt.Printf("✓ Flavor created: %s (quorum %d of %d)\n", flavor.ID, flavor.Quorum, len(flavor.KeyIDs))
		return nil
	},
}

var flavorTagsCmd = &cobra.Command{
	Use:   "update-tags",
	Short: "Replace a flavor's tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTags(flavorNewTags)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Flavors.UpdateTags(cmd.Context(), sequence.UpdateTagsParams{ID: flavorTagID, Tags: tags}); err != nil {
			return fmt.Errorf("update flavor tags: %w", err)
		}
		fmt.Printf("✓ Tags updated: %s\n", flavorTagID)
		return nil
	},
}

func init() {
	accountFlags.bind(accountCreateCmd)
	flavorFlags.bind(flavorCreateCmd)

	accountTagsCmd.Flags().StringVar(&accountTagID, "id", "", "account ID")
	accountTagsCmd.Flags().StringArrayVar(&accountNewTags, "tag", nil, "tag as key=value; repeatable")
	_ = accountTagsCmd.MarkFlagRequired("id")
	flavorTagsCmd.Flags().StringVar(&flavorTagID, "id", "", "flavor ID")
	flavorTagsCmd.Flags().StringArrayVar(&flavorNewTags, "tag", nil, "tag as key=value; repeatable")
	_ = flavorTagsCmd.MarkFlagRequired("id")

	accountsCmd.AddCommand(accountCreateCmd, accountTagsCmd)
	flavorsCmd.AddCommand(flavorCreateCmd, flavorTagsCmd)
}

// ── reset ────────────────────────────────────────────────────────────────────

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe all state on a development ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DevUtils.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Println("✓ Ledger reset")
		return nil
	},
}

// ── credential-hash ──────────────────────────────────────────────────────────

var hashCost int

var credentialHashCmd = &cobra.Command{
	Use:   "credential-hash <credential>",
	Short: "Print the bcrypt hash ledgerd expects in auth.credential_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), hashCost)
		if err != nil {
			return fmt.Errorf("hash credential: %w", err)
		}
		fmt.Println(string(hash))
		return nil
	},
}

func init() {
	credentialHashCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost ("+strconv.Itoa(bcrypt.MinCost)+"-"+strconv.Itoa(bcrypt.MaxCost)+")")
}
