package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"headshotpro/internal/client"
	"headshotpro/internal/domain"
	"headshotpro/internal/infra/credentials"
	"headshotpro/internal/ledger"
	"headshotpro/internal/poller"
)

func newRootCommand(v *viper.Viper, b backend) *cobra.Command {
	root := &cobra.Command{
		Use:           "headshotctl",
		Short:         "Operate the headshot generation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConfig(cmd, v)
		},
	}
	root.PersistentFlags().String(flagDatabaseURL, "", "PostgreSQL connection string")

	root.AddCommand(newCreditsCommand(b), newProviderKeyCommand(b), newGenerateCommand(v))
	return root
}

func bindConfig(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	binds := map[string]string{
		configKeyDatabaseURL:   "DATABASE_URL",
		"signup_bonus_credits": "SIGNUP_BONUS_CREDITS",
		"api_url":              "HEADSHOT_API_URL",
		"api_token":            "HEADSHOT_API_TOKEN",
	}
	for key, env := range binds {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	if f := cmd.Flags().Lookup(flagDatabaseURL); f != nil {
		if err := v.BindPFlag(configKeyDatabaseURL, f); err != nil {
			return err
		}
	}
	for flag, key := range map[string]string{"api-url": "api_url", "token": "api_token"} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func newCreditsCommand(b backend) *cobra.Command {
	cmd := &cobra.Command{Use: "credits", Short: "Inspect and adjust credit balances"}

	var (
		user, reference, description, txType string
		amount                               int64
	)
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Grant credits to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if reference == "" {
				reference = fmt.Sprintf("manual_%d", time.Now().UnixMilli())
			}
			receipt, err := svc.Grant(cmd.Context(), ledger.GrantRequest{
				UserID:      user,
				Amount:      amount,
				Type:        domain.TransactionType(txType),
				ReferenceID: reference,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d to %s, balance %d\n", amount, user, receipt.Balance)
			return nil
		},
	}
	grant.Flags().StringVar(&user, "user", "", "user id")
	grant.Flags().Int64Var(&amount, "amount", 0, "credits to grant")
	grant.Flags().StringVar(&reference, "reference", "", "idempotency reference (defaults to manual_<millis>)")
	grant.Flags().StringVar(&description, "description", "Manual adjustment", "ledger description")
	grant.Flags().StringVar(&txType, "type", string(domain.TransactionPaymentRefill), "transaction type")
	_ = grant.MarkFlagRequired("user")
	_ = grant.MarkFlagRequired("amount")

	var balanceUser string
	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			bal, err := svc.GetBalance(cmd.Context(), balanceUser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "balance %d (earned %d, spent %d)\n", bal.Balance, bal.TotalEarned, bal.TotalSpent)
			return nil
		},
	}
	balance.Flags().StringVar(&balanceUser, "user", "", "user id")
	_ = balance.MarkFlagRequired("user")

	var (
		historyUser  string
		historyLimit int
	)
	history := &cobra.Command{
		Use:   "history",
		Short: "List a user's recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := svc.GetHistory(cmd.Context(), historyUser, historyLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tAMOUNT\tTYPE\tREFERENCE\tDESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", tx.CreatedAt.Format(time.RFC3339), tx.Amount, tx.Type, tx.ReferenceID, tx.Description)
			}
			return tw.Flush()
		},
	}
	history.Flags().StringVar(&historyUser, "user", "", "user id")
	history.Flags().IntVar(&historyLimit, "limit", 20, "max rows (1-100)")
	_ = history.MarkFlagRequired("user")

	var purchaseUser, purchaseTier, purchasePayment string
	purchase := &cobra.Command{
		Use:   "purchase",
		Short: "Record a settled payment for a pricing tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := svc.GrantPurchase(cmd.Context(), purchaseUser, purchaseTier, purchasePayment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s applied, balance %d\n", receipt.Transaction.Description, receipt.Balance)
			return nil
		},
	}
	purchase.Flags().StringVar(&purchaseUser, "user", "", "user id")
	purchase.Flags().StringVar(&purchaseTier, "tier", "", "pricing tier id")
	purchase.Flags().StringVar(&purchasePayment, "payment", "", "payment id")
	for _, f := range []string{"user", "tier", "payment"} {
		_ = purchase.MarkFlagRequired(f)
	}

	cmd.AddCommand(grant, balance, history, purchase)
	return cmd
}

func newProviderKeyCommand(b backend) *cobra.Command {
	cmd := &cobra.Command{Use: "provider-key", Short: "Manage generation provider API keys"}

	var provider, key string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store an API key for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			if key == "" {
				key = os.Getenv(strings.ToUpper(provider) + "_API_KEY")
			}
			store, err := b.Credentials(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.SetAPIKey(cmd.Context(), provider, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key stored\n", provider)
			return nil
		},
	}
	set.Flags().StringVar(&provider, "provider", credentials.ProviderV3, "provider id (v3 or replicate)")
	set.Flags().StringVar(&key, "key", "", "API key (defaults to <PROVIDER>_API_KEY)")

	cmd.AddCommand(set)
	return cmd
}

func newGenerateCommand(v *viper.Viper) *cobra.Command {
	var (
		style, input, provider string
		interval               time.Duration
		attempts               int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a generation through the API and wait for the image",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := v.GetString("api_url")
			if baseURL == "" {
				return fmt.Errorf("api url is required (--api-url or HEADSHOT_API_URL)")
			}
			c := client.New(client.Options{BaseURL: baseURL, Token: v.GetString("api_token")})
			sub, err := c.Submit(cmd.Context(), client.SubmitRequest{InputImageURL: input, StyleID: style, Provider: provider})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job %s %s\n", sub.JobID, sub.Status)
			p := poller.Poller{
				Interval:    interval,
				MaxAttempts: attempts,
				OnProgress: func(pct int) {
					fmt.Fprintf(out, "  %d%%\n", pct)
				},
			}
			url, err := p.Poll(cmd.Context(), sub.JobID, c.Status)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, url)
			return nil
		},
	}
	cmd.Flags().String("api-url", "", "API base URL")
	cmd.Flags().String("token", "", "session bearer token")
	cmd.Flags().StringVar(&style, "style", "", "style id")
	cmd.Flags().StringVar(&input, "input", "", "input image URL (omit for text-to-image)")
	cmd.Flags().StringVar(&provider, "provider", "", "provider id (server default when empty)")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "poll interval")
	cmd.Flags().IntVar(&attempts, "attempts", poller.DefaultMaxAttempts, "max poll attempts")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}
