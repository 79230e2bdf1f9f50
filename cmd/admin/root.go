package main

import (
	"fmt"
	"strconv"
	"time"

	"studio-api/internal/database"
	"studio-api/internal/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// commandContext opens the database lazily so --help works without one
type commandContext struct {
	openDB func() (*gorm.DB, error)
	db     *gorm.DB
}

func (c *commandContext) database() (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := c.openDB()
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *commandContext) ledger() (*services.LedgerService, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return services.NewLedgerService(db, nil), nil
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Studio ledger administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newRevenueCommand(ctx))
	rootCmd.AddCommand(newGrantCommand(ctx))
	rootCmd.AddCommand(newPurchasesCommand(ctx))

	return rootCmd
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
			return nil
		},
	}
}

func newRevenueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revenue",
		Short: "Show revenue over completed purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.ledger()
			if err != nil {
				return err
			}
			stats, err := ledger.GetRevenueStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRevenue(stats))
			return nil
		},
	}
}

func newGrantCommand(ctx *commandContext) *cobra.Command {
	var credits int64
	cmd := &cobra.Command{
		Use:   "grant USER_ID...",
		Short: "Add credits to one or more users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.ledger()
			if err != nil {
				return err
			}
			n, err := ledger.BulkGrantCredits(cmd.Context(), args, credits)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %d credits to %d users\n", credits, n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&credits, "credits", 0, "Credits to add to each user")
	_ = cmd.MarkFlagRequired("credits")
	return cmd
}

func newPurchasesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "purchases",
		Short: "List recent purchases across all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.ledger()
			if err != nil {
				return err
			}
			purchases, err := ledger.GetAllPurchases(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(purchases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No purchases")
				return nil
			}

			rows := make([][]string, 0, len(purchases))
			for _, p := range purchases {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(p.ID), 10),
					p.UserID,
					p.PackageID,
					p.Amount.StringFixed(2),
					strconv.FormatInt(p.Credits, 10),
					p.Status,
					p.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "User", "Package", "Amount", "Credits", "Status", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of purchases to list")
	return cmd
}
