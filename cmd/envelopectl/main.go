// Command envelopectl inspects and repairs campaign state in the record
// store configured for the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/logger"
	"github.com/spf13/cobra"

	"luckyenvelope/internal/config"
	"luckyenvelope/internal/models"
	"luckyenvelope/internal/services"
	"luckyenvelope/internal/store"
)

type app struct {
	cfg     *config.Config
	store   store.Client
	close   func() error
	service *services.EnvelopeService
	log     *logger.Logger
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.log = cfg.InitLogger("envelopectl", os.Stderr)
	st, closeFn, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return err
	}
	a.cfg, a.store, a.close = cfg, st, closeFn
	a.service = services.NewEnvelopeService(st, cfg.Prizes, services.Options{CacheTTL: cfg.PrizeCacheTTL})
	return nil
}

func (a *app) shutdown() {
	if a.service != nil {
		a.service.Close()
	}
	if a.close != nil {
		_ = a.close()
	}
	if a.log != nil {
		a.log.Close()
	}
}

func main() {
	a := &app{}
	defer a.shutdown()

	root := &cobra.Command{
		Use:           "envelopectl",
		Short:         "Inspect and repair lucky envelope campaign state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.AddCommand(prizesCmd(a), resetCmd(a), inviteCmd(a))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		a.shutdown()
		os.Exit(1)
	}
}

func prizesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prizes",
		Short: "Show granted and remaining units per prize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := a.service.Inventory(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking prizes: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "--------------------------------------------------")
			for _, s := range inv {
				fmt.Fprintf(out, "%s (%s): %d / %d (Remaining: %d)\n", s.Name, s.ID, s.Granted, s.Limit, s.Remaining)
			}
			fmt.Fprintln(out, "--------------------------------------------------")
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset CODE...",
		Short: "Return codes to INVITED and clear their prize",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, code := range args {
				if err := a.service.Reset(cmd.Context(), code); err != nil {
					return fmt.Errorf("reset %s: %w", code, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", code)
			}
			return nil
		},
	}
}

func inviteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invite CODE...",
		Short: "Create INVITED records (sqlite store only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inviter, ok := a.store.(store.Inviter)
			if !ok {
				return fmt.Errorf("the %s store does not support invites", a.cfg.StoreDriver)
			}
			for _, code := range args {
				if !models.ValidCode(code) {
					return fmt.Errorf("invite %s: %w", code, services.ErrValidation)
				}
				if err := inviter.Invite(cmd.Context(), code); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invited %s\n", code)
			}
			return nil
		},
	}
}
