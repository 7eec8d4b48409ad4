package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cartclient"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/localstore"
)

type cartSession struct {
	storage *localstore.SQLite
	store   *cart.Store
	sync    *cart.SyncController
	client  *cartclient.Client
}

// openCartSession restores the local cart and reconciles it with the server
// for userID before any command runs.
func openCartSession(ctx context.Context, userID string, offline bool) (*cartSession, error) {
	storage, err := localstore.OpenSQLite(cfg.Client.DBPath)
	if err != nil {
		return nil, err
	}
	st, err := cart.NewStore(storage)
	if err != nil {
		storage.Close()
		return nil, err
	}
	client := cartclient.New(cfg.Client.ServerURL, cfg.Auth.UserHeader, cfg.Client.Timeout)
	ctrl := cart.NewSyncController(st, client, storage, cart.LogNotifier{}, cart.SyncOptions{
		Enabled:     !offline && cfg.Client.ServerURL != "",
		QuietPeriod: cfg.Cart.Debounce,
		Timeout:     cfg.Client.Timeout,
	})

	if err := ctrl.IdentityChanged(ctx, userID); err != nil {
		// local state is kept; the command still runs against it
		slog.WarnContext(ctx, "cart sync skipped", "error", err)
	}
	return &cartSession{storage: storage, store: st, sync: ctrl, client: client}, nil
}

// close pushes any pending change before exiting, since the process does
// not live through the quiet period.
func (s *cartSession) close(ctx context.Context) error {
	err := s.sync.Flush(ctx)
	s.sync.Close()
	if cerr := s.storage.Close(); err == nil {
		err = cerr
	}
	return err
}

func cartCmd() *cobra.Command {
	var (
		userID  string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart and sync it with the storefront",
	}
	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "signed-in user id (empty for anonymous)")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "do not contact the server")

	// withSession wraps a cart operation with restore, sync and flush.
	withSession := func(fn func(cmd *cobra.Command, s *cartSession, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := openCartSession(cmd.Context(), userID, offline)
			if err != nil {
				return err
			}
			runErr := fn(cmd, s, args)
			if err := s.close(cmd.Context()); err != nil && runErr == nil {
				runErr = err
			}
			if runErr == nil {
				printCart(cmd.OutOrStdout(), s.store)
			}
			return runErr
		}
	}

	addCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product, looking up its details on the server",
		Args:  cobra.ExactArgs(1),
	}
	qty := addCmd.Flags().IntP("quantity", "q", 1, "quantity to add")
	variant := addCmd.Flags().String("variant", "", "product variant")
	addCmd.RunE = withSession(func(cmd *cobra.Command, s *cartSession, args []string) error {
		if *qty < 1 {
			return fmt.Errorf("quantity must be at least 1")
		}
		item := domain.CartItem{ID: args[0], Quantity: *qty, Variant: *variant}
		if !offline {
			p, err := s.client.Product(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("look up product %s: %w", args[0], err)
			}
			item.Name, item.Price, item.Image = p.Name, p.Price, p.Image
			if item.Variant == "" {
				item.Variant = p.Variant
			}
		}
		return s.store.AddItem(item)
	})

	removeCmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove every line of a product",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *cartSession, args []string) error {
			return s.store.RemoveItem(args[0])
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a product; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(_ *cobra.Command, s *cartSession, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			if n == 0 {
				return s.store.RemoveItem(args[0])
			}
			return s.store.UpdateQuantity(args[0], n)
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		RunE: withSession(func(*cobra.Command, *cartSession, []string) error {
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: withSession(func(_ *cobra.Command, s *cartSession, _ []string) error {
			return s.store.ClearCart()
		}),
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the server copy and push the result back",
		RunE: withSession(func(cmd *cobra.Command, s *cartSession, _ []string) error {
			if userID == "" {
				return fmt.Errorf("sync needs --user")
			}
			// re-save the reconciled snapshot so the push carries it
			return s.store.SetItems(s.store.Items())
		}),
	}

	cmd.AddCommand(addCmd, removeCmd, setCmd, listCmd, clearCmd, syncCmd)
	return cmd
}

func printCart(w io.Writer, st *cart.Store) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVARIANT\tQTY\tPRICE")
	for _, it := range st.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\n", it.ID, it.Name, it.Variant, it.Quantity, it.Price)
	}
	fmt.Fprintf(tw, "\t\t\t%d\t%.2f\n", st.TotalItems(), st.TotalPrice())
	tw.Flush()
}
