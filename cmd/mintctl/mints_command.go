package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"music.mint/config"
	"music.mint/internal/keypair"
	"music.mint/internal/models"
	"music.mint/internal/store"
)

func newMintsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mints",
		Short: "Inspect the mint snapshot",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all mints, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			mints, err := loadMints(cmd.Context(), ctx)
			if err := tolerateCorrupt(cmd.ErrOrStderr(), mints, err); err != nil {
				return err
			}
			printMintList(cmd.OutOrStdout(), mints)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a single mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mints, err := loadMints(cmd.Context(), ctx)
			if err := tolerateCorrupt(cmd.ErrOrStderr(), mints, err); err != nil {
				return err
			}
			for _, m := range mints {
				if m.ID == args[0] {
					printMint(cmd.OutOrStdout(), m)
					return nil
				}
			}
			return fmt.Errorf("mint %s not found", args[0])
		},
	})

	return cmd
}

// loadMints reads the snapshot without taking the server's lock.
func loadMints(ctx context.Context, c *commandContext) ([]*models.Mint, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Type {
	case config.StoreFile:
		return store.ReadSnapshot(cfg.Store.Path)
	case config.StoreRedis:
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Store.Redis.Key)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		return st.Load(ctx)
	default:
		return nil, fmt.Errorf("store type %q keeps no snapshot", cfg.Store.Type)
	}
}

// tolerateCorrupt lets the inspection commands show the readable records of
// a partly corrupt snapshot.
func tolerateCorrupt(w io.Writer, mints []*models.Mint, err error) error {
	if errors.Is(err, store.ErrCorrupt) && len(mints) > 0 {
		fmt.Fprintf(w, "warning: %v\n", err)
		return nil
	}
	return err
}

func printMintList(w io.Writer, mints []*models.Mint) {
	if len(mints) == 0 {
		fmt.Fprintln(w, "No mints")
		return
	}

	rows := make([][]string, 0, len(mints))
	for i := len(mints) - 1; i >= 0; i-- {
		m := mints[i]
		rows = append(rows, []string{
			m.ID,
			m.Title,
			m.MintPrice.String(),
			openLabel(m.OpenTime),
			mintedLabel(m),
			m.CreatedAt.Format(time.RFC3339),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "Title", "Price", "Opens", "Status", "Created"}, rows, 3))
}

func printMint(w io.Writer, m *models.Mint) {
	pubkey, err := keypair.Address(m.Keypair)
	if err != nil {
		pubkey = "invalid keypair"
	}

	rows := [][]string{
		{"ID", m.ID},
		{"Title", m.Title},
		{"Page title", m.PageTitle},
		{"Creator", m.CreatorWallet},
		{"Price", m.MintPrice.String() + " SOL"},
		{"Opens", openLabel(m.OpenTime)},
		{"Status", mintedLabel(m)},
		{"Asset pubkey", pubkey},
		{"Page image", m.PageImageURL},
		{"Image", m.ImageURL},
		{"Music", m.MusicURL},
		{"Video", m.VideoURL},
		{"Created", m.CreatedAt.Format(time.RFC3339)},
	}
	if m.TxSignature != "" {
		rows = append(rows, []string{"Tx signature", m.TxSignature})
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows))
}

func openLabel(t *time.Time) string {
	if t == nil {
		return "immediately"
	}
	return t.UTC().Format(time.RFC3339)
}

func mintedLabel(m *models.Mint) string {
	if m.Minted {
		return "minted"
	}
	return "pending"
}
