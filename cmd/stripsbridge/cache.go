package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haricheung/stripsbridge/internal/plancache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the plan cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <problem-name>",
		Short: "List cached outcomes for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := plancache.Open(a.cfg.CacheDir)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Entries(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				outcome := fmt.Sprintf("%d steps", len(e.Lines))
				if !e.Found {
					outcome = "unsolvable"
				}
				fmt.Fprintf(out, "%s  %s  %s\n", e.Key[:12], e.StoredAt, outcome)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "no cached plans for %s\n", args[0])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := plancache.Open(a.cfg.CacheDir)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached plans from %s\n", n, store.Dir())
			return nil
		},
	})
	return cmd
}
