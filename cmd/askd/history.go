package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pkt.systems/askd/core"
	"pkt.systems/pslog"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded commands",
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var cfgPath string
	var asJSON bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded commands, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			persisted, err := store.Load()
			if err != nil {
				return err
			}
			entries := core.NewHistoryFromPersisted(persisted, core.HistoryDeps{Logger: pslog.Ctx(cmd.Context())}).Entries()
			slices.Reverse(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			for _, e := range entries {
				if _, err := fmt.Fprintf(out, "%s (%s)  %-14s %s\n", e.Timestamp.Local().Format(time.DateTime), humanize.Time(e.Timestamp), e.AgentName, oneLine(e.CommandText)); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "    %s\n", oneLine(e.ResultText)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n entries")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, _, err := loadConfig(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			history := core.NewHistory(core.HistoryDeps{Store: store, Logger: logger})
			if err := history.Clear(); err != nil {
				return err
			}
			logger.Info("history cleared", "path", store.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
