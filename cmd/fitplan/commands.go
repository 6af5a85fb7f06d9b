/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fitplan/internal/config"
	"fitplan/internal/domain"
	"fitplan/internal/editstate"
	"fitplan/internal/export"
	"fitplan/internal/reconcile"
	"fitplan/internal/storage"
	"fitplan/internal/version"
)

type app struct {
	cfg    config.AppConfig
	drafts string
	pretty bool
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fitplan",
		Short:         "Inspect, diff and export fitness session documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Commands the server would receive for an edited copy
  fitplan diff monday.json monday.edited.json

  # Drop empty sets and parts in place
  fitplan cleanup --write monday.yaml

  # Printable sheet
  fitplan export pdf monday.json monday.pdf
`),
	}
	cmd.PersistentFlags().StringVar(&a.drafts, "drafts", a.cfg.Drafts.Path, "Path to the drafts database")
	cmd.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDiffCmd(a))
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newCleanupCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newDraftsCmd(a))
	return cmd
}

func writeOut(cmd *cobra.Command, a *app, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if a.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fitplan %s\n", version.String())
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "diff <original> <edited>",
		Short: "Print the mutation commands turning original into edited",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orig, err := storage.ReadSession(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			edit, err := storage.ReadSession(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			cmds := reconcile.Diff(orig, editstate.Align(orig, edit))
			if summary {
				counts := reconcile.Count(cmds)
				return writeOut(cmd, a, map[string]int{
					"add":    counts[reconcile.OpAdd],
					"modify": counts[reconcile.OpModify],
					"delete": counts[reconcile.OpDelete],
				})
			}
			b, err := reconcile.MarshalCommands(cmds)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print only command counts per operation")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <session>...",
		Short: "Check session documents against the schema and tree invariants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type result struct {
				Path  string `json:"path"`
				Nodes int    `json:"nodes,omitempty"`
				Error string `json:"error,omitempty"`
			}
			var (
				out    []result
				failed int
			)
			for _, p := range args {
				s, err := storage.ReadSession(p)
				if err != nil {
					failed++
					out = append(out, result{Path: p, Error: err.Error()})
					continue
				}
				out = append(out, result{Path: p, Nodes: s.CountNodes()})
			}
			if err := writeOut(cmd, a, out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	var (
		write  bool
		floors = a.cfg.Cleanup.Floors()
	)
	cmd := &cobra.Command{
		Use:   "cleanup <session>",
		Short: "Remove empty sets and parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := storage.ReadSession(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			pruned, removed, err := editstate.Prune(s, floors)
			if err != nil {
				return writeErr(cmd, err)
			}
			if write && !removed.Empty() {
				if err := storage.WriteSession(args[0], pruned); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, a, map[string]any{
				"sets":    seeds(removed.Sets),
				"parts":   seeds(removed.Parts),
				"written": write && !removed.Empty(),
			})
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Write the cleaned session back (previous version goes to backups/)")
	cmd.Flags().IntVar(&floors.MinParts, "min-parts", floors.MinParts, "Never remove the last N parts")
	cmd.Flags().IntVar(&floors.MinSetsPerPart, "min-sets", floors.MinSetsPerPart, "Never remove the last N sets of a part")
	return cmd
}

func seeds(ids []domain.SeedID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render session documents",
	}
	var opt export.PDFOptions
	pdf := &cobra.Command{
		Use:   "pdf <session> <out.pdf>",
		Short: "Render a printable program sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := storage.ReadSession(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := export.SessionPDF(s, args[1], opt); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, map[string]any{"path": args[1], "parts": len(s.Parts)})
		},
	}
	pdf.Flags().BoolVar(&opt.IncludeGuides, "guides", false, "Draw the printable area")
	pdf.Flags().IntSliceVar(&opt.Parts, "parts", nil, "Zero-based part indexes to export (default all)")
	pdf.Flags().Float64Var(&opt.Margin, "margin", 0, "Page margin in points")
	cmd.AddCommand(pdf)
	return cmd
}

func newDraftsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect locally autosaved drafts",
	}
	withStore := func(fn func(ctx context.Context, ds *storage.DraftStore) error) error {
		ds, err := storage.OpenDrafts(a.drafts)
		if err != nil {
			return err
		}
		defer func() { _ = ds.Close() }()
		return fn(context.Background(), ds)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withStore(func(ctx context.Context, ds *storage.DraftStore) error {
				infos, err := ds.List(ctx)
				if err != nil {
					return err
				}
				type row struct {
					Session   string `json:"session"`
					Name      string `json:"name"`
					Nodes     int    `json:"nodes"`
					UpdatedAt string `json:"updatedAt"`
				}
				out := make([]row, 0, len(infos))
				for _, in := range infos {
					out = append(out, row{string(in.Session), in.Name, in.Nodes, in.UpdatedAt.Format(time.RFC3339)})
				}
				return writeOut(cmd, a, out)
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-seed>",
		Short: "Print a draft session document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withStore(func(ctx context.Context, ds *storage.DraftStore) error {
				d, err := ds.Load(ctx, domain.SeedID(args[0]))
				if err != nil {
					return err
				}
				return writeOut(cmd, a, d.Session)
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-seed>",
		Short: "Discard a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withStore(func(ctx context.Context, ds *storage.DraftStore) error {
				return ds.Delete(ctx, domain.SeedID(args[0]))
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, a, map[string]string{"removed": args[0]})
		},
	})
	return cmd
}
