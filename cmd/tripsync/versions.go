/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/database"
)

const maxValueWidth = 40

// withStore opens the version store of the itinerary in the configured
// database and closes the database after fn returns.
func withStore(ctx context.Context, itineraryID string, fn func(*version.Store) error) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := backend.Dial(database.Kind(conf.Backend.Database), conf.DatabaseConfigs())
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	store, err := version.Open(ctx, db, itineraryID, version.WithMaxVersions(conf.Backend.MaxVersions))
	if err != nil {
		return err
	}
	return fn(store)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}

func renderVersions(cmd *cobra.Command, versions []*version.Version) {
	tw := newTable()
	tw.AppendHeader(table.Row{
		"NUMBER",
		"ID",
		"NAME",
		"CREATED AT",
		"CREATED BY",
		"TAGS",
		"CURRENT",
	})
	for _, v := range versions {
		current := ""
		if v.IsActive {
			current = "*"
		}
		tw.AppendRow(table.Row{
			v.VersionNumber,
			v.ID,
			v.Name,
			v.CreatedAt.Format(time.RFC3339),
			v.CreatedBy,
			strings.Join(v.Tags, ","),
			current,
		})
	}
	cmd.Printf("%s\n", tw.Render())
}

// findVersion looks a version up by its number or its id.
func findVersion(store *version.Store, ref string) (*version.Version, error) {
	if number, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return store.GetVersionByNumber(number)
	}
	return store.GetVersion(ref)
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	data, err := tree.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	s := string(data)
	if len(s) > maxValueWidth {
		s = s[:maxValueWidth-3] + "..."
	}
	return s
}

func newVersionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [itinerary id]",
		Short: "List the versions of an itinerary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("itinerary id is required")
			}

			return withStore(cmd.Context(), args[0], func(store *version.Store) error {
				renderVersions(cmd, store.Versions())
				return nil
			})
		},
	}
}

func newVersionsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [itinerary id] [query]",
		Short: "Search the versions of an itinerary by name, notes and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("itinerary id and query are required")
			}

			return withStore(cmd.Context(), args[0], func(store *version.Store) error {
				renderVersions(cmd, store.SearchVersions(args[1]))
				return nil
			})
		},
	}
}

func newVersionsDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [itinerary id] [from] [to]",
		Short: "Show the changes between two versions given by number or id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return errors.New("itinerary id and two versions are required")
			}

			return withStore(cmd.Context(), args[0], func(store *version.Store) error {
				from, err := findVersion(store, args[1])
				if err != nil {
					return err
				}
				to, err := findVersion(store, args[2])
				if err != nil {
					return err
				}

				tw := newTable()
				tw.AppendHeader(table.Row{"TYPE", "PATH", "OLD", "NEW"})
				for _, change := range diff.Diff(from.Data, to.Data) {
					tw.AppendRow(table.Row{
						change.Type,
						change.Path.String(),
						formatValue(change.OldValue),
						formatValue(change.NewValue),
					})
				}
				cmd.Printf("%s\n", tw.Render())
				return nil
			})
		},
	}
}

func newItinerariesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "itineraries",
		Short: "List the stored itineraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := backend.Dial(database.Kind(conf.Backend.Database), conf.DatabaseConfigs())
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			infos, err := db.ListItineraries(cmd.Context())
			if err != nil {
				return err
			}

			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "SERVER VERSION", "UPDATED AT"})
			for _, info := range infos {
				tw.AppendRow(table.Row{
					info.ID,
					info.ServerVersion,
					info.UpdatedAt.Format(time.RFC3339),
				})
			}
			cmd.Printf("%s\n", tw.Render())
			return nil
		},
	}
}

func init() {
	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect the versions stored for itineraries",
	}
	versionsCmd.AddCommand(newVersionsListCmd())
	versionsCmd.AddCommand(newVersionsSearchCmd())
	versionsCmd.AddCommand(newVersionsDiffCmd())
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(newItinerariesCmd())
}
