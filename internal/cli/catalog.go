// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the catalogue of decoded recordings",
	Long:  `Add recordings to a local SQLite catalogue and list or inspect them.`,
}

var catalogAddCmd = &cobra.Command{
	Use:   "add [files...]",
	Short: "Decode recordings and add them to the catalogue",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCatalogAdd,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued recordings",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a catalogued recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a recording from the catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRemove,
}

func init() {
	catalogCmd.AddCommand(catalogAddCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)
	rootCmd.AddCommand(catalogCmd)
}

func withCatalog(fn func(context.Context, *catalog.Catalog) error) error {
	c, err := catalog.Open(cfg.CatalogDir)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(context.Background(), c)
}

func runCatalogAdd(cmd *cobra.Command, args []string) error {
	return withCatalog(func(ctx context.Context, c *catalog.Catalog) error {
		for _, path := range args {
			rec, diags, err := loadRecord(path)
			if err != nil {
				return err
			}
			if err := c.Put(ctx, path, rec); err != nil {
				return fmt.Errorf("error adding %s: %w", path, err)
			}

			logger.Debug("Catalogued recording", slog.String("path", path), slog.String("id", rec.ID),
				slog.Int("skipped", len(diags)))
			cmd.Printf("Added %s (%s)\n", rec.ID, path)
		}
		return nil
	})
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	return withCatalog(func(ctx context.Context, c *catalog.Catalog) error {
		entries, err := c.List(ctx)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			cmd.Println("No recordings catalogued")
			return nil
		}

		for _, e := range entries {
			cmd.Printf("%s  %s  %-10s  %s\n", e.ID, aecg.FormatTimestamp(e.StartTime), e.Duration, e.Path)
		}
		cmd.Printf("\nTotal: %d recordings\n", len(entries))
		return nil
	})
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	return withCatalog(func(ctx context.Context, c *catalog.Catalog) error {
		e, err := c.Get(ctx, args[0])
		if err != nil {
			return err
		}

		cmd.Printf("ID:          %s\n", e.ID)
		cmd.Printf("Path:        %s\n", e.Path)
		cmd.Printf("Start:       %s\n", aecg.FormatTimestamp(e.StartTime))
		cmd.Printf("Duration:    %s\n", e.Duration)
		cmd.Printf("Sample rate: %g Hz\n", e.SampleRate)
		cmd.Printf("Leads:       %s\n", strings.Join(e.Leads, ", "))
		cmd.Printf("Patient:     %s (id %q, %s)\n", e.PatientName, e.PatientID, e.PatientSex)
		if !e.BirthDate.IsZero() {
			cmd.Printf("Born:        %s\n", e.BirthDate.Format("2006-01-02"))
		}
		cmd.Printf("Added:       %s\n", e.AddedAt.Format("2006-01-02 15:04:05"))
		return nil
	})
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	return withCatalog(func(ctx context.Context, c *catalog.Catalog) error {
		if err := c.Delete(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("Removed %s\n", args[0])
		return nil
	})
}
