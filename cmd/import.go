/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/gapmap/internal/infrastructure/config"
	"github.com/eslsoft/gapmap/internal/infrastructure/database"
	"github.com/eslsoft/gapmap/internal/usecase/backup"
)

const (
	importInputKey  = "backup.import.input"
	importGzipKey   = "backup.import.gzip"
	importTablesKey = "backup.import.tables"
	importBatchKey  = "backup.import.batch_size"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import database content from a backup file",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Make sure the schema exists before replaying rows.
		db, cleanup, err := database.NewConnection(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			cleanup()
			return err
		}
		cleanup()

		inputPath := viper.GetString(importInputKey)
		gzipEnabled := viper.GetBool(importGzipKey)
		tableList := tablesFromConfig(importTablesKey)
		batchSize := viper.GetInt(importBatchKey)

		if inputPath == "" {
			return fmt.Errorf("specify a backup file via --input, or - for stdin")
		}
		if !gzipEnabled && inputPath != "-" && strings.HasSuffix(strings.ToLower(inputPath), ".gz") {
			gzipEnabled = true
		}

		driver, err := cfg.DatabaseDriver()
		if err != nil {
			return fmt.Errorf("resolve database driver: %w", err)
		}
		dsn, err := cfg.DatabaseURL()
		if err != nil {
			return fmt.Errorf("resolve database DSN: %w", err)
		}

		service, err := backup.NewService(
			driver,
			dsn,
			backup.WithBatchSize(batchSize),
		)
		if err != nil {
			return fmt.Errorf("create backup service: %w", err)
		}

		var (
			reader  = cmd.InOrStdin()
			closers []func() error
		)

		if inputPath != "-" {
			file, openErr := os.Open(filepath.Clean(inputPath))
			if openErr != nil {
				return fmt.Errorf("open backup file: %w", openErr)
			}
			reader = file
			closers = append(closers, file.Close)
		}

		if gzipEnabled {
			gzr, gzErr := gzip.NewReader(reader)
			if gzErr != nil {
				return fmt.Errorf("create gzip reader: %w", gzErr)
			}
			reader = gzr
			closers = append([]func() error{gzr.Close}, closers...)
		}

		defer func() {
			for _, closer := range closers {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		var importOpts []backup.ImportOption
		if len(tableList) > 0 {
			importOpts = append(importOpts, backup.WithImportTables(tableList))
		}

		if err := service.Import(ctx, reader, importOpts...); err != nil {
			return fmt.Errorf("import backup: %w", err)
		}

		if inputPath == "-" {
			cmd.Println("import finished: read from stdin")
		} else {
			cmd.Printf("import finished: %s\n", inputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("input", "i", "", "backup file path, use - for stdin")
	importCmd.Flags().Bool("gzip", false, "input is gzip-compressed")
	importCmd.Flags().StringSlice("tables", nil, "import only the given tables, comma-separated or repeated")
	importCmd.Flags().Int("batch-size", 0, "import batch size (default 512)")

	bindImportConfig()
}

func bindImportConfig() {
	bindFlagToViper(importInputKey, importCmd.Flags().Lookup("input"))
	bindFlagToViper(importGzipKey, importCmd.Flags().Lookup("gzip"))
	bindFlagToViper(importTablesKey, importCmd.Flags().Lookup("tables"))
	bindFlagToViper(importBatchKey, importCmd.Flags().Lookup("batch-size"))
}
