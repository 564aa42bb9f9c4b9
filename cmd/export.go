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
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/gapmap/internal/infrastructure/config"
	"github.com/eslsoft/gapmap/internal/usecase/backup"
)

const (
	exportOutputKey = "backup.export.output"
	exportGzipKey   = "backup.export.gzip"
	exportTablesKey = "backup.export.tables"
	exportBatchKey  = "backup.export.batch_size"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database as an NDJSON backup",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		outputPath := viper.GetString(exportOutputKey)
		gzipEnabled := viper.GetBool(exportGzipKey)
		tableList := tablesFromConfig(exportTablesKey)
		batchSize := viper.GetInt(exportBatchKey)

		if outputPath == "" {
			outputPath = defaultExportFilename(gzipEnabled)
		}
		if !gzipEnabled && outputPath != "-" && strings.HasSuffix(strings.ToLower(outputPath), ".gz") {
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
			writer   = cmd.OutOrStdout()
			closeFns []func() error
		)

		if outputPath != "-" {
			if dir := filepath.Dir(outputPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			file, openErr := os.Create(outputPath)
			if openErr != nil {
				return fmt.Errorf("create backup file: %w", openErr)
			}
			writer = file
			closeFns = append(closeFns, file.Close)
		}

		if gzipEnabled {
			gz := gzip.NewWriter(writer)
			writer = gz
			closeFns = append([]func() error{gz.Close}, closeFns...)
		}

		defer func() {
			for _, closer := range closeFns {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		progress := newCLIProgress(cmd.ErrOrStderr())
		exportOpts := []backup.ExportOption{backup.WithProgressReporter(progress)}
		if len(tableList) > 0 {
			exportOpts = append(exportOpts, backup.WithTables(tableList))
		}

		if err := service.Export(ctx, writer, exportOpts...); err != nil {
			return fmt.Errorf("export backup: %w", err)
		}

		if outputPath == "-" {
			cmd.Println("export finished: written to stdout")
		} else {
			cmd.Printf("export finished: %s\n", outputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "backup output path, use - for stdout")
	exportCmd.Flags().Bool("gzip", false, "gzip-compress the output")
	exportCmd.Flags().StringSlice("tables", nil, "export only the given tables, comma-separated or repeated")
	exportCmd.Flags().Int("batch-size", 0, "export batch size (default 512)")

	bindExportConfig()
}

func defaultExportFilename(gzipEnabled bool) string {
	ts := time.Now().UTC().Format("20060102-150405")
	filename := fmt.Sprintf("gapmap-backup-%s.jsonl", ts)
	if gzipEnabled {
		filename += ".gz"
	}
	return filename
}

func bindExportConfig() {
	bindFlagToViper(exportOutputKey, exportCmd.Flags().Lookup("output"))
	bindFlagToViper(exportGzipKey, exportCmd.Flags().Lookup("gzip"))
	bindFlagToViper(exportTablesKey, exportCmd.Flags().Lookup("tables"))
	bindFlagToViper(exportBatchKey, exportCmd.Flags().Lookup("batch-size"))
}

type cliProgress struct {
	out         io.Writer
	totals      map[string]int
	counts      map[string]int
	lastPrinted map[string]int
	steps       map[string]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[string]int),
		counts:      make(map[string]int),
		lastPrinted: make(map[string]int),
		steps:       make(map[string]int),
	}
}

func (p *cliProgress) StartTable(table string, total int) {
	if total < 0 {
		total = 0
	}
	p.totals[table] = total
	p.counts[table] = 0
	p.lastPrinted[table] = 0
	p.steps[table] = progressStep(total)
	fmt.Fprintf(p.out, "exporting %s (%d rows)\n", table, total)
}

func (p *cliProgress) Increment(table string, delta int) {
	if delta <= 0 {
		return
	}
	current := p.counts[table] + delta
	p.counts[table] = current
	total := p.totals[table]
	step := p.steps[table]
	if step <= 0 {
		return
	}
	if current-p.lastPrinted[table] >= step || current == total {
		p.lastPrinted[table] = current
		fmt.Fprintf(p.out, "  %s: %d/%d\n", table, current, total)
	}
}

func (p *cliProgress) FinishTable(table string) {
	fmt.Fprintf(p.out, "finished %s (%d rows)\n", table, p.counts[table])
}
