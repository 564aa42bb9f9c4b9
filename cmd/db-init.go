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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/infrastructure/config"
	"github.com/eslsoft/gapmap/internal/infrastructure/database"
)

// dbInitCmd creates the database schema and optionally seeds the concept
// catalog from a JSON file. Note: go-sqlite3 requires CGO_ENABLED=1.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Create the database schema and optionally seed concepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		seedPath, _ := cmd.Flags().GetString("seed")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, cleanup, err := database.NewConnection(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer cleanup()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		cmd.Println("database schema is up to date")

		if seedPath == "" {
			return nil
		}

		raw, err := os.ReadFile(filepath.Clean(seedPath))
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var seeds []seedConcept
		if err := json.Unmarshal(raw, &seeds); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		now := time.Now().UTC()
		inserted := 0
		for _, seed := range seeds {
			concept := entity.Concept{
				ID:          seed.ID,
				Name:        seed.Name,
				Domain:      seed.Domain,
				Subdomain:   seed.Subdomain,
				Description: seed.Description,
				Tags:        seed.Tags,
			}
			if concept.ID == "" {
				concept.ID = uuid.NewString()
			}
			tags, err := json.Marshal(concept.Tags)
			if err != nil {
				return fmt.Errorf("encode tags for %q: %w", concept.Name, err)
			}
			_, err = db.ExecContext(cmd.Context(),
				`INSERT INTO concepts (id, name, domain, subdomain, description, tags, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (id) DO NOTHING`,
				concept.ID, concept.Name, concept.Domain, concept.Subdomain,
				concept.Description, string(tags), now, now,
			)
			if err != nil {
				return fmt.Errorf("seed concept %q: %w", concept.Name, err)
			}
			inserted++
		}
		cmd.Printf("seeded %d concepts from %s\n", inserted, seedPath)
		return nil
	},
}

type seedConcept struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Subdomain   string   `json:"subdomain"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
	dbInitCmd.Flags().String("seed", "", "JSON file with an array of concepts to insert")
}
