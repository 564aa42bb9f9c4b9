package entity

import (
	"strings"
	"time"
)

// Concept is an authored knowledge unit that items can target. Mastery and
// stability are never stored on the concept itself; they live in the
// derived MasteryState.
type Concept struct {
	ID          string
	Name        string
	Domain      string
	Subdomain   string
	Description string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Normalize ensures defaults & constraints before persistence.
func (c *Concept) Normalize(now time.Time) {
	c.Name = strings.TrimSpace(c.Name)
	c.Domain = strings.TrimSpace(c.Domain)
	if c.Domain == "" {
		c.Domain = "general"
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// Validate reports whether the concept is acceptable for persistence.
func (c *Concept) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidConceptName
	}
	return nil
}
