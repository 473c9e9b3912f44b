package skillet

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/deepnoodle-ai/skillet/skill"
)

// ExportDocument is the portable form of a registry's skills.
type ExportDocument struct {
	Success     bool                    `json:"success"`
	ExportDate  string                  `json:"export_date,omitempty"`
	SkillsCount int                     `json:"skills_count"`
	Skills      map[string]*skill.Skill `json:"skills"`
}

// ImportDocument is the input of Import. Records stay raw so that one
// malformed skill does not reject the document.
type ImportDocument struct {
	Skills map[string]json.RawMessage `json:"skills"`
}

// Export snapshots every registered skill.
func (r *Registry) Export(now time.Time) ExportDocument {
	all := r.All()
	doc := ExportDocument{
		Success:     true,
		ExportDate:  now.Format(time.RFC3339),
		SkillsCount: len(all),
		Skills:      make(map[string]*skill.Skill, len(all)),
	}
	for _, s := range all {
		doc.Skills[s.Name] = s
	}
	return doc
}

// Import registers the skills of doc in name order. Existing names are
// skipped, imported skills are never verified, and each skill must pass
// validation. It returns the number imported and a message per skill that
// was not.
func (r *Registry) Import(ctx context.Context, doc ImportDocument) (int, []string) {
	names := make([]string, 0, len(doc.Skills))
	for name := range doc.Skills {
		names = append(names, name)
	}
	slices.Sort(names)

	imported := 0
	errs := []string{}
	for _, name := range names {
		if r.Has(name) {
			errs = append(errs, fmt.Sprintf("Skill '%s' already exists, skipped", name))
			continue
		}
		s, err := skill.Decode(doc.Skills[name])
		if err != nil {
			errs = append(errs, fmt.Sprintf("Error importing skill '%s': %v", name, err))
			continue
		}
		s.Name = name
		s.Verified = false
		if result := r.Validate(ctx, s); !result.Valid {
			errs = append(errs, fmt.Sprintf("Skill '%s' validation failed: %v", name, result.Errors))
			continue
		}
		if err := r.Register(ctx, s); err != nil {
			errs = append(errs, fmt.Sprintf("Failed to register skill '%s': %v", name, err))
			continue
		}
		imported++
	}
	r.logger.Info("skills imported", "imported", imported, "errors", len(errs))
	return imported, errs
}
