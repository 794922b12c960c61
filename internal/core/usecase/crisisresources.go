package usecase

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

//go:embed crisisresources.yaml
var crisisResourcesYAML []byte

// CrisisDirectory holds the emergency support contacts rendered into crisis
// responses: national entries always apply, state entries are appended when
// the user's state is known.
type CrisisDirectory struct {
	National map[string][]domain.CrisisResource            `yaml:"national"`
	States   map[string]map[string][]domain.CrisisResource `yaml:"states"`
}

func LoadCrisisDirectory() (*CrisisDirectory, error) {
	var dir CrisisDirectory
	if err := yaml.Unmarshal(crisisResourcesYAML, &dir); err != nil {
		return nil, fmt.Errorf("parse crisis resources: %w", err)
	}
	if len(dir.National) == 0 {
		return nil, fmt.Errorf("crisis resources: no national entries")
	}
	return &dir, nil
}

// ResourcesFor returns the support contacts for a risk category, national
// first then state-specific, deduplicated by name.
func (d *CrisisDirectory) ResourcesFor(category domain.SafetyCategory, state string) []domain.CrisisResource {
	resources := append([]domain.CrisisResource(nil), d.National[string(category)]...)
	if stateEntries, ok := d.States[state]; ok {
		resources = append(resources, stateEntries[string(category)]...)
	}

	seen := make(map[string]struct{}, len(resources))
	unique := resources[:0]
	for _, r := range resources {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}
