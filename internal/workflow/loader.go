package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcastro2021/barrioflow/model"
)

// definitionsFile is the YAML shape of a workflow definitions file.
type definitionsFile struct {
	Workflows []model.WorkflowDefinition `yaml:"workflows"`
}

// LoadDefinitions parses workflow definitions from a YAML file. Each
// definition must carry an ID, at least one step, and only known action
// kinds; duplicates within the file are rejected.
func LoadDefinitions(path string) ([]model.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(file.Workflows))
	for _, def := range file.Workflows {
		if def.ID == "" {
			return nil, fmt.Errorf("%s: workflow %q has no id", path, def.Name)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate workflow id %q", path, def.ID)
		}
		seen[def.ID] = struct{}{}
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("%s: workflow %q has no steps", path, def.ID)
		}
		for _, step := range def.Steps {
			if step.Name == "" {
				return nil, fmt.Errorf("%s: workflow %q has an unnamed step", path, def.ID)
			}
			if !step.Action.Valid() {
				return nil, fmt.Errorf("%s: workflow %q step %q has unknown action %q",
					path, def.ID, step.Name, step.Action)
			}
		}
	}
	return file.Workflows, nil
}
