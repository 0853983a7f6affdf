package catalog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader loads catalog tables from YAML files
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new table loader
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFromFile parses a YAML table file. The file must define at least one
// group mapping; an empty hierarchy section is allowed.
func (l *Loader) LoadFromFile(path string) (*Tables, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}

	tables := &Tables{}
	if err := yaml.Unmarshal(content, tables); err != nil {
		return nil, fmt.Errorf("parse tables file %s: %w", path, err)
	}

	if err := validate(tables); err != nil {
		return nil, fmt.Errorf("invalid tables file %s: %w", path, err)
	}

	if tables.Hierarchy == nil {
		tables.Hierarchy = make(map[string]int)
	}

	l.logger.Debug("loaded catalog tables",
		zap.String("file", path),
		zap.Int("groups", len(tables.Groups)),
	)
	return tables, nil
}

func validate(tables *Tables) error {
	if len(tables.Groups) == 0 {
		return fmt.Errorf("no group mappings defined")
	}
	for group, perms := range tables.Groups {
		if group == "" {
			return fmt.Errorf("empty group name")
		}
		for _, p := range perms {
			if p == "" {
				return fmt.Errorf("group %s maps an empty permission", group)
			}
		}
	}
	for perm, level := range tables.Hierarchy {
		if perm == "" {
			return fmt.Errorf("empty permission name in hierarchy")
		}
		if level < 0 {
			return fmt.Errorf("permission %s has negative level %d", perm, level)
		}
	}
	return nil
}
