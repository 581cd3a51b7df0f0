// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects registries with missing identity fields or duplicate
// activity ids or task types.
func (r *ActivityRegistry) Validate() error {
	seenIDs := make(map[string]bool)
	seenTasks := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity with empty id or taskType")
		}
		if seenIDs[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		if seenTasks[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		seenIDs[a.ID] = true
		seenTasks[a.TaskType] = true
	}
	return nil
}
