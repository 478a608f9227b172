package eval

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/raglens/raglens/pkg/types"
)

// LoadQuerySet reads a versioned query set from dir/<version>.json.
// The file holds a JSON array of {id, query, expected_id} objects;
// the version tag is stamped onto every record.
func LoadQuerySet(dir, version string) ([]types.QueryRecord, error) {
	if version == "" {
		return nil, fmt.Errorf("query version is required")
	}

	path := filepath.Join(dir, version+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load query set %s: %w", path, err)
	}

	var records []types.QueryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse query set %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("query set %s is empty", path)
	}

	for i := range records {
		records[i].Version = version
		if records[i].ID == "" {
			records[i].ID = fmt.Sprintf("%s-%d", version, i)
		}
		if records[i].Query == "" || records[i].ExpectedID == "" {
			return nil, fmt.Errorf("query set %s: record %d missing query or expected_id", path, i)
		}
	}
	return records, nil
}
