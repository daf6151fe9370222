// internal/app/seed/seed.go
//
// Package seed holds the fixed default dataset used to initialize an empty
// root document and to satisfy a reset request.
package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/dalemusser/eduverse/internal/domain/models"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var raw []byte

var (
	once   sync.Once
	parsed models.Snapshot
	perr   error
)

// Parse decodes a YAML document into a normalized snapshot.
func Parse(data []byte) (models.Snapshot, error) {
	var s models.Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return models.Snapshot{}, fmt.Errorf("seed: decode: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Snapshot returns a fresh copy of the seed dataset. Callers may modify the
// result freely.
func Snapshot() models.Snapshot {
	once.Do(func() {
		parsed, perr = Parse(raw)
	})
	if perr != nil {
		// The embedded file is part of the binary; a decode failure is a build defect.
		panic(perr)
	}
	return parsed.Clone()
}
