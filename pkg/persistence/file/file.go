// Package file provides a file-based persistence implementation. Each record
// is one JSON document under the root directory; workflows embed their graph.
// Intended for development and tests; production uses the postgresql package.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnireach/omnireach/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root       string
	workflows  *WorkflowRepository
	leads      *LeadRepository
	personas   *PersonaRepository
	executions *ExecutionRepository
	messages   *MessageRepository
	settings   *IntegrationSettingRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is stripped so database-url style configuration works.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:       cleanRoot,
		workflows:  &WorkflowRepository{store: store{root: cleanRoot, dir: "workflows"}},
		leads:      &LeadRepository{store: store{root: cleanRoot, dir: "leads"}},
		personas:   &PersonaRepository{store: store{root: cleanRoot, dir: "personas"}},
		executions: &ExecutionRepository{store: store{root: cleanRoot, dir: "executions"}},
		messages:   &MessageRepository{store: store{root: cleanRoot, dir: "messages"}},
		settings:   &IntegrationSettingRepository{store: store{root: cleanRoot, dir: "settings"}},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository   { return p.workflows }
func (p *Persistence) Leads() persistence.LeadRepository           { return p.leads }
func (p *Persistence) Personas() persistence.PersonaRepository     { return p.personas }
func (p *Persistence) Executions() persistence.ExecutionRepository { return p.executions }
func (p *Persistence) Messages() persistence.MessageRepository     { return p.messages }

func (p *Persistence) IntegrationSettings() persistence.IntegrationSettingRepository {
	return p.settings
}

// HealthCheck verifies the root directory exists, creating it when absent.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(p.root, 0o755)
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// store handles JSON documents for one entity directory.
type store struct {
	root string
	dir  string
}

func (s store) path(id string) string {
	return filepath.Join(s.root, s.dir, id+".json")
}

func (s store) read(id string, out any) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fs.ErrNotExist
		}

		return fmt.Errorf("failed to read %s %s: %w", s.dir, id, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", s.dir, id, err)
	}

	return nil
}

func (s store) write(id string, in any) error {
	if err := os.MkdirAll(filepath.Join(s.root, s.dir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", s.dir, id, err)
	}

	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", s.dir, id, err)
	}

	return nil
}

// ids returns all record ids in the entity directory.
func (s store) ids() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, s.dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}
