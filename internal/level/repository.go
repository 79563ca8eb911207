package level

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/spawngrid/internal/model"
)

// ErrInvalidPlacement is returned for placements that cannot be registered.
var ErrInvalidPlacement = model.ErrInvalidPlacement

// Level is the on-disk level file.
type Level struct {
	Name     string            `yaml:"name"`
	Spawners []model.Placement `yaml:"spawners"`
}

// FileRepository loads spawner placements from a YAML level file.
// The file is re-read on every LoadAll, so hot reload only needs another call.
type FileRepository struct {
	path string
}

// NewFileRepository creates repository for the level file at path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns level file path
func (r *FileRepository) Path() string {
	return r.path
}

// LoadAll reads and validates every placement in the level file.
func (r *FileRepository) LoadAll(ctx context.Context) ([]model.Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading level %s: %w", r.path, err)
	}

	lvl, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading level %s: %w", r.path, err)
	}
	return lvl.Spawners, nil
}

// Save writes placements to the level file, replacing it.
func (r *FileRepository) Save(lvl Level) error {
	var buf bytes.Buffer
	if err := Encode(&buf, lvl); err != nil {
		return err
	}
	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing level %s: %w", r.path, err)
	}
	return nil
}

// Decode parses and validates a level.
func Decode(r io.Reader) (Level, error) {
	var lvl Level
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&lvl); err != nil {
		if errors.Is(err, io.EOF) {
			return Level{}, nil
		}
		return Level{}, fmt.Errorf("parsing level: %w", err)
	}

	seen := make(map[int64]struct{}, len(lvl.Spawners))
	for i, p := range lvl.Spawners {
		if err := p.Validate(); err != nil {
			return Level{}, fmt.Errorf("spawner #%d: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return Level{}, fmt.Errorf("spawner #%d: duplicate id %d: %w", i, p.ID, ErrInvalidPlacement)
		}
		seen[p.ID] = struct{}{}
	}
	return lvl, nil
}

// Encode writes lvl as YAML.
func Encode(w io.Writer, lvl Level) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(lvl); err != nil {
		return fmt.Errorf("encoding level: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding level: %w", err)
	}
	return nil
}
