package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// Store persists result records as one JSON file per grid point inside the
// output directory. Writes are atomic: a temp file is written and renamed
// over the final name, so readers never observe a partial result.
type Store struct {
	outputDir string
	logger    logger.Logger
}

// NewStore creates a result store rooted at outputDir
func NewStore(outputDir string, log logger.Logger) *Store {
	return &Store{
		outputDir: outputDir,
		logger:    log,
	}
}

// OutputDir returns the directory results are stored in
func (s *Store) OutputDir() string {
	return s.outputDir
}

// EnsureOutputDir creates the output directory if absent
func (s *Store) EnsureOutputDir() error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Save writes a result to its composition-encoded filename and returns the
// full path
func (s *Store) Save(result *Result) (string, error) {
	if len(result.Composition) == 0 {
		return "", fmt.Errorf("result has no composition")
	}
	if result.CalculatedAt.IsZero() {
		result.CalculatedAt = time.Now()
	}

	path := filepath.Join(s.outputDir, Filename(result.Composition))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	// Write atomically
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile) // Clean up
		return "", fmt.Errorf("failed to rename result file: %w", err)
	}

	return path, nil
}

// Load reads one result file
func (s *Store) Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result file %s: %w", filepath.Base(path), err)
	}

	return &result, nil
}

// LoadByComposition reads the result stored for a composition, resolving
// the path through the filename codec
func (s *Store) LoadByComposition(comp []types.ComponentFraction) (*Result, error) {
	return s.Load(filepath.Join(s.outputDir, Filename(comp)))
}

// Discover scans the output directory for result files, sorted by name.
// Files whose names do not encode a composition are skipped.
func (s *Store) Discover() ([]ResultInfo, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var infos []ResultInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		comp, err := ParseFilename(entry.Name())
		if err != nil {
			continue
		}

		info := ResultInfo{
			Path:        filepath.Join(s.outputDir, entry.Name()),
			Name:        entry.Name(),
			Composition: comp,
		}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
			info.ModTime = fi.ModTime()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// LoadAll loads every stored result, a few files at a time. Used by the
// results listing; the calculation path never calls this.
func (s *Store) LoadAll(ctx context.Context) ([]*Result, error) {
	infos, err := s.Discover()
	if err != nil {
		return nil, err
	}

	loaded := make([]*Result, len(infos))
	group, ctx := NewSafeGroup(ctx, s.logger)
	group.SetLimit(4)

	for i, info := range infos {
		i, info := i, info
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.Load(info.Path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", info.Name, err)
			}
			loaded[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return loaded, nil
}
