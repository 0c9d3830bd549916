package results_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

func testResult(al, cr float64) *results.Result {
	return &results.Result{
		Composition: []types.ComponentFraction{
			{Element: "Al", Fraction: al},
			{Element: "Cr", Fraction: cr},
			{Element: "Co", Fraction: 0.1},
			{Element: "Fe", Fraction: 0.1},
			{Element: "Ni", Fraction: 0.1},
		},
		Database: "TCHEA6",
		Data: results.PhaseDiagramData{
			Groups: []results.PhaseGroup{
				{Label: "FCC_L12", X: []float64{al, al}, Y: []float64{600, 800}},
				{Label: "LIQUID", X: []float64{al}, Y: []float64{1150}},
			},
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(tmpDir, nil)

	path, err := store.Save(testResult(0.05, 0.65))
	if err != nil {
		t.Fatalf("failed to save result: %v", err)
	}

	expected := filepath.Join(tmpDir, "Al0.050-Cr0.650-Co0.100-Fe0.100-Ni0.100.json")
	if path != expected {
		t.Errorf("expected path %s, got %s", expected, path)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("failed to load result: %v", err)
	}

	if loaded.Database != "TCHEA6" {
		t.Errorf("expected database TCHEA6, got %s", loaded.Database)
	}
	if len(loaded.Data.Groups) != 2 {
		t.Fatalf("expected 2 phase groups, got %d", len(loaded.Data.Groups))
	}
	if loaded.Data.Groups[0].Label != "FCC_L12" {
		t.Errorf("expected first group FCC_L12, got %s", loaded.Data.Groups[0].Label)
	}
	if loaded.CalculatedAt.IsZero() {
		t.Error("expected CalculatedAt to be stamped on save")
	}

	// The same result resolves through its composition
	byComp, err := store.LoadByComposition(loaded.Composition)
	if err != nil {
		t.Fatalf("failed to load by composition: %v", err)
	}
	if byComp.Database != loaded.Database {
		t.Errorf("composition lookup returned a different result: %s", byComp.Database)
	}

	if _, err := store.LoadByComposition(testResult(0.3, 0.4).Composition); err == nil {
		t.Error("expected error loading a composition never saved")
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(tmpDir, nil)

	if _, err := store.Save(testResult(0.05, 0.65)); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to read output directory: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestStore_SaveWithoutComposition(t *testing.T) {
	store := results.NewStore(t.TempDir(), nil)

	_, err := store.Save(&results.Result{Database: "TCHEA6"})
	if err == nil {
		t.Error("expected error saving result without composition")
	}
}

func TestStore_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(tmpDir, nil)

	sweeps := []float64{0.15, 0.05, 0.1}
	for _, al := range sweeps {
		if _, err := store.Save(testResult(al, 0.7-al)); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	// Foreign files and directories are not results
	os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("scratch"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "run.lock"), []byte("{}"), 0644)
	os.Mkdir(filepath.Join(tmpDir, "archive"), 0755)

	infos, err := store.Discover()
	if err != nil {
		t.Fatalf("failed to discover results: %v", err)
	}

	if len(infos) != 3 {
		t.Fatalf("expected 3 results, got %d", len(infos))
	}

	// Sorted by name
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Name >= infos[i].Name {
			t.Errorf("results not sorted: %s before %s", infos[i-1].Name, infos[i].Name)
		}
	}

	for _, info := range infos {
		if len(info.Composition) != 5 {
			t.Errorf("%s: expected 5 components, got %d", info.Name, len(info.Composition))
		}
		if info.Size == 0 {
			t.Errorf("%s: expected non-zero size", info.Name)
		}
	}
}

func TestStore_DiscoverMissingDir(t *testing.T) {
	store := results.NewStore(filepath.Join(t.TempDir(), "missing"), nil)

	infos, err := store.Discover()
	if err != nil {
		t.Fatalf("expected no error for missing directory, got %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected no results, got %d", len(infos))
	}
}

func TestStore_LoadAll(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(tmpDir, nil)

	for _, al := range []float64{0.05, 0.1, 0.15, 0.2} {
		if _, err := store.Save(testResult(al, 0.7-al)); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	loaded, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("failed to load all results: %v", err)
	}

	if len(loaded) != 4 {
		t.Fatalf("expected 4 results, got %d", len(loaded))
	}
	for i, result := range loaded {
		if result == nil {
			t.Fatalf("result %d is nil", i)
		}
		if len(result.Composition) != 5 {
			t.Errorf("result %d: expected 5 components, got %d", i, len(result.Composition))
		}
	}
}

func TestStore_LoadAllBadFile(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(tmpDir, nil)

	if _, err := store.Save(testResult(0.05, 0.65)); err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	os.WriteFile(filepath.Join(tmpDir, "Al0.100-Cr0.600.json"), []byte("not json"), 0644)

	_, err := store.LoadAll(context.Background())
	if err == nil {
		t.Error("expected error loading corrupt result file")
	}
}

func TestStore_EnsureOutputDir(t *testing.T) {
	tmpDir := t.TempDir()
	store := results.NewStore(filepath.Join(tmpDir, "nested", "results"), nil)

	if err := store.EnsureOutputDir(); err != nil {
		t.Fatalf("failed to create output directory: %v", err)
	}

	stat, err := os.Stat(filepath.Join(tmpDir, "nested", "results"))
	if err != nil {
		t.Fatalf("output directory not created: %v", err)
	}
	if !stat.IsDir() {
		t.Error("output path is not a directory")
	}
}

func BenchmarkStore_Save(b *testing.B) {
	store := results.NewStore(b.TempDir(), nil)
	result := testResult(0.05, 0.65)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Save(result); err != nil {
			b.Fatalf("failed to save result: %v", err)
		}
	}
}
