package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndGetRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	id, err := s.SaveRun(&Run{
		RunnerVersion:   "1.0.0",
		ModelType:       "WGS",
		Checkpoint:      "/opt/models/wgs/model.ckpt",
		OutputVCF:       "out.vcf.gz",
		IntermediateDir: "/tmp/deepvariant_x",
		NumShards:       4,
		StagesRun:       3,
		Duration:        90 * time.Second,
	})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	r, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r == nil {
		t.Fatal("GetRun returned nil for a saved run")
	}
	if r.ModelType != "WGS" || r.NumShards != 4 || r.Duration != 90*time.Second {
		t.Errorf("GetRun: got %+v", r)
	}
	if !r.OK() {
		t.Error("OK() = false for exit code 0")
	}
	if r.StartedAt == "" {
		t.Error("StartedAt was not defaulted on save")
	}
}

func TestGetRunMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	r, err := s.GetRun(42)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r != nil {
		t.Errorf("GetRun(42) = %+v, want nil", r)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for _, code := range []int{0, 0, 14} {
		if _, err := s.SaveRun(&Run{ModelType: "WES", ExitCode: code}); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns(2) returned %d runs", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("runs not newest first: ids %d, %d", runs[0].ID, runs[1].ID)
	}
	if runs[0].ExitCode != 14 || runs[0].OK() {
		t.Errorf("latest run: got exit %d, want 14", runs[0].ExitCode)
	}

	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.SaveRun(&Run{ModelType: "PACBIO"}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	runs, err := s.ListRuns(0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns after reopen: got %d err %v", len(runs), err)
	}
	if runs[0].ModelType != "PACBIO" {
		t.Errorf("ModelType = %q, want PACBIO", runs[0].ModelType)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".deepvariant", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Fatalf("parent dir not created: %v", err)
	}
}

func TestOpenRejectsUnknownSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = Open(path)
	if err == nil {
		t.Fatal("Open accepted an unknown schema version")
	}
	if !strings.Contains(err.Error(), "99") {
		t.Errorf("error %q does not name the version", err)
	}
}
