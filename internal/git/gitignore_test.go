package git

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")
	if err := os.WriteFile(path, []byte("bin/\nneo4j-data/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	added, err := AppendEntries(path, IgnoredEntries)
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if len(added) != 1 || added[0] != ".kube-topology.yaml" {
		t.Errorf("AppendEntries() added = %v, want [.kube-topology.yaml]", added)
	}

	added, err = AppendEntries(path, IgnoredEntries)
	if err != nil {
		t.Fatalf("AppendEntries() second call error = %v", err)
	}
	if len(added) != 0 {
		t.Errorf("AppendEntries() second call added = %v, want none", added)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), ".kube-topology.yaml"); got != 1 {
		t.Errorf(".gitignore lists the config %d times, want 1", got)
	}
}

func TestAppendEntriesCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")

	added, err := AppendEntries(path, []string{"a", "a", "b"})
	if err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}
	if len(added) != 2 {
		t.Errorf("AppendEntries() added = %v, want [a b]", added)
	}
}

func TestUpdateGitignoreOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	if IsRepository(dir) {
		t.Skip("temp dir is inside a git work tree")
	}

	var out bytes.Buffer
	if err := UpdateGitignore(dir, IgnoredEntries, &out); err != nil {
		t.Fatalf("UpdateGitignore() error = %v", err)
	}
	if !strings.Contains(out.String(), "Not inside a Git repository") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); !os.IsNotExist(err) {
		t.Errorf(".gitignore should not be created outside a repository")
	}
}

func TestUpdateGitignoreInRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if err := exec.Command("git", "init", dir).Run(); err != nil {
		t.Skipf("git init failed: %v", err)
	}

	var out bytes.Buffer
	if err := UpdateGitignore(dir, IgnoredEntries, &out); err != nil {
		t.Fatalf("UpdateGitignore() error = %v", err)
	}
	if !strings.Contains(out.String(), "Added the following entries") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
