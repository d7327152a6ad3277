package git

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// IgnoredEntries are the files init creates that must stay out of version
// control: the config holds the Neo4j password and the data directory holds
// the database.
var IgnoredEntries = []string{".kube-topology.yaml", "neo4j-data/"}

// IsRepository checks if dir is inside a Git repository.
func IsRepository(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// UpdateGitignore ensures that entries are present in dir/.gitignore and
// reports what it did to out. Outside a Git repository it only prints a
// reminder.
func UpdateGitignore(dir string, entries []string, out io.Writer) error {
	if !IsRepository(dir) {
		fmt.Fprintln(out, "\nNote: Not inside a Git repository. If you initialize one later,")
		fmt.Fprintf(out, "remember to add the following to your .gitignore: %s\n", strings.Join(entries, ", "))
		return nil
	}

	entriesAdded, err := AppendEntries(filepath.Join(dir, ".gitignore"), entries)
	if err != nil {
		return err
	}

	if len(entriesAdded) > 0 {
		fmt.Fprintf(out, "\n✓ Added the following entries to .gitignore: %s\n", strings.Join(entriesAdded, ", "))
	} else {
		fmt.Fprintln(out, "\n✓ .gitignore already contains the necessary entries.")
	}
	fmt.Fprintln(out, "This prevents committing sensitive credentials and local database files.")

	return nil
}

// AppendEntries appends the entries missing from the ignore file at path,
// creating it if needed, and returns the ones it added.
func AppendEntries(path string, entries []string) ([]string, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open or create .gitignore: %w", err)
	}
	defer file.Close()

	// Check which entries are already present
	scanner := bufio.NewScanner(file)
	existingEntries := make(map[string]bool)
	for scanner.Scan() {
		existingEntries[strings.TrimSpace(scanner.Text())] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading .gitignore: %w", err)
	}

	var entriesAdded []string
	for _, entry := range entries {
		if existingEntries[entry] {
			continue
		}
		if _, err := file.WriteString("\n" + entry); err != nil {
			return entriesAdded, fmt.Errorf("failed to write to .gitignore: %w", err)
		}
		existingEntries[entry] = true
		entriesAdded = append(entriesAdded, entry)
	}

	return entriesAdded, nil
}
