package internal

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestProcessPasswords_FromFile(t *testing.T) {
	// WHY: Passwords can be loaded from a file for automation; verifies file-sourced passwords are included in the result alongside defaults.
	t.Parallel()

	path := filepath.Join(t.TempDir(), "passwords.txt")
	if err := os.WriteFile(path, []byte("filepass1\nfilepass2\n"), 0644); err != nil {
		t.Fatalf("write password file: %v", err)
	}

	result, err := ProcessPasswords(nil, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range append(DefaultPasswords(), "filepass1", "filepass2") {
		if !slices.Contains(result, want) {
			t.Errorf("expected password %q to be present", want)
		}
	}
}

func TestProcessPasswords_Deduplicates(t *testing.T) {
	// WHY: Each password costs a full container decode attempt; duplicates from the flag, file, and defaults must collapse while keeping defaults first.
	t.Parallel()

	path := filepath.Join(t.TempDir(), "passwords.txt")
	if err := os.WriteFile(path, []byte("changeit\nsecret\n"), 0644); err != nil {
		t.Fatalf("write password file: %v", err)
	}

	got, err := ProcessPasswords([]string{"secret", "password", "other"}, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := append(DefaultPasswords(), "secret", "other")
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessPasswords_BadFileReturnsError(t *testing.T) {
	// WHY: A nonexistent password file must return an error; silently ignoring it would cause container decryption to fail with confusing "wrong password" errors.
	t.Parallel()

	_, err := ProcessPasswords(nil, "/nonexistent/passwords.txt")
	if err == nil {
		t.Fatal("expected error for nonexistent password file, got nil")
	}
	if !strings.Contains(err.Error(), "loading passwords from file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadPasswordsFromFile_BlankLines(t *testing.T) {
	// WHY: Blank and whitespace-only lines in password files must be skipped; including them would add empty-string duplicates and slow down password iteration.
	t.Parallel()

	path := filepath.Join(t.TempDir(), "passwords.txt")
	if err := os.WriteFile(path, []byte("pass1\n\n  \npass2\n\n"), 0644); err != nil {
		t.Fatalf("write password file: %v", err)
	}

	passwords, err := LoadPasswordsFromFile(path)
	if err != nil {
		t.Fatalf("load passwords: %v", err)
	}
	if !slices.Equal(passwords, []string{"pass1", "pass2"}) {
		t.Errorf("expected [pass1 pass2], got %v", passwords)
	}
}

func TestDefaultPasswords_FreshCopy(t *testing.T) {
	// WHY: Callers append to the returned slice; a shared backing array would leak passwords between commands.
	t.Parallel()

	a := DefaultPasswords()
	a[0] = "mutated"
	if DefaultPasswords()[0] != "" {
		t.Error("DefaultPasswords returned shared storage")
	}
}
