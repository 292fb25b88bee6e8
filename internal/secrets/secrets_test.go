package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDirectTakesPriority(t *testing.T) {
	got, err := Resolve("direct-value", "/does/not/exist", "PAPORG_TEST_UNSET")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "direct-value" {
		t.Fatalf("got %q, want %q", got, "direct-value")
	}
}

func TestResolveFromFileTrimsTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := Resolve("", path, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("got %q, want %q", got, "s3cret")
	}
}

func TestResolveFromEnvVar(t *testing.T) {
	t.Setenv("PAPORG_TEST_SECRET", "from-env")

	got, err := Resolve("", "", "PAPORG_TEST_SECRET")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("got %q, want %q", got, "from-env")
	}
}

func TestResolveEnvVarUnsetErrors(t *testing.T) {
	if _, err := Resolve("", "", "PAPORG_DEFINITELY_NOT_SET"); err == nil {
		t.Fatal("expected an error for an unset environment variable")
	}
}

func TestResolveNoSourceReturnsErrNoSource(t *testing.T) {
	_, err := Resolve("", "", "")
	if err != ErrNoSource {
		t.Fatalf("got %v, want ErrNoSource", err)
	}
}

func TestExpandHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}

	got, err := ExpandHome("~/creds/token")
	if err != nil {
		t.Fatalf("ExpandHome: %v", err)
	}
	want := filepath.Join(home, "creds", "token")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandHomeLeavesOtherPathsUnchanged(t *testing.T) {
	got, err := ExpandHome("/etc/paporg/creds")
	if err != nil {
		t.Fatalf("ExpandHome: %v", err)
	}
	if got != "/etc/paporg/creds" {
		t.Fatalf("got %q, want unchanged path", got)
	}
}
