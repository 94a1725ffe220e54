package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringWithoutCommit(t *testing.T) {
	oldCommit := Commit
	Commit = ""
	t.Cleanup(func() { Commit = oldCommit })
	if s := String(); s != Version {
		t.Fatalf("String() = %q, want bare version %q when commit is empty", s, Version)
	}
}
