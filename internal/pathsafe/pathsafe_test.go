package pathsafe

import (
	"errors"
	"testing"
)

func TestResolveRejectsTraversal(t *testing.T) {
	cases := []string{"../etc/passwd", "..", "a/../../b", "foo/bar"}
	for _, c := range cases {
		if _, err := Resolve("/data/policies", c); err == nil {
			t.Fatalf("expected rejection for %q", c)
		}
	}
}

func TestResolveRejectsControlCharacters(t *testing.T) {
	if _, err := Resolve("/data/policies", "acme\x00corp"); err == nil {
		t.Fatal("expected rejection for control character")
	}
}

func TestResolveAcceptsNormalNames(t *testing.T) {
	got, err := Resolve("/data/policies", "Acme Health", "Humira")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "/data/policies/acme_health/humira"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestResolveFileRejectsEscapingFilename(t *testing.T) {
	if _, err := ResolveFile("/data/policies", []string{"acme", "humira"}, "../../etc/passwd"); !errors.Is(err, ErrInvalidSegment) {
		t.Fatalf("expected ErrInvalidSegment, got %v", err)
	}
}

func TestResolveFileAcceptsKnownSuffix(t *testing.T) {
	got, err := ResolveFile("/data/policies", []string{"acme", "humira"}, "acme_humira_digitized.json")
	if err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	want := "/data/policies/acme/humira/acme_humira_digitized.json"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
