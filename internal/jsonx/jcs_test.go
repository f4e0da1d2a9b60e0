package jsonx

import "testing"

func TestCanonicalKeyOrdering(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	out, err := Canonical(a)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `{"a":2,"b":1,"c":3}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalDeterministic(t *testing.T) {
	v := map[string]interface{}{
		"z": []interface{}{1, 2, 3},
		"a": map[string]interface{}{"y": "hi", "x": "lo"},
	}
	out1, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	out2, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if string(out1) != string(out2) {
		t.Fatalf("non-deterministic output: %s vs %s", out1, out2)
	}
}

func TestContentHashStable(t *testing.T) {
	v := struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	}{Name: "crohns-humira", Version: 2}

	h1, err := ContentHash(v)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	h2, err := ContentHash(v)
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%s)", len(h1), h1)
	}
}

func TestContentHashNoHTMLEscaping(t *testing.T) {
	v := map[string]interface{}{"note": "a < b && c > d"}
	out, err := Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `{"note":"a < b && c > d"}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}
