package ids

import "testing"

func TestNewIsValid(t *testing.T) {
	id := New()
	if _, ok := Parse(id); len(id) != 24 || !ok {
		t.Fatalf("New() = %q, not a valid id", id)
	}
	if New() == id {
		t.Fatal("ids must be unique")
	}
}

func TestParse(t *testing.T) {
	cases := map[string]bool{
		"65a1f0c2e4b0a1b2c3d4e5f6":   true,
		"65A1F0C2E4B0A1B2C3D4E5F6":   true,
		"65a1f0c2e4b0a1b2c3d4e5f":    false,
		"zza1f0c2e4b0a1b2c3d4e5f6":   false,
		"":                           false,
		"65a1f0c2e4b0a1b2c3d4e5f6aa": false,
	}
	for in, want := range cases {
		got, ok := Parse(in)
		if ok != want {
			t.Errorf("Parse(%q) ok = %v, want %v", in, ok, want)
		}
		if ok && got != "65a1f0c2e4b0a1b2c3d4e5f6" {
			t.Errorf("Parse(%q) = %q, want lower-case form", in, got)
		}
	}
}
