package style

import "testing"

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		prompt    string
		injection string
		want      string
	}{
		{"both set", "a sword", "pixel art style", "a sword, pixel art style"},
		{"empty prompt", "", "pixel art style", ""},
		{"empty injection", "a sword", "", "a sword"},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.prompt, tt.injection); got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	all := All()
	if len(all) != 10 {
		t.Fatalf("All() len = %d, want 10", len(all))
	}

	seen := make(map[string]bool)
	for _, p := range all {
		if p.ID == "" || p.Name == "" || p.Injection == "" {
			t.Errorf("preset incomplete: %+v", p)
		}
		if seen[p.ID] {
			t.Errorf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}

	all[0].Injection = "mutated"
	if p, _ := Lookup(all[0].ID); p.Injection == "mutated" {
		t.Error("All() exposes the catalog backing array")
	}
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("cyberpunk")
	if !ok {
		t.Fatal("Lookup(cyberpunk) not found")
	}
	if p.Name != "Cyberpunk Neon" {
		t.Errorf("Name = %q", p.Name)
	}
	if _, ok := Lookup("baroque"); ok {
		t.Error("Lookup(baroque) found")
	}
}
