package schema

import (
	"encoding/json"
	"testing"
)

func TestCatalog_SizeAndOrder(t *testing.T) {
	sections := Catalog()
	if len(sections) != 11 {
		t.Fatalf("catalog size = %d, want 11", len(sections))
	}
	if Size() != 11 {
		t.Fatalf("Size() = %d, want 11", Size())
	}

	// Section identity and order are the addressing key for merged results.
	wantOrder := []string{
		"patientInformation",
		"reasonForReferral",
		"requestedServices",
		"sourceOfReferral",
		"clinicalHistory",
		"currentMedicalStatusHPI",
		"functionalStatus",
		"homeEnvironment",
		"careTeamInformation",
		"medications",
		"woundCareOrders",
	}
	for i, want := range wantOrder {
		if sections[i].Name != want {
			t.Errorf("section %d = %q, want %q", i, sections[i].Name, want)
		}
	}
}

func TestCatalog_TemplatesAreValidJSON(t *testing.T) {
	for _, s := range Catalog() {
		var v map[string]any
		if err := json.Unmarshal(s.Template, &v); err != nil {
			t.Errorf("section %q template is not valid JSON: %v", s.Name, err)
		}
		if len(v) != 1 {
			t.Errorf("section %q template should have a single top-level key", s.Name)
		}
		if s.Instruction == "" {
			t.Errorf("section %q has no instruction", s.Name)
		}
	}
}

func TestTotalLeafFields_Stable(t *testing.T) {
	a := TotalLeafFields()
	b := TotalLeafFields()
	if a != b {
		t.Fatalf("TotalLeafFields not stable: %d vs %d", a, b)
	}
	if a <= 0 {
		t.Fatalf("TotalLeafFields = %d, want > 0", a)
	}
}

func TestCountLeaves(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"flat object", `{"a":"","b":""}`, 2},
		{"nested object", `{"a":{"b":"","c":""},"d":""}`, 3},
		{"empty array is one leaf", `{"a":[]}`, 1},
		{"array of objects", `{"a":[{"b":"","c":""}]}`, 2},
		{"scalar", `"x"`, 1},
		{"null", `null`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := CountLeaves(v); got != tt.want {
				t.Errorf("CountLeaves = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountFilledLeaves(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"all filled", `{"a":"x","b":"y"}`, 2},
		{"empty string not filled", `{"a":"","b":"y"}`, 1},
		{"null not filled", `{"a":null,"b":"y"}`, 1},
		{"not found marker", `{"a":"Not Found","b":"y"}`, 1},
		{"numbers and bools count", `{"a":3,"b":true}`, 2},
		{"nested arrays", `{"a":["x",""],"b":{"c":null}}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := CountFilledLeaves(v); got != tt.want {
				t.Errorf("CountFilledLeaves = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountFilledLeaves_NeverExceedsCountLeaves(t *testing.T) {
	for _, s := range Catalog() {
		var v any
		if err := json.Unmarshal(s.Template, &v); err != nil {
			t.Fatalf("unmarshal %q: %v", s.Name, err)
		}
		// Templates with preset list values (e.g. requestedServices) may have
		// filled leaves, but never more than the total.
		if CountFilledLeaves(v) > CountLeaves(v) {
			t.Errorf("section %q: filled > total", s.Name)
		}
	}
}
