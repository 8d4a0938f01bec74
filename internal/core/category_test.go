package core

import (
	"encoding/json"
	"testing"
)

func TestCategoryRefUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantID   string
		wantName string
		wantErr  bool
	}{
		{"bare id string", `"cat-7"`, "cat-7", "", false},
		{"inline object", `{"id":"cat-7","name":"Food"}`, "cat-7", "Food", false},
		{"object without name", `{"id":"cat-7"}`, "cat-7", "", false},
		{"whitespace trimmed", `" cat-7 "`, "cat-7", "", false},
		{"empty string means uncategorized", `""`, "", "", false},
		{"number is rejected", `42`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref CategoryRef
			err := json.Unmarshal([]byte(tt.in), &ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) = nil, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) unexpected error: %v", tt.in, err)
			}
			if ref.ID != tt.wantID || ref.Name != tt.wantName {
				t.Errorf("Unmarshal(%s) = {ID:%q Name:%q}, want {ID:%q Name:%q}",
					tt.in, ref.ID, ref.Name, tt.wantID, tt.wantName)
			}
		})
	}
}

func TestCategoryRefMarshal(t *testing.T) {
	// The name is an input convenience; the wire form is always the id.
	out, err := json.Marshal(CategoryRef{ID: "cat-7", Name: "Food"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"cat-7"` {
		t.Errorf("Marshal = %s, want %q", out, `"cat-7"`)
	}
}
