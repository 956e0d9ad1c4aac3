package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := NewCatalog("test", []TestCase{
		{Name: "a", Category: "rule1", ExpectedBehavior: "x", RedFlags: []string{"1"}},
		{Name: "b", Category: "rule2", ExpectedBehavior: "x", RedFlags: []string{"2"}},
		{Name: "c", Category: "rule1", ExpectedBehavior: "x", RedFlags: []string{"3"}},
		{Name: "d", Category: "rule3", ExpectedBehavior: "x", RedFlags: []string{"4"}},
		{Name: "e", Category: "rule1", ExpectedBehavior: "x", RedFlags: []string{"5"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return c
}

func names(cases []TestCase) []string {
	out := make([]string, 0, len(cases))
	for _, tc := range cases {
		out = append(out, tc.Name)
	}
	return out
}

func TestCatalog_Select(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{
			name: "empty selection returns everything",
			sel:  Selection{},
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "category keeps catalog order",
			sel:  Selection{Category: "rule1"},
			want: []string{"a", "c", "e"},
		},
		{
			name: "names follow catalog order, not request order",
			sel:  Selection{Names: []string{"d", "a"}},
			want: []string{"a", "d"},
		},
		{
			name: "unknown names are ignored",
			sel:  Selection{Names: []string{"zzz", "b"}},
			want: []string{"b"},
		},
		{
			name: "limit takes a prefix",
			sel:  Selection{Limit: 2},
			want: []string{"a", "b"},
		},
		{
			name: "limit applies after the category filter",
			sel:  Selection{Category: "rule1", Limit: 2},
			want: []string{"a", "c"},
		},
		{
			name: "limit larger than the filtered set",
			sel:  Selection{Category: "rule1", Limit: 10},
			want: []string{"a", "c", "e"},
		},
		{
			name: "category and names compose",
			sel:  Selection{Category: "rule1", Names: []string{"b", "c"}},
			want: []string{"c"},
		},
		{
			name: "nothing matches",
			sel:  Selection{Category: "missing"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.Select(tt.sel)
			if got == nil {
				t.Fatal("Select() returned nil, want empty slice")
			}
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalog_SelectDoesNotMutate(t *testing.T) {
	catalog := testCatalog(t)

	got := catalog.Select(Selection{})
	got[0].Name = "changed"
	got[0].RedFlags[0] = "changed"

	first := catalog.Cases()[0]
	if first.Name != "a" || first.RedFlags[0] != "1" {
		t.Errorf("catalog case modified through Select result: %+v", first)
	}
	if catalog.Len() != 5 {
		t.Errorf("Len() = %d, want 5", catalog.Len())
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cases []TestCase
	}{
		{
			name:  "missing name",
			cases: []TestCase{{ExpectedBehavior: "x"}},
		},
		{
			name:  "duplicate name",
			cases: []TestCase{{Name: "a", ExpectedBehavior: "x"}, {Name: "a", ExpectedBehavior: "y"}},
		},
		{
			name:  "missing expected behavior",
			cases: []TestCase{{Name: "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog("v", tt.cases); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	if catalog.Len() != 12 {
		t.Fatalf("default catalog has %d cases, want 12", catalog.Len())
	}
	if catalog.Version() != DefaultCatalogVersion {
		t.Errorf("Version() = %q, want %q", catalog.Version(), DefaultCatalogVersion)
	}

	for _, tc := range catalog.Cases() {
		if tc.Category == "" {
			t.Errorf("test case %q missing category", tc.Name)
		}
		if tc.Setup == "" || tc.StudentInput == "" {
			t.Errorf("test case %q missing setup or student input", tc.Name)
		}
		if len(tc.RedFlags) == 0 {
			t.Errorf("test case %q has no red flags", tc.Name)
		}
	}

	if got := len(catalog.Select(Selection{Category: "socratic_rule1"})); got != 2 {
		t.Errorf("socratic_rule1 selects %d cases, want 2", got)
	}
}

func TestLoadAndSaveCatalog(t *testing.T) {
	cases := DefaultCatalog().Cases()[:3]

	path := t.TempDir() + "/catalog.json"
	if err := SaveCatalog(path, cases); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	loaded, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if diff := cmp.Diff(cases, loaded.Cases()); diff != "" {
		t.Errorf("loaded catalog mismatch (-want +got):\n%s", diff)
	}
	if loaded.Version() != "catalog.json" {
		t.Errorf("Version() = %q, want catalog.json", loaded.Version())
	}
}
