package directive

import (
	"reflect"
	"testing"
)

func TestParse_NoMarkers(t *testing.T) {
	tests := []string{"hello world", "  spaced  ", ""}
	for _, s := range tests {
		got := Parse(s)
		if len(got) != 1 {
			t.Fatalf("Parse(%q) = %v, want exactly 1 directive", s, got)
		}
		if got[0].Target != "" {
			t.Errorf("Parse(%q) target = %q, want empty (Commander)", s, got[0].Target)
		}
	}
}

func TestParse_SplitsMultipleRoles(t *testing.T) {
	got := Parse("hello @@dev run tests @@ui make form")
	want := []Directive{
		{Target: "", Content: "hello"},
		{Target: "dev", Content: "run tests"},
		{Target: "ui", Content: "make form"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParse_RoleOnlyNoContent(t *testing.T) {
	got := Parse("@@dev")
	if len(got) != 1 || got[0].Target != "dev" || got[0].Content != "" {
		t.Fatalf("Parse(%q) = %+v", "@@dev", got)
	}
}

func TestParse_NeverEmpty(t *testing.T) {
	inputs := []string{"", "   ", "@@", "@@@@", "@@  @@"}
	for _, s := range inputs {
		if got := Parse(s); len(got) < 1 {
			t.Errorf("Parse(%q) returned %d directives, want >= 1", s, len(got))
		}
	}
}

func TestRoundtrip(t *testing.T) {
	inputs := []string{
		"plain message",
		"@@dev fix the bug",
		"hello @@dev run tests @@ui make form",
		"@@role_1 do a @@role_2 thing",
		"leading text @@",
		"@@123abc mixed alnum role",
	}
	for _, s := range inputs {
		first := Parse(s)
		second := Parse(Format(first))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("roundtrip broke for %q: first=%+v second=%+v", s, first, second)
		}
	}
}

func TestFormat_Inverse(t *testing.T) {
	got := Format([]Directive{
		{Content: "hello"},
		{Target: "dev", Content: "run tests"},
		{Target: "ui", Content: ""},
	})
	want := "hello @@dev run tests @@ui"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}
