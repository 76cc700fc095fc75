package matrixcsv

import (
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Value
	}{
		{
			name: "single",
			raw:  "active",
			want: Single("active"),
		},
		{
			name: "single trimmed",
			raw:  "  active  ",
			want: Single("active"),
		},
		{
			name: "list",
			raw:  "editor,author,admin",
			want: List{"editor", "author", "admin"},
		},
		{
			name: "list drops empty elements",
			raw:  "editor,,author,",
			want: List{"editor", "author"},
		},
		{
			name: "list trims elements",
			raw:  "editor , author",
			want: List{"editor", "author"},
		},
		{
			name: "modified single modifier",
			raw:  "minify[prod]",
			want: Modified{Name: "minify", Modifiers: []string{"prod"}},
		},
		{
			name: "comma inside brackets stays modified",
			raw:  "file[dev,prod]",
			want: Modified{Name: "file", Modifiers: []string{"dev", "prod"}},
		},
		{
			name: "modified list",
			raw:  "text[rwx],route[rw-]",
			want: ModifiedList{
				{Name: "text", Modifiers: []string{"rwx"}},
				{Name: "route", Modifiers: []string{"rw-"}},
			},
		},
		{
			name: "modified list three entries",
			raw:  "text[rwx],route[rw-],content[r--]",
			want: ModifiedList{
				{Name: "text", Modifiers: []string{"rwx"}},
				{Name: "route", Modifiers: []string{"rw-"}},
				{Name: "content", Modifiers: []string{"r--"}},
			},
		},
		{
			name: "modified list with bare entry",
			raw:  "text[rwx],plain",
			want: ModifiedList{
				{Name: "text", Modifiers: []string{"rwx"}},
				{Name: "plain"},
			},
		},
		{
			name: "modified list skips empty chunks",
			raw:  "text[rwx],,route[rw-]",
			want: ModifiedList{
				{Name: "text", Modifiers: []string{"rwx"}},
				{Name: "route", Modifiers: []string{"rw-"}},
			},
		},
		{
			name: "unclosed bracket with inner comma falls through to list",
			raw:  "a[x,b",
			want: List{"a[x", "b"},
		},
		{
			name: "empty modifier block",
			raw:  "plain[]",
			want: Modified{Name: "plain"},
		},
		{
			name: "empty string",
			raw:  "",
			want: Single(""),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseValue(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseModifiers(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantBase string
		wantMods []string
	}{
		{name: "simple", raw: "text[rwx]", wantBase: "text", wantMods: []string{"rwx"}},
		{name: "multiple", raw: "file[dev,prod,test]", wantBase: "file", wantMods: []string{"dev", "prod", "test"}},
		{name: "no brackets", raw: "simple", wantBase: "simple"},
		{name: "close before open", raw: "a]b[c", wantBase: "a]b[c"},
		{name: "modifiers trimmed", raw: "file[ dev , prod ]", wantBase: "file", wantMods: []string{"dev", "prod"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mods := parseModifiers(tt.raw)
			if base != tt.wantBase {
				t.Errorf("base = %q, want %q", base, tt.wantBase)
			}
			if !reflect.DeepEqual(mods, tt.wantMods) {
				t.Errorf("modifiers = %#v, want %#v", mods, tt.wantMods)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "single", v: Single("active"), want: "active"},
		{name: "list", v: List{"editor", "author"}, want: "editor,author"},
		{name: "modified", v: Modified{Name: "minify", Modifiers: []string{"prod"}}, want: "minify[prod]"},
		{name: "modified without modifiers renders bare", v: Modified{Name: "plain"}, want: "plain"},
		{
			name: "modified list",
			v: ModifiedList{
				{Name: "text", Modifiers: []string{"rwx"}},
				{Name: "route", Modifiers: []string{"rw-"}},
			},
			want: "text[rwx],route[rw-]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		Single("active"),
		List{"editor", "author", "admin"},
		Modified{Name: "file", Modifiers: []string{"dev", "prod"}},
		ModifiedList{
			{Name: "text", Modifiers: []string{"rwx"}},
			{Name: "route", Modifiers: []string{"rw-"}},
		},
	}
	for _, v := range values {
		got := ParseValue(v.String())
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip of %q produced %#v, want %#v", v.String(), got, v)
		}
	}
}
