package opensearch

import (
	"testing"

	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

func mustParse(t *testing.T, in string) filter.Expr {
	t.Helper()
	e, err := filter.Parse(in)
	if err != nil {
		t.Fatalf("Parse(%q): %v", in, err)
	}
	return e
}

func TestConvertFilter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`country == 'BG'`, `metadata.country:"BG"`},
		{`country != 'BG'`, `NOT metadata.country:"BG"`},
		{`year >= 2020`, `metadata.year:[2020 TO *]`},
		{`year > 2020`, `metadata.year:{2020 TO *]`},
		{`year <= 2020`, `metadata.year:[* TO 2020]`},
		{`year < 2020`, `metadata.year:[* TO 2020}`},
		{`active == true`, `metadata.active:true`},
		{`rating >= 4.5`, `metadata.rating:[4.5 TO *]`},
		{
			`genre in ['comedy', 'drama']`,
			`metadata.genre:("comedy" OR "drama")`,
		},
		{
			`genre nin ['comedy', 'drama']`,
			`NOT metadata.genre:("comedy" OR "drama")`,
		},
		{
			`country == 'BG' && year >= 2020`,
			`metadata.country:"BG" AND metadata.year:[2020 TO *]`,
		},
		{
			`country == 'BG' || country == 'NL'`,
			`metadata.country:"BG" OR metadata.country:"NL"`,
		},
		{
			`country == 'BG' AND (city == 'Sofia' OR city == 'Plovdiv')`,
			`metadata.country:"BG" AND (metadata.city:"Sofia" OR metadata.city:"Plovdiv")`,
		},
		{
			`NOT(country == 'BG')`,
			`NOT ((metadata.country:"BG"))`,
		},
	}
	for _, tt := range tests {
		got, err := ConvertFilter(mustParse(t, tt.in))
		if err != nil {
			t.Errorf("ConvertFilter(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ConvertFilter(%q)\n got  %s\n want %s", tt.in, got, tt.want)
		}
	}
}

func TestConvertFilterNil(t *testing.T) {
	got, err := ConvertFilter(nil)
	if err != nil {
		t.Fatalf("ConvertFilter(nil): %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestConvertFilterEmptyList(t *testing.T) {
	_, err := ConvertFilter(filter.Cmp{Op: filter.OpIn, Key: "x", Value: []any{}})
	if err == nil {
		t.Error("expected error for empty list")
	}
}

func TestConvertFilterRejectsUnsupportedValue(t *testing.T) {
	tests := []struct {
		name string
		expr filter.Expr
	}{
		{"nil value", filter.Eq("tag", nil)},
		{"struct value", filter.Eq("tag", struct{ X int }{1})},
		{"slice outside in", filter.Gt("year", []any{2020})},
		{"nil in list", filter.In("tag", "a", nil)},
	}
	for _, tt := range tests {
		if _, err := ConvertFilter(tt.expr); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
