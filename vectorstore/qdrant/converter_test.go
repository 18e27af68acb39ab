package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"

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

func fieldCondition(t *testing.T, c *qdrant.Condition) *qdrant.FieldCondition {
	t.Helper()
	f := c.GetField()
	if f == nil {
		t.Fatalf("condition is not a field condition: %v", c)
	}
	return f
}

func TestConvertEq(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `country == 'BG'`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.Must) != 1 {
		t.Fatalf("must = %d, want 1", len(f.Must))
	}
	fc := fieldCondition(t, f.Must[0])
	if fc.Key != "metadata.country" {
		t.Errorf("key = %q", fc.Key)
	}
	if got := fc.GetMatch().GetKeyword(); got != "BG" {
		t.Errorf("keyword = %q, want BG", got)
	}
}

func TestConvertEqTypes(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `year == 2020`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	fc := fieldCondition(t, f.Must[0])
	if got := fc.GetMatch().GetInteger(); got != 2020 {
		t.Errorf("integer = %d, want 2020", got)
	}

	f, err = ConvertFilter(mustParse(t, `active == true`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	fc = fieldCondition(t, f.Must[0])
	if got := fc.GetMatch().GetBoolean(); got != true {
		t.Errorf("boolean = %v, want true", got)
	}

	// Float equality becomes an exact range.
	f, err = ConvertFilter(mustParse(t, `rating == 4.5`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	fc = fieldCondition(t, f.Must[0])
	r := fc.GetRange()
	if r == nil || r.GetGte() != 4.5 || r.GetLte() != 4.5 {
		t.Errorf("range = %v, want [4.5, 4.5]", r)
	}
}

func TestConvertNe(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `country != 'BG'`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.MustNot) != 1 {
		t.Fatalf("filter = %v, want one must_not", f)
	}
	fc := fieldCondition(t, f.MustNot[0])
	if got := fc.GetMatch().GetKeyword(); got != "BG" {
		t.Errorf("keyword = %q", got)
	}
}

func TestConvertRanges(t *testing.T) {
	tests := []struct {
		in    string
		check func(r *qdrant.Range) bool
	}{
		{`year > 2020`, func(r *qdrant.Range) bool { return r.GetGt() == 2020 }},
		{`year >= 2020`, func(r *qdrant.Range) bool { return r.GetGte() == 2020 }},
		{`year < 2020`, func(r *qdrant.Range) bool { return r.GetLt() == 2020 }},
		{`year <= 2020`, func(r *qdrant.Range) bool { return r.GetLte() == 2020 }},
	}
	for _, tt := range tests {
		f, err := ConvertFilter(mustParse(t, tt.in))
		if err != nil {
			t.Errorf("ConvertFilter(%q): %v", tt.in, err)
			continue
		}
		fc := fieldCondition(t, f.Must[0])
		if fc.Key != "metadata.year" {
			t.Errorf("%q: key = %q", tt.in, fc.Key)
		}
		if r := fc.GetRange(); r == nil || !tt.check(r) {
			t.Errorf("%q: range = %v", tt.in, fc.GetRange())
		}
	}
}

func TestConvertRangeRejectsString(t *testing.T) {
	_, err := ConvertFilter(mustParse(t, `country > 'BG'`))
	if err == nil {
		t.Error("expected error for string range")
	}
}

func TestConvertIn(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `genre in ['comedy', 'drama']`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	fc := fieldCondition(t, f.Must[0])
	kws := fc.GetMatch().GetKeywords().GetStrings()
	if len(kws) != 2 || kws[0] != "comedy" || kws[1] != "drama" {
		t.Errorf("keywords = %v", kws)
	}

	f, err = ConvertFilter(mustParse(t, `year in [2020, 2021]`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	fc = fieldCondition(t, f.Must[0])
	ints := fc.GetMatch().GetIntegers().GetIntegers()
	if len(ints) != 2 || ints[0] != 2020 || ints[1] != 2021 {
		t.Errorf("integers = %v", ints)
	}
}

func TestConvertNin(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `genre nin ['comedy']`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.MustNot) != 1 {
		t.Fatalf("filter = %v, want one must_not", f)
	}
	fc := fieldCondition(t, f.MustNot[0])
	kws := fc.GetMatch().GetKeywords().GetStrings()
	if len(kws) != 1 || kws[0] != "comedy" {
		t.Errorf("keywords = %v", kws)
	}
}

func TestConvertBoolean(t *testing.T) {
	f, err := ConvertFilter(mustParse(t, `country == 'BG' && year >= 2020`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.Must) != 2 {
		t.Fatalf("must = %d, want 2", len(f.Must))
	}

	f, err = ConvertFilter(mustParse(t, `country == 'BG' || country == 'NL'`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.Should) != 2 {
		t.Fatalf("should = %d, want 2", len(f.Should))
	}

	f, err = ConvertFilter(mustParse(t, `NOT(country == 'BG')`))
	if err != nil {
		t.Fatalf("ConvertFilter: %v", err)
	}
	if len(f.MustNot) != 1 {
		t.Fatalf("must_not = %d, want 1", len(f.MustNot))
	}
}

func TestConvertNil(t *testing.T) {
	f, err := ConvertFilter(nil)
	if err != nil {
		t.Fatalf("ConvertFilter(nil): %v", err)
	}
	if f != nil {
		t.Errorf("got %v, want nil", f)
	}
}
