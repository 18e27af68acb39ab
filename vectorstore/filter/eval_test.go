package filter

import "testing"

func mustParse(t *testing.T, in string) Expr {
	t.Helper()
	e, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse(%q): %v", in, err)
	}
	return e
}

func TestEvalComparisons(t *testing.T) {
	meta := map[string]any{
		"country": "BG",
		"year":    2021,
		"rating":  4.7,
		"active":  true,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`country == 'BG'`, true},
		{`country == 'US'`, false},
		{`country != 'US'`, true},
		{`year >= 2020`, true},
		{`year > 2021`, false},
		{`rating < 5`, true},
		{`rating <= 4.7`, true},
		{`active == true`, true},
		{`genre == 'comedy'`, false},  // missing key fails EQ
		{`genre != 'comedy'`, true},   // and passes NE
		{`genre in ['comedy']`, false},
		{`genre nin ['comedy']`, true},
	}
	for _, tt := range tests {
		got, err := Eval(mustParse(t, tt.expr), meta)
		if err != nil {
			t.Errorf("Eval(%q): %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalNumericCoercion(t *testing.T) {
	meta := map[string]any{
		"int":    7,
		"int64":  int64(7),
		"float":  7.0,
		"float32": float32(7),
	}
	for _, key := range []string{"int", "int64", "float", "float32"} {
		expr := key + ` == 7`
		got, err := Eval(mustParse(t, expr), meta)
		if err != nil {
			t.Fatalf("Eval(%q): %v", expr, err)
		}
		if !got {
			t.Errorf("Eval(%q) = false, want true", expr)
		}
	}
}

func TestEvalBoolean(t *testing.T) {
	meta := map[string]any{"country": "BG", "year": 2019}

	tests := []struct {
		expr string
		want bool
	}{
		{`country == 'BG' && year >= 2020`, false},
		{`country == 'BG' || year >= 2020`, true},
		{`!(year >= 2020)`, true},
		{`country == 'BG' && (year >= 2020 || year < 2020)`, true},
	}
	for _, tt := range tests {
		got, err := Eval(mustParse(t, tt.expr), meta)
		if err != nil {
			t.Errorf("Eval(%q): %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalInList(t *testing.T) {
	meta := map[string]any{"genre": "drama", "year": 2021}

	tests := []struct {
		expr string
		want bool
	}{
		{`genre in ['comedy', 'drama']`, true},
		{`genre in ['comedy']`, false},
		{`genre nin ['comedy']`, true},
		{`year in [2020, 2021]`, true},
		{`year not in [2020, 2021]`, false},
	}
	for _, tt := range tests {
		got, err := Eval(mustParse(t, tt.expr), meta)
		if err != nil {
			t.Errorf("Eval(%q): %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalNestedKeys(t *testing.T) {
	meta := map[string]any{
		"author": map[string]any{"name": "Ana"},
	}
	got, err := Eval(mustParse(t, `author.name == 'Ana'`), meta)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got {
		t.Error("nested key lookup failed")
	}
}

func TestEvalNilExpr(t *testing.T) {
	got, err := Eval(nil, map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Eval(nil): %v", err)
	}
	if !got {
		t.Error("nil filter must match everything")
	}
}

func TestEvalTypeMismatchOrder(t *testing.T) {
	meta := map[string]any{"country": "BG"}
	_, err := Eval(mustParse(t, `country > 5`), meta)
	if err == nil {
		t.Error("expected error ordering a string against a number")
	}
}
