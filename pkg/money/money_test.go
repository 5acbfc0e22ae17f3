package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain integer", input: "100", want: "100"},
		{name: "decimal", input: "79.99", want: "79.99"},
		{name: "padded", input: "  50.5 ", want: "50.5"},
		{name: "empty", input: "", want: "0"},
		{name: "malformed", input: "not-a-price", want: "0"},
		{name: "trailing junk", input: "12.5abc", want: "0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			want, _ := decimal.NewFromString(tt.want)
			if got := ParsePrice(tt.input); !got.Equal(want) {
				t.Fatalf("ParsePrice(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestEffective(t *testing.T) {
	t.Parallel()

	discount := "80"
	if got := Effective("100", &discount); !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected discount price to win, got %s", got)
	}
	if got := Effective("100", nil); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected canonical price, got %s", got)
	}
	blank := "  "
	if got := Effective("100", &blank); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("blank discount must fall back to canonical price, got %s", got)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := Format(decimal.NewFromFloat(210)); got != "210.00" {
		t.Fatalf("unexpected format %q", got)
	}
}
