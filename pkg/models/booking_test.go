package models

import (
	"errors"
	"testing"
)

func TestParsePrice(t *testing.T) {
	for in, want := range map[string]string{"3,00": "3", "1.234,50": "1234.5", "1.5": "1.5", "2,500": "2.5", " 4,00 €": "4"} {
		got, err := ParsePrice(in)
		if err != nil {
			t.Errorf("ParsePrice(%q) failed: %v", in, err)
			continue
		}
		if got.String() != want {
			t.Errorf("ParsePrice(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParsePriceRejectsFractionsOfCents(t *testing.T) {
	for _, in := range []string{"1,005", "0.333", "abc"} {
		if _, err := ParsePrice(in); !errors.Is(err, ErrValue) {
			t.Errorf("ParsePrice(%q): expected ErrValue, got %v", in, err)
		}
	}
}
