package interest

import (
	"errors"
	"strings"
	"testing"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Machine   Learning ", "machine learning"},
		{"machine learning", "machine learning"},
		{"Deep\tNets", "deep nets"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"  Machine   Learning ", "GRAPH  Neural networks", "x"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
	if Normalize("  Machine   Learning ") != Normalize("machine learning") {
		t.Error("expected case/whitespace-insensitive equality")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   string
		reason Reason
	}{
		{"valid", "  Machine   Learning ", "machine learning", ""},
		{"not a string", 42, "", ReasonEmpty},
		{"nil", nil, "", ReasonEmpty},
		{"blank", "   ", "", ReasonEmpty},
		{"too long", strings.Repeat("a", MaxLength+1), "", ReasonTooLong},
		{"max length", strings.Repeat("a", MaxLength), strings.Repeat("a", MaxLength), ""},
		{"newline", "machine\nlearning", "", ReasonInvalidChars},
		{"tab", "machine\tlearning", "", ReasonInvalidChars},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(tc.raw)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Errorf("expected %q, got %q", tc.want, got)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, ve.Reason)
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Error("expected error to wrap ErrInvalidRequest")
			}
		})
	}
}
