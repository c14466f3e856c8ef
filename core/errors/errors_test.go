package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDuplicateIDError(t *testing.T) {
	tests := []struct {
		name     string
		err      *DuplicateIDError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with kind",
			err:      &DuplicateIDError{ID: "sec-scope", Kind: "clause"},
			wantMsg:  `duplicate id "sec-scope" (second definition is a clause)`,
			wantBase: ErrDuplicateID,
		},
		{
			name:     "without kind",
			err:      &DuplicateIDError{ID: "sec-scope"},
			wantMsg:  `duplicate id "sec-scope"`,
			wantBase: ErrDuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(err, %v) = false, want true", tt.wantBase)
			}
		})
	}
}

func TestLookupError(t *testing.T) {
	notFound := &LookupError{Namespace: "global", Key: "ToNumber"}
	if !errors.Is(notFound, ErrNotFound) {
		t.Error("zero-match lookup should unwrap to ErrNotFound")
	}

	ambiguous := &LookupError{Namespace: "sec-a", Key: "Get", Matches: 2}
	if !errors.Is(ambiguous, ErrAmbiguous) {
		t.Error("multi-match lookup should unwrap to ErrAmbiguous")
	}
	if errors.Is(ambiguous, ErrNotFound) {
		t.Error("multi-match lookup should not unwrap to ErrNotFound")
	}
}

func TestMalformedNodeError(t *testing.T) {
	err := &MalformedNodeError{Kind: "br", File: "spec.html", Message: "oldids on element without children"}
	want := "malformed <br> in spec.html: oldids on element without children"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Error("should unwrap to ErrMalformed")
	}
}

func TestLoadErrorWrapping(t *testing.T) {
	base := errors.New("permission denied")
	err := &LoadError{Path: "chunks/intro.html", Op: "read", Err: base}
	if !errors.Is(err, base) {
		t.Error("LoadError should unwrap to its cause")
	}
	wrapped := fmt.Errorf("importing: %w", err)
	var le *LoadError
	if !errors.As(wrapped, &le) {
		t.Error("errors.As should find LoadError through wrapping")
	}
	if le.Path != "chunks/intro.html" {
		t.Errorf("Path = %q", le.Path)
	}
}
