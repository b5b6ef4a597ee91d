package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestE(t *testing.T) {
	t.Run("returns nil when error is nil", func(t *testing.T) {
		got := E("op", NotFound, nil)
		if got != nil {
			t.Errorf("E() with nil error = %v, want nil", got)
		}
	})

	t.Run("constructs Error with all fields", func(t *testing.T) {
		root := errors.New("root cause")
		err := E("linker.repo.Create", Conflict, root)

		var e *Error
		if !errors.As(err, &e) {
			t.Fatal("expected error to be of type *errx.Error")
		}

		if got, want := e.Op, "linker.repo.Create"; got != want {
			t.Errorf("Op = %q, want %q", got, want)
		}
		if got, want := e.Kind, Conflict; got != want {
			t.Errorf("Kind = %v, want %v", got, want)
		}
		if !errors.Is(e.Err, root) {
			t.Errorf("Err = %v, want %v", e.Err, root)
		}
	})

	t.Run("preserves all error kinds", func(t *testing.T) {
		kinds := []Kind{Unknown, NotFound, Conflict, Invalid, Unavailable, Internal}
		root := errors.New("test error")

		for _, kind := range kinds {
			t.Run(fmt.Sprintf("kind_%d", kind), func(t *testing.T) {
				err := E("operation", kind, root)
				if got := KindOf(err); got != kind {
					t.Errorf("KindOf() = %v, want %v", got, kind)
				}
			})
		}
	})
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unknown, "Unknown"},
		{NotFound, "NotFound"},
		{Conflict, "Conflict"},
		{Invalid, "Invalid"},
		{Unavailable, "Unavailable"},
		{Internal, "Internal"},
		{Kind(99), "Kind(99)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	t.Run("formats op and wrapped error", func(t *testing.T) {
		err := &Error{Op: "linker.service.Resolve", Err: errors.New("boom")}
		if got, want := err.Error(), "linker.service.Resolve: boom"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to op when error is nil", func(t *testing.T) {
		err := &Error{Op: "linker.service.Resolve"}
		if got, want := err.Error(), "linker.service.Resolve"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to error when op is empty", func(t *testing.T) {
		err := &Error{Err: errors.New("boom")}
		if got, want := err.Error(), "boom"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})
}

func TestKindOf(t *testing.T) {
	t.Run("returns Unknown for plain errors", func(t *testing.T) {
		if got := KindOf(errors.New("plain")); got != Unknown {
			t.Errorf("KindOf() = %v, want Unknown", got)
		}
	})

	t.Run("unwraps nested errors", func(t *testing.T) {
		inner := E("linker.repo.ResolveAndIncrement", NotFound, errors.New("no rows"))
		wrapped := fmt.Errorf("request failed: %w", inner)

		if got := KindOf(wrapped); got != NotFound {
			t.Errorf("KindOf() = %v, want NotFound", got)
		}
	})
}

func TestUnwrap(t *testing.T) {
	root := errors.New("root")
	err := E("op", Internal, root)

	if !errors.Is(err, root) {
		t.Error("errors.Is() should find the root cause through Unwrap")
	}
}

func TestOpOf(t *testing.T) {
	t.Run("returns op for errx errors", func(t *testing.T) {
		err := E("linker.repo.ListByRecency", Unavailable, errors.New("timeout"))
		if got, want := OpOf(err), "linker.repo.ListByRecency"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})

	t.Run("returns empty string for plain errors", func(t *testing.T) {
		if got := OpOf(errors.New("plain")); got != "" {
			t.Errorf("OpOf() = %q, want empty", got)
		}
	})
}
