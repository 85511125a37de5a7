package apperr

import (
	"fmt"
	"github.com/pkg/errors"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation(Issue{Path: "lines", Message: "required"}), http.StatusUnprocessableEntity},
		{InsufficientStock("p1"), http.StatusConflict},
		{Unavailable("p1"), http.StatusBadRequest},
		{InvalidTransition("created", "fulfilled"), http.StatusBadRequest},
		{NotFound(), http.StatusNotFound},
		{New(KindUnauthorized, nil), http.StatusUnauthorized},
		{New(KindForbidden, nil), http.StatusForbidden},
		{New(KindTransactionUnavailable, nil), http.StatusInternalServerError},
		{New(KindTransactionConflict, nil), http.StatusServiceUnavailable},
		{New(KindIdempotencyInProgress, nil), http.StatusConflict},
		{New(KindUpstreamUnavailable, nil), http.StatusServiceUnavailable},
		{New(Kind("Whatever"), nil), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := c.err.Status(); got != c.want {
			t.Errorf("%s: status = %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := InsufficientStock("abc")
	wrapped := fmt.Errorf("reserve: %w", errors.WithMessage(base, "batch"))

	if got := KindOf(wrapped); got != KindInsufficientStock {
		t.Fatalf("KindOf = %s, want %s", got, KindInsufficientStock)
	}
	e, ok := As(wrapped)
	if !ok || e.Detail("productId") != "abc" {
		t.Fatalf("As lost details: %+v", e)
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("plain errors should be internal")
	}
	if IsKind(nil, KindInternal) {
		t.Fatal("nil error has no kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindTransactionUnavailable, cause, "begin tx")

	if errors.Cause(err.Unwrap()) != cause {
		t.Fatalf("cause not preserved: %v", err)
	}
	if !Retryable(Wrap(KindUpstreamUnavailable, cause, "catalog")) {
		t.Fatal("upstream errors are retryable")
	}
	if Retryable(err) {
		t.Fatal("transaction errors are not retried")
	}
	if !Retryable(Wrap(KindTransactionConflict, cause, "reservation tx")) {
		t.Fatal("deadlocks and serialization failures are retryable")
	}
}

func TestErrorString(t *testing.T) {
	got := InvalidTransition("created", "fulfilled").Error()
	want := "InvalidTransition from=created to=fulfilled"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
