package bigquery

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q", got)
	}
	long := errors.New(strings.Repeat("x", maxErrorMessageLen+10))
	if got := truncateError(long); len(got) != maxErrorMessageLen {
		t.Errorf("len = %d, want %d", len(got), maxErrorMessageLen)
	}
	if got := truncateError(errors.New("boom")); got != "boom" {
		t.Errorf("truncateError = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&googleapi.Error{Code: http.StatusNotFound}) {
		t.Error("expected 404 to be not found")
	}
	if IsNotFound(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Error("403 is not not-found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain error is not not-found")
	}
}
