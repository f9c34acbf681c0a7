package model

import (
	"testing"
	"time"
)

func fixedTime(t *testing.T, rfc3339 string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", rfc3339, err)
	}
	return ts
}
