package store

import "testing"

func TestNewDBRejectsMalformedConnString(t *testing.T) {
	// pgx parses the DSN at open time, so a malformed string fails before
	// any connection attempt and the returned wrapper is nil.
	db, err := NewDB("://not-a-connection-string")
	if err == nil {
		t.Fatal("expected malformed connection string to fail")
	}
	if db != nil {
		t.Fatalf("expected nil DB on open failure, got %+v", db)
	}
}
