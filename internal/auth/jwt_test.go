package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("S1", UserTypeStudent, "rollcall", "test-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Fatal("refresh expiry must outlive access expiry")
	}

	claims, err := Parse(pair.AccessToken, "test-key", "rollcall")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "S1" {
		t.Fatalf("expected subject S1, got %s", claims.Subject)
	}
	if claims.Role != UserTypeStudent {
		t.Fatalf("expected role STUDENT, got %s", claims.Role)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("S1", UserTypeStudent, "rollcall", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "rollcall"); err == nil {
		t.Fatal("expected wrong key to fail")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pair, err := Issue("S1", UserTypeStudent, "someone-else", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "rollcall"); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("S1", UserTypeStudent, "rollcall", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "rollcall"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
