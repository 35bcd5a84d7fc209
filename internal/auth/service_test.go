package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerifyRiderToken(t *testing.T) {
	svc := NewService("test-secret")

	token, err := svc.IssueRiderToken("rider-1", "amel")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "rider-1" || claims.Nickname != "amel" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a").IssueRiderToken("rider-1", "amel")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewService("secret-b").VerifyToken(token); err == nil {
		t.Fatalf("expected verification failure")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret")
	token, err := svc.signToken("rider-1", "amel", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.VerifyToken(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret")
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.VerifyToken(token); err == nil {
			t.Fatalf("expected failure for %q", token)
		}
	}
}

func TestTokenOmitsEmptyNickname(t *testing.T) {
	svc := NewService("test-secret")
	token, err := svc.IssueRiderToken("rider-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Nickname != "" {
		t.Fatalf("unexpected nickname %q", claims.Nickname)
	}
}
