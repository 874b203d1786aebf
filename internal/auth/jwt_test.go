package auth

import (
	"context"
	"testing"
	"time"

	"spendtrack/internal/core"
)

const testSecret = "test-secret"

func testUser() *core.User {
	return &core.User{ID: 1, Email: "user@example.com", Role: core.RoleUser}
}

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	p, err := ParseToken(tok, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.UserID != 1 || p.Email != "user@example.com" || p.Role != core.RoleUser {
		t.Errorf("unexpected principal: %+v", p)
	}
	if p.IsAdmin() {
		t.Error("User role must not be admin")
	}
}

func TestParseToken_Rejections(t *testing.T) {
	valid, err := GenerateToken(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, err := GenerateToken(testUser(), testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken expired: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other-secret"},
		{"expired", expired, testSecret},
		{"garbage", "not.a.jwt", testSecret},
		{"empty secret", valid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseBearer(t *testing.T) {
	tok, err := GenerateToken(&core.User{ID: 2, Email: "admin@example.com", Role: core.RoleAdmin}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	p, err := ParseBearer("Bearer "+tok, testSecret)
	if err != nil {
		t.Fatalf("ParseBearer: %v", err)
	}
	if !p.IsAdmin() {
		t.Errorf("expected admin principal, got %+v", p)
	}

	for _, header := range []string{"", tok, "Basic " + tok} {
		if _, err := ParseBearer(header, testSecret); err == nil {
			t.Errorf("expected error for header %q", header)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no principal in empty context")
	}

	want := &Principal{UserID: 1, Email: "user@example.com", Role: core.RoleUser}
	ctx := WithPrincipal(context.Background(), want)
	got, ok := FromContext(ctx)
	if !ok || got != want {
		t.Errorf("expected stored principal back, got %+v ok=%v", got, ok)
	}
}
