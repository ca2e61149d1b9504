package service

import (
	"encoding/json"
	"strings"
	"testing"

	"user-account-service/internal/user/domain"
)

func TestNewView_OmitsSecrets(t *testing.T) {
	u := &domain.User{
		ID:             "user-1",
		FirstName:      "Jane",
		Email:          "jane@example.com",
		Phone:          &domain.Phone{DialCode: "+1", Number: "5550100"},
		PasswordHash:   "$2a$04$secret",
		ResetTokenHash: "deadbeef",
		LoginType:      domain.LoginTypePassword,
		Role:           "customer",
		IsActive:       true,
		Version:        4,
	}
	b, err := json.Marshal(NewView(u))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(b)
	for _, secret := range []string{"$2a$04$secret", "deadbeef", `"password"`, `"token"`} {
		if strings.Contains(body, secret) {
			t.Errorf("view JSON %s leaks %s", body, secret)
		}
	}
	for _, field := range []string{`"_id":"user-1"`, `"loginType":"password"`, `"version":4`, `"dialCode":"+1"`} {
		if !strings.Contains(body, field) {
			t.Errorf("view JSON %s missing %s", body, field)
		}
	}
}

func TestPasswordFormatIssues(t *testing.T) {
	testCases := []struct {
		password string
		want     int
	}{
		{"Str0ng@Pass", 0},
		{"", 2},
		{"Sh0r@", 1},
		{"nouppercase1@", 1},
		{"NoDigits@@", 1},
		{"NoSpecial12", 1},
		{"Has Space1@", 1},
		{"Str0ng@Pass" + strings.Repeat("x", 61), 0},
		{"Str0ng@Pass" + strings.Repeat("x", 62), 1},
	}
	for _, tc := range testCases {
		if got := passwordFormatIssues(tc.password); len(got) != tc.want {
			t.Errorf("passwordFormatIssues(%q) = %q, want %d issues", tc.password, got, tc.want)
		}
	}
}
