package security

import (
	"testing"
)

var testOpts = DefaultOptions([]byte("test-secret"))

func TestResolveRoundTrip(t *testing.T) {
	token, _, err := Generate(testOpts, "u-42", "Leila", "user")
	if err != nil {
		t.Fatal(err)
	}

	id, err := Resolve(testOpts, token)
	if err != nil {
		t.Fatal(err)
	}
	if id.ID != "u-42" || id.Name != "Leila" || id.Role != "user" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.IsAdmin() {
		t.Fatal("plain user resolved as admin")
	}
}

func TestAdminRoleMapping(t *testing.T) {
	for _, role := range []string{"admin", "superadmin"} {
		token, _, err := Generate(testOpts, "a-1", "Ops", role)
		if err != nil {
			t.Fatal(err)
		}
		id, err := Resolve(testOpts, token)
		if err != nil {
			t.Fatal(err)
		}
		if !id.IsAdmin() {
			t.Fatalf("role %q should map to admin", role)
		}
	}

	token, _, _ := Generate(testOpts, "g-1", "Guest", "guest")
	id, _ := Resolve(testOpts, token)
	if id.IsAdmin() {
		t.Fatal("guest must not map to admin")
	}
}

func TestResolveRejectsBadCredentials(t *testing.T) {
	if _, err := Resolve(testOpts, ""); err == nil {
		t.Fatal("empty token accepted")
	}
	if _, err := Resolve(testOpts, "not-a-jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}

	// signed with a different secret
	other := DefaultOptions([]byte("other-secret"))
	token, _, err := Generate(other, "u-1", "X", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(testOpts, token); err == nil {
		t.Fatal("token with wrong signature accepted")
	}
}

func TestResolveRequiresIDClaim(t *testing.T) {
	token, _, err := Generate(testOpts, "", "NoID", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(testOpts, token); err == nil {
		t.Fatal("token without id claim accepted")
	}
}
