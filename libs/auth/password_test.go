package auth

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("1234")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" || hash == "1234" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if err := VerifyPassword(hash, "1234"); err != nil {
		t.Fatalf("VerifyPassword should succeed: %v", err)
	}
	if err := VerifyPassword(hash, "4321"); err == nil {
		t.Fatal("VerifyPassword should fail for wrong code")
	}
	if err := VerifyPassword("not-a-hash", "1234"); err == nil {
		t.Fatal("VerifyPassword should fail for malformed hash")
	}
}
