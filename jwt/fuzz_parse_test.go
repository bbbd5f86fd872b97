package jwt

import (
	"testing"
	"time"
)

// FuzzParse exercises the token parser with arbitrary token strings.
// Goal: no panics; invalid inputs must be rejected with errors.
func FuzzParse(f *testing.F) {
	mgr, err := NewManager(Config{
		Secret:     []byte("fuzz-secret-fuzz-secret-fuzz-sec"),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.CreateAccess("fuzz@example.com", "uid1", "dev1", "192.0.2.1", "fuzz-agent", []string{"member"})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic. Errors are expected for malformed input.
		claims, err := mgr.Parse(input)
		if err != nil {
			return
		}
		if claims == nil {
			t.Fatal("Parse returned nil claims without error")
		}
	})
}
