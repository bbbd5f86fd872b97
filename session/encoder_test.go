package session

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().UnixMilli()
	sess := &Session{
		UserID:       "u-1",
		DeviceID:     "dev-1",
		IPAddress:    "198.51.100.4",
		CreatedAt:    now,
		LastActivity: now + 250,
		Active:       true,
	}

	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != *sess {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, sess)
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}

	if _, err := Encode(&Session{UserID: string(long)}); err == nil {
		t.Fatal("expected error for oversized userID")
	}
	if _, err := Encode(&Session{DeviceID: string(long)}); err == nil {
		t.Fatal("expected error for oversized deviceID")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	sess := &Session{UserID: "u", DeviceID: "d", Active: true}
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	data[0] = 99
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for unknown schema version")
	}
}

func TestDecodeInactiveFlag(t *testing.T) {
	sess := &Session{UserID: "u", DeviceID: "d", Active: false}
	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Active {
		t.Fatal("inactive flag must survive the round trip")
	}
}
