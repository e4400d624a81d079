package utils

import "testing"

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken() error: %v", err)
	}
	b, _ := GenerateSecureToken(32)
	if len(a) != 44 {
		t.Errorf("len = %d, want 44", len(a))
	}
	if TokensEqual(a, b) {
		t.Error("two tokens compared equal")
	}
	if !TokensEqual(a, a) {
		t.Error("token not equal to itself")
	}
}

func TestNormalizeParticipantID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  P-001 ", "P-001", true},
		{"site_2.subject7", "site_2.subject7", true},
		{"", "", false},
		{"has space", "has space", false},
		{"<script>", "<script>", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeParticipantID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeParticipantID(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
