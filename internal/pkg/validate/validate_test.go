package validate

import (
	"strings"
	"testing"
)

type grantPayload struct {
	Amount int64  `validate:"gt=0"`
	Reason string `validate:"max=8"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      grantPayload
		wantErr string
	}{
		{name: "valid", in: grantPayload{Amount: 10, Reason: "promo"}},
		{name: "zero amount", in: grantPayload{Amount: 0}, wantErr: "amount: gt"},
		{name: "long reason", in: grantPayload{Amount: 1, Reason: "too long reason"}, wantErr: "reason: max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRequired(t *testing.T) {
	if Required("   ") {
		t.Fatalf("blank string must not pass")
	}
	if !Required("hi") {
		t.Fatalf("non-blank string must pass")
	}
}
