package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserInitials(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"both names", User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, "AL"},
		{"first only", User{FirstName: "Ada", Email: "ada@example.com"}, "A"},
		{"last only", User{LastName: "Lovelace", Email: "ada@example.com"}, "L"},
		{"email fallback", User{Email: "ada@example.com"}, "ad"},
		{"blank names", User{FirstName: "  ", Email: "x@example.com"}, "x@"},
		{"multibyte", User{FirstName: "Élodie", LastName: "Ünal"}, "ÉÜ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Initials())
		})
	}
}
