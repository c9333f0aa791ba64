package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHashService(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "min cost kept", cost: bcrypt.MinCost, want: bcrypt.MinCost},
		{name: "zero falls back", cost: 0, want: bcrypt.DefaultCost},
		{name: "too high falls back", cost: bcrypt.MaxCost + 1, want: bcrypt.DefaultCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewHashService(tt.cost).cost)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hasher := NewHashService(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "warehouse-42"},
		{name: "empty password", password: "", wantErr: ErrPasswordTooShort},
		{name: "short password", password: "abc123", wantErr: ErrPasswordTooShort},
		{name: "exactly max length", password: strings.Repeat("p", MaxPasswordLen)},
		{name: "over max length", password: strings.Repeat("p", MaxPasswordLen+1), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := hasher.HashPassword(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hashed)
				return
			}
			require.NoError(t, err)
			cost, err := bcrypt.Cost([]byte(hashed))
			require.NoError(t, err)
			assert.Equal(t, bcrypt.MinCost, cost)
		})
	}
}

func TestComparePassword(t *testing.T) {
	hasher := NewHashService(bcrypt.MinCost)
	hashed, err := hasher.HashPassword("warehouse-42")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hashed   string
		password string
		want     bool
	}{
		{name: "match", hashed: hashed, password: "warehouse-42", want: true},
		{name: "mismatch", hashed: hashed, password: "warehouse-43", want: false},
		{name: "empty hash", hashed: "", password: "warehouse-42", want: false},
		{name: "garbage hash", hashed: "not-a-hash", password: "warehouse-42", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.ComparePassword(tt.hashed, tt.password))
		})
	}
}
