package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionID(t *testing.T) {
	id := NewTransactionID()
	assert.True(t, strings.HasPrefix(id.String(), "txn_"))
	assert.True(t, IsValid(id.String()))
}

func TestTransactionIDsUnique(t *testing.T) {
	seen := make(map[TransactionID]bool)
	for i := 0; i < 1000; i++ {
		id := NewTransactionID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewTraceID(t *testing.T) {
	id := NewTraceID()
	assert.Len(t, id, 32)
	assert.Equal(t, strings.ToLower(id), id)
	for _, c := range id {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "non-hex character %q", c)
	}
	assert.NotEqual(t, id, NewTraceID())
}

func TestNewSpanID(t *testing.T) {
	id := NewSpanID()
	assert.Len(t, id, 16)
	assert.NotEqual(t, id, NewSpanID())
}

func TestGenerateWithPrefix(t *testing.T) {
	g := NewGenerator()
	id := g.GenerateWithPrefix("req")
	assert.True(t, strings.HasPrefix(id, "req_"))
	assert.True(t, IsValid(id))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"bare ulid", NewGenerator().Generate().String(), true},
		{"prefixed", NewTransactionID().String(), true},
		{"empty", "", false},
		{"garbage", "not-an-id", false},
		{"wrong length", "txn_ABC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.id))
		})
	}
}
