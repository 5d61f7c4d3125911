package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	m := NewManger()

	token, err := m.CreateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := m.GetIdFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenTampered(t *testing.T) {
	m := NewManger()

	token, err := m.CreateToken(42)
	require.NoError(t, err)

	_, err = m.GetIdFromToken(token + "x")

	invalidErr := &InvalidTokenError{}
	assert.ErrorAs(t, err, &invalidErr)
}

func TestTokenGarbage(t *testing.T) {
	m := NewManger()

	_, err := m.GetIdFromToken("not-a-token")

	invalidErr := &InvalidTokenError{}
	assert.ErrorAs(t, err, &invalidErr)
}
