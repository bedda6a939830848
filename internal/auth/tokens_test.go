package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenManagerRejectsForeignSignatureAndExpiry(t *testing.T) {
	u := User{ID: 7, Username: "u", Groups: []string{"Retailer"}}
	m := NewTokenManager("one", time.Minute, time.Hour)
	pair, err := m.Issue(u)
	require.NoError(t, err)

	claims, err := m.Parse(pair.Access, TokenAccess)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, []string{"Retailer"}, claims.Groups)

	other := NewTokenManager("two", time.Minute, time.Hour)
	_, err = other.Parse(pair.Access, TokenAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("one", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	stale, _, err := expired.IssueAccess(u)
	require.NoError(t, err)
	_, err = m.Parse(stale, TokenAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}
