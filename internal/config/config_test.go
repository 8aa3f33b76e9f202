package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MDD_JWT_SECRET", secret)
	t.Setenv("MDD_DSN", "postgres://u:p@localhost/mdd")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8443", c.Addr)
	require.Equal(t, StorePostgres, c.Store)
	require.Equal(t, 24*time.Hour, c.TokenTTL())
	require.Equal(t, "self", c.JWTIssuer)
	require.Equal(t, 10, c.BcryptCost)
	require.Equal(t, 5, c.LoginMaxFails)
	require.Equal(t, 15*time.Minute, c.LoginWindow)
	require.False(t, c.TLS())
}

func TestLoad_MemoryStoreNeedsNoDSN(t *testing.T) {
	t.Setenv("MDD_JWT_SECRET", secret)
	t.Setenv("MDD_STORE", StoreMemory)
	t.Setenv("MDD_JWT_EXPIRATION_MS", "1500")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, c.TokenTTL())
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"MDD_STORE": StoreMemory}, "JWTSecret"},
		{"short secret", map[string]string{"MDD_STORE": StoreMemory, "MDD_JWT_SECRET": "short"}, "JWTSecret"},
		{"postgres without dsn", map[string]string{"MDD_JWT_SECRET": secret}, "DSN"},
		{"unknown store", map[string]string{"MDD_JWT_SECRET": secret, "MDD_STORE": "redis"}, "Store"},
		{"half tls", map[string]string{"MDD_JWT_SECRET": secret, "MDD_STORE": StoreMemory, "MDD_TLS_CERT": "c.pem"}, "TLSKey"},
		{"bad duration", map[string]string{"MDD_JWT_SECRET": secret, "MDD_STORE": StoreMemory, "MDD_LOGIN_WINDOW": "soon"}, "parse env:"},
		{"negative ttl", map[string]string{"MDD_JWT_SECRET": secret, "MDD_STORE": StoreMemory, "MDD_JWT_EXPIRATION_MS": "-1"}, "JWTExpirationMS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), err.Error())
		})
	}
}
