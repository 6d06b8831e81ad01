package cmd

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/mediarelay/pkg/internal/token"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		issuedAt, baseURL, asJSON = 0, "", false
	})

	require.NoError(t, rootCmd.Execute())

	return strings.TrimSpace(out.String())
}

func TestTokenEncode(t *testing.T) {
	tok := execute(t, "token", "encode", "--at", "1700000000000", "https://cdn.example.com/v.mp4")

	raw, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v.mp4?t=1700000000000", string(raw))
}

func TestTokenEncodeWithBase(t *testing.T) {
	out := execute(t, "token", "encode", "--at", "1", "--base", "http://localhost:8080/", "https://cdn.example.com/v.mp4")

	assert.True(t, strings.HasPrefix(out, "http://localhost:8080/api/v1/stream?u="), out)
}

func TestTokenDecodeJSON(t *testing.T) {
	tok := base64.StdEncoding.EncodeToString([]byte("https://cdn.example.com/v.mp4"))

	out := execute(t, "token", "decode", "--json", tok)
	assert.JSONEq(t, `{"url":"https://cdn.example.com/v.mp4","valid":true}`, out)
}

func TestInspectToken(t *testing.T) {
	now := time.UnixMilli(1_700_000_100_000)
	v := token.NewVerifier(token.Base64Codec{}, "t", time.Minute, token.WithClock(func() time.Time { return now }))

	tok := base64.StdEncoding.EncodeToString([]byte("https://cdn.example.com/v.mp4?t=1700000000000"))

	report, err := inspectToken(v, tok, now)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(100_000), report.AgeMillis)
	require.NotNil(t, report.IssuedAt)
	assert.Equal(t, int64(1_700_000_000_000), report.IssuedAt.UnixMilli())

	_, err = inspectToken(v, "not base64!", now)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "mediarelay ")
}
