package token_test

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/mediarelay/pkg/configs"
	"github.com/yeisme/mediarelay/pkg/internal/token"
)

var issuedAt = time.UnixMilli(1_700_000_000_000)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestRoundTrip 签发后解码得到原始 URL 与时间戳.
func TestRoundTrip(t *testing.T) {
	codecs := map[string]token.Codec{
		"base64": token.Base64Codec{},
		"hmac":   &token.SignedCodec{Inner: token.Base64Codec{}, Signer: token.NewHMACSigner([]byte("s3cret"))},
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			issuer := token.NewIssuer(codec, "t", fixedClock(issuedAt))

			tok, err := issuer.Issue("https://cdn.example.com/movies/a.mp4?quality=hd")
			require.NoError(t, err)

			v := token.NewVerifier(codec, "t", time.Minute, token.WithClock(fixedClock(issuedAt.Add(time.Second))))

			p, err := v.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example.com/movies/a.mp4?quality=hd&t=1700000000000", p.ResourceURL)
			assert.True(t, p.Timestamped)
			assert.Equal(t, issuedAt.UnixMilli(), p.IssuedAtMillis)
			assert.Equal(t, "cdn.example.com", p.Host())
		})
	}
}

// TestBase64MatchesBrowserEncoding 与 btoa 的输出互通.
func TestBase64MatchesBrowserEncoding(t *testing.T) {
	raw := "http://origin.test/v.mp4?t=1700000000000"
	tok := base64.StdEncoding.EncodeToString([]byte(raw))

	got, err := token.Base64Codec{}.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	// 查询串中未转义的 '+' 被还原为空格
	got, err = token.Base64Codec{}.Decode(strings.ReplaceAll(tok, "+", " "))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	// URL 安全字母表，无填充
	got, err = token.Base64Codec{}.Decode(base64.RawURLEncoding.EncodeToString([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// TestDecodeMalformed 无法解码的令牌.
func TestDecodeMalformed(t *testing.T) {
	v := token.NewVerifier(token.Base64Codec{}, "t", time.Minute)

	cases := map[string]error{
		"":                        token.ErrEmptyToken,
		"%%%not-base64%%%":        token.ErrMalformed,
		enc("\xff\xfe\xfd"):       token.ErrMalformed,
		enc("not a url at all"):   token.ErrInvalidURL,
		enc("/relative/only.mp4"): token.ErrInvalidURL,
		enc("ftp://host/file"):    token.ErrInvalidURL,
		enc("https://h/v?t=abc"):  token.ErrBadTimestamp,
		enc("https://h/v?t=-5"):   token.ErrBadTimestamp,
	}

	for tok, want := range cases {
		_, err := v.Verify(tok)
		assert.ErrorIs(t, err, want, "token %q", tok)
	}
}

// TestExpiryBoundary now - t 恰好等于有效期时仍然有效，超过 1ms 即过期.
func TestExpiryBoundary(t *testing.T) {
	tok := enc("https://cdn.example.com/a.mp4?t=" + itoa(issuedAt.UnixMilli()))

	v := token.NewVerifier(token.Base64Codec{}, "t", 60*time.Second,
		token.WithClock(fixedClock(issuedAt.Add(60*time.Second))))
	_, err := v.Verify(tok)
	require.NoError(t, err)

	v = token.NewVerifier(token.Base64Codec{}, "t", 60*time.Second,
		token.WithClock(fixedClock(issuedAt.Add(60*time.Second+time.Millisecond))))
	p, err := v.Verify(tok)
	require.ErrorIs(t, err, token.ErrExpired)
	assert.Equal(t, int64(60_001), p.AgeMillis(issuedAt.Add(60*time.Second+time.Millisecond)))
}

// TestFutureTimestamp 签发时间晚于当前时间时不算过期.
func TestFutureTimestamp(t *testing.T) {
	tok := enc("https://cdn.example.com/a.mp4?t=" + itoa(issuedAt.Add(time.Hour).UnixMilli()))

	v := token.NewVerifier(token.Base64Codec{}, "t", time.Minute, token.WithClock(fixedClock(issuedAt)))
	_, err := v.Verify(tok)
	assert.NoError(t, err)
}

// TestNoTimestampNeverExpires 不带时间参数的 URL 不做过期检查.
func TestNoTimestampNeverExpires(t *testing.T) {
	v := token.NewVerifier(token.Base64Codec{}, "t", time.Minute,
		token.WithClock(fixedClock(issuedAt.Add(24*time.Hour))))

	p, err := v.Verify(enc("https://cdn.example.com/a.mp4"))
	require.NoError(t, err)
	assert.False(t, p.Timestamped)
}

// TestSignedCodecRejectsTampering 篡改 URL 或缺失签名都被拒绝.
func TestSignedCodecRejectsTampering(t *testing.T) {
	codec := &token.SignedCodec{Inner: token.Base64Codec{}, Signer: token.NewHMACSigner([]byte("k1"))}

	tok, err := codec.Encode("https://cdn.example.com/a.mp4?t=1")
	require.NoError(t, err)

	body, sig, ok := strings.Cut(tok, ".")
	require.True(t, ok)

	forged := enc("https://evil.example.com/a.mp4?t=1") + "." + sig
	_, err = codec.Decode(forged)
	assert.ErrorIs(t, err, token.ErrBadSignature)

	_, err = codec.Decode(body)
	assert.ErrorIs(t, err, token.ErrMalformed)

	other := &token.SignedCodec{Inner: token.Base64Codec{}, Signer: token.NewHMACSigner([]byte("k2"))}
	_, err = other.Decode(tok)
	assert.ErrorIs(t, err, token.ErrBadSignature)
}

// TestStampReplacesExisting 已有同名参数时覆盖.
func TestStampReplacesExisting(t *testing.T) {
	got, err := token.Stamp("https://h/v.mp4?t=1&x=2", "t", issuedAt)
	require.NoError(t, err)
	assert.Equal(t, "https://h/v.mp4?t=1700000000000&x=2", got)

	got, err = token.Stamp("https://h/v.mp4", "t", issuedAt)
	require.NoError(t, err)
	assert.Equal(t, "https://h/v.mp4?t=1700000000000", got)
}

// TestNewCodec 根据配置选择编解码器.
func TestNewCodec(t *testing.T) {
	cfg := configs.DefaultRelayConfig()

	c, err := token.NewCodec(cfg)
	require.NoError(t, err)
	assert.IsType(t, token.Base64Codec{}, c)

	cfg.TokenCodec = configs.TokenCodecHMAC
	_, err = token.NewCodec(cfg)
	require.ErrorIs(t, err, configs.ErrMissingTokenSecret)

	cfg.TokenSecret = "secret"
	c, err = token.NewCodec(cfg)
	require.NoError(t, err)
	assert.IsType(t, &token.SignedCodec{}, c)

	cfg.TokenCodec = "rot13"
	_, err = token.NewCodec(cfg)
	assert.Error(t, err)
}

func enc(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
