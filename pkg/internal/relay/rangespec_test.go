package relay_test

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/mediarelay/pkg/internal/relay"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header     string
		start, end int64
		ok         bool
	}{
		{"bytes=0-1023", 0, 1023, true},
		{"bytes=500-", 500, relay.Unbounded, true},
		{" bytes = 7 - 9 ", 7, 9, true},
		{"bytes=0-1,5-9", 0, 1, true},
		{"bytes=10-5", 0, 0, false},
		{"bytes=-500", 0, 0, false},
		{"items=0-1", 0, 0, false},
		{"bytes=abc-", 0, 0, false},
		{"bytes=1-2x", 0, 0, false},
		{"bytes=99999999999999999999-", 0, 0, false},
		{"bytes=0-9223372036854775807", 0, relay.Unbounded, true},
		{"bytes=5-9223372036854775806", 5, math.MaxInt64 - 1, true},
		{"", 0, 0, false},
	}

	for _, tc := range cases {
		start, end, ok := relay.ParseRange(tc.header)
		assert.Equal(t, tc.ok, ok, "header %q", tc.header)

		if tc.ok {
			assert.Equal(t, tc.start, start, "start for %q", tc.header)
			assert.Equal(t, tc.end, end, "end for %q", tc.header)
		}
	}
}

func TestByteRangeLengthSaturates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(math.MaxInt64), relay.ByteRange{Start: 0, End: math.MaxInt64}.Length())
	assert.Equal(t, int64(math.MaxInt64), relay.ByteRange{Start: 1, End: math.MaxInt64}.Length())
	assert.Equal(t, int64(10), relay.ByteRange{Start: 5, End: 14}.Length())
	assert.Equal(t, int64(-1), relay.ByteRange{Start: 5, End: relay.Unbounded}.Length())
}

func TestNegotiateMaxEndUnknownSize(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("bytes=0-9223372036854775807", -1)
	require.NoError(t, err)
	assert.True(t, n.Partial)
	assert.Equal(t, relay.ByteRange{Start: 0, End: relay.Unbounded}, n.Range)
	assert.Equal(t, "bytes=0-", n.UpstreamRange())
}

func TestNegotiateNoRange(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("", 1000)
	require.NoError(t, err)
	assert.False(t, n.Partial)
	assert.Equal(t, relay.ByteRange{Start: 0, End: 999}, n.Range)
	assert.Equal(t, int64(1000), n.ContentLength())
	assert.Equal(t, "bytes 0-999/1000", n.ContentRange())
	assert.Equal(t, "bytes=0-999", n.UpstreamRange())
	assert.Equal(t, http.StatusOK, relay.StatusCode(n))
}

func TestNegotiateClosedRange(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("bytes=100-199", 1000)
	require.NoError(t, err)
	assert.True(t, n.Partial)
	assert.Equal(t, int64(100), n.ContentLength())
	assert.Equal(t, "bytes 100-199/1000", n.ContentRange())
	assert.Equal(t, http.StatusPartialContent, relay.StatusCode(n))
}

func TestNegotiateOpenEnded(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("bytes=500-", 1000)
	require.NoError(t, err)
	assert.Equal(t, relay.ByteRange{Start: 500, End: 999}, n.Range)
	assert.Equal(t, int64(500), n.ContentLength())
	assert.Equal(t, "bytes 500-999/1000", n.ContentRange())
}

func TestNegotiateClampsEnd(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("bytes=900-5000", 1000)
	require.NoError(t, err)
	assert.Equal(t, relay.ByteRange{Start: 900, End: 999}, n.Range)
	assert.Equal(t, int64(100), n.ContentLength())
}

func TestNegotiateStartPastEnd(t *testing.T) {
	t.Parallel()

	_, err := relay.Negotiate("bytes=1000-", 1000)
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, relay.StatusOf(err))
	assert.Equal(t, relay.KindRangeNotSatisfiable, relay.KindOf(err))
	assert.Equal(t, "bytes */1000", relay.AsError(err).Header.Get("Content-Range"))
}

func TestNegotiateMalformedIsFullContent(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("bytes=-200", 1000)
	require.NoError(t, err)
	assert.False(t, n.Partial)
	assert.Equal(t, relay.ByteRange{Start: 0, End: 999}, n.Range)
}

func TestNegotiateUnknownSize(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("", -1)
	require.NoError(t, err)
	assert.False(t, n.SizeKnown())
	assert.Equal(t, relay.ByteRange{Start: 0, End: relay.Unbounded}, n.Range)
	assert.Equal(t, "bytes=0-", n.UpstreamRange())
	assert.Equal(t, int64(-1), n.ContentLength())
	assert.Empty(t, n.ContentRange())

	n, err = relay.Negotiate("bytes=100-199", -1)
	require.NoError(t, err)
	assert.True(t, n.Partial)
	assert.Equal(t, "bytes 100-199/*", n.ContentRange())
	assert.Equal(t, "bytes=100-199", n.UpstreamRange())
}

func TestNegotiateEmptyResource(t *testing.T) {
	t.Parallel()

	n, err := relay.Negotiate("", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.ContentLength())
	assert.Equal(t, "bytes */0", n.ContentRange())
	assert.Empty(t, n.UpstreamRange())

	_, err = relay.Negotiate("bytes=0-", 0)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, relay.StatusOf(err))
}
