package coderunner

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, source string) (*KeyHolder, *Event) {
	t.Helper()
	pemBytes, err := GeneratePEM()
	require.NoError(t, err)
	holder, err := Load(pemBytes)
	require.NoError(t, err)

	unsigned := BuildEvent(holder.PublicKey(), KindCodeRequest, source, nostr.Tags{
		{TagLanguage, "python"},
	})
	signed, err := holder.Sign(unsigned)
	require.NoError(t, err)
	return holder, signed
}

func TestEventVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")
	require.NoError(t, signed.Verify())
}

func TestEventVerifyDetectsTamperedContent(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")
	signed.Nostr.Content = "print('tampered')"
	require.ErrorIs(t, signed.Verify(), ErrBadContentHash)
}

func TestEventVerifyRejectsFarFutureTimestamp(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")
	signed.Nostr.CreatedAt += EventGracePeriodSeconds * 10
	require.ErrorIs(t, signed.Verify(), ErrTooFarFuture)
}

func TestEventVerifyRejectsOversizedContent(t *testing.T) {
	t.Parallel()
	big := make([]byte, MaxContentSize+1)
	_, signed := signedRequest(t, string(big))
	require.ErrorIs(t, signed.Verify(), ErrContentTooLong)
}

func TestFirstTagValue(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")

	lang, ok := signed.FirstTagValue(TagLanguage)
	require.True(t, ok)
	require.Equal(t, "python", lang)

	_, ok = signed.FirstTagValue(TagAnswersTo)
	require.False(t, ok)
}

func TestExecutionResultContent(t *testing.T) {
	t.Parallel()
	require.Equal(t, "hello", OkResult("hello").Content())
	require.Equal(t, "no output", OkResult("").Content())
	require.Equal(t, "boom", ErrResult("boom").Content())
}
