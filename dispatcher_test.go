package coderunner

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return NewDispatcher(&ToolchainConfig{}, 5*time.Second)
}

func TestClassifyUnverifiedOnTamperedEvent(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")
	signed.Nostr.Content = "print('tampered')"

	cl := newDispatcher(t).Classify(signed)
	require.Equal(t, OutcomeUnverified, cl.Outcome)
}

func TestClassifyUnsupportedOnMissingLanguageTag(t *testing.T) {
	t.Parallel()
	pemBytes, err := GeneratePEM()
	require.NoError(t, err)
	holder, err := Load(pemBytes)
	require.NoError(t, err)

	unsigned := BuildEvent(holder.PublicKey(), KindCodeRequest, "print('hi')", nostr.Tags{})
	signed, err := holder.Sign(unsigned)
	require.NoError(t, err)

	cl := newDispatcher(t).Classify(signed)
	require.Equal(t, OutcomeUnsupported, cl.Outcome)
}

func TestClassifyUnsupportedOnUnknownLanguage(t *testing.T) {
	t.Parallel()
	pemBytes, err := GeneratePEM()
	require.NoError(t, err)
	holder, err := Load(pemBytes)
	require.NoError(t, err)

	unsigned := BuildEvent(holder.PublicKey(), KindCodeRequest, "echo hi", nostr.Tags{{TagLanguage, "cobol"}})
	signed, err := holder.Sign(unsigned)
	require.NoError(t, err)

	cl := newDispatcher(t).Classify(signed)
	require.Equal(t, OutcomeUnsupported, cl.Outcome)
}

func TestClassifyBuildsHandlerForRecognizedLanguage(t *testing.T) {
	t.Parallel()
	_, signed := signedRequest(t, "print('hi')")

	cl := newDispatcher(t).Classify(signed)
	require.Equal(t, OutcomeHandler, cl.Outcome)
	require.NotNil(t, cl.Handler)
	require.Equal(t, HandlerKindInterpreter, cl.Handler.Kind)
}

func TestIdentifyAndExecuteProducesDiagnosticForUnverified(t *testing.T) {
	t.Parallel()
	holder, signed := signedRequest(t, "print('hi')")
	signed.Nostr.Content = "print('tampered')"

	workspaces := NewWorkspaceManager(t.TempDir())
	var out *Event
	publish := func(ev *Event) error { out = ev; return nil }
	err := newDispatcher(t).IdentifyAndExecute(t.Context(), signed, holder, workspaces, publish)
	require.NoError(t, err)
	require.Equal(t, DiagnosticUnverified, out.Nostr.Content)
	require.NoError(t, out.Verify())
}

func TestIdentifyAndExecuteProducesDiagnosticForUnsupported(t *testing.T) {
	t.Parallel()
	pemBytes, err := GeneratePEM()
	require.NoError(t, err)
	holder, err := Load(pemBytes)
	require.NoError(t, err)

	unsigned := BuildEvent(holder.PublicKey(), KindCodeRequest, "echo hi", nostr.Tags{{TagLanguage, "cobol"}})
	signed, err := holder.Sign(unsigned)
	require.NoError(t, err)

	workspaces := NewWorkspaceManager(t.TempDir())
	var out *Event
	publish := func(ev *Event) error { out = ev; return nil }
	err = newDispatcher(t).IdentifyAndExecute(t.Context(), signed, holder, workspaces, publish)
	require.NoError(t, err)
	require.Equal(t, DiagnosticUnsupported, out.Nostr.Content)
}
