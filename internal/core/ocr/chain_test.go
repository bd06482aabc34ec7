package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name      string
	available bool
	text      string
	err       error
	panics    bool
	calls     int
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Available() bool { return s.available }

func (s *stubEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	s.calls++
	if s.panics {
		panic("backend blew up")
	}
	return s.text, s.err
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	first := &stubEngine{name: "a", available: true, text: "hello from a"}
	second := &stubEngine{name: "b", available: true, text: "hello from b"}
	chain := NewChain(first, second)

	got := chain.Recognize(context.Background(), []byte{1})
	require.Equal(t, "hello from a", got)
	require.Zero(t, second.calls, "second engine should not run when the first succeeds")
}

func TestChainFallsThroughOnError(t *testing.T) {
	broken := &stubEngine{name: "a", available: true, err: errors.New("timeout")}
	working := &stubEngine{name: "b", available: true, text: "recovered"}
	chain := NewChain(broken, working)

	require.Equal(t, "recovered", chain.Recognize(context.Background(), []byte{1}))
}

func TestChainAbsorbsPanics(t *testing.T) {
	angry := &stubEngine{name: "a", available: true, panics: true}
	working := &stubEngine{name: "b", available: true, text: "still here"}
	chain := NewChain(angry, working)

	require.Equal(t, "still here", chain.Recognize(context.Background(), []byte{1}))
}

func TestChainSkipsUnavailableEngines(t *testing.T) {
	offline := &stubEngine{name: "a", available: false, text: "should not appear"}
	chain := NewChain(offline)

	require.False(t, chain.Configured())
	require.Empty(t, chain.Recognize(context.Background(), []byte{1}))
	require.Zero(t, offline.calls)
}

func TestChainAllFailReturnsEmpty(t *testing.T) {
	a := &stubEngine{name: "a", available: true, err: errors.New("down")}
	b := &stubEngine{name: "b", available: true, text: "   "}
	chain := NewChain(a, b)

	require.Empty(t, chain.Recognize(context.Background(), []byte{1}))
}
