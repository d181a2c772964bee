package device

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_Connect(t *testing.T) {
	d := New(KindPrinter, nil)
	assert.Equal(t, StateDisconnected, d.State())
	assert.False(t, d.IsReady())

	require.NoError(t, d.Connect(context.Background()))
	assert.Equal(t, StateConnected, d.State())
	assert.True(t, d.IsReady())

	require.NoError(t, d.Connect(context.Background()), "already connected")

	d.Disconnect()
	assert.False(t, d.IsReady())
	d.Disconnect()
	assert.Equal(t, StateDisconnected, d.State())
}

func TestDevice_DialFailure(t *testing.T) {
	d := New(KindScanner, func(context.Context) error {
		return errors.New("no camera")
	})

	err := d.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect scanner")
	assert.Equal(t, StateDisconnected, d.State())
}

func TestDevice_ConnectingStates(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	d := New(KindScanner, func(context.Context) error {
		close(dialing)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- d.Connect(context.Background()) }()
	<-dialing

	assert.Equal(t, StateConnecting, d.State())
	assert.False(t, d.IsReady())
	require.ErrorIs(t, d.Connect(context.Background()), ErrInvalidTransition)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, d.IsReady())
}

func TestDevice_DisconnectWhileConnecting(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	d := New(KindPrinter, func(context.Context) error {
		close(dialing)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- d.Connect(context.Background()) }()
	<-dialing

	d.Disconnect()
	close(release)

	require.ErrorIs(t, <-done, ErrInvalidTransition)
	assert.Equal(t, StateDisconnected, d.State())
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindScanner.Valid())
	assert.True(t, KindPrinter.Valid())
	assert.False(t, Kind("drawer").Valid())
}
