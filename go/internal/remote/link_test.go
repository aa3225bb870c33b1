package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRadio struct {
	initErr error
	pollErr error
}

func (f *failingRadio) Init() error             { return f.initErr }
func (f *failingRadio) Poll() ([][]byte, error) { return nil, f.pollErr }
func (f *failingRadio) Close() error            { return nil }

func TestLinkQueuesPolledFrames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	radio := NewVirtualRadio()
	link := NewLink(radio, clock, DefaultLinkConfig())

	assert.False(t, link.MessagePending())

	radio.Inject(Encode(Message{RemoteID: 1, Command: CommandBtnPress}))
	radio.Inject(Encode(Message{RemoteID: 2, Command: CommandBtnPress}))
	link.poll()

	require.True(t, link.MessagePending())
	first, ok := link.ReceiveMessage()
	require.True(t, ok)
	assert.Len(t, first.Payload, PayloadSize)
	assert.Equal(t, clock.Now(), first.ReceivedAt)

	msg, err := Decode(first.Payload, first.ReceivedAt)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), msg.RemoteID)

	second, ok := link.ReceiveMessage()
	require.True(t, ok)
	msg, err = Decode(second.Payload, second.ReceivedAt)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), msg.RemoteID)

	_, ok = link.ReceiveMessage()
	assert.False(t, ok)
}

func TestLinkFlush(t *testing.T) {
	radio := NewVirtualRadio()
	link := NewLink(radio, clockwork.NewFakeClock(), DefaultLinkConfig())

	for i := 0; i < 3; i++ {
		radio.Inject(Encode(Message{RemoteID: uint32(i + 1), Command: CommandBtnPress}))
	}
	link.poll()

	assert.Equal(t, 3, link.FlushMessageQueue())
	assert.False(t, link.MessagePending())
}

func TestLinkPollErrorKeepsQueue(t *testing.T) {
	link := NewLink(&failingRadio{pollErr: errors.New("spi fault")}, clockwork.NewFakeClock(), DefaultLinkConfig())
	link.poll()
	assert.False(t, link.MessagePending())
}

func TestLinkStartFailsWhenRadioInitFails(t *testing.T) {
	link := NewLink(&failingRadio{initErr: errors.New("no device")}, clockwork.NewFakeClock(), DefaultLinkConfig())
	err := link.Start(context.Background())
	assert.Error(t, err)
	assert.NoError(t, link.Stop())
}

func TestLinkBackgroundPolling(t *testing.T) {
	radio := NewVirtualRadio()
	link := NewLink(radio, clockwork.NewRealClock(), LinkConfig{PollInterval: 5 * time.Millisecond})

	require.NoError(t, link.Start(context.Background()))
	assert.Error(t, link.Start(context.Background()))

	radio.Inject(Encode(Message{RemoteID: 0x11223344, Command: CommandBtnPress, Data: 2}))
	assert.Eventually(t, link.MessagePending, time.Second, 5*time.Millisecond)

	require.NoError(t, link.Stop())
	require.NoError(t, link.Stop())
}

func TestLinkRestartsAfterStop(t *testing.T) {
	radio := NewVirtualRadio()
	link := NewLink(radio, clockwork.NewRealClock(), LinkConfig{PollInterval: 5 * time.Millisecond})

	require.NoError(t, link.Start(context.Background()))
	require.NoError(t, link.Stop())
	require.NoError(t, link.Start(context.Background()))

	radio.Inject(Encode(Message{RemoteID: 0x77, Command: CommandBtnPress}))
	assert.Eventually(t, link.MessagePending, time.Second, 5*time.Millisecond)

	require.NoError(t, link.Stop())
}
