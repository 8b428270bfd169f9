package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/memocracy/gatekeeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribe(t *testing.T, topic string) (*WatermillPublisher, <-chan *message.Message) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	messages, err := pubSub.Subscribe(ctx, topic)
	require.NoError(t, err)

	return NewWatermillPublisher(pubSub), messages
}

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublishLogout(t *testing.T) {
	pub, messages := subscribe(t, TopicLogout)

	require.NoError(t, pub.PublishLogout(context.Background(), "wallet1", "sess-1"))

	msg := receive(t, messages)
	assert.Equal(t, "sess-1", msg.UUID)

	var event LogoutEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, LogoutEvent{Address: "wallet1", TokenID: "sess-1"}, event)
}

func TestPublishWalletAuthenticated(t *testing.T) {
	pub, messages := subscribe(t, TopicWalletAuthenticated)
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, pub.PublishWalletAuthenticated(context.Background(), &core.Session{
		ID:        "sess-2",
		Address:   "wallet2",
		ExpiresAt: expires,
	}))

	var event WalletAuthenticatedEvent
	require.NoError(t, json.Unmarshal(receive(t, messages).Payload, &event))
	assert.Equal(t, "wallet2", event.Address)
	assert.Equal(t, "sess-2", event.SessionID)
	assert.True(t, event.ExpiresAt.Equal(expires))
}

func TestPublishScoreUpdated(t *testing.T) {
	pub, messages := subscribe(t, TopicScoreUpdated)

	update := core.ScoreUpdate{
		Kind:         core.ScoreKindCoin,
		EntityID:     "mint1",
		OverallScore: 81,
		Tier:         core.TierDiamond,
	}
	require.NoError(t, pub.PublishScoreUpdated(context.Background(), update))

	var got core.ScoreUpdate
	require.NoError(t, json.Unmarshal(receive(t, messages).Payload, &got))
	assert.Equal(t, update.EntityID, got.EntityID)
	assert.Equal(t, update.Kind, got.Kind)
	assert.Equal(t, update.Tier, got.Tier)
}
