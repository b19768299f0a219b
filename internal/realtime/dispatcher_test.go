package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatlink/internal/protocol"
)

// fakeReadMarker records MarkRead invocations.
type fakeReadMarker struct {
	ids    []uint
	reader uint
	err    error
}

func (f *fakeReadMarker) MarkRead(ctx context.Context, messageIDs []uint, readerID uint) (int64, error) {
	f.ids = append(f.ids, messageIDs...)
	f.reader = readerID
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(messageIDs)), nil
}

func wireMessage(id, sender, recipient string) *protocol.Message {
	return &protocol.Message{
		ID:          id,
		SenderID:    sender,
		RecipientID: recipient,
		Type:        protocol.TextMessage,
		Body:        "hello",
		SentAt:      time.Now().UTC(),
	}
}

func TestDispatcher_OnSend_DeliversToConnectedRecipient(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	d := NewDispatcher(registry, &fakeReadMarker{})

	ch := &fakeChannel{}
	registry.Join(2, ch)

	d.OnSend(wireMessage("10", "1", "2"))

	req.Len(ch.sent, 1)
	req.Equal(protocol.EventReceiveMessage, ch.sent[0].Event)

	var got protocol.Message
	req.NoError(json.Unmarshal(ch.sent[0].Data, &got))
	req.Equal("10", got.ID)
	req.Equal("hello", got.Body)
}

func TestDispatcher_OnSend_AbsentRecipientIsSilentMiss(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &fakeReadMarker{})

	// Nobody connected; nothing to assert beyond "does not panic or block".
	d.OnSend(wireMessage("10", "1", "2"))
	d.OnSend(wireMessage("11", "1", "not-a-number"))
}

func TestDispatcher_OnSend_PreservesPerDirectionOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	d := NewDispatcher(registry, &fakeReadMarker{})

	ch := &fakeChannel{}
	registry.Join(2, ch)

	d.OnSend(wireMessage("1", "1", "2"))
	d.OnSend(wireMessage("2", "1", "2"))
	d.OnSend(wireMessage("3", "1", "2"))

	req.Len(ch.sent, 3)
	for i, want := range []string{"1", "2", "3"} {
		var got protocol.Message
		req.NoError(json.Unmarshal(ch.sent[i].Data, &got))
		req.Equal(want, got.ID)
	}
}

func TestDispatcher_OnTyping_ForwardsSenderOnly(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	d := NewDispatcher(registry, &fakeReadMarker{})

	ch := &fakeChannel{}
	registry.Join(2, ch)

	d.OnTyping(1, 2, true)
	d.OnTyping(1, 2, false)

	req.Len(ch.sent, 2)
	req.Equal(protocol.EventTyping, ch.sent[0].Event)
	req.Equal(protocol.EventStopTyping, ch.sent[1].Event)

	var notice protocol.TypingNotice
	req.NoError(json.Unmarshal(ch.sent[0].Data, &notice))
	req.Equal("1", notice.SenderID)
}

func TestDispatcher_OnTyping_AbsentReceiverDropped(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &fakeReadMarker{})

	d.OnTyping(1, 2, true)
}

func TestDispatcher_OnReadReceipt_MarksAndNotifiesSender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	store := &fakeReadMarker{}
	d := NewDispatcher(registry, store)

	senderCh := &fakeChannel{}
	registry.Join(1, senderCh)

	req.NoError(d.OnReadReceipt(context.Background(), 42, 2, 1))

	req.Equal([]uint{42}, store.ids)
	req.EqualValues(2, store.reader)

	req.Len(senderCh.sent, 1)
	req.Equal(protocol.EventMessageRead, senderCh.sent[0].Event)

	var receipt protocol.MessageReadPayload
	req.NoError(json.Unmarshal(senderCh.sent[0].Data, &receipt))
	req.Equal("42", receipt.MessageID)
	req.Equal("2", receipt.ReaderID)
}

func TestDispatcher_OnReadReceipt_StoreFailurePropagates(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	store := &fakeReadMarker{err: errors.New("db down")}
	d := NewDispatcher(registry, store)

	err := d.OnReadReceipt(context.Background(), 42, 2, 1)
	req.Error(err)
}

func TestDispatcher_OnReadReceipt_OfflineSenderStillMarks(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	store := &fakeReadMarker{}
	d := NewDispatcher(registry, store)

	// The store transition is authoritative; the missing push is fine.
	req.NoError(d.OnReadReceipt(context.Background(), 42, 2, 1))
	req.Equal([]uint{42}, store.ids)
}
