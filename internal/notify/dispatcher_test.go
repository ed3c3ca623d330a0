package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	fake := &fakeNotifier{}
	d := NewDispatcher(fake, nil, 10)

	d.Dispatch(Message{UserID: 1, Text: "a"})
	d.Dispatch(Message{UserID: 2, Text: "b"})
	d.Close()

	got := fake.messages()
	if len(got) != 2 {
		t.Fatalf("len(sent) = %d, want 2", len(got))
	}
	if got[0].UserID != 1 || got[1].UserID != 2 {
		t.Fatalf("sent out of order: %+v", got)
	}
}

func TestDispatcher_SwallowsDeliveryFailure(t *testing.T) {
	fake := &fakeNotifier{err: errors.New("chat unreachable")}
	d := NewDispatcher(fake, nil, 10)

	// Must not panic or block; the failure is logged and dropped.
	d.Dispatch(Message{UserID: 1, Text: "a"})
	d.Close()

	if got := fake.messages(); len(got) != 0 {
		t.Fatalf("len(sent) = %d, want 0", len(got))
	}
}
