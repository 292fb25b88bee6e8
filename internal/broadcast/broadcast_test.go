package broadcast

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New[string]()
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish("hello")

	select {
	case v := <-sub.C:
		if v != "hello" {
			t.Fatalf("got %v, want %q", v, "hello")
		}
	default:
		t.Fatal("expected a buffered value on the subscriber channel")
	}
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	b := New[string]()
	b.Publish("nobody listening")
}

func TestUnsubscribeClosesChannelAndDropsCount(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	sub.Unsubscribe()
	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("SubscriberCount after unsubscribe = %d, want 0", got)
	}

	if _, ok := <-sub.C; ok {
		t.Fatal("expected the subscriber channel to be closed")
	}
}

func TestPublishOverflowDeliversLagged(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < subscriberCapacity+5; i++ {
		b.Publish(i)
	}

	var sawLagged bool
	for i := 0; i < subscriberCapacity; i++ {
		v := <-sub.C
		if _, ok := v.(Lagged); ok {
			sawLagged = true
			break
		}
	}
	if !sawLagged {
		t.Fatal("expected a Lagged marker once the subscriber queue overflowed")
	}
}

func TestMultipleSubscribersEachReceiveTheValue(t *testing.T) {
	b := New[string]()
	a := b.Subscribe()
	c := b.Subscribe()
	defer a.Unsubscribe()
	defer c.Unsubscribe()

	b.Publish("fanout")

	for _, sub := range []*Subscription[string]{a, c} {
		select {
		case v := <-sub.C:
			if v != "fanout" {
				t.Fatalf("got %v, want %q", v, "fanout")
			}
		default:
			t.Fatal("expected every subscriber to receive the published value")
		}
	}
}
