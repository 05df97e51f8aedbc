package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New[string](0)
	ch := bus.Subscribe()
	bus.Publish("hello")
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestBusDropsOnFullBuffer(t *testing.T) {
	bus := New[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	if got := bus.Dropped(); got != 3 {
		t.Fatalf("expected 3 dropped, got %d", got)
	}
	if v := <-ch; v != 0 {
		t.Fatalf("expected oldest event first, got %d", v)
	}
}

func TestSubscribeBuffered(t *testing.T) {
	bus := New[int](1)
	slow := bus.SubscribeBuffered(16)
	fast := bus.Subscribe()
	for i := 0; i < 10; i++ {
		bus.Publish(i)
	}
	if got := len(slow); got != 10 {
		t.Fatalf("expected 10 buffered, got %d", got)
	}
	if got := len(fast); got != 1 {
		t.Fatalf("expected 1 buffered, got %d", got)
	}
	if got := bus.Dropped(); got != 9 {
		t.Fatalf("expected 9 dropped, got %d", got)
	}
}

func TestBusClose(t *testing.T) {
	bus := New[int](0)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatalf("expected subscribe after close to return a closed channel")
	}
	bus.Publish(1)
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New[float64](0)
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
