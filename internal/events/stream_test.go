package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStream(t *testing.T) {
	s := NewStream[string](false)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.SubscriberCount())
	assert.False(t, s.replayLast)

	s2 := NewStream[int](true)
	require.NotNil(t, s2)
	assert.True(t, s2.replayLast)
}

func TestStream_Subscribe_Publish_Basic(t *testing.T) {
	s := NewStream[string](false)

	ch := make(chan string, 10)
	cancel := s.Subscribe(ch)

	assert.Equal(t, 1, s.SubscriberCount())

	s.Publish("one")
	s.Publish("two")

	time.Sleep(10 * time.Millisecond)

	received := make([]string, 0)
	for len(received) < 2 {
		select {
		case val := <-ch:
			received = append(received, val)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Timeout waiting for values")
		}
	}

	assert.Equal(t, 2, len(received))
	assert.Contains(t, received, "one")
	assert.Contains(t, received, "two")

	cancel()
	assert.Equal(t, 0, s.SubscriberCount())

	s.Publish("three")
	time.Sleep(10 * time.Millisecond)

	// Should not receive after cancel
	select {
	case val := <-ch:
		t.Errorf("Unexpected value received after cancel: %s", val)
	default:
		// Expected - no value should be received
	}
}

func TestStream_MultipleSubscribers(t *testing.T) {
	s := NewStream[int](false)

	ch1 := make(chan int, 10)
	ch2 := make(chan int, 10)
	cancel1 := s.Subscribe(ch1)
	cancel2 := s.Subscribe(ch2)

	assert.Equal(t, 2, s.SubscriberCount())

	s.Publish(42)

	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch1:
		assert.Equal(t, 42, val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for value on ch1")
	}
	select {
	case val := <-ch2:
		assert.Equal(t, 42, val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for value on ch2")
	}

	cancel1()
	cancel2()
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestStream_ReplayLast(t *testing.T) {
	s := NewStream[string](true)

	// No publish yet - a new subscriber gets nothing
	ch1 := make(chan string, 10)
	cancel1 := s.Subscribe(ch1)
	time.Sleep(10 * time.Millisecond)
	select {
	case val := <-ch1:
		t.Errorf("Unexpected value received: %s", val)
	default:
		// Expected
	}

	s.Publish("first")
	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch1:
		assert.Equal(t, "first", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for first value")
	}

	// A late subscriber receives the last value immediately
	ch2 := make(chan string, 10)
	cancel2 := s.Subscribe(ch2)
	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch2:
		assert.Equal(t, "first", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for replayed value")
	}

	cancel1()
	cancel2()
}

func TestStream_NoReplayByDefault(t *testing.T) {
	s := NewStream[string](false)

	s.Publish("first")

	ch := make(chan string, 10)
	cancel := s.Subscribe(ch)
	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch:
		t.Errorf("Unexpected replayed value: %s", val)
	default:
		// Expected - replay disabled
	}

	s.Publish("second")
	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch:
		assert.Equal(t, "second", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for second value")
	}

	cancel()
}

func TestStream_Subscribe_NilChannel(t *testing.T) {
	s := NewStream[string](false)

	assert.Panics(t, func() {
		s.Subscribe(nil)
	})
}

func TestStream_FullChannel(t *testing.T) {
	s := NewStream[string](false)

	ch := make(chan string, 1)
	cancel := s.Subscribe(ch)

	// Fill the channel
	ch <- "blocking"

	// Publishes are dropped while the channel is full
	s.Publish("one")
	s.Publish("two")
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, len(ch))

	<-ch

	s.Publish("three")
	time.Sleep(10 * time.Millisecond)

	select {
	case val := <-ch:
		assert.Equal(t, "three", val)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for three")
	}

	cancel()
}

func TestStream_ConcurrentPublish(t *testing.T) {
	s := NewStream[int](false)

	var wg sync.WaitGroup
	channels := make([]chan int, 10)
	cancels := make([]func(), 10)

	for i := 0; i < 10; i++ {
		ch := make(chan int, 100)
		channels[i] = ch
		cancels[i] = s.Subscribe(ch)
	}

	assert.Equal(t, 10, s.SubscriberCount())

	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func(value int) {
			defer wg.Done()
			s.Publish(value)
		}(i)
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)

	for i, ch := range channels {
		received := make([]int, 0)
		for len(received) < 5 {
			select {
			case val := <-ch:
				received = append(received, val)
			case <-time.After(200 * time.Millisecond):
				t.Fatalf("Channel %d did not receive all values. Got %d", i, len(received))
			}
		}
		assert.Equal(t, 5, len(received))
	}

	for _, cancel := range cancels {
		cancel()
	}
}
