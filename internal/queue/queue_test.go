package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEnqueueEmptySymbol(t *testing.T) {
	m := NewSymbolQueueManager(func(EnqueuedSignal) {}, 10, zerolog.Nop())
	defer m.StopAll()

	if _, err := m.Enqueue(EnqueuedSignal{Symbol: "  "}); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestFIFOPerSymbol(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})

	m := NewSymbolQueueManager(func(sig EnqueuedSignal) {
		mu.Lock()
		seen = append(seen, sig.Payload["n"].(int))
		n := len(seen)
		mu.Unlock()
		if n == 5 {
			close(done)
		}
	}, 10, zerolog.Nop())
	defer m.StopAll()

	for i := 1; i <= 5; i++ {
		ok, err := m.Enqueue(EnqueuedSignal{Symbol: "btcusdt", Payload: map[string]any{"n": i}})
		if err != nil || !ok {
			t.Fatalf("enqueue %d: ok=%v err=%v", i, ok, err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signals")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range seen {
		if n != i+1 {
			t.Fatalf("order broken: %v", seen)
		}
	}
}

func TestSymbolsRunInParallel(t *testing.T) {
	// BTC's worker blocks; ETH must still be processed.
	btcBlocked := make(chan struct{})
	release := make(chan struct{})
	ethDone := make(chan struct{})

	m := NewSymbolQueueManager(func(sig EnqueuedSignal) {
		switch sig.Symbol {
		case "BTCUSDT":
			close(btcBlocked)
			<-release
		case "ETHUSDT":
			close(ethDone)
		}
	}, 10, zerolog.Nop())
	defer m.StopAll()
	defer close(release)

	m.Enqueue(EnqueuedSignal{Symbol: "BTCUSDT", Payload: map[string]any{}})
	<-btcBlocked
	m.Enqueue(EnqueuedSignal{Symbol: "ETHUSDT", Payload: map[string]any{}})

	select {
	case <-ethDone:
	case <-time.After(5 * time.Second):
		t.Fatal("ETH signal starved by blocked BTC worker")
	}
}

func TestQueueFullRejects(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	m := NewSymbolQueueManager(func(EnqueuedSignal) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	}, 2, zerolog.Nop())
	defer m.StopAll()
	defer close(block)

	// First signal occupies the worker, two more fill the lane.
	m.Enqueue(EnqueuedSignal{Symbol: "XRPUSDT", Payload: map[string]any{}})
	<-started
	for i := 0; i < 2; i++ {
		if ok, _ := m.Enqueue(EnqueuedSignal{Symbol: "XRPUSDT", Payload: map[string]any{}}); !ok {
			t.Fatalf("enqueue %d should fit", i)
		}
	}

	if ok, err := m.Enqueue(EnqueuedSignal{Symbol: "XRPUSDT", Payload: map[string]any{}}); ok || err != nil {
		t.Errorf("full lane must reject: ok=%v err=%v", ok, err)
	}
	if got := m.QSize("xrpusdt"); got != 2 {
		t.Errorf("QSize = %d, want 2", got)
	}
}

func TestProcessorPanicDoesNotKillWorker(t *testing.T) {
	done := make(chan struct{})
	m := NewSymbolQueueManager(func(sig EnqueuedSignal) {
		if sig.Payload["boom"] == true {
			panic("boom")
		}
		close(done)
	}, 10, zerolog.Nop())
	defer m.StopAll()

	m.Enqueue(EnqueuedSignal{Symbol: "SOLUSDT", Payload: map[string]any{"boom": true}})
	m.Enqueue(EnqueuedSignal{Symbol: "SOLUSDT", Payload: map[string]any{}})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestStopAllReturns(t *testing.T) {
	m := NewSymbolQueueManager(func(EnqueuedSignal) {}, 10, zerolog.Nop())
	m.Enqueue(EnqueuedSignal{Symbol: "BTCUSDT", Payload: map[string]any{}})
	m.Enqueue(EnqueuedSignal{Symbol: "ETHUSDT", Payload: map[string]any{}})

	finished := make(chan struct{})
	go func() {
		m.StopAll()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("StopAll did not return")
	}
	// Idempotent.
	m.StopAll()
	m.StopSymbol("BTCUSDT")
}
