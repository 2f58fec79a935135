package queue

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// In-memory FIFO, one lane per symbol. A signal is never processed while an
// earlier signal for the SAME symbol is still running; different symbols run
// in parallel.

const defaultMaxPerSymbol = 500

// EnqueuedSignal is one webhook payload waiting for its symbol's worker.
type EnqueuedSignal struct {
	Symbol     string
	Payload    map[string]any
	ReceivedTs time.Time
}

// Processor handles one signal, blocking until done. It runs on the
// symbol's worker goroutine.
type Processor func(sig EnqueuedSignal)

type lane struct {
	ch   chan EnqueuedSignal
	stop chan struct{}
	once sync.Once
}

// SymbolQueueManager owns the per-symbol lanes and their workers. Workers
// are spawned lazily on the first enqueue for a symbol and survive
// processor panics and errors; a processing failure never stalls the lane.
type SymbolQueueManager struct {
	processor Processor
	maxPerSym int
	logger    zerolog.Logger

	mu    sync.Mutex
	lanes map[string]*lane
	wg    sync.WaitGroup
}

// NewSymbolQueueManager builds a manager around processor. maxPerSymbol <= 0
// selects the default hard cap of 500 queued signals per symbol.
func NewSymbolQueueManager(processor Processor, maxPerSymbol int, logger zerolog.Logger) *SymbolQueueManager {
	if maxPerSymbol <= 0 {
		maxPerSymbol = defaultMaxPerSymbol
	}
	return &SymbolQueueManager{
		processor: processor,
		maxPerSym: maxPerSymbol,
		logger:    logger.With().Str("component", "SymbolQueue").Logger(),
		lanes:     make(map[string]*lane),
	}
}

// Enqueue appends a signal to its symbol's lane. Returns false when the
// lane is at capacity; the signal is dropped and no worker is disturbed.
func (m *SymbolQueueManager) Enqueue(sig EnqueuedSignal) (bool, error) {
	symbol := strings.ToUpper(strings.TrimSpace(sig.Symbol))
	if symbol == "" {
		return false, fmt.Errorf("enqueue: empty symbol")
	}
	sig.Symbol = symbol

	m.mu.Lock()
	ln, ok := m.lanes[symbol]
	if !ok {
		ln = &lane{
			ch:   make(chan EnqueuedSignal, m.maxPerSym),
			stop: make(chan struct{}),
		}
		m.lanes[symbol] = ln
		m.wg.Add(1)
		go m.workerLoop(symbol, ln)
	}
	m.mu.Unlock()

	select {
	case ln.ch <- sig:
		return true, nil
	default:
		return false, nil
	}
}

// QSize reports how many signals wait in a symbol's lane.
func (m *SymbolQueueManager) QSize(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ln, ok := m.lanes[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return len(ln.ch)
	}
	return 0
}

// StopSymbol tells one symbol's worker to exit once it finishes the signal
// in flight. The lane itself is kept.
func (m *SymbolQueueManager) StopSymbol(symbol string) {
	m.mu.Lock()
	ln, ok := m.lanes[strings.ToUpper(strings.TrimSpace(symbol))]
	m.mu.Unlock()
	if ok {
		ln.once.Do(func() { close(ln.stop) })
	}
}

// StopAll signals every worker to exit and waits for them to drain.
func (m *SymbolQueueManager) StopAll() {
	m.mu.Lock()
	for _, ln := range m.lanes {
		ln.once.Do(func() { close(ln.stop) })
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *SymbolQueueManager) workerLoop(symbol string, ln *lane) {
	defer m.wg.Done()
	log := m.logger.With().Str("symbol", symbol).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-ln.stop:
			log.Debug().Msg("worker stopped")
			return
		case sig := <-ln.ch:
			m.process(log, sig)
		}
	}
}

// process isolates one signal so a panicking processor does not kill the
// worker; the lane moves on to the next signal.
func (m *SymbolQueueManager) process(log zerolog.Logger, sig EnqueuedSignal) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("processor panicked, continuing with next signal")
		}
	}()
	m.processor(sig)
}
