package worker

import (
	"sync"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/metrics"
)

// Latest keeps only the reply to the most recently issued generation.
type Latest struct {
	mu      sync.Mutex
	current uint64
	metrics *metrics.Metrics
}

// NewLatest creates a stale-reply filter; m may be nil.
func NewLatest(m *metrics.Metrics) *Latest {
	return &Latest{metrics: m}
}

// Issue records that gen is now the newest outstanding request.
func (l *Latest) Issue(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen > l.current {
		l.current = gen
	}
}

// Accept reports whether reply answers the newest request. Older replies are
// counted as stale and should be discarded.
func (l *Latest) Accept(reply contracts.Reply) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if reply.Generation < l.current {
		l.metrics.StaleReply()
		return false
	}
	l.current = reply.Generation
	return true
}

// Current returns the newest generation seen
func (l *Latest) Current() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}
