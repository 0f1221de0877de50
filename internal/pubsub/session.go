package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kstaniek/radar-bridge/internal/metrics"
)

// Transport sends one already-CDR-encoded payload to topic. No pub/sub
// middleware client exists anywhere in the retrieval pack, so Transport is
// the seam a real binding (UDP multicast, a message broker, whatever the
// deployment provides) plugs into; Session itself only ever moves bytes.
type Transport interface {
	Send(ctx context.Context, topic string, payload []byte) error
}

// topicQueueCapacity bounds each topic's pending-publish queue. A slow or
// wedged topic must never block the producer loop that feeds it.
const topicQueueCapacity = 8

type topicPublisher struct {
	topic string
	queue chan []byte
}

// Session fans out payloads to topics over one Transport, one goroutine per
// topic, dropping the oldest queued payload on congestion rather than
// blocking the caller -- "publish with drop-congestion-control" per spec.
// A publish failure is logged and the session keeps running; the next
// frame's publish is the retry.
type Session struct {
	transport Transport
	logger    *slog.Logger

	mu   sync.Mutex
	pubs map[string]*topicPublisher
}

// NewSession opens a publish session over transport.
func NewSession(transport Transport, logger *slog.Logger) *Session {
	return &Session{transport: transport, logger: logger, pubs: make(map[string]*topicPublisher)}
}

func (s *Session) publisher(topic string) *topicPublisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pubs[topic]
	if ok {
		return p
	}
	p = &topicPublisher{topic: topic, queue: make(chan []byte, topicQueueCapacity)}
	s.pubs[topic] = p
	go s.run(p)
	return p
}

func (s *Session) run(p *topicPublisher) {
	for payload := range p.queue {
		if err := s.transport.Send(context.Background(), p.topic, payload); err != nil {
			s.logger.Warn("pubsub: publish failed, continuing", "topic", p.topic, "err", err)
			metrics.IncPublishFailure(p.topic)
			continue
		}
		metrics.IncPublishOK(p.topic)
	}
}

// Publish enqueues payload for topic. If the topic's queue is currently
// full, the oldest queued payload is dropped to make room.
func (s *Session) Publish(topic string, payload []byte) {
	p := s.publisher(topic)
	select {
	case p.queue <- payload:
		return
	default:
	}
	select {
	case <-p.queue:
		metrics.IncPublishDropped(p.topic)
	default:
	}
	select {
	case p.queue <- payload:
	default:
		metrics.IncPublishDropped(p.topic)
	}
}
