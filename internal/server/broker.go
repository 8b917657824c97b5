package server

import (
	"encoding/json"
	"sync"

	"github.com/origo/signalcheck/internal/leads"
)

const (
	EventLeadCreated = "lead_created"
	EventLeadDeleted = "lead_deleted"
)

// LeadEvent is the payload pushed to admin feed subscribers.
type LeadEvent struct {
	Type       string `json:"type"`
	LeadID     string `json:"leadId"`
	Email      string `json:"email,omitempty"`
	Score      int    `json:"score,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
	Tier       string `json:"tier,omitempty"`
}

// Broker is an in-process pub/sub for lead events.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded lead events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *Broker) subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish sends an event to every subscriber.
func (b *Broker) Publish(event LeadEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// LeadCreated is a leads.Submitter OnCreate hook publishing new leads.
func (b *Broker) LeadCreated(store *leads.Store) func(leads.Record) {
	return func(r leads.Record) {
		res := store.Result(r)
		b.Publish(LeadEvent{
			Type:       EventLeadCreated,
			LeadID:     r.ID,
			Email:      r.ContactEmail,
			Score:      r.ScoreTotal,
			Percentage: res.Percentage,
			Tier:       res.Tier.String(),
		})
	}
}
