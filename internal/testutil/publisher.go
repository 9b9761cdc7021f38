package testutil

import (
	"context"
	"sync"
)

type PublishedEvent struct {
	Name    string
	Payload any
}

// Publisher 记录所有发布的事件，Err 非空时每次发布都返回该错误
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

func (p *Publisher) Publish(_ context.Context, eventName string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Name: eventName, Payload: payload})
	return nil
}

func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.Name
	}
	return names
}
