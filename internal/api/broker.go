package api

import "sync"

// broker fans index update notifications out to every connected stream
// client. The store's update channel has a single consumer; each websocket
// connection registers its own channel here.
type broker struct {
	mu      sync.RWMutex
	clients map[chan struct{}]struct{}
}

func newBroker() *broker {
	return &broker{clients: make(map[chan struct{}]struct{})}
}

// run consumes source until it closes, waking every registered client.
func (b *broker) run(source <-chan struct{}) {
	for range source {
		b.mu.RLock()
		for c := range b.clients {
			select {
			case c <- struct{}{}:
			default:
			}
		}
		b.mu.RUnlock()
	}
}

func (b *broker) register() chan struct{} {
	c := make(chan struct{}, 1)
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

func (b *broker) unregister(c chan struct{}) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
}
