package stream

import "sync"

const DefaultClientBuffer = 2

// Broadcaster fans encoded frames out to subscribers. Sends never block: a
// subscriber whose buffer is full misses that frame.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	buffer  int
	closed  bool
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Broadcaster{
		clients: make(map[int]chan []byte),
		buffer:  buffer,
	}
}

// Subscribe registers a client. After Close it returns an already closed
// channel so callers observe the end of the feed immediately.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, b.buffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.clients[id] = ch
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
	}
}

// Broadcast returns how many subscribers skipped the frame.
func (b *Broadcaster) Broadcast(data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for _, ch := range b.clients {
		select {
		case ch <- data:
		default:
			dropped++
		}
	}
	return dropped
}

func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}
