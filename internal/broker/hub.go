// Package broker passes live updates from the request that changed something to the requests streaming it.
package broker

import "sync"

type subscription[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

type publication[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

// Hub fans out payloads published under an ID to every subscriber of that ID.
//
// The subscriber lists are owned by the goroutine running [Hub.Start]. Publishing never blocks on a slow subscriber:
// a payload that doesn't fit into the subscriber's buffer is dropped for that subscriber. Payloads should therefore
// be notifications such as "game changed" that the subscriber can act on by reloading the current state.
type Hub[TID comparable, TPayload any] struct {
	bufferSize         int
	stopChannel        chan struct{}
	stopOnce           sync.Once
	subscribeChannel   chan subscription[TID, TPayload]
	unsubscribeChannel chan subscription[TID, TPayload]
	publishChannel     chan publication[TID, TPayload]
	countChannel       chan chan int
}

// NewHub creates a new Hub whose subscriptions buffer up to bufferSize payloads. Run [Hub.Start] in a goroutine
// and use [Hub.Stop] to stop it.
func NewHub[TID comparable, TPayload any](bufferSize int) *Hub[TID, TPayload] {
	return &Hub[TID, TPayload]{
		bufferSize:         bufferSize,
		stopChannel:        make(chan struct{}),
		stopOnce:           sync.Once{},
		subscribeChannel:   make(chan subscription[TID, TPayload]),
		unsubscribeChannel: make(chan subscription[TID, TPayload]),
		publishChannel:     make(chan publication[TID, TPayload]),
		countChannel:       make(chan chan int),
	}
}

// Start handles subscriptions and publications. It blocks until Stop is called and then closes the channels of all
// remaining subscribers.
func (h *Hub[TID, TPayload]) Start() {
	subscribers := map[TID]map[chan TPayload]struct{}{}
	for {
		select {
		case <-h.stopChannel:
			for _, channels := range subscribers {
				for c := range channels {
					close(c)
				}
			}
			return

		case s := <-h.subscribeChannel:
			if subscribers[s.ID] == nil {
				subscribers[s.ID] = map[chan TPayload]struct{}{}
			}
			subscribers[s.ID][s.Channel] = struct{}{}

		case s := <-h.unsubscribeChannel:
			if _, ok := subscribers[s.ID][s.Channel]; ok {
				delete(subscribers[s.ID], s.Channel)
				close(s.Channel)
			}
			if len(subscribers[s.ID]) == 0 {
				delete(subscribers, s.ID)
			}

		case p := <-h.publishChannel:
			for c := range subscribers[p.ID] {
				select {
				case c <- p.Payload:
				default:
					// Subscriber is lagging behind.
				}
			}

		case reply := <-h.countChannel:
			n := 0
			for _, channels := range subscribers {
				n += len(channels)
			}
			reply <- n
		}
	}
}

// Stop the goroutine running Start. It's safe to call Stop more than once.
func (h *Hub[TID, TPayload]) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChannel)
	})
}

// Subscribe to the payloads published under id. The returned channel is closed by calling cancel or when the hub
// stops. cancel must be called once the subscriber is done and may be called more than once.
func (h *Hub[TID, TPayload]) Subscribe(id TID) (<-chan TPayload, func()) {
	s := subscription[TID, TPayload]{ID: id, Channel: make(chan TPayload, h.bufferSize)}
	select {
	case h.subscribeChannel <- s:
	case <-h.stopChannel:
		close(s.Channel)
		return s.Channel, func() {}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case h.unsubscribeChannel <- s:
			case <-h.stopChannel:
			}
		})
	}
	return s.Channel, cancel
}

// Publish payload to the current subscribers of id. Publishing to a stopped hub does nothing.
func (h *Hub[TID, TPayload]) Publish(id TID, payload TPayload) {
	select {
	case h.publishChannel <- publication[TID, TPayload]{ID: id, Payload: payload}:
	case <-h.stopChannel:
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub[TID, TPayload]) Subscribers() int {
	reply := make(chan int, 1)
	select {
	case h.countChannel <- reply:
		return <-reply
	case <-h.stopChannel:
		return 0
	}
}
