package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type Handler[E any] func(ctx context.Context, event E) error

type Event[K comparable] interface {
	EventType() K
}

type Bus[K comparable, E Event[K]] struct {
	mutex       sync.RWMutex
	subscribers map[K]map[uint64]Handler[E]
	counter     uint64
}

func NewBus[K comparable, E Event[K]]() *Bus[K, E] {
	return &Bus[K, E]{
		subscribers: make(map[K]map[uint64]Handler[E]),
	}
}

func (b *Bus[K, E]) Subscribe(eventType K, handler Handler[E]) func() {
	if handler == nil {
		return func() {}
	}
	id := atomic.AddUint64(&b.counter, 1)
	b.mutex.Lock()
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[uint64]Handler[E])
	}
	b.subscribers[eventType][id] = handler
	b.mutex.Unlock()
	return func() {
		b.mutex.Lock()
		handlers, ok := b.subscribers[eventType]
		if ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subscribers, eventType)
			}
		}
		b.mutex.Unlock()
	}
}

// HasSubscribers 是否有处理该类型事件的订阅者
func (b *Bus[K, E]) HasSubscribers(eventType K) bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subscribers[eventType]) > 0
}

// Publish 同步调用所有订阅者，错误合并后返回
func (b *Bus[K, E]) Publish(ctx context.Context, event E) error {
	b.mutex.RLock()
	handlersMap := b.subscribers[event.EventType()]
	handlers := make([]Handler[E], 0, len(handlersMap))
	for _, handler := range handlersMap {
		handlers = append(handlers, handler)
	}
	b.mutex.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
