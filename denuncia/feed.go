// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"sync"

	"github.com/jcodagnone/denuncia/metrics"
)

// feed fans snapshots out to subscribers. Each subscriber has its own
// goroutine and a one slot mailbox: a slow subscriber skips intermediate
// snapshots and only sees the latest one.
type feed struct {
	metrics *metrics.Metrics

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

type subscriber struct {
	fn      SnapshotFunc
	mailbox chan []*Denunciation
	done    chan struct{}
	once    sync.Once
}

func newFeed(m *metrics.Metrics) *feed {
	return &feed{metrics: m, subs: make(map[int]*subscriber)}
}

func (f *feed) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.subs) > 0
}

// subscribe registers fn and queues initial as its first snapshot.
func (f *feed) subscribe(ctx context.Context, fn SnapshotFunc, initial []*Denunciation) func() {
	s := &subscriber{
		fn:      fn,
		mailbox: make(chan []*Denunciation, 1),
		done:    make(chan struct{}),
	}
	s.mailbox <- initial

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = s
	f.mu.Unlock()

	f.metrics.SubscriberAdded()

	cancel := func() {
		s.once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()

			close(s.done)
			f.metrics.SubscriberRemoved()
		})
	}

	go s.run(ctx, cancel)

	return cancel
}

func (s *subscriber) run(ctx context.Context, cancel func()) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case snapshot := <-s.mailbox:
			s.fn(cloneAll(snapshot))
		}
	}
}

// publish hands snapshot to every subscriber, replacing any snapshot still
// waiting in its mailbox.
func (f *feed) publish(snapshot []*Denunciation) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.subs {
		select {
		case <-s.mailbox:
		default:
		}

		select {
		case s.mailbox <- snapshot:
		default:
		}
	}
}

func cloneAll(in []*Denunciation) []*Denunciation {
	out := make([]*Denunciation, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}

	return out
}
