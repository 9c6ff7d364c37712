package platform

import (
	"context"
	"fmt"
	"sync"
)

// ReplayProvider serves scripted fixes. It backs tests and the demo mode of
// the daemon when no receiver is attached.
type ReplayProvider struct {
	mu         sync.Mutex
	fixes      []Fix
	next       int
	permission PermissionStatus
	watchers   map[int]func(Fix)
	nextWatch  int
}

func NewReplayProvider(fixes ...Fix) *ReplayProvider {
	return &ReplayProvider{
		fixes:      fixes,
		permission: PermissionGranted,
		watchers:   make(map[int]func(Fix)),
	}
}

// SetPermission overrides the scripted permission result.
func (p *ReplayProvider) SetPermission(status PermissionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permission = status
}

func (p *ReplayProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission, nil
}

// GetOnce returns the next scripted fix, repeating the last one when the
// script runs out.
func (p *ReplayProvider) GetOnce(ctx context.Context, _ AccuracyMode) (Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.fixes) == 0 {
		return Fix{}, fmt.Errorf("no scripted fixes")
	}
	fix := p.fixes[p.next]
	if p.next < len(p.fixes)-1 {
		p.next++
	}
	return fix, nil
}

type replaySubscription struct {
	provider *ReplayProvider
	id       int
	once     sync.Once
}

func (s *replaySubscription) Remove() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		defer s.provider.mu.Unlock()
		delete(s.provider.watchers, s.id)
	})
}

func (p *ReplayProvider) Watch(ctx context.Context, _ WatchOptions, onFix func(Fix)) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextWatch
	p.nextWatch++
	p.watchers[id] = onFix
	return &replaySubscription{provider: p, id: id}, nil
}

// Emit delivers a fix to every active watcher.
func (p *ReplayProvider) Emit(fix Fix) {
	p.mu.Lock()
	callbacks := make([]func(Fix), 0, len(p.watchers))
	for _, cb := range p.watchers {
		callbacks = append(callbacks, cb)
	}
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(fix)
	}
}

// WatcherCount reports how many subscriptions are live.
func (p *ReplayProvider) WatcherCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}
