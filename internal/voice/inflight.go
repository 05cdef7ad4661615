package voice

import "sync"

// InFlight tracks guilds with a speech request being processed.
type InFlight struct {
	mu     sync.Mutex
	guilds map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{guilds: make(map[string]struct{})}
}

// TryStart marks the guild busy. ok is false if a request is already running;
// otherwise release must be called when the request ends.
func (f *InFlight) TryStart(guildID string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.guilds[guildID]; busy {
		return nil, false
	}
	f.guilds[guildID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.guilds, guildID)
			f.mu.Unlock()
		})
	}, true
}

func (f *InFlight) Active(guildID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.guilds[guildID]
	return ok
}
