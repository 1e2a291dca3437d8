// Package app provides application lifecycle management and shared state.
package app

import (
	"context"
	"fmt"
	"sync"

	"maskstudio/internal/api"
	"maskstudio/internal/session"
	"maskstudio/ui/prefs"
)

// State ties the mask session to the backend client and preferences. UI
// packages share one State; catalog data (templates, base images) is loaded
// on demand and cached here.
type State struct {
	mu sync.RWMutex

	sess   *session.Session
	client *api.Client

	Prefs *prefs.Prefs

	templates  []string
	baseImages []api.BaseImage

	listeners map[EventType][]EventListener
}

// EventType identifies application-level events outside the mask session.
type EventType int

const (
	EventTemplatesLoaded EventType = iota
	EventBaseImagesLoaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates the shared application state.
func NewState(p *prefs.Prefs) *State {
	maxW, maxH := p.MaxDisplay()
	return &State{
		sess:      session.New(maxW, maxH),
		client:    api.NewClient(p.BackendURL()),
		Prefs:     p,
		listeners: make(map[EventType][]EventListener),
	}
}

// Session returns the active mask session. Panels must not hold the
// returned pointer across a project load; resubscribe via ReplaceSession's
// callers instead.
func (s *State) Session() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

// ReplaceSession swaps in a different session, as happens when a saved
// project is restored.
func (s *State) ReplaceSession(sess *session.Session) {
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
}

// Backend returns the current API client.
func (s *State) Backend() *api.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// SetBackendURL points the client at a different backend and persists the
// choice. Cached catalogs are cleared since they came from the old host.
func (s *State) SetBackendURL(url string) error {
	s.mu.Lock()
	s.client = api.NewClient(url)
	s.templates = nil
	s.baseImages = nil
	s.mu.Unlock()

	s.Prefs.SetString(prefs.KeyBackendURL, url)
	if err := s.Prefs.Save(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// RefreshTemplates fetches the template catalog once and caches it. Callers
// decide when a refresh is warranted; nothing refetches automatically.
func (s *State) RefreshTemplates(ctx context.Context) error {
	templates, err := s.Backend().ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("refresh templates: %w", err)
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()

	s.Emit(EventTemplatesLoaded, templates)
	return nil
}

// Templates returns the cached template catalog.
func (s *State) Templates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.templates))
	copy(out, s.templates)
	return out
}

// LoadBaseImages fetches the base image catalog for a template and caches it.
func (s *State) LoadBaseImages(ctx context.Context, template string) error {
	images, err := s.Backend().ListBaseImages(ctx, template)
	if err != nil {
		return fmt.Errorf("load base images for %s: %w", template, err)
	}

	s.mu.Lock()
	s.baseImages = images
	s.mu.Unlock()

	s.Emit(EventBaseImagesLoaded, images)
	return nil
}

// BaseImages returns the cached base image catalog.
func (s *State) BaseImages() []api.BaseImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.BaseImage, len(s.baseImages))
	copy(out, s.baseImages)
	return out
}
