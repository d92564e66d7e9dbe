package authoring

import (
	"sync"
)

// Step tags the current position of an authoring flow.
type Step string

const (
	StepCollectingTitle Step = "collecting_title"
	StepCollectingBody  Step = "collecting_body"
	StepCollectingImage Step = "collecting_image"
	StepCollectingTags  Step = "collecting_tags"
	StepAwaitingTopic   Step = "awaiting_generation_topic"
	StepGenerating      Step = "generating"
	StepReviewReady     Step = "review_ready"
)

// Session is the transient per-principal authoring state. It lives only
// between Start and Confirm/Cancel and is owned by the Machine; the mu
// serializes steps so two concurrent updates cannot advance one session
// at the same time.
type Session struct {
	PrincipalID int64
	Username    string

	Step               Step
	Title              string
	Body               string
	ImageRef           string
	Tags               []string
	GenerationAttempts int

	mu sync.Mutex
}

// registry is the explicit one-session-per-principal mapping.
type registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[int64]*Session),
	}
}

func (r *registry) get(principalID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[principalID]
	return s, ok
}

// create registers a fresh session; the bool is false when one already
// exists for the principal.
func (r *registry) create(principalID int64, username string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[principalID]; ok {
		return nil, false
	}
	s := &Session{
		PrincipalID: principalID,
		Username:    username,
		Step:        StepCollectingTitle,
	}
	r.sessions[principalID] = s
	return s, true
}

func (r *registry) remove(principalID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[principalID]; !ok {
		return false
	}
	delete(r.sessions, principalID)
	return true
}
