package study

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"mentalytics/internal/i18n"
)

// Session is the wizard state of one device: the current step, the consent
// checkboxes and the unsaved answers. It lives only in memory.
type Session struct {
	mu sync.Mutex

	DeviceID   string
	Lang       i18n.Lang
	Step       Step
	AgreedInfo bool
	AgreedData bool
	Draft      Answers
}

func newSession(deviceID string) *Session {
	return &Session{DeviceID: deviceID, Lang: i18n.English, Step: StepWelcome}
}

// CanContinue reports whether the consent page may be left.
func (s *Session) CanContinue() bool {
	return s.AgreedInfo && s.AgreedData
}

// View is the client-facing snapshot of a session.
type View struct {
	DeviceID    string    `json:"device_id"`
	Lang        i18n.Lang `json:"lang"`
	Step        Step      `json:"step"`
	AgreedInfo  bool      `json:"agreed_info"`
	AgreedData  bool      `json:"agreed_data"`
	CanContinue bool      `json:"can_continue"`
	Draft       Answers   `json:"draft"`
}

// view must be called with s.mu held.
func (s *Session) view() View {
	d := s.Draft
	d.Activities = append([]string(nil), s.Draft.Activities...)
	return View{
		DeviceID:    s.DeviceID,
		Lang:        s.Lang,
		Step:        s.Step,
		AgreedInfo:  s.AgreedInfo,
		AgreedData:  s.AgreedData,
		CanContinue: s.CanContinue(),
		Draft:       d,
	}
}

// Sessions is a bounded cache of sessions keyed by device id. Evicted devices
// start over at the welcome step; their stored records are unaffected.
type Sessions struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
}

func NewSessions(size int) (*Sessions, error) {
	c, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &Sessions{cache: c}, nil
}

// Get returns the session of deviceID, creating it when absent. created
// reports whether a new session was made.
func (s *Sessions) Get(deviceID string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache.Get(deviceID); ok {
		return sess, false
	}
	sess = newSession(deviceID)
	s.cache.Add(deviceID, sess)
	return sess, true
}

// Drop ends the session of deviceID.
func (s *Sessions) Drop(deviceID string) {
	s.cache.Remove(deviceID)
}
