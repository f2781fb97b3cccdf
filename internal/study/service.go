package study

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mentalytics/internal/i18n"
	"mentalytics/internal/store"
)

// Notifier tells the study coordinator that a device finished the survey.
// Implementations must not receive any answer content.
type Notifier interface {
	NotifySubmission(ctx context.Context, deviceID, runID string) error
}

// Metrics observes wizard activity. A nil Metrics is allowed.
type Metrics interface {
	ObserveTransition(from, to string)
	ObserveRecord(name, outcome string)
}

// ErrBadInput wraps malformed client payloads.
var ErrBadInput = errors.New("bad input")

// MaxDraftBytes caps the JSON size of the unsaved answers across all patches.
const MaxDraftBytes = 256 << 10

// ConsentInput is the state of the consent page.
type ConsentInput struct {
	AgreedInfo bool `json:"agreed_info"`
	AgreedData bool `json:"agreed_data"`
	Continue   bool `json:"continue"`
}

type Service interface {
	Session(deviceID string) (View, bool)
	EndSession(deviceID string)
	SelectLanguage(ctx context.Context, deviceID string, lang i18n.Lang) (View, error)
	Consent(ctx context.Context, deviceID string, in ConsentInput) (View, error)
	UpdateDraft(ctx context.Context, deviceID string, patch []byte) (View, error)
	Submit(ctx context.Context, deviceID string) (store.Document, View, error)
	Back(ctx context.Context, deviceID string) (View, error)
	SaveAgreement(ctx context.Context, deviceID string, agree bool) (store.Document, error)
	SaveProfile(ctx context.Context, deviceID string, doc store.Document) error
	Export(ctx context.Context, deviceID string) ([]byte, error)
	ExportLog(ctx context.Context, deviceID, name string) ([]byte, error)
}

type service struct {
	repo     Repository
	sessions *Sessions
	table    *i18n.Table
	notifier Notifier
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures optional collaborators of the service.
type Option func(*service)

func WithNotifier(n Notifier) Option { return func(s *service) { s.notifier = n } }
func WithMetrics(m Metrics) Option   { return func(s *service) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, sessions *Sessions, table *i18n.Table, opts ...Option) Service {
	s := &service{
		repo:     repo,
		sessions: sessions,
		table:    table,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Session(deviceID string) (View, bool) {
	sess, created := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), created
}

// EndSession forgets the wizard state of deviceID. Stored records stay.
func (s *service) EndSession(deviceID string) {
	s.sessions.Drop(deviceID)
	s.logger.Debug("session ended", zap.String("device_id", deviceID))
}

// move applies ev to the session and records the transition. Must be called
// with sess.mu held.
func (s *service) move(sess *Session, ev Event, g Guard) error {
	from := sess.Step
	to, err := Advance(from, ev, g)
	if err != nil {
		return err
	}
	sess.Step = to
	if from != to {
		s.logger.Debug("wizard step",
			zap.String("device_id", sess.DeviceID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(from), string(to))
		}
	}
	return nil
}

func (s *service) observeRecord(name string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "saved"
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.metrics.ObserveRecord(name, outcome)
}

func (s *service) SelectLanguage(ctx context.Context, deviceID string, lang i18n.Lang) (View, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.move(sess, EventSelectLanguage, Guard{}); err != nil {
		return sess.view(), err
	}
	sess.Lang = lang
	return sess.view(), nil
}

func (s *service) Consent(ctx context.Context, deviceID string, in ConsentInput) (View, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepConsent {
		return sess.view(), fmt.Errorf("%w: consent at %s", ErrInvalidTransition, sess.Step)
	}
	sess.AgreedInfo = in.AgreedInfo
	sess.AgreedData = in.AgreedData
	if !in.Continue {
		return sess.view(), nil
	}

	g := Guard{AgreedInfo: sess.AgreedInfo, AgreedData: sess.AgreedData}
	if _, err := Advance(sess.Step, EventContinue, g); err != nil {
		return sess.view(), err
	}
	_, err := s.repo.AppendConsent(ctx, ConsentRecord{
		AgreedInfo: sess.AgreedInfo,
		AgreedData: sess.AgreedData,
		Timestamp:  timestamp(s.now()),
		Lang:       sess.Lang,
		DeviceID:   deviceID,
	})
	s.observeRecord(store.NameConsent, err)
	if err != nil {
		return sess.view(), err
	}
	if err := s.move(sess, EventContinue, g); err != nil {
		return sess.view(), err
	}
	return sess.view(), nil
}

// UpdateDraft merges the JSON object patch into the unsaved answers. Fields
// absent from patch keep their value.
func (s *service) UpdateDraft(ctx context.Context, deviceID string, patch []byte) (View, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepSurvey {
		return sess.view(), fmt.Errorf("%w: answers at %s", ErrInvalidTransition, sess.Step)
	}
	draft := sess.Draft
	draft.Activities = append([]string(nil), sess.Draft.Activities...)
	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		return sess.view(), fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	if raw, err := json.Marshal(draft); err != nil || len(raw) > MaxDraftBytes {
		return sess.view(), fmt.Errorf("%w: answers exceed %d bytes", ErrBadInput, MaxDraftBytes)
	}
	sess.Draft = draft
	return sess.view(), nil
}

func (s *service) Submit(ctx context.Context, deviceID string) (store.Document, View, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepSurvey {
		return nil, sess.view(), fmt.Errorf("%w: submit at %s", ErrInvalidTransition, sess.Step)
	}

	answers := sess.Draft
	answers.Activities = append([]string(nil), sess.Draft.Activities...)
	var missing []string
	if err := answers.Validate(s.table, sess.Lang); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, sess.view(), err
		}
		missing = verr.Missing
	}
	g := Guard{Missing: missing}
	if _, err := Advance(sess.Step, EventSubmit, g); err != nil {
		s.observeRecord(store.NameSurvey, err)
		return nil, sess.view(), err
	}

	stored, err := s.repo.AppendSurvey(ctx, SurveyRecord{
		Lang:      sess.Lang,
		DeviceID:  deviceID,
		Timestamp: timestamp(s.now()),
		Answers:   answers,
	})
	s.observeRecord(store.NameSurvey, err)
	if err != nil {
		return nil, sess.view(), err
	}
	if err := s.move(sess, EventSubmit, g); err != nil {
		return nil, sess.view(), err
	}
	sess.Draft = Answers{}

	s.logger.Info("survey submitted",
		zap.String("device_id", deviceID),
		zap.String("run_id", stored.String(store.RunIDKey)))
	s.notify(deviceID, stored.String(store.RunIDKey))
	return stored, sess.view(), nil
}

// notify sends in the background. Failures are only logged.
func (s *service) notify(deviceID, runID string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.NotifySubmission(ctx, deviceID, runID); err != nil {
			s.logger.Warn("coordinator notification failed",
				zap.String("device_id", deviceID),
				zap.Error(err))
		}
	}()
}

func (s *service) Back(ctx context.Context, deviceID string) (View, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	latest, err := s.repo.LatestSurvey(ctx, deviceID)
	if err != nil {
		return sess.view(), err
	}
	if err := s.move(sess, EventBack, Guard{HasSurvey: len(latest) > 0}); err != nil {
		return sess.view(), err
	}
	return sess.view(), nil
}

func (s *service) SaveAgreement(ctx context.Context, deviceID string, agree bool) (store.Document, error) {
	sess, _ := s.sessions.Get(deviceID)
	sess.mu.Lock()
	lang := sess.Lang
	sess.mu.Unlock()

	latest, err := s.repo.LatestSurvey(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, ErrNoSurvey
	}
	if l, ok := i18n.ParseLang(latest.String("lang")); ok {
		lang = l
	}

	stored, err := s.repo.AppendAgreement(ctx, AgreementRecord{
		DeviceID:       deviceID,
		Timestamp:      timestamp(s.now()),
		Lang:           lang,
		AgreeWithModel: agree,
	})
	s.observeRecord(store.NameAgreement, err)
	return stored, err
}

func (s *service) SaveProfile(ctx context.Context, deviceID string, doc store.Document) error {
	err := s.repo.SaveProfile(ctx, deviceID, doc)
	s.observeRecord(store.NameProfile, err)
	return err
}

func (s *service) Export(ctx context.Context, deviceID string) ([]byte, error) {
	return s.repo.ExportBundle(ctx, deviceID)
}

func (s *service) ExportLog(ctx context.Context, deviceID, name string) ([]byte, error) {
	return s.repo.ExportLog(ctx, deviceID, name)
}
