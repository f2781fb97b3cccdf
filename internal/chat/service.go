// Package chat is the Patient Corner: free-text questions answered by the
// local model, with the participant's survey as light context.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"mentalytics/internal/agent"
	"mentalytics/internal/history"
	"mentalytics/internal/store"
)

// MaxQuestionRunes bounds the length of a question after trimming.
const MaxQuestionRunes = 4000

var (
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrQuestionTooLong = fmt.Errorf("question must be at most %d characters", MaxQuestionRunes)
)

// Metrics observes model calls. A nil Metrics is allowed.
type Metrics interface {
	ObserveInference(outcome string, d time.Duration)
}

// Reply is what the participant sees after asking.
type Reply struct {
	Answer    string `json:"answer"`
	LatencyMS int64  `json:"latency_ms"`
	Stderr    string `json:"stderr,omitempty"`
	TS        string `json:"ts,omitempty"`
}

type Service interface {
	Ask(ctx context.Context, deviceID, question string) (Reply, error)
	History(n int) ([]history.Entry, error)
	Clear()
	Export() ([]byte, error)
}

type service struct {
	model   agent.Model
	store   store.Store
	history *history.Log
	metrics Metrics
	logger  *zap.Logger
}

func NewService(model agent.Model, st store.Store, hist *history.Log, metrics Metrics, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{model: model, store: st, history: hist, metrics: metrics, logger: logger}
}

// Ask runs one question through the model. deviceID may be empty, in which
// case the context fields are all unknown.
func (s *service) Ask(ctx context.Context, deviceID, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}
	if utf8.RuneCountInString(question) > MaxQuestionRunes {
		return Reply{}, ErrQuestionTooLong
	}
	if err := s.model.Preflight(); err != nil {
		s.observe("unavailable", 0)
		return Reply{}, err
	}

	prompt := BuildPrompt(s.patientContext(ctx, deviceID), question)
	ans, err := s.model.Generate(ctx, prompt)
	if err != nil {
		s.observe("error", 0)
		return Reply{}, fmt.Errorf("generate: %w", err)
	}
	s.observe("ok", ans.Latency)

	reply := Reply{
		Answer:    agent.Postprocess(ans.Text),
		LatencyMS: ans.Latency.Milliseconds(),
		Stderr:    ans.Stderr,
	}
	entry, err := s.history.Save(question, reply.Answer, ans.Latency)
	if err != nil {
		s.logger.Warn("save chat history", zap.Error(err))
		return reply, nil
	}
	reply.TS = entry.TS
	return reply, nil
}

func (s *service) observe(outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveInference(outcome, d)
	}
}

// Context is the part of the survey the model gets to see.
type Context struct {
	Age      string
	Gender   string
	Health   string
	Mobility string
}

// BuildPrompt prefixes the question with the participant context.
func BuildPrompt(c Context, question string) string {
	return fmt.Sprintf("Patient context (may be partial): Age=%s, Gender=%s, Health=%s, Mobility=%s.\n\nQuestion: %s\n\n",
		orUnknown(c.Age), orUnknown(c.Gender), orUnknown(c.Health), orUnknown(c.Mobility), question)
}

func (s *service) patientContext(ctx context.Context, deviceID string) Context {
	if deviceID == "" {
		return Context{}
	}
	doc, err := s.store.LoadLatestJSONL(ctx, deviceID, store.NameSurvey)
	if err != nil {
		s.logger.Warn("load survey for chat context", zap.String("device_id", deviceID), zap.Error(err))
		return Context{}
	}
	return Context{
		Age:      field(doc, "age"),
		Gender:   field(doc, "gender_bio"),
		Health:   field(doc, "overall_health"),
		Mobility: field(doc, "mobility"),
	}
}

func field(doc store.Document, key string) string {
	switch v := doc[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func (s *service) History(n int) ([]history.Entry, error) {
	return s.history.Last(n)
}

func (s *service) Clear() {
	s.history.Clear()
}

func (s *service) Export() ([]byte, error) {
	return s.history.Export()
}
