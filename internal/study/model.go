package study

import (
	"encoding/json"
	"fmt"
	"time"

	"mentalytics/internal/i18n"
	"mentalytics/internal/store"
)

// TimestampLayout is local time at second precision.
const TimestampLayout = "2006-01-02T15:04:05"

// Big5 holds the ten short-form personality items as the Likert labels the
// participant picked.
type Big5 struct {
	Extrav     string `json:"extrav"`
	Quarrel    string `json:"quarrel"`
	Discipline string `json:"discipline"`
	Anxious    string `json:"anxious"`
	Open       string `json:"open"`
	Quiet      string `json:"quiet"`
	Warm       string `json:"warm"`
	Careless   string `json:"careless"`
	Stable     string `json:"stable"`
	Uncreative string `json:"uncreative"`
}

// Answers is the in-progress survey. It is merged field by field as the
// participant fills the form and persisted only on submit.
type Answers struct {
	Age          string `json:"age"`
	GenderBio    string `json:"gender_bio"`
	Marital      string `json:"marital"`
	Disability   string `json:"disability"`
	SleepHours   string `json:"sleep_hours"`
	SleepProblem string `json:"sleep_problem"`

	Employment    string `json:"employment"`
	Industry      string `json:"industry"`
	IndustryOther string `json:"industry_other"`
	WorkType      string `json:"work_type"`
	WorkTypeOther string `json:"work_type_other"`

	Emotional string `json:"emotional"`
	Stress    string `json:"stress"`

	Activities      []string `json:"activities"`
	ActivitiesOther string   `json:"activities_other"`
	DaysPerWeek     string   `json:"days_per_week"`
	SessionLength   string   `json:"session_length"`
	MoodLink        string   `json:"mood_link"`

	OverallHealth string `json:"overall_health"`
	Mobility      string `json:"mobility"`
	Surgery       string `json:"surgery"`
	Recovery      string `json:"recovery"`
	PTAfter       string `json:"pt_after"`
	PTAdherence   string `json:"pt_adherence"`

	Big5 Big5 `json:"big5"`
}

// SurveyRecord is what gets appended to the survey log.
type SurveyRecord struct {
	Lang      i18n.Lang `json:"lang"`
	DeviceID  string    `json:"device_id"`
	Timestamp string    `json:"timestamp"`
	Answers
}

type ConsentRecord struct {
	AgreedInfo bool      `json:"agreed_info"`
	AgreedData bool      `json:"agreed_data"`
	Timestamp  string    `json:"timestamp"`
	Lang       i18n.Lang `json:"lang"`
	DeviceID   string    `json:"device_id"`
}

type AgreementRecord struct {
	DeviceID       string    `json:"device_id"`
	Timestamp      string    `json:"timestamp"`
	Lang           i18n.Lang `json:"lang"`
	AgreeWithModel bool      `json:"agree_with_model"`
}

func timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// toDocument flattens a record into the store's generic document shape.
func toDocument(v any) (store.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
