// Package report turns the latest survey record of a device into the
// guidance chart data and a printable participant summary.
package report

import (
	"strconv"
	"strings"

	"mentalytics/internal/i18n"
	"mentalytics/internal/store"
	"mentalytics/internal/study"
)

// PlaceholderDifficulty is shown for every exercise until a prediction model
// is connected. It is not derived from the participant's answers.
const PlaceholderDifficulty = 3

// Exercise is one bar of the anticipated difficulty chart.
type Exercise struct {
	Key   i18n.Key `json:"key"`
	Name  string   `json:"name"`
	Score int      `json:"score"`
	Label string   `json:"label"`
}

// Trait is one pair of bars of the personality chart.
type Trait struct {
	Key  i18n.Key `json:"key"`
	Name string   `json:"name"`
	User float64  `json:"user"`
	Norm float64  `json:"norm"`
}

// Field is one line of the participant snapshot.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Titles carries the localized chart headings and legends.
type Titles struct {
	Guidance      string `json:"guidance"`
	Anticipated   string `json:"anticipated"`
	NRS           string `json:"nrs"`
	Traits        string `json:"traits"`
	User          string `json:"user"`
	Norm          string `json:"norm"`
	AgreeQuestion string `json:"agree_question"`
}

type Guidance struct {
	Lang        i18n.Lang  `json:"lang"`
	DeviceID    string     `json:"device_id"`
	RunID       string     `json:"run_id"`
	Timestamp   string     `json:"timestamp"`
	Titles      Titles     `json:"titles"`
	Difficulty  []Exercise `json:"difficulty"`
	Personality []Trait    `json:"personality"`
	Snapshot    []Field    `json:"snapshot"`
}

var exercises = []i18n.Key{
	i18n.KeyExerciseSitUps,
	i18n.KeyExerciseToeTouch,
	i18n.KeyExerciseSquats,
	i18n.KeyExerciseCalfRaises,
}

// trait pairs a directly keyed item with a reverse keyed one.
type trait struct {
	key     i18n.Key
	direct  string
	reverse string
	norm    float64
}

var traits = []trait{
	{i18n.KeyTraitExtroversion, "extrav", "quiet", 4.44},
	{i18n.KeyTraitAgreeableness, "warm", "quarrel", 5.23},
	{i18n.KeyTraitConscientiousness, "discipline", "careless", 5.40},
	{i18n.KeyTraitStability, "stable", "anxious", 4.83},
	{i18n.KeyTraitOpenness, "open", "uncreative", 5.38},
}

var snapshotFields = []struct {
	label i18n.Key
	field string
}{
	{i18n.KeyFieldAge, "age"},
	{i18n.KeyFieldGenderBio, "gender_bio"},
	{i18n.KeyFieldEmployment, "employment"},
	{i18n.KeyFieldIndustry, "industry"},
	{i18n.KeyFieldActivities, "activities"},
	{i18n.KeyFieldOverallHealth, "overall_health"},
	{i18n.KeyFieldMobility, "mobility"},
	{i18n.KeyFieldSurgery, "surgery"},
}

const emptyValue = "—"

// ComputeGuidance derives the chart datasets from a stored survey record.
// lang is used when the record does not name its own language.
func ComputeGuidance(t *i18n.Table, lang i18n.Lang, survey store.Document) Guidance {
	if l, ok := i18n.ParseLang(survey.String("lang")); ok {
		lang = l
	}

	g := Guidance{
		Lang:      lang,
		DeviceID:  survey.String("device_id"),
		RunID:     survey.String(store.RunIDKey),
		Timestamp: survey.String("timestamp"),
		Titles: Titles{
			Guidance:      t.T(lang, i18n.KeyGuidanceTitle),
			Anticipated:   t.T(lang, i18n.KeyAnticipated),
			NRS:           t.T(lang, i18n.KeyNRS),
			Traits:        t.T(lang, i18n.KeyTraits),
			User:          t.T(lang, i18n.KeyUser),
			Norm:          t.T(lang, i18n.KeyNorm),
			AgreeQuestion: t.T(lang, i18n.KeyAgreeQuestion),
		},
	}

	nrs := t.List(lang, i18n.ListNRS)
	for _, k := range exercises {
		g.Difficulty = append(g.Difficulty, Exercise{
			Key:   k,
			Name:  t.T(lang, k),
			Score: PlaceholderDifficulty,
			Label: nrs[PlaceholderDifficulty-1],
		})
	}

	items, _ := survey["big5"].(map[string]any)
	for _, tr := range traits {
		g.Personality = append(g.Personality, Trait{
			Key:  tr.key,
			Name: t.T(lang, tr.key),
			User: traitScore(t, lang, items, tr),
			Norm: tr.norm,
		})
	}

	for _, f := range snapshotFields {
		g.Snapshot = append(g.Snapshot, Field{
			Label: t.T(lang, f.label),
			Value: displayValue(survey[f.field]),
		})
	}
	return g
}

// traitScore averages the direct item with the reversed item (8 - x). When
// only one of them was answered that one is used alone.
func traitScore(t *i18n.Table, lang i18n.Lang, items map[string]any, tr trait) float64 {
	direct, hasDirect := item(items, tr.direct)
	reverse, hasReverse := item(items, tr.reverse)

	var sum float64
	var n int
	if hasDirect {
		sum += float64(study.LikertScore(t, lang, direct))
		n++
	}
	if hasReverse {
		sum += float64(study.LikertMax + 1 - study.LikertScore(t, lang, reverse))
		n++
	}
	if n == 0 {
		return study.LikertMidpoint
	}
	return sum / float64(n)
}

func item(items map[string]any, key string) (string, bool) {
	switch v := items[key].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		// Older records stored the numeric scale directly.
		return formatNumber(v), true
	}
	return "", false
}

func displayValue(v any) string {
	switch v := v.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case []any:
		var parts []string
		for _, p := range v {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	case float64:
		return formatNumber(v)
	}
	return emptyValue
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
