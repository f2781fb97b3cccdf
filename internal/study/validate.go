package study

import (
	"fmt"
	"strings"

	"mentalytics/internal/i18n"
)

// ValidationError lists the labels of the required fields left empty, in form
// order and in the participant's language.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrTransitionBlocked
}

// Normalize trims every answer and clears the fields whose branch is not
// taken: the surgery follow-ups unless surgery was answered yes, and each
// "other" companion unless its question selected an other option. Options
// are matched in every language, since the language may change mid-survey.
func (a *Answers) Normalize(t *i18n.Table) {
	for _, p := range a.textFields() {
		*p = strings.TrimSpace(*p)
	}
	activities := make([]string, 0, len(a.Activities))
	for _, v := range a.Activities {
		if v = strings.TrimSpace(v); v != "" {
			activities = append(activities, v)
		}
	}
	a.Activities = activities

	if !t.YesAny(a.Surgery) {
		a.Recovery = ""
		a.PTAfter = ""
		a.PTAdherence = ""
	}
	if !t.IsAny(i18n.ListOther, a.Industry) {
		a.IndustryOther = ""
	}
	if !t.IsAny(i18n.ListOther, a.WorkType) {
		a.WorkTypeOther = ""
	}
	if !a.selectsOther(t) {
		a.ActivitiesOther = ""
	}
}

func (a *Answers) selectsOther(t *i18n.Table) bool {
	for _, v := range a.Activities {
		if t.IsAny(i18n.ListOther, v) {
			return true
		}
	}
	return false
}

// Missing returns the keys of the required fields that are empty. Call
// Normalize first.
func (a *Answers) Missing(t *i18n.Table) []i18n.Key {
	var missing []i18n.Key
	need := func(k i18n.Key, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}

	need(i18n.KeyFieldAge, a.Age)
	need(i18n.KeyFieldGenderBio, a.GenderBio)
	need(i18n.KeyFieldMarital, a.Marital)
	need(i18n.KeyFieldDisability, a.Disability)
	need(i18n.KeyFieldSleepHours, a.SleepHours)
	need(i18n.KeyFieldSleepProblem, a.SleepProblem)

	need(i18n.KeyFieldEmployment, a.Employment)
	need(i18n.KeyFieldIndustry, a.Industry)
	if t.IsAny(i18n.ListOther, a.Industry) {
		need(i18n.KeyFieldIndustryOther, a.IndustryOther)
	}
	need(i18n.KeyFieldWorkType, a.WorkType)
	if t.IsAny(i18n.ListOther, a.WorkType) {
		need(i18n.KeyFieldWorkTypeOther, a.WorkTypeOther)
	}

	need(i18n.KeyFieldEmotional, a.Emotional)
	need(i18n.KeyFieldStress, a.Stress)

	if len(a.Activities) == 0 {
		missing = append(missing, i18n.KeyFieldActivities)
	}
	if a.selectsOther(t) {
		need(i18n.KeyFieldActivitiesOther, a.ActivitiesOther)
	}
	need(i18n.KeyFieldDaysPerWeek, a.DaysPerWeek)
	need(i18n.KeyFieldSessionLength, a.SessionLength)
	need(i18n.KeyFieldMoodLink, a.MoodLink)

	need(i18n.KeyFieldOverallHealth, a.OverallHealth)
	need(i18n.KeyFieldMobility, a.Mobility)
	need(i18n.KeyFieldSurgery, a.Surgery)
	if t.YesAny(a.Surgery) {
		need(i18n.KeyFieldRecovery, a.Recovery)
		need(i18n.KeyFieldPTAfter, a.PTAfter)
		need(i18n.KeyFieldPTAdherence, a.PTAdherence)
	}

	b := a.Big5
	need(i18n.KeyBig5Extrav, b.Extrav)
	need(i18n.KeyBig5Quarrel, b.Quarrel)
	need(i18n.KeyBig5Discipline, b.Discipline)
	need(i18n.KeyBig5Anxious, b.Anxious)
	need(i18n.KeyBig5Open, b.Open)
	need(i18n.KeyBig5Quiet, b.Quiet)
	need(i18n.KeyBig5Warm, b.Warm)
	need(i18n.KeyBig5Careless, b.Careless)
	need(i18n.KeyBig5Stable, b.Stable)
	need(i18n.KeyBig5Uncreative, b.Uncreative)

	return missing
}

// Validate normalizes a and reports the missing fields as a ValidationError
// carrying localized labels.
func (a *Answers) Validate(t *i18n.Table, lang i18n.Lang) error {
	a.Normalize(t)
	keys := a.Missing(t)
	if len(keys) == 0 {
		return nil
	}
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = t.T(lang, k)
	}
	return &ValidationError{Missing: labels}
}

func (a *Answers) textFields() []*string {
	b := &a.Big5
	return []*string{
		&a.Age, &a.GenderBio, &a.Marital, &a.Disability, &a.SleepHours, &a.SleepProblem,
		&a.Employment, &a.Industry, &a.IndustryOther, &a.WorkType, &a.WorkTypeOther,
		&a.Emotional, &a.Stress, &a.ActivitiesOther, &a.DaysPerWeek, &a.SessionLength, &a.MoodLink,
		&a.OverallHealth, &a.Mobility, &a.Surgery, &a.Recovery, &a.PTAfter, &a.PTAdherence,
		&b.Extrav, &b.Quarrel, &b.Discipline, &b.Anxious, &b.Open,
		&b.Quiet, &b.Warm, &b.Careless, &b.Stable, &b.Uncreative,
	}
}
