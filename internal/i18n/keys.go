package i18n

// Key names a localized string.
type Key string

const (
	KeyAppTitle        Key = "app_title"
	KeyWelcomeIntro    Key = "welcome_intro"
	KeyConsentTitle    Key = "consent_title"
	KeyConsentIntro    Key = "consent_intro"
	KeyConsentCheck1   Key = "consent_check1"
	KeyConsentCheck2   Key = "consent_check2"
	KeyContinue        Key = "continue"
	KeyBack            Key = "back"
	KeyStudyTitle      Key = "study_title"
	KeySaveAndContinue Key = "save_and_continue"
	KeySaved           Key = "saved"
	KeyGuidanceTitle   Key = "guidance_title"
	KeyDevice          Key = "device"
	KeyExport          Key = "export"
	KeyRequiredNote    Key = "required_note"
	KeyNoSurvey        Key = "no_survey"
	KeyAnticipated     Key = "anticipated"
	KeyNRS             Key = "nrs"
	KeyTraits          Key = "traits"
	KeyAgreeQuestion   Key = "agree_question"
	KeyAgreementSaved  Key = "agreement_saved"
	KeyUser            Key = "user"
	KeyNorm            Key = "norm"

	KeyFieldAge             Key = "field_age"
	KeyFieldGenderBio       Key = "field_gender_bio"
	KeyFieldMarital         Key = "field_marital"
	KeyFieldDisability      Key = "field_disability"
	KeyFieldSleepHours      Key = "field_sleep_hours"
	KeyFieldSleepProblem    Key = "field_sleep_problem"
	KeyFieldEmployment      Key = "field_employment"
	KeyFieldIndustry        Key = "field_industry"
	KeyFieldIndustryOther   Key = "field_industry_other"
	KeyFieldWorkType        Key = "field_work_type"
	KeyFieldWorkTypeOther   Key = "field_work_type_other"
	KeyFieldEmotional       Key = "field_emotional"
	KeyFieldStress          Key = "field_stress"
	KeyFieldActivities      Key = "field_activities"
	KeyFieldActivitiesOther Key = "field_activities_other"
	KeyFieldDaysPerWeek     Key = "field_days_per_week"
	KeyFieldSessionLength   Key = "field_session_length"
	KeyFieldMoodLink        Key = "field_mood_link"
	KeyFieldOverallHealth   Key = "field_overall_health"
	KeyFieldMobility        Key = "field_mobility"
	KeyFieldSurgery         Key = "field_surgery"
	KeyFieldRecovery        Key = "field_recovery"
	KeyFieldPTAfter         Key = "field_pt_after"
	KeyFieldPTAdherence     Key = "field_pt_adherence"

	KeyBig5Extrav     Key = "big5_extrav"
	KeyBig5Quarrel    Key = "big5_quarrel"
	KeyBig5Discipline Key = "big5_discipline"
	KeyBig5Anxious    Key = "big5_anxious"
	KeyBig5Open       Key = "big5_open"
	KeyBig5Quiet      Key = "big5_quiet"
	KeyBig5Warm       Key = "big5_warm"
	KeyBig5Careless   Key = "big5_careless"
	KeyBig5Stable     Key = "big5_stable"
	KeyBig5Uncreative Key = "big5_uncreative"

	KeyTraitExtroversion      Key = "trait_extroversion"
	KeyTraitAgreeableness     Key = "trait_agreeableness"
	KeyTraitConscientiousness Key = "trait_conscientiousness"
	KeyTraitStability         Key = "trait_emotional_stability"
	KeyTraitOpenness          Key = "trait_openness"

	KeyExerciseSitUps     Key = "exercise_sit_ups"
	KeyExerciseToeTouch   Key = "exercise_toe_touch"
	KeyExerciseSquats     Key = "exercise_squats"
	KeyExerciseCalfRaises Key = "exercise_calf_raises"
)

// AllKeys is the closed set checked by Load.
var AllKeys = []Key{
	KeyAppTitle, KeyWelcomeIntro, KeyConsentTitle, KeyConsentIntro,
	KeyConsentCheck1, KeyConsentCheck2, KeyContinue, KeyBack,
	KeyStudyTitle, KeySaveAndContinue, KeySaved, KeyGuidanceTitle,
	KeyDevice, KeyExport, KeyRequiredNote, KeyNoSurvey,
	KeyAnticipated, KeyNRS, KeyTraits, KeyAgreeQuestion, KeyAgreementSaved,
	KeyUser, KeyNorm,

	KeyFieldAge, KeyFieldGenderBio, KeyFieldMarital, KeyFieldDisability,
	KeyFieldSleepHours, KeyFieldSleepProblem, KeyFieldEmployment,
	KeyFieldIndustry, KeyFieldIndustryOther, KeyFieldWorkType, KeyFieldWorkTypeOther,
	KeyFieldEmotional, KeyFieldStress, KeyFieldActivities, KeyFieldActivitiesOther,
	KeyFieldDaysPerWeek, KeyFieldSessionLength, KeyFieldMoodLink,
	KeyFieldOverallHealth, KeyFieldMobility, KeyFieldSurgery, KeyFieldRecovery,
	KeyFieldPTAfter, KeyFieldPTAdherence,

	KeyBig5Extrav, KeyBig5Quarrel, KeyBig5Discipline, KeyBig5Anxious, KeyBig5Open,
	KeyBig5Quiet, KeyBig5Warm, KeyBig5Careless, KeyBig5Stable, KeyBig5Uncreative,

	KeyTraitExtroversion, KeyTraitAgreeableness, KeyTraitConscientiousness,
	KeyTraitStability, KeyTraitOpenness,

	KeyExerciseSitUps, KeyExerciseToeTouch, KeyExerciseSquats, KeyExerciseCalfRaises,
}

// ListKey names a localized option list.
type ListKey string

const (
	ListYesNo      ListKey = "yes_no"
	ListLikert     ListKey = "likert7"
	ListOther      ListKey = "other_tokens"
	ListNRS        ListKey = "nrs_labels"
	ListIndustry   ListKey = "industry"
	ListWorkType   ListKey = "work_type"
	ListActivities ListKey = "activities"
)

var AllListKeys = []ListKey{
	ListYesNo, ListLikert, ListOther, ListNRS,
	ListIndustry, ListWorkType, ListActivities,
}

// fixedListLen pins lists whose positions carry meaning.
var fixedListLen = map[ListKey]int{
	ListYesNo:  2,
	ListLikert: 7,
	ListNRS:    5,
}
