// Package classify maps the platform's raw case-event vocabulary onto the
// closed set of notification event types and their derived properties.
package classify

import (
	"time"

	"tribunal-notifier/pkg/notify"
)

// EventType is a canonical notification classification. The enumeration is
// closed and versioned; unknown raw identifiers classify to nothing.
type EventType string

const (
	ValidAppealCreated        EventType = "validAppealCreated"
	DraftToValidAppealCreated EventType = "draftToValidAppealCreated"
	AppealReceived            EventType = "appealReceived"
	EvidenceReceived          EventType = "evidenceReceived"
	EvidenceReminder          EventType = "evidenceReminder"
	HearingBooked             EventType = "hearingBooked"
	HearingReminder           EventType = "hearingReminder"
	HearingPostponed          EventType = "hearingPostponed"
	HearingAdjourned          EventType = "hearingAdjourned"
	AppealLapsed              EventType = "appealLapsed"
	AppealDormant             EventType = "appealDormant"
	AppealWithdrawn           EventType = "appealWithdrawn"
	DirectionIssued           EventType = "directionIssued"
	DirectionIssuedWelsh      EventType = "directionIssuedWelsh"
	DecisionIssued            EventType = "decisionIssued"
	DecisionIssuedWelsh       EventType = "decisionIssuedWelsh"
	IssueFinalDecision        EventType = "issueFinalDecision"
	IssueFinalDecisionWelsh   EventType = "issueFinalDecisionWelsh"
	IssueAdjournmentNotice    EventType = "issueAdjournmentNotice"
	AdjournmentNoticeWelsh    EventType = "issueAdjournmentNoticeWelsh"
	JointPartyAdded           EventType = "jointPartyAdded"
	SubscriptionUpdated       EventType = "subscriptionUpdated"
)

// Properties carries the per-type behavior flags and timers. Behavior lives
// in this table, not in branching code, so every cell can be tested on its own.
type Properties struct {
	// WelshVariant pairs a base type with its Welsh counterpart. The
	// classifier always returns the base type; the engine substitutes the
	// variant when the case prefers Welsh.
	WelshVariant EventType

	// BaseVariant points a Welsh type back at its English pairing, used for
	// template fallback and for the companion English notice.
	BaseVariant EventType

	// Delay postpones the initial send of the notification itself.
	Delay time.Duration

	// ReminderGroup and ReminderOffsets describe time-triggered reminder jobs
	// this event enqueues: one job per offset, all under one group key,
	// each offset counted back from the hearing date.
	ReminderGroup   string
	ReminderOffsets []time.Duration

	// CancelsGroups lists reminder group keys this event supersedes.
	CancelsGroups []string

	// Reminder marks types that only ever arrive via the scheduler.
	Reminder bool

	// RequiresOralHearing suppresses the type for paper cases and for the
	// legacy listing route.
	RequiresOralHearing bool

	// AllowOutOfHours exempts the type from the business-hours gate.
	AllowOutOfHours bool

	// LetterOnly types address no email or SMS subscription at all, which
	// also places them on the dormant-state allow-list.
	LetterOnly bool
}

const (
	hearingReminderGroup  = "hearingReminder"
	evidenceReminderGroup = "evidenceReminder"
)

var properties = map[EventType]Properties{
	ValidAppealCreated:        {Delay: 5 * time.Minute},
	DraftToValidAppealCreated: {BaseVariant: ValidAppealCreated, Delay: 5 * time.Minute},
	AppealReceived: {
		ReminderGroup:   hearingReminderGroup,
		ReminderOffsets: []time.Duration{14 * 24 * time.Hour, 2 * 24 * time.Hour},
	},
	EvidenceReceived: {},
	EvidenceReminder: {Reminder: true, AllowOutOfHours: true},
	HearingBooked: {
		RequiresOralHearing: true,
		ReminderGroup:       hearingReminderGroup,
		ReminderOffsets:     []time.Duration{2 * 24 * time.Hour, 24 * time.Hour},
	},
	HearingReminder:  {Reminder: true, RequiresOralHearing: true, AllowOutOfHours: true},
	HearingPostponed: {CancelsGroups: []string{hearingReminderGroup}},
	HearingAdjourned: {CancelsGroups: []string{hearingReminderGroup}},
	AppealLapsed:     {CancelsGroups: []string{hearingReminderGroup, evidenceReminderGroup}},
	AppealDormant:    {CancelsGroups: []string{hearingReminderGroup, evidenceReminderGroup}},
	AppealWithdrawn: {
		LetterOnly:    true,
		CancelsGroups: []string{hearingReminderGroup, evidenceReminderGroup},
	},
	DirectionIssued:         {WelshVariant: DirectionIssuedWelsh, LetterOnly: true, AllowOutOfHours: true},
	DirectionIssuedWelsh:    {BaseVariant: DirectionIssued, LetterOnly: true, AllowOutOfHours: true},
	DecisionIssued:          {WelshVariant: DecisionIssuedWelsh, LetterOnly: true, AllowOutOfHours: true},
	DecisionIssuedWelsh:     {BaseVariant: DecisionIssued, LetterOnly: true, AllowOutOfHours: true},
	IssueFinalDecision:      {WelshVariant: IssueFinalDecisionWelsh, AllowOutOfHours: true},
	IssueFinalDecisionWelsh: {BaseVariant: IssueFinalDecision, AllowOutOfHours: true},
	IssueAdjournmentNotice:  {WelshVariant: AdjournmentNoticeWelsh, AllowOutOfHours: true},
	AdjournmentNoticeWelsh:  {BaseVariant: IssueAdjournmentNotice, AllowOutOfHours: true},
	JointPartyAdded:         {LetterOnly: true},
	SubscriptionUpdated:     {},
}

// rawEvents maps the platform's raw event identifiers onto canonical types.
// The platform issues distinct Welsh raw ids, but they map onto their base
// types here: the Welsh variant is always chosen downstream from the case's
// language preference, never by the raw identifier alone.
var rawEvents = map[string]EventType{
	"validAppealCreated":          ValidAppealCreated,
	"appealReceived":              AppealReceived,
	"evidenceReceived":            EvidenceReceived,
	"evidenceReminder":            EvidenceReminder,
	"hearingBooked":               HearingBooked,
	"hearingReminder":             HearingReminder,
	"hearingPostponed":            HearingPostponed,
	"hearingAdjourned":            HearingAdjourned,
	"appealLapsed":                AppealLapsed,
	"appealDormant":               AppealDormant,
	"appealWithdrawn":             AppealWithdrawn,
	"directionIssued":             DirectionIssued,
	"directionIssuedWelsh":        DirectionIssued,
	"decisionIssued":              DecisionIssued,
	"decisionIssuedWelsh":         DecisionIssued,
	"issueFinalDecision":          IssueFinalDecision,
	"issueFinalDecisionWelsh":     IssueFinalDecision,
	"issueAdjournmentNotice":      IssueAdjournmentNotice,
	"issueAdjournmentNoticeWelsh": IssueAdjournmentNotice,
	"jointPartyAdded":             JointPartyAdded,
	"subscriptionUpdated":         SubscriptionUpdated,
}

// Props returns the property table entry for an event type. The zero value is
// returned for types outside the enumeration.
func Props(et EventType) Properties {
	return properties[et]
}

// Known reports whether the event type belongs to the closed enumeration.
func Known(et EventType) bool {
	_, ok := properties[et]
	return ok
}

// Classify maps a raw platform event identifier plus the pre-event case state
// onto zero or more canonical event types. An unknown identifier yields an
// empty result: nothing to notify, not a failure.
func Classify(rawEventID string, oldState notify.CaseState) []EventType {
	et, ok := rawEvents[rawEventID]
	if !ok {
		return nil
	}

	// A valid-appeal event on a case that was still a draft carries its own
	// timers and recipients.
	if et == ValidAppealCreated && oldState == notify.StateDraft {
		return []EventType{DraftToValidAppealCreated}
	}

	return []EventType{et}
}

// ForLanguage substitutes the Welsh variant of a base type when the case
// prefers Welsh. Types without a variant are returned unchanged.
func ForLanguage(et EventType, lang notify.Language) EventType {
	if lang != notify.Welsh {
		return et
	}
	p := properties[et]
	if p.WelshVariant != "" && p.WelshVariant != et {
		return p.WelshVariant
	}
	return et
}
