// Package resolve decides which party roles an event addresses for a given
// case snapshot. It gates on role presence, per-event applicability, hearing
// logistics, and dormant-state suppression; channel-level subscription gating
// happens downstream in the template selector.
package resolve

import (
	"tribunal-notifier/classify"
	"tribunal-notifier/pkg/notify"
)

// applicability is the static table of which roles each event type addresses
// at all, independent of subscription state. Appellant rows implicitly cover
// the appointee through masking.
var applicability = map[classify.EventType][]notify.Role{
	classify.ValidAppealCreated:        {notify.Appellant, notify.Representative},
	classify.DraftToValidAppealCreated: {notify.Appellant},
	classify.AppealReceived:            {notify.Appellant, notify.Representative},
	classify.EvidenceReceived:          {notify.Appellant, notify.Representative, notify.JointParty},
	classify.EvidenceReminder:          {notify.Appellant, notify.Representative, notify.JointParty},
	classify.HearingBooked:             {notify.Appellant, notify.Representative},
	classify.HearingReminder:           {notify.Appellant, notify.Representative},
	classify.HearingPostponed:          {notify.Appellant, notify.Representative, notify.JointParty},
	classify.HearingAdjourned:          {notify.Appellant, notify.Representative, notify.JointParty},
	classify.AppealLapsed:              {notify.Appellant, notify.Representative},
	classify.AppealDormant:             {notify.Appellant, notify.Representative},
	classify.AppealWithdrawn:           {notify.Appellant, notify.Representative},
	classify.DirectionIssued:           {notify.Appellant, notify.Representative, notify.JointParty},
	classify.DirectionIssuedWelsh:      {notify.Appellant, notify.Representative, notify.JointParty},
	classify.DecisionIssued:            {notify.Appellant, notify.Representative, notify.JointParty},
	classify.DecisionIssuedWelsh:       {notify.Appellant, notify.Representative, notify.JointParty},
	classify.IssueFinalDecision:        {notify.Appellant, notify.Representative, notify.JointParty},
	classify.IssueFinalDecisionWelsh:   {notify.Appellant, notify.Representative, notify.JointParty},
	classify.IssueAdjournmentNotice:    {notify.Appellant, notify.Representative, notify.JointParty},
	classify.AdjournmentNoticeWelsh:    {notify.Appellant, notify.Representative, notify.JointParty},
	classify.JointPartyAdded:           {notify.JointParty},
	classify.SubscriptionUpdated:       {notify.Appellant, notify.Representative, notify.JointParty},
}

// dormantAllowed lists the event types that still notify a dormant case.
// Letter-only types are allow-listed through their property flag.
var dormantAllowed = map[classify.EventType]bool{
	classify.AppealLapsed:  true,
	classify.AppealDormant: true,
}

// Applies reports whether the event type addresses anyone at all on this
// snapshot, before any per-role checks. Hearing-booked style events require
// an oral hearing listed through list assist; the legacy route suppresses
// them entirely.
func Applies(et classify.EventType, snap *notify.CaseSnapshot) bool {
	if _, ok := applicability[et]; !ok {
		return false
	}

	props := classify.Props(et)
	if props.RequiresOralHearing {
		if snap.HearingType != notify.Oral || snap.HearingRoute != notify.ListAssist {
			return false
		}
	}

	if snap.State == notify.StateDormant {
		return dormantAllowed[et] || props.LetterOnly
	}

	return true
}

// Resolve returns the ordered set of roles eligible for an event on a case.
// Eligibility here is structural: a role may still drop out later if no
// channel qualifies, and that absence is not an error.
func Resolve(et classify.EventType, snap *notify.CaseSnapshot) []notify.Role {
	if !Applies(et, snap) {
		return nil
	}

	var roles []notify.Role
	for _, role := range applicability[et] {
		switch role {
		case notify.Appellant:
			// The appellant is structurally present on every case but is
			// masked by an appointee: the appointee receives the
			// appellant-directed notice using the appellant's case facts and
			// the appointee's own subscription.
			if snap.HasAppointee {
				roles = append(roles, notify.Appointee)
			} else {
				roles = append(roles, notify.Appellant)
			}
		case notify.Representative:
			if snap.HasRepresentative {
				roles = append(roles, role)
			}
		case notify.JointParty:
			if snap.HasJointParty {
				roles = append(roles, role)
			}
		case notify.Appointee:
			// Never listed directly; reached only through masking.
		}
	}

	return roles
}
