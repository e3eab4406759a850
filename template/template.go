// Package template selects delivery channels and template identifiers for a
// resolved (role, event) pair. The per-(event, role, language) lookups are
// literal tables so the matrix stays auditable cell by cell.
package template

import (
	"tribunal-notifier/classify"
	"tribunal-notifier/pkg/notify"
)

type key struct {
	Event classify.EventType
	Role  notify.Role
	Lang  notify.Language
}

// Set is one cell of the template matrix. Email and SMS carry at most one
// template each; letters may carry zero, one or two documents per role.
type Set struct {
	Email   string
	SMS     string
	Letters []string
}

// table is the authoritative template matrix. Welsh ids are distinct
// identifiers, not a translation flag on the English id. Appointee rows are
// absent on purpose: the appointee receives the appellant-directed templates
// through masking.
var table = map[key]Set{
	// Appeal creation.
	{classify.ValidAppealCreated, notify.Appellant, notify.English}:      {Email: "appealCreated.appellant.email", SMS: "appealCreated.appellant.sms"},
	{classify.ValidAppealCreated, notify.Appellant, notify.Welsh}:        {Email: "appealCreated.appellant.email.cy", SMS: "appealCreated.appellant.sms.cy"},
	{classify.ValidAppealCreated, notify.Representative, notify.English}: {Email: "appealCreated.rep.email", SMS: "appealCreated.rep.sms"},
	{classify.ValidAppealCreated, notify.Representative, notify.Welsh}:   {Email: "appealCreated.rep.email.cy", SMS: "appealCreated.rep.sms.cy"},
	{classify.DraftToValidAppealCreated, notify.Appellant, notify.English}: {Email: "appealCreated.appellant.email", SMS: "appealCreated.appellant.sms"},
	{classify.DraftToValidAppealCreated, notify.Appellant, notify.Welsh}:   {Email: "appealCreated.appellant.email.cy", SMS: "appealCreated.appellant.sms.cy"},

	// Appeal received.
	{classify.AppealReceived, notify.Appellant, notify.English}:      {Email: "appealReceived.appellant.email", SMS: "appealReceived.appellant.sms"},
	{classify.AppealReceived, notify.Appellant, notify.Welsh}:        {Email: "appealReceived.appellant.email.cy", SMS: "appealReceived.appellant.sms.cy"},
	{classify.AppealReceived, notify.Representative, notify.English}: {Email: "appealReceived.rep.email", SMS: "appealReceived.rep.sms"},
	{classify.AppealReceived, notify.Representative, notify.Welsh}:   {Email: "appealReceived.rep.email.cy", SMS: "appealReceived.rep.sms.cy"},

	// Evidence.
	{classify.EvidenceReceived, notify.Appellant, notify.English}:      {Email: "evidenceReceived.appellant.email", SMS: "evidenceReceived.appellant.sms"},
	{classify.EvidenceReceived, notify.Appellant, notify.Welsh}:        {Email: "evidenceReceived.appellant.email.cy", SMS: "evidenceReceived.appellant.sms.cy"},
	{classify.EvidenceReceived, notify.Representative, notify.English}: {Email: "evidenceReceived.rep.email", SMS: "evidenceReceived.rep.sms"},
	{classify.EvidenceReceived, notify.JointParty, notify.English}:     {Email: "evidenceReceived.jointParty.email", SMS: "evidenceReceived.jointParty.sms"},
	{classify.EvidenceReminder, notify.Appellant, notify.English}:      {Email: "evidenceReminder.appellant.email", SMS: "evidenceReminder.appellant.sms"},
	{classify.EvidenceReminder, notify.Appellant, notify.Welsh}:        {Email: "evidenceReminder.appellant.email.cy", SMS: "evidenceReminder.appellant.sms.cy"},
	{classify.EvidenceReminder, notify.Representative, notify.English}: {Email: "evidenceReminder.rep.email", SMS: "evidenceReminder.rep.sms"},
	{classify.EvidenceReminder, notify.JointParty, notify.English}:     {Email: "evidenceReminder.jointParty.email", SMS: "evidenceReminder.jointParty.sms"},

	// Hearings.
	{classify.HearingBooked, notify.Appellant, notify.English}:         {Email: "hearingBooked.appellant.email", SMS: "hearingBooked.appellant.sms"},
	{classify.HearingBooked, notify.Appellant, notify.Welsh}:           {Email: "hearingBooked.appellant.email.cy", SMS: "hearingBooked.appellant.sms.cy"},
	{classify.HearingBooked, notify.Representative, notify.English}:    {Email: "hearingBooked.rep.email", SMS: "hearingBooked.rep.sms"},
	{classify.HearingReminder, notify.Appellant, notify.English}:       {Email: "hearingReminder.appellant.email", SMS: "hearingReminder.appellant.sms"},
	{classify.HearingReminder, notify.Appellant, notify.Welsh}:         {Email: "hearingReminder.appellant.email.cy", SMS: "hearingReminder.appellant.sms.cy"},
	{classify.HearingReminder, notify.Representative, notify.English}:  {Email: "hearingReminder.rep.email", SMS: "hearingReminder.rep.sms"},
	{classify.HearingPostponed, notify.Appellant, notify.English}:      {Email: "hearingPostponed.appellant.email", SMS: "hearingPostponed.appellant.sms"},
	{classify.HearingPostponed, notify.Appellant, notify.Welsh}:        {Email: "hearingPostponed.appellant.email.cy", SMS: "hearingPostponed.appellant.sms.cy"},
	{classify.HearingPostponed, notify.Representative, notify.English}: {Email: "hearingPostponed.rep.email", SMS: "hearingPostponed.rep.sms"},
	{classify.HearingPostponed, notify.JointParty, notify.English}:     {Email: "hearingPostponed.jointParty.email", SMS: "hearingPostponed.jointParty.sms"},
	{classify.HearingAdjourned, notify.Appellant, notify.English}:      {Email: "hearingAdjourned.appellant.email", SMS: "hearingAdjourned.appellant.sms"},
	{classify.HearingAdjourned, notify.Representative, notify.English}: {Email: "hearingAdjourned.rep.email", SMS: "hearingAdjourned.rep.sms"},
	{classify.HearingAdjourned, notify.JointParty, notify.English}:     {Email: "hearingAdjourned.jointParty.email", SMS: "hearingAdjourned.jointParty.sms"},

	// Terminal states.
	{classify.AppealLapsed, notify.Appellant, notify.English}:         {Email: "appealLapsed.appellant.email", SMS: "appealLapsed.appellant.sms"},
	{classify.AppealLapsed, notify.Appellant, notify.Welsh}:           {Email: "appealLapsed.appellant.email.cy", SMS: "appealLapsed.appellant.sms.cy"},
	{classify.AppealLapsed, notify.Representative, notify.English}:    {Email: "appealLapsed.rep.email", SMS: "appealLapsed.rep.sms"},
	{classify.AppealDormant, notify.Appellant, notify.English}:        {Email: "appealDormant.appellant.email", SMS: "appealDormant.appellant.sms"},
	{classify.AppealDormant, notify.Representative, notify.English}:   {Email: "appealDormant.rep.email", SMS: "appealDormant.rep.sms"},
	{classify.AppealWithdrawn, notify.Appellant, notify.English}:      {Letters: []string{"appealWithdrawn.letter"}},
	{classify.AppealWithdrawn, notify.Appellant, notify.Welsh}:        {Letters: []string{"appealWithdrawn.letter.cy"}},
	{classify.AppealWithdrawn, notify.Representative, notify.English}: {Letters: []string{"appealWithdrawn.letter"}},

	// Directions and decisions. Welsh notices always bundle the English
	// document alongside the Welsh one, never Welsh alone.
	{classify.DirectionIssued, notify.Appellant, notify.English}:              {Letters: []string{"directionIssued.letter"}},
	{classify.DirectionIssued, notify.Representative, notify.English}:         {Letters: []string{"directionIssued.letter"}},
	{classify.DirectionIssued, notify.JointParty, notify.English}:             {Letters: []string{"directionIssued.letter"}},
	{classify.DirectionIssuedWelsh, notify.Appellant, notify.Welsh}:           {Letters: []string{"directionIssued.letter.cy", "directionIssued.letter"}},
	{classify.DirectionIssuedWelsh, notify.Representative, notify.Welsh}:      {Letters: []string{"directionIssued.letter.cy", "directionIssued.letter"}},
	{classify.DirectionIssuedWelsh, notify.JointParty, notify.Welsh}:          {Letters: []string{"directionIssued.letter.cy", "directionIssued.letter"}},
	{classify.DecisionIssued, notify.Appellant, notify.English}:               {Letters: []string{"decisionIssued.letter"}},
	{classify.DecisionIssued, notify.Representative, notify.English}:          {Letters: []string{"decisionIssued.letter"}},
	{classify.DecisionIssued, notify.JointParty, notify.English}:              {Letters: []string{"decisionIssued.letter"}},
	{classify.DecisionIssuedWelsh, notify.Appellant, notify.Welsh}:            {Letters: []string{"decisionIssued.letter.cy", "decisionIssued.letter"}},
	{classify.DecisionIssuedWelsh, notify.Representative, notify.Welsh}:       {Letters: []string{"decisionIssued.letter.cy", "decisionIssued.letter"}},
	{classify.DecisionIssuedWelsh, notify.JointParty, notify.Welsh}:           {Letters: []string{"decisionIssued.letter.cy", "decisionIssued.letter"}},
	{classify.IssueFinalDecision, notify.Appellant, notify.English}:           {Email: "finalDecision.appellant.email", Letters: []string{"finalDecision.letter"}},
	{classify.IssueFinalDecision, notify.Representative, notify.English}:      {Email: "finalDecision.rep.email", Letters: []string{"finalDecision.letter"}},
	{classify.IssueFinalDecision, notify.JointParty, notify.English}:          {Email: "finalDecision.jointParty.email", Letters: []string{"finalDecision.letter"}},
	{classify.IssueFinalDecisionWelsh, notify.Appellant, notify.Welsh}:        {Email: "finalDecision.appellant.email.cy", Letters: []string{"finalDecision.letter.cy", "finalDecision.letter"}},
	{classify.IssueFinalDecisionWelsh, notify.Representative, notify.Welsh}:   {Email: "finalDecision.rep.email.cy", Letters: []string{"finalDecision.letter.cy", "finalDecision.letter"}},
	{classify.IssueFinalDecisionWelsh, notify.JointParty, notify.Welsh}:       {Email: "finalDecision.jointParty.email.cy", Letters: []string{"finalDecision.letter.cy", "finalDecision.letter"}},
	{classify.IssueAdjournmentNotice, notify.Appellant, notify.English}:       {Email: "adjournmentNotice.appellant.email", Letters: []string{"adjournmentNotice.letter"}},
	{classify.IssueAdjournmentNotice, notify.Representative, notify.English}:  {Email: "adjournmentNotice.rep.email", Letters: []string{"adjournmentNotice.letter"}},
	{classify.IssueAdjournmentNotice, notify.JointParty, notify.English}:      {Email: "adjournmentNotice.jointParty.email", Letters: []string{"adjournmentNotice.letter"}},
	{classify.AdjournmentNoticeWelsh, notify.Appellant, notify.Welsh}:         {Email: "adjournmentNotice.appellant.email.cy", Letters: []string{"adjournmentNotice.letter.cy", "adjournmentNotice.letter"}},
	{classify.AdjournmentNoticeWelsh, notify.Representative, notify.Welsh}:    {Email: "adjournmentNotice.rep.email.cy", Letters: []string{"adjournmentNotice.letter.cy", "adjournmentNotice.letter"}},
	{classify.AdjournmentNoticeWelsh, notify.JointParty, notify.Welsh}:        {Email: "adjournmentNotice.jointParty.email.cy", Letters: []string{"adjournmentNotice.letter.cy", "adjournmentNotice.letter"}},

	// Party and subscription changes.
	{classify.JointPartyAdded, notify.JointParty, notify.English}:          {Letters: []string{"jointPartyAdded.letter"}},
	{classify.JointPartyAdded, notify.JointParty, notify.Welsh}:            {Letters: []string{"jointPartyAdded.letter.cy"}},
	{classify.SubscriptionUpdated, notify.Appellant, notify.English}:       {Email: "subscriptionUpdated.email"},
	{classify.SubscriptionUpdated, notify.Representative, notify.English}:  {Email: "subscriptionUpdated.email"},
	{classify.SubscriptionUpdated, notify.JointParty, notify.English}:      {Email: "subscriptionUpdated.email"},
}

// lookup resolves the matrix cell for (event, role, language) with the
// fallback chain the matrix relies on: appointee rows fall back to the
// appellant's, Welsh lookups fall back to English, and Welsh-variant types
// fall back to their base type.
func lookup(et classify.EventType, role notify.Role, lang notify.Language) (Set, bool) {
	roleKey := role
	if role == notify.Appointee {
		roleKey = notify.Appellant
	}

	if set, ok := table[key{et, roleKey, lang}]; ok {
		return set, true
	}
	if lang != notify.English {
		if set, ok := table[key{et, roleKey, notify.English}]; ok {
			return set, true
		}
	}
	if base := classify.Props(et).BaseVariant; base != "" {
		return lookup(base, role, lang)
	}
	return Set{}, false
}

// Select determines which channels apply for a role on an event, and which
// template goes out on each. Email and SMS are gated on the role's
// subscription; letters bypass the subscription gate entirely. Output order
// is email, sms, letters.
func Select(role notify.Role, et classify.EventType, snap *notify.CaseSnapshot) []notify.ChannelTemplate {
	set, ok := lookup(et, role, snap.Language)
	if !ok {
		return nil
	}

	props := classify.Props(et)
	sub := snap.SubscriptionFor(role)

	var out []notify.ChannelTemplate
	if !props.LetterOnly {
		if set.Email != "" && sub.EmailEnabled {
			out = append(out, notify.ChannelTemplate{Channel: notify.Email, TemplateID: set.Email})
		}
		if set.SMS != "" && sub.SmsEnabled {
			out = append(out, notify.ChannelTemplate{Channel: notify.SMS, TemplateID: set.SMS})
		}
	}
	for _, letter := range set.Letters {
		out = append(out, notify.ChannelTemplate{Channel: notify.Letter, TemplateID: letter})
	}

	return out
}
