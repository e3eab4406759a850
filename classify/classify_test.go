package classify

import (
	"testing"
	"time"

	"tribunal-notifier/pkg/notify"
)

func TestClassifyKnownEvents(t *testing.T) {
	tests := []struct {
		raw      string
		oldState notify.CaseState
		want     []EventType
	}{
		{"appealReceived", notify.StateValid, []EventType{AppealReceived}},
		{"hearingBooked", notify.StateReadyList, []EventType{HearingBooked}},
		{"validAppealCreated", notify.StateValid, []EventType{ValidAppealCreated}},
		{"subscriptionUpdated", "", []EventType{SubscriptionUpdated}},
	}

	for _, tc := range tests {
		got := Classify(tc.raw, tc.oldState)
		if len(got) != len(tc.want) {
			t.Errorf("Classify(%q, %q): expected %v, got %v", tc.raw, tc.oldState, tc.want, got)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Classify(%q, %q): expected %v, got %v", tc.raw, tc.oldState, tc.want, got)
			}
		}
	}
}

func TestClassifyUnknownEventYieldsNothing(t *testing.T) {
	if got := Classify("struckOut", notify.StateValid); got != nil {
		t.Errorf("Expected no classification for unknown event, got %v", got)
	}
	if got := Classify("", ""); got != nil {
		t.Errorf("Expected no classification for empty event, got %v", got)
	}
}

func TestClassifyDraftTransition(t *testing.T) {
	got := Classify("validAppealCreated", notify.StateDraft)
	if len(got) != 1 || got[0] != DraftToValidAppealCreated {
		t.Errorf("Expected draft transition to classify as %v, got %v", DraftToValidAppealCreated, got)
	}

	// Any other prior state keeps the plain classification.
	got = Classify("validAppealCreated", notify.StateWithDWP)
	if len(got) != 1 || got[0] != ValidAppealCreated {
		t.Errorf("Expected plain classification, got %v", got)
	}
}

// The platform's Welsh raw ids classify to their base types; the Welsh
// variant is substituted downstream from the case's language preference.
func TestWelshRawIDsClassifyToBaseTypes(t *testing.T) {
	tests := []struct {
		raw  string
		want EventType
	}{
		{"directionIssuedWelsh", DirectionIssued},
		{"decisionIssuedWelsh", DecisionIssued},
		{"issueFinalDecisionWelsh", IssueFinalDecision},
		{"issueAdjournmentNoticeWelsh", IssueAdjournmentNotice},
	}

	for _, tc := range tests {
		got := Classify(tc.raw, "")
		if len(got) != 1 || got[0] != tc.want {
			t.Errorf("Classify(%q): expected [%v], got %v", tc.raw, tc.want, got)
		}
	}
}

func TestForLanguage(t *testing.T) {
	tests := []struct {
		et   EventType
		lang notify.Language
		want EventType
	}{
		{DirectionIssued, notify.Welsh, DirectionIssuedWelsh},
		{DirectionIssued, notify.English, DirectionIssued},
		{IssueFinalDecision, notify.Welsh, IssueFinalDecisionWelsh},
		{AppealReceived, notify.Welsh, AppealReceived}, // no variant
		{DirectionIssuedWelsh, notify.Welsh, DirectionIssuedWelsh},
	}

	for _, tc := range tests {
		if got := ForLanguage(tc.et, tc.lang); got != tc.want {
			t.Errorf("ForLanguage(%v, %v): expected %v, got %v", tc.et, tc.lang, tc.want, got)
		}
	}
}

func TestPropertyTableCells(t *testing.T) {
	if d := Props(ValidAppealCreated).Delay; d != 5*time.Minute {
		t.Errorf("Expected 5m delay on valid-appeal creation, got %v", d)
	}

	p := Props(AppealReceived)
	if p.ReminderGroup != hearingReminderGroup {
		t.Errorf("Expected hearing reminder group, got %q", p.ReminderGroup)
	}
	if len(p.ReminderOffsets) != 2 || p.ReminderOffsets[0] != 14*24*time.Hour || p.ReminderOffsets[1] != 2*24*time.Hour {
		t.Errorf("Unexpected reminder offsets: %v", p.ReminderOffsets)
	}

	if !Props(HearingBooked).RequiresOralHearing {
		t.Error("Expected hearing-booked to require an oral hearing")
	}
	if !Props(HearingReminder).AllowOutOfHours {
		t.Error("Expected hearing reminders to bypass the hours gate")
	}

	for _, et := range []EventType{HearingPostponed, HearingAdjourned} {
		groups := Props(et).CancelsGroups
		if len(groups) != 1 || groups[0] != hearingReminderGroup {
			t.Errorf("%v: expected cancellation of hearing reminders, got %v", et, groups)
		}
	}

	for _, et := range []EventType{AppealWithdrawn, DirectionIssued, DecisionIssued, JointPartyAdded} {
		if !Props(et).LetterOnly {
			t.Errorf("Expected %v to be letter-only", et)
		}
	}
}

func TestWelshPairingIsSymmetric(t *testing.T) {
	for et, p := range properties {
		if p.WelshVariant != "" {
			if back := Props(p.WelshVariant).BaseVariant; back != et {
				t.Errorf("%v pairs to %v which points back at %v", et, p.WelshVariant, back)
			}
		}
	}
}

func TestKnown(t *testing.T) {
	if !Known(HearingReminder) {
		t.Error("Expected hearingReminder to be in the enumeration")
	}
	if Known(EventType("struckOut")) {
		t.Error("Expected struckOut to be outside the enumeration")
	}
}
