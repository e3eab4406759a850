package template

import (
	"testing"

	"tribunal-notifier/classify"
	"tribunal-notifier/pkg/notify"
)

func subscribedSnapshot(lang notify.Language) *notify.CaseSnapshot {
	return &notify.CaseSnapshot{
		CaseID:   "1234567890",
		State:    notify.StateValid,
		Language: lang,
		Subscriptions: map[notify.Role]notify.Subscription{
			notify.Appellant:      {EmailEnabled: true, SmsEnabled: true, Address: "a@example.com", Number: "07700900001"},
			notify.Appointee:      {EmailEnabled: true, SmsEnabled: false, Address: "g@example.com"},
			notify.Representative: {EmailEnabled: true, SmsEnabled: true, Address: "r@example.com", Number: "07700900002"},
			notify.JointParty:     {EmailEnabled: false, SmsEnabled: true, Number: "07700900003"},
		},
	}
}

func channels(out []notify.ChannelTemplate) []notify.Channel {
	var cs []notify.Channel
	for _, ct := range out {
		cs = append(cs, ct.Channel)
	}
	return cs
}

func TestSelectSubscriptionGating(t *testing.T) {
	snap := subscribedSnapshot(notify.English)

	out := Select(notify.Appellant, classify.AppealReceived, snap)
	if len(out) != 2 || out[0].Channel != notify.Email || out[1].Channel != notify.SMS {
		t.Fatalf("Expected [email sms], got %v", channels(out))
	}
	if out[0].TemplateID != "appealReceived.appellant.email" {
		t.Errorf("Unexpected email template %q", out[0].TemplateID)
	}

	// Joint party only subscribed to SMS.
	out = Select(notify.JointParty, classify.EvidenceReceived, snap)
	if len(out) != 1 || out[0].Channel != notify.SMS {
		t.Fatalf("Expected [sms], got %v", channels(out))
	}

	// No subscription block at all: no email, no SMS.
	bare := &notify.CaseSnapshot{CaseID: "x", Language: notify.English}
	if out := Select(notify.Appellant, classify.AppealReceived, bare); out != nil {
		t.Errorf("Expected nothing for an unsubscribed role, got %v", out)
	}
}

// The appointee receives the appellant-directed templates through the
// appellant's matrix row but their own subscription.
func TestAppointeeUsesAppellantRow(t *testing.T) {
	snap := subscribedSnapshot(notify.English)

	out := Select(notify.Appointee, classify.AppealReceived, snap)
	if len(out) != 1 {
		t.Fatalf("Expected 1 channel (appointee has no SMS), got %v", channels(out))
	}
	if out[0].Channel != notify.Email || out[0].TemplateID != "appealReceived.appellant.email" {
		t.Errorf("Expected appellant email template, got %+v", out[0])
	}
}

func TestLetterOnlyBypassesSubscriptions(t *testing.T) {
	// Withdrawn on an entirely unsubscribed case still produces the letter.
	bare := &notify.CaseSnapshot{CaseID: "x", Language: notify.English}
	out := Select(notify.Appellant, classify.AppealWithdrawn, bare)
	if len(out) != 1 || out[0].Channel != notify.Letter || out[0].TemplateID != "appealWithdrawn.letter" {
		t.Fatalf("Expected the withdrawal letter, got %v", out)
	}

	// And an active subscription never adds email or SMS to a letter-only type.
	out = Select(notify.Appellant, classify.AppealWithdrawn, subscribedSnapshot(notify.English))
	if len(out) != 1 || out[0].Channel != notify.Letter {
		t.Fatalf("Expected only the letter despite subscriptions, got %v", channels(out))
	}
}

func TestWelshTemplatesAreDistinctIDs(t *testing.T) {
	en := Select(notify.Appellant, classify.AppealReceived, subscribedSnapshot(notify.English))
	cy := Select(notify.Appellant, classify.AppealReceived, subscribedSnapshot(notify.Welsh))
	if len(en) != 2 || len(cy) != 2 {
		t.Fatalf("Expected 2 channels each, got %d and %d", len(en), len(cy))
	}
	for i := range en {
		if en[i].TemplateID == cy[i].TemplateID {
			t.Errorf("Expected distinct Welsh id, both %q", en[i].TemplateID)
		}
	}
}

// A Welsh decision notice carries both documents in one letter dispatch,
// Welsh first, never Welsh alone.
func TestWelshNoticeBundlesEnglishDocument(t *testing.T) {
	snap := subscribedSnapshot(notify.Welsh)

	out := Select(notify.Appellant, classify.DecisionIssuedWelsh, snap)
	if len(out) != 2 {
		t.Fatalf("Expected 2 letters, got %v", out)
	}
	if out[0].TemplateID != "decisionIssued.letter.cy" || out[1].TemplateID != "decisionIssued.letter" {
		t.Errorf("Expected Welsh then English documents, got %q, %q", out[0].TemplateID, out[1].TemplateID)
	}
	for _, ct := range out {
		if ct.Channel != notify.Letter {
			t.Errorf("Expected letter channel, got %v", ct.Channel)
		}
	}
}

// A Welsh case whose cell is missing from the matrix falls back to the
// English templates rather than going silent. Only the appellant rows carry
// Welsh ids for these events; the fallback for the other roles is deliberate.
func TestWelshFallsBackToEnglish(t *testing.T) {
	snap := subscribedSnapshot(notify.Welsh)

	tests := []struct {
		name      string
		role      notify.Role
		et        classify.EventType
		wantFirst string
	}{
		{"evidence received rep", notify.Representative, classify.EvidenceReceived, "evidenceReceived.rep.email"},
		{"hearing adjourned rep", notify.Representative, classify.HearingAdjourned, "hearingAdjourned.rep.email"},
		{"hearing adjourned joint party", notify.JointParty, classify.HearingAdjourned, "hearingAdjourned.jointParty.sms"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Select(tc.role, tc.et, snap)
			if len(out) == 0 {
				t.Fatal("Expected English fallback templates, got nothing")
			}
			if out[0].TemplateID != tc.wantFirst {
				t.Errorf("Expected %q, got %q", tc.wantFirst, out[0].TemplateID)
			}
		})
	}
}

// The draft-transition type has no matrix rows of its own beyond the
// appellant; everything else resolves through its base variant.
func TestBaseVariantFallback(t *testing.T) {
	snap := subscribedSnapshot(notify.English)

	out := Select(notify.Appellant, classify.DraftToValidAppealCreated, snap)
	if len(out) != 2 || out[0].TemplateID != "appealCreated.appellant.email" {
		t.Fatalf("Expected appeal-created templates, got %v", out)
	}
}

func TestUnknownCellYieldsNothing(t *testing.T) {
	snap := subscribedSnapshot(notify.English)
	if out := Select(notify.JointParty, classify.AppealReceived, snap); out != nil {
		t.Errorf("Expected no templates for an unaddressed role, got %v", out)
	}
	if out := Select(notify.Appellant, classify.EventType("struckOut"), snap); out != nil {
		t.Errorf("Expected no templates for an unknown type, got %v", out)
	}
}
