package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"tribunal-notifier/pkg/notify"
)

// fakeProvider records calls and fails on demand.
type fakeProvider struct {
	emails  []string
	sms     []string
	letters []string
	failOn  string
}

func (f *fakeProvider) SendEmail(_ context.Context, templateID, address string, _ map[string]string, _ string) error {
	if templateID == f.failOn {
		return errors.New("gateway unavailable")
	}
	f.emails = append(f.emails, templateID+"->"+address)
	return nil
}

func (f *fakeProvider) SendSms(_ context.Context, templateID, number string, _ map[string]string, _, _ string) error {
	if templateID == f.failOn {
		return errors.New("gateway unavailable")
	}
	f.sms = append(f.sms, templateID+"->"+number)
	return nil
}

func (f *fakeProvider) SendLetter(_ context.Context, templateID string, _ map[string]string, _ string) error {
	if templateID == f.failOn {
		return errors.New("gateway unavailable")
	}
	f.letters = append(f.letters, templateID)
	return nil
}

func (f *fakeProvider) SendPrecompiledLetter(_ context.Context, reference string, _ []byte) error {
	f.letters = append(f.letters, "precompiled:"+reference)
	return nil
}

func testPlan() *notify.DispatchPlan {
	return &notify.DispatchPlan{
		CaseID: "case-1",
		Event:  "appealReceived",
		Instructions: []notify.RecipientInstruction{
			{Role: notify.Appellant, Channel: notify.Email, TemplateID: "appealReceived.appellant.email"},
			{Role: notify.Appellant, Channel: notify.SMS, TemplateID: "appealReceived.appellant.sms"},
			{Role: notify.Representative, Channel: notify.Email, TemplateID: "appealReceived.rep.email"},
		},
	}
}

func testSnap() *notify.CaseSnapshot {
	return &notify.CaseSnapshot{
		CaseID: "case-1",
		Subscriptions: map[notify.Role]notify.Subscription{
			notify.Appellant:      {Address: "a@example.com", Number: "07700900001"},
			notify.Representative: {Address: "r@example.com"},
		},
	}
}

func TestDispatchRoutesByChannel(t *testing.T) {
	prov := &fakeProvider{}
	d := New(prov, slog.New(slog.NewTextHandler(io.Discard, nil)))

	results := d.Dispatch(context.Background(), testPlan(), testSnap())
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("Unexpected error for %v: %v", res.Instruction, res.Err)
		}
		if !strings.HasPrefix(res.Reference, "case-1-") {
			t.Errorf("Expected case-scoped reference, got %q", res.Reference)
		}
	}

	if len(prov.emails) != 2 || prov.emails[0] != "appealReceived.appellant.email->a@example.com" {
		t.Errorf("Unexpected email calls: %v", prov.emails)
	}
	if len(prov.sms) != 1 || prov.sms[0] != "appealReceived.appellant.sms->07700900001" {
		t.Errorf("Unexpected sms calls: %v", prov.sms)
	}
}

func TestFailedInstructionDoesNotAbortSiblings(t *testing.T) {
	prov := &fakeProvider{failOn: "appealReceived.appellant.sms"}
	d := New(prov, slog.New(slog.NewTextHandler(io.Discard, nil)))

	results := d.Dispatch(context.Background(), testPlan(), testSnap())
	if len(results) != 3 {
		t.Fatalf("Expected all 3 instructions attempted, got %d", len(results))
	}
	if results[1].Err == nil {
		t.Error("Expected the failing sms instruction to record its error")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("Expected sibling instructions to succeed")
	}
	if len(prov.emails) != 2 {
		t.Errorf("Expected both emails delivered despite sms failure, got %v", prov.emails)
	}
}

// A letter instruction carrying document bytes goes out as a precompiled
// PDF, not as a templated letter.
func TestDocumentLetterRoutesToPrecompiledSend(t *testing.T) {
	prov := &fakeProvider{}
	d := New(prov, slog.New(slog.NewTextHandler(io.Discard, nil)))

	plan := &notify.DispatchPlan{
		CaseID: "case-1",
		Event:  "issueFinalDecision",
		Instructions: []notify.RecipientInstruction{
			{Role: notify.Appellant, Channel: notify.Letter, TemplateID: "finalDecision.letter"},
			{Role: notify.Appellant, Channel: notify.Letter, Document: []byte("%PDF-1.7 decision")},
		},
	}

	results := d.Dispatch(context.Background(), plan, testSnap())
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("Unexpected error: %v", res.Err)
		}
	}

	if len(prov.letters) != 2 {
		t.Fatalf("Expected 2 letter sends, got %v", prov.letters)
	}
	if prov.letters[0] != "finalDecision.letter" {
		t.Errorf("Expected the templated letter first, got %q", prov.letters[0])
	}
	if !strings.HasPrefix(prov.letters[1], "precompiled:case-1-") {
		t.Errorf("Expected the document to route to the precompiled send, got %q", prov.letters[1])
	}
}

func TestEveryReferenceIsUnique(t *testing.T) {
	prov := &fakeProvider{}
	d := New(prov, slog.New(slog.NewTextHandler(io.Discard, nil)))

	results := d.Dispatch(context.Background(), testPlan(), testSnap())
	seen := make(map[string]bool)
	for _, res := range results {
		if seen[res.Reference] {
			t.Errorf("Duplicate reference %q", res.Reference)
		}
		seen[res.Reference] = true
	}
}
