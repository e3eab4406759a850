// Package snapshot normalizes the case-management platform's raw case JSON
// into the immutable view the rest of the service works from.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tribunal-notifier/pkg/notify"
)

// rawCase mirrors the platform's case payload. Flags arrive as "yes"/"no"
// strings and whole blocks may be absent.
type rawCase struct {
	CaseID string `json:"case_id"`
	State  string `json:"state"`
	Appeal struct {
		HearingType       string `json:"hearing_type"`
		HearingRoute      string `json:"hearing_route"`
		LanguagePrefWelsh string `json:"language_preference_welsh"`
		BenefitType       struct {
			Code string `json:"code"`
		} `json:"benefit_type"`
		Rep struct {
			HasRepresentative string `json:"has_representative"`
		} `json:"rep"`
		Appellant struct {
			Appointee *struct {
				Name json.RawMessage `json:"name"`
			} `json:"appointee"`
			IsAppointee string `json:"is_appointee"`
		} `json:"appellant"`
	} `json:"appeal"`
	Hearing struct {
		HearingDate string `json:"hearing_date"`
	} `json:"hearing"`
	JointParty    string `json:"joint_party"`
	Subscriptions struct {
		Appellant  *rawSubscription `json:"appellant_subscription"`
		Appointee  *rawSubscription `json:"appointee_subscription"`
		Rep        *rawSubscription `json:"representative_subscription"`
		JointParty *rawSubscription `json:"joint_party_subscription"`
	} `json:"subscriptions"`
}

type rawSubscription struct {
	SubscribeEmail string `json:"subscribe_email"`
	SubscribeSms   string `json:"subscribe_sms"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
}

func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// Parse reads a raw platform case payload into a snapshot. A structurally
// unreadable payload is the one fatal condition; absent blocks and flags
// degrade to opt-out, never to an error.
func Parse(data []byte) (*notify.CaseSnapshot, error) {
	var raw rawCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal case payload: %w", err)
	}
	if raw.CaseID == "" {
		return nil, errors.New("case payload has no case_id")
	}

	snap := &notify.CaseSnapshot{
		CaseID:            raw.CaseID,
		State:             notify.CaseState(raw.State),
		HearingType:       notify.Oral,
		HearingRoute:      notify.Legacy,
		Language:          notify.English,
		BenefitCode:       raw.Appeal.BenefitType.Code,
		HasRepresentative: isYes(raw.Appeal.Rep.HasRepresentative),
		HasAppointee:      raw.Appeal.Appellant.Appointee != nil || isYes(raw.Appeal.Appellant.IsAppointee),
		HasJointParty:     isYes(raw.JointParty),
		Subscriptions:     make(map[notify.Role]notify.Subscription),
	}

	if strings.EqualFold(raw.Appeal.HearingType, string(notify.Paper)) {
		snap.HearingType = notify.Paper
	}
	if strings.EqualFold(raw.Appeal.HearingRoute, string(notify.ListAssist)) {
		snap.HearingRoute = notify.ListAssist
	}
	if isYes(raw.Appeal.LanguagePrefWelsh) {
		snap.Language = notify.Welsh
	}

	if raw.Hearing.HearingDate != "" {
		t, err := time.Parse(time.RFC3339, raw.Hearing.HearingDate)
		if err != nil {
			// A malformed date reads as no hearing scheduled.
			snap.HearingDate = time.Time{}
		} else {
			snap.HearingDate = t
		}
	}

	putSubscription(snap, notify.Appellant, raw.Subscriptions.Appellant)
	putSubscription(snap, notify.Appointee, raw.Subscriptions.Appointee)
	putSubscription(snap, notify.Representative, raw.Subscriptions.Rep)
	putSubscription(snap, notify.JointParty, raw.Subscriptions.JointParty)

	return snap, nil
}

func putSubscription(snap *notify.CaseSnapshot, role notify.Role, raw *rawSubscription) {
	if raw == nil {
		return // missing block reads as channel disabled
	}
	snap.Subscriptions[role] = notify.Subscription{
		EmailEnabled: isYes(raw.SubscribeEmail) && raw.Email != "",
		SmsEnabled:   isYes(raw.SubscribeSms) && raw.Mobile != "",
		Address:      raw.Email,
		Number:       raw.Mobile,
	}
}
