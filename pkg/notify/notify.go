// Package notify contains the core domain types for the tribunal notification service.
package notify

import "time"

// Role identifies a case participant who may receive notifications.
type Role string

const (
	Appellant      Role = "appellant"
	Appointee      Role = "appointee"
	Representative Role = "representative"
	JointParty     Role = "jointParty"
)

// Channel is a delivery channel for a notification.
type Channel string

const (
	Email  Channel = "email"
	SMS    Channel = "sms"
	Letter Channel = "letter"
)

// Language is the case's notice language preference.
type Language string

const (
	English Language = "english"
	Welsh   Language = "welsh"
)

// HearingType distinguishes oral hearings from paper determinations.
type HearingType string

const (
	Oral  HearingType = "oral"
	Paper HearingType = "paper"
)

// HearingRoute is the listing system the hearing was booked through.
type HearingRoute string

const (
	Legacy     HearingRoute = "legacy"
	ListAssist HearingRoute = "listAssist"
)

// CaseState is the lifecycle state of the case record.
type CaseState string

const (
	StateDraft     CaseState = "draft"
	StateValid     CaseState = "validAppeal"
	StateWithDWP   CaseState = "withDwp"
	StateReadyList CaseState = "readyToList"
	StateHearing   CaseState = "hearing"
	StateDormant   CaseState = "dormantAppealState"
)

// Subscription holds a party's channel opt-ins. Address and Number are owned
// by the upstream platform; only the enabled flags drive recipient logic.
type Subscription struct {
	Address      string `json:"address,omitempty"`
	Number       string `json:"number,omitempty"`
	EmailEnabled bool   `json:"email_enabled"`
	SmsEnabled   bool   `json:"sms_enabled"`
}

// CaseSnapshot is a read-only view of the case record at event time. It is
// immutable for the duration of one event's processing; two passes over the
// same raw event with the same snapshot must produce the same plan.
type CaseSnapshot struct {
	Subscriptions     map[Role]Subscription `json:"subscriptions"`
	CaseID            string                `json:"case_id"`
	State             CaseState             `json:"state"`
	HearingType       HearingType           `json:"hearing_type"`
	HearingRoute      HearingRoute          `json:"hearing_route"`
	Language          Language              `json:"language"`
	BenefitCode       string                `json:"benefit_code"`
	HearingDate       time.Time             `json:"hearing_date,omitzero"`
	HasRepresentative bool                  `json:"has_representative"`
	HasAppointee      bool                  `json:"has_appointee"`
	HasJointParty     bool                  `json:"has_joint_party"`
}

// SubscriptionFor returns the subscription recorded for a role. A missing
// block reads as both channels disabled, never as an error.
func (s *CaseSnapshot) SubscriptionFor(role Role) Subscription {
	if s.Subscriptions == nil {
		return Subscription{}
	}
	return s.Subscriptions[role]
}

// ChannelTemplate pairs a delivery channel with the template to render on it.
type ChannelTemplate struct {
	Channel    Channel `json:"channel"`
	TemplateID string  `json:"template_id"`
}

// RecipientInstruction is one resolved delivery: a role, a channel, and the
// template to send, with any personalisation overrides. A letter instruction
// carrying Document bytes is a precompiled document-assembled PDF and goes
// out as-is instead of a templated letter.
type RecipientInstruction struct {
	Personalisation map[string]string `json:"personalisation,omitempty"`
	Role            Role              `json:"role"`
	Channel         Channel           `json:"channel"`
	TemplateID      string            `json:"template_id,omitempty"`
	Document        []byte            `json:"document,omitempty"`
}

// DispatchPlan is the resolved output for one event. Instructions are ordered
// and contain no duplicate (role, channel) pair. An empty plan is a
// legitimate, frequent outcome.
type DispatchPlan struct {
	CaseID       string                 `json:"case_id"`
	Event        string                 `json:"event"`
	Instructions []RecipientInstruction `json:"instructions"`
}

// IsEmpty reports whether the plan carries no instructions.
func (p *DispatchPlan) IsEmpty() bool { return len(p.Instructions) == 0 }

// DispatchResult records the outcome of one provider call. A failed
// instruction never aborts its siblings.
type DispatchResult struct {
	Instruction RecipientInstruction `json:"instruction"`
	Reference   string               `json:"reference"`
	Err         error                `json:"-"`
}

// ScheduledJob is a deferred unit of work owned by the scheduler. Identity
// for replace-on-schedule is (CaseID, GroupKey, Role).
type ScheduledJob struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	GroupKey  string    `json:"group_key"`
	Role      Role      `json:"role"`
	Event     string    `json:"event"`
	TriggerAt time.Time `json:"trigger_at"`
	Payload   []byte    `json:"payload,omitempty"`
}
