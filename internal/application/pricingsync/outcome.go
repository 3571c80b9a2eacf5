package pricingsync

import (
	"time"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
)

// State is a step of a notification run
type State string

const (
	StateReceived            State = "received"
	StateCredentialsResolved State = "credentials_resolved"
	StateInputsFetched       State = "inputs_fetched"
	StateInputsValidated     State = "inputs_validated"
	StateConfigResolved      State = "config_resolved"
	StateComputed            State = "computed"
	StateWritten             State = "written"
	StateShortCircuited      State = "short_circuited"
	StateAcknowledged        State = "acknowledged"
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// OutcomeKind tells apart the three ways a run can end.
// Every kind is acknowledged to the sender.
type OutcomeKind string

const (
	// OutcomeSuccess means the run reached Written
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeShortCircuit means a gate stopped the run early
	OutcomeShortCircuit OutcomeKind = "short_circuit"
	// OutcomeFault means a collaborator failed or the run panicked
	OutcomeFault OutcomeKind = "fault"
)

// String returns the string representation of OutcomeKind
func (k OutcomeKind) String() string {
	return string(k)
}

// Reason explains a short-circuit or a fault
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonDuplicateDelivery    Reason = "duplicate_delivery"
	ReasonMalformedInput       Reason = "malformed_input"
	ReasonCredentialAbsent     Reason = "credential_absent"
	ReasonItemAbsent           Reason = "item_absent"
	ReasonRequiredInputAbsent  Reason = "required_input_absent"
	ReasonConfigurationAbsent  Reason = "configuration_absent"
	ReasonInvalidConfiguration Reason = "invalid_configuration"
	ReasonUnsupportedTopic     Reason = "unsupported_topic"
	ReasonTransportFault       Reason = "transport_fault"
	ReasonInternalFault        Reason = "internal_fault"
)

// String returns the string representation of Reason
func (r Reason) String() string {
	return string(r)
}

// Outcome is the result of one notification run
type Outcome struct {
	Topic      integration.Topic
	Shop       string
	ItemID     int64
	ItemRef    string
	DeliveryID string

	Kind   OutcomeKind
	Reason Reason
	Err    error

	// Trail lists every state entered, in order, ending with StateAcknowledged
	Trail []State

	Pricing  *pricing.DerivedPricing
	Written  []string
	Rejected []integration.FieldRejection

	StartedAt time.Time
	Duration  time.Duration
}

// FinalState returns the last state entered
func (o *Outcome) FinalState() State {
	if len(o.Trail) == 0 {
		return ""
	}
	return o.Trail[len(o.Trail)-1]
}

// Reached reports whether the run entered state
func (o *Outcome) Reached(state State) bool {
	for _, s := range o.Trail {
		if s == state {
			return true
		}
	}
	return false
}

// Acknowledged reports whether the run terminated in StateAcknowledged
func (o *Outcome) Acknowledged() bool {
	return o.FinalState() == StateAcknowledged
}

// IsSuccess returns true when the run reached Written without a gate or fault
func (o *Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// IsFault returns true when the run ended on a fault
func (o *Outcome) IsFault() bool {
	return o.Kind == OutcomeFault
}

// TrailStrings renders the trail for logs and archives
func (o *Outcome) TrailStrings() []string {
	out := make([]string, len(o.Trail))
	for i, s := range o.Trail {
		out[i] = s.String()
	}
	return out
}

// halt stops a run. It carries the outcome kind and reason.
type halt struct {
	kind   OutcomeKind
	reason Reason
	err    error
}

func (h *halt) Error() string {
	if h.err == nil {
		return string(h.reason)
	}
	return string(h.reason) + ": " + h.err.Error()
}

func (h *halt) Unwrap() error {
	return h.err
}

func shortCircuit(reason Reason, err error) error {
	return &halt{kind: OutcomeShortCircuit, reason: reason, err: err}
}

func fault(reason Reason, err error) error {
	return &halt{kind: OutcomeFault, reason: reason, err: err}
}
