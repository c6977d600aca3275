package documents

import "time"

// Action names a lifecycle transition.
type Action string

const (
	ActionPost    Action = "post"
	ActionApprove Action = "approve"
	ActionSend    Action = "send"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from []Status
	to   Status
}

type family int

const (
	familyInvoice family = iota
	familyReturn
	familyProposal
)

func familyOf(k Kind) family {
	switch {
	case k.IsProposal():
		return familyProposal
	case k.IsReturn():
		return familyReturn
	default:
		return familyInvoice
	}
}

var transitions = map[family]map[Action]transition{
	familyInvoice: {
		ActionPost:   {from: []Status{StatusDraft}, to: StatusPosted},
		ActionCancel: {from: []Status{StatusDraft, StatusPosted}, to: StatusCancelled},
	},
	familyReturn: {
		ActionApprove: {from: []Status{StatusDraft}, to: StatusApproved},
		ActionCancel:  {from: []Status{StatusDraft, StatusApproved}, to: StatusCancelled},
	},
	familyProposal: {
		ActionSend:   {from: []Status{StatusDraft}, to: StatusSent},
		ActionAccept: {from: []Status{StatusSent}, to: StatusAccepted},
		ActionReject: {from: []Status{StatusSent}, to: StatusRejected},
		ActionCancel: {from: []Status{StatusDraft, StatusSent}, to: StatusCancelled},
	},
}

var terminal = map[family]map[Status]bool{
	familyInvoice:  {StatusPaid: true, StatusCancelled: true},
	familyReturn:   {StatusPaid: true, StatusCancelled: true},
	familyProposal: {StatusAccepted: true, StatusRejected: true, StatusCancelled: true},
}

// NextStatus returns the status reached by applying action, or
// ErrInvalidTransition.
func NextStatus(k Kind, current Status, action Action) (Status, error) {
	t, ok := transitions[familyOf(k)][action]
	if !ok {
		return "", ErrInvalidTransition
	}
	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}
	return "", ErrInvalidTransition
}

// IsTerminal reports whether status closes the document for overdue purposes.
func IsTerminal(k Kind, status Status) bool {
	return terminal[familyOf(k)][status]
}

// TerminalStatuses lists the terminal statuses of k.
func TerminalStatuses(k Kind) []Status {
	set := terminal[familyOf(k)]
	out := make([]Status, 0, len(set))
	for _, s := range []Status{StatusPaid, StatusAccepted, StatusRejected, StatusCancelled} {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// DisplayStatus returns "overdue" when due is strictly before now and the
// status is not terminal; otherwise the stored status.
func DisplayStatus(k Kind, due time.Time, status Status, now time.Time) string {
	if !due.IsZero() && due.Before(now) && !IsTerminal(k, status) {
		return DisplayOverdue
	}
	return string(status)
}

// PaymentStatus returns the status after paid out of total has been settled.
func PaymentStatus(doc Document) Status {
	switch {
	case doc.Paid.IsZero():
		return doc.Status
	case doc.Paid.GreaterThanOrEqual(doc.Total):
		return StatusPaid
	default:
		return StatusPartial
	}
}

func payableStatus(k Kind, status Status) bool {
	switch status {
	case StatusPartial:
		return true
	case StatusPosted:
		return !k.IsReturn()
	case StatusApproved:
		return k.IsReturn()
	}
	return false
}
