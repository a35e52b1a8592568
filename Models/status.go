package Models

type WorkOrderStatus string

const (
	StatusPending    WorkOrderStatus = "pending"
	StatusApproved   WorkOrderStatus = "approved"
	StatusAssigned   WorkOrderStatus = "assigned"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusOnHold     WorkOrderStatus = "on_hold"
	StatusCompleted  WorkOrderStatus = "completed"
	StatusCancelled  WorkOrderStatus = "cancelled"
)

type WorkOrderType string

const (
	TypeCorrective  WorkOrderType = "corrective"
	TypePreventive  WorkOrderType = "preventive"
	TypeImprovement WorkOrderType = "improvement"
	TypeInspection  WorkOrderType = "inspection"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// OpenStatuses are the states in which a work order still blocks a new
// generation for the same plan.
var OpenStatuses = []WorkOrderStatus{
	StatusPending, StatusApproved, StatusAssigned, StatusInProgress, StatusOnHold,
}

// ActiveStatuses are the states in which a work order holds its asset.
var ActiveStatuses = []WorkOrderStatus{StatusInProgress, StatusOnHold}

var terminalStatuses = map[WorkOrderStatus]bool{
	StatusCompleted: true,
	StatusCancelled: true,
}

// pending may be started directly and on_hold may be completed directly;
// both are permitted by the start and complete operations.
var validWorkOrderTransitions = map[WorkOrderStatus]map[WorkOrderStatus]bool{
	StatusPending: {
		StatusApproved:   true,
		StatusAssigned:   true,
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusApproved: {
		StatusAssigned:   true,
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusAssigned: {
		StatusInProgress: true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusOnHold:    true,
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusOnHold: {
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusCancelled:  true,
	},
}

func (s WorkOrderStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusAssigned, StatusInProgress,
		StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the work order state graph has an edge from
// s to next.
func (s WorkOrderStatus) CanTransition(next WorkOrderStatus) bool {
	return validWorkOrderTransitions[s][next]
}

// ValidateWorkOrderTransition returns a ValidationError for a missing edge.
func ValidateWorkOrderTransition(from, to WorkOrderStatus) error {
	if from.IsTerminal() {
		return Invalid("work order is %s and can no longer change", from)
	}
	if !from.CanTransition(to) {
		return Invalid("invalid work order transition: %s -> %s", from, to)
	}
	return nil
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (t WorkOrderType) IsValid() bool {
	switch t {
	case TypeCorrective, TypePreventive, TypeImprovement, TypeInspection:
		return true
	}
	return false
}
