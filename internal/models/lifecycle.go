package models

// Transition reports the status an action leaves a record in and whether the
// action is allowed from the current status. Rejected is terminal.
//
// Reprocess and edit return the current status: reprocess is settled by the
// new check results and edit never moves the status.
func Transition(action Action, from Status) (Status, bool) {
	if !from.Valid() {
		return from, false
	}

	switch action {
	case ActionEdit:
		return from, true
	case ActionApprove, ActionFlag, ActionReject, ActionReprocess, ActionOverride:
		if from == StatusRejected {
			return from, false
		}
	default:
		return from, false
	}

	switch action {
	case ActionApprove:
		return StatusApproved, true
	case ActionFlag:
		return StatusFlagged, true
	case ActionReject:
		return StatusRejected, true
	case ActionOverride:
		if from == StatusApproved {
			return StatusFlagged, true
		}
		return StatusApproved, true
	default:
		return from, true
	}
}

// StatusFromChecks derives the automated decision from a set of check
// results: any failure flags, any pending review parks the record under
// review, otherwise it is approved.
func StatusFromChecks(checks []CheckResult) Status {
	if len(checks) == 0 {
		return StatusPending
	}

	status := StatusApproved
	for _, check := range checks {
		switch check.Status {
		case CheckFail:
			return StatusFlagged
		case CheckPendingReview:
			status = StatusUnderReview
		}
	}
	return status
}
