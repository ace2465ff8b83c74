package emissions

import (
	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/pkg/workflows"
)

// newStatusMachine builds the approval workflow transition table. Archival is
// triggered by the external retention policy, never by submitters; archived is
// terminal. Skipping states and re-entering a prior state are both rejected
// because the table only lists forward edges.
func newStatusMachine() *workflows.StateMachine[RecordStatus] {
	return workflows.New(map[RecordStatus][]RecordStatus{
		StatusDraft:     {StatusSubmitted},
		StatusSubmitted: {StatusValidated},
		StatusValidated: {StatusArchived},
		StatusArchived:  {},
	})
}

// transitionAllowedFor checks the role requirement of a target status. Any
// company member may submit; validation needs an elevated role; archival is
// reserved to admins acting for the retention policy.
func transitionAllowedFor(target RecordStatus, actor auth.Actor) bool {
	switch target {
	case StatusSubmitted:
		return true
	case StatusValidated:
		return actor.CanValidate()
	case StatusArchived:
		return actor.IsAdmin()
	}
	return false
}
