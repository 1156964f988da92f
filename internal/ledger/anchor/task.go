package anchor

import (
	identitymodels "legitify/internal/identity/models"
	id "legitify/pkg/domain"
)

// TaskFor builds a task submitted under the caller's own ledger identity.
// It returns false when the caller's role has no ledger organization.
func TaskFor(caller id.Caller, function, aggregate string, args ...string) (Task, bool) {
	org, ok := identitymodels.OrgForRole(caller.Role)
	if !ok {
		return Task{}, false
	}
	return Task{
		Function:  function,
		Label:     caller.UserID.String(),
		Org:       org.Name,
		Args:      args,
		Aggregate: aggregate,
	}, true
}
