package domain

// RedirectState is the state of the redirect coordinator for one evaluation cycle.
type RedirectState string

const (
	RedirectChecking RedirectState = "checking"
	RedirectApproved RedirectState = "approved"
	RedirectBlocked  RedirectState = "blocked"
)

// RedirectStateFor maps a resolved decision to its terminal state.
func RedirectStateFor(d GateDecision) RedirectState {
	if d.Approved {
		return RedirectApproved
	}
	return RedirectBlocked
}
