package authz

// ConsentState enumerates the states of one pass through the consent flow.
// Transitions run in one direction only: Unauthenticated and
// AwaitingDecision are entry states, Denied and Approved are terminal.
type ConsentState string

const (
	// StateUnauthenticated means no valid user session accompanied the
	// request; the flow parks until the user returns from login.
	StateUnauthenticated ConsentState = "unauthenticated"

	// StateAwaitingDecision means the request is valid and a consent prompt
	// should be rendered.
	StateAwaitingDecision ConsentState = "awaiting_decision"

	// StateDenied means the user declined; the client is told access_denied.
	StateDenied ConsentState = "denied"

	// StateApproved means a single-use authorization code was issued.
	StateApproved ConsentState = "approved"
)

// Consent form decision values.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// ConsentOutcome is the result of resolving a consent decision. Code is set
// only in the Approved state and carries the plaintext authorization code
// for the redirect back to the client.
type ConsentOutcome struct {
	State ConsentState
	Code  string
}
