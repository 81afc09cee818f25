package models

import "errors"

// Error taxonomy shared by agent and collector. Agent-side errors are
// absorbed and logged by the loop; none of them crash a continuous run.
var (
	// ErrPendingApproval is the expected steady state of an agent whose
	// registration has not been approved yet.
	ErrPendingApproval = errors.New("registration pending approval")

	// ErrRejected means the agent identity was rejected by an
	// administrator and stays rejected until a human re-approves.
	ErrRejected = errors.New("registration rejected")

	// ErrNetworkUnreachable wraps transport failures talking to the
	// collector. Retry next cycle, never fatal.
	ErrNetworkUnreachable = errors.New("collector unreachable")

	// ErrUpdateVerificationFailed means a staged agent package failed its
	// checksum check. The running package is left untouched.
	ErrUpdateVerificationFailed = errors.New("update package verification failed")

	// ErrConfigConflict is the server-side site uniqueness violation,
	// surfaced to the approving administrator.
	ErrConfigConflict = errors.New("site already assigned to another agent")
)
