package observe

// Outcome classifies a single authentication attempt.
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeAnonymous     Outcome = "anonymous"
	OutcomeRejected      Outcome = "rejected"
	OutcomeError         Outcome = "error"
)

// Failed reports whether the outcome counts as an authentication failure.
func (o Outcome) Failed() bool {
	return o == OutcomeRejected || o == OutcomeError
}

// Decision describes how a strategy resolved a request.
type Decision struct {
	Strategy    string
	Method      string
	Outcome     Outcome
	PrincipalID string
}

// SpanName returns the span name for the strategy: auth.authenticate.<strategy>.
func (d Decision) SpanName() string {
	if d.Strategy == "" {
		return "auth.authenticate"
	}
	return "auth.authenticate." + d.Strategy
}
