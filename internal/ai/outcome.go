package ai

// FailureKind is the closed set of user-safe failure classes.
type FailureKind string

const (
	KindInvalidInput  FailureKind = "invalid_input"
	KindUnconfigured  FailureKind = "unconfigured"
	KindBadCredential FailureKind = "bad_credential"
	KindQuotaExceeded FailureKind = "quota_exceeded"
	KindRateLimited   FailureKind = "rate_limited"
	KindUnknown       FailureKind = "unknown"
)

var userMessages = map[FailureKind]string{
	KindInvalidInput:  "Message must not be empty.",
	KindUnconfigured:  "I'm currently undergoing maintenance. The assistant service is temporarily unavailable.",
	KindBadCredential: "I'm having authentication issues. Please contact support.",
	KindQuotaExceeded: "I'm currently unavailable due to service limits. Please try again later or contact support.",
	KindRateLimited:   "I'm receiving too many requests right now. Please wait a moment and try again.",
	KindUnknown:       "I'm experiencing technical difficulties. Please try again in a moment.",
}

// Message returns the fixed text shown to the end user for this kind.
func (k FailureKind) Message() string {
	if m, ok := userMessages[k]; ok {
		return m
	}
	return userMessages[KindUnknown]
}

func (k FailureKind) Error() string { return string(k) }

// Outcome is either a success carrying text or a failure carrying a kind.
// The zero value is not meaningful; build with Success or Failure.
type Outcome struct {
	text string
	kind FailureKind
}

func Success(text string) Outcome { return Outcome{text: text} }

func Failure(kind FailureKind) Outcome { return Outcome{kind: kind} }

func (o Outcome) OK() bool { return o.kind == "" }

func (o Outcome) Kind() FailureKind { return o.kind }

// Text is the completion on success and the fixed user-safe message otherwise.
func (o Outcome) Text() string {
	if o.OK() {
		return o.text
	}
	return o.kind.Message()
}
