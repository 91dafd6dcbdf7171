package agentruntime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// errMissingSessionID flags a structurally valid response without a session
// identifier; it classifies as unexpected.
var errMissingSessionID = errors.New("response carried no session id")

// Kind classifies a remote failure for the retry logic.
type Kind int

const (
	// KindUnexpected covers everything that did not originate as a
	// structured remote service error: transport failures, timeouts,
	// malformed responses.
	KindUnexpected Kind = iota

	// KindSessionNotFound means the remote session is stale or invalid.
	KindSessionNotFound

	// KindAuthExpired means the signed identity was rejected.
	KindAuthExpired

	// KindOtherService is any other remote-service-originated error.
	KindOtherService
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindSessionNotFound:
		return "session_not_found"
	case KindAuthExpired:
		return "auth_expired"
	case KindOtherService:
		return "service_error"
	default:
		return "unexpected"
	}
}

// ServiceError is a structured failure returned by the remote agent runtime.
// Status, code and message are preserved verbatim from the remote response.
type ServiceError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("agent runtime error: [%s] %s (status %d)", e.Code, e.Message, e.Status)
}

// Classify maps an error from a Caller operation to its failure kind. It is a
// pure function of the error's status, code and message; identical inputs
// always yield the identical kind.
func Classify(err error) Kind {
	var se *ServiceError
	if !errors.As(err, &se) {
		return KindUnexpected
	}

	code := strings.ToLower(se.Code)
	msg := strings.ToLower(se.Message)

	if se.Status == 404 {
		return KindSessionNotFound
	}
	if (strings.Contains(code, "notfound") || strings.Contains(code, "notauthorizedornotfound")) &&
		strings.Contains(msg, "genaiagentsession") {
		return KindSessionNotFound
	}

	if se.Status == 401 || se.Status == 403 {
		return KindAuthExpired
	}
	if strings.Contains(code, "notauthenticated") ||
		strings.Contains(msg, "required information to complete authentication") ||
		strings.Contains(msg, "authentication was not provided") ||
		strings.Contains(msg, "signature does not match") {
		return KindAuthExpired
	}

	return KindOtherService
}

// wrapRemote converts SDK errors into the local taxonomy. Structured service
// failures become *ServiceError; anything else passes through unchanged and
// classifies as unexpected.
func wrapRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := common.IsServiceError(err); ok {
		return &ServiceError{
			Status:    se.GetHTTPStatusCode(),
			Code:      se.GetCode(),
			Message:   se.GetMessage(),
			RequestID: se.GetOpcRequestID(),
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
