package envexec

// Status defines run task Status return status
type Status int

// Defines run task Status result status
const (
	// not initialized status (as error)
	StatusInvalid Status = iota

	// exit normally
	StatusAccepted

	// exit with error
	StatusTimeLimitExceeded   // TLE
	StatusOutputLimitExceeded // OLE
	StatusNonzeroExitStatus   // NZS
	StatusSignalled           // SIG

	// caller context finished before the process
	StatusCancelled

	// internal error including: start failed, wait failed
	StatusInternalError
)

var statusToString = []string{
	"Invalid",
	"Accepted",
	"Time Limit Exceeded",
	"Output Limit Exceeded",
	"Nonzero Exit Status",
	"Signalled",
	"Cancelled",
	"Internal Error",
}

func (s Status) String() string {
	si := int(s)
	if si < 0 || si >= len(statusToString) {
		return statusToString[0] // invalid
	}
	return statusToString[si]
}
