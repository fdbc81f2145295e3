package outcome

// Status classifies a finished run. Values double as process exit codes.
type Status int

const (
	StatusSuccess      Status = 0
	StatusGenericError Status = 1
	StatusQueryError   Status = 2
	StatusFetchError   Status = 4
	StatusIndexError   Status = 8
)

// ExitCode returns the process exit code for the status.
func (s Status) ExitCode() int {
	return int(s)
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusQueryError:
		return "query-error"
	case StatusFetchError:
		return "fetch-error"
	case StatusIndexError:
		return "index-error"
	default:
		return "error"
	}
}

// ParseStatus converts a String form back to a Status.
func ParseStatus(value string) Status {
	switch value {
	case "success":
		return StatusSuccess
	case "query-error":
		return StatusQueryError
	case "fetch-error":
		return StatusFetchError
	case "index-error":
		return StatusIndexError
	default:
		return StatusGenericError
	}
}
