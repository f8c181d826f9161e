package listing

import "fmt"

type ErrorKind int

const (
	KindStatus ErrorKind = iota
	KindTransport
	KindParse
	KindTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// ListingError is returned for any listing that could not be turned into a
// file list. It is never fatal to a run.
type ListingError struct {
	Kind   ErrorKind
	URL    string
	Status int
	Limit  int64
	Err    error
}

func (e *ListingError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("listing %s: status %d", e.URL, e.Status)
	case KindParse:
		return fmt.Sprintf("listing %s: json parse failed: %v", e.URL, e.Err)
	case KindTooLarge:
		return fmt.Sprintf("listing %s exceeds %d bytes", e.URL, e.Limit)
	default:
		return fmt.Sprintf("listing %s: %v", e.URL, e.Err)
	}
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
