package fetch

import "fmt"

type ErrorKind int

const (
	KindStatus ErrorKind = iota
	KindTransport
	KindFS
)

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTransport:
		return "transport"
	case KindFS:
		return "filesystem"
	default:
		return "unknown"
	}
}

type FetchError struct {
	Kind   ErrorKind
	URL    string
	Path   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	case KindFS:
		return fmt.Sprintf("write %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
