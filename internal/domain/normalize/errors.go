package normalize

import "errors"

// ErrUpstream is the sentinel kind for feed-reported subscription errors.
var ErrUpstream = errors.New("upstream error")

// UpstreamError carries the message of the feed's {"error": ...} object.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "upstream error: " + e.Message
}

// Is lets errors.Is match ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
