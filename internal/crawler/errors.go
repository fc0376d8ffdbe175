package crawler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAcquisitionTimeout means the results frame never appeared for a keyword.
	ErrAcquisitionTimeout = errors.New("results context acquisition timed out")
	// ErrStaleElement is returned by Element operations on detached nodes.
	ErrStaleElement = errors.New("stale element handle")
	// ErrNoSession is returned when a campaign is started without a browser.
	ErrNoSession = errors.New("browser session is required")
)

// AcquisitionError carries the frame URLs seen when acquisition gave up.
type AcquisitionError struct {
	Keyword   string
	FrameURLs []string
	Err       error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire results for %q: %v (frames: %s)",
		e.Keyword, e.Err, strings.Join(e.FrameURLs, ", "))
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
