package gallery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gallwatch/internal/identity"
	"gallwatch/lib/textutil"
)

// ErrMissingThread is returned when a url does not identify a thread, it is fatal for a run.
var ErrMissingThread = errors.New("url does not contain a thread number")

// ParseThread extracts the ThreadHandle from the `no` query parameter of a thread url.
func ParseThread(rawUrl string) (identity.ThreadHandle, error) {
	u, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingThread, err)
	}
	no := u.Query().Get(threadQueryParam)
	if !textutil.IsDigits(no) {
		return "", fmt.Errorf("%w: %q", ErrMissingThread, rawUrl)
	}
	return identity.ThreadHandle(no), nil
}
