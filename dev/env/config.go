package devenv

import "gallwatch/internal/browser"

// GalleryTestConfig is read from dev/.state/gallery_config.json5 by the live tests.
type GalleryTestConfig struct {
	// ThreadUrl should point at a thread with more than one comment page.
	ThreadUrl string `json:"thread_url"`
	// ProbeIdentity is a user whose gallog activity counters are read.
	ProbeIdentity string         `json:"probe_identity"`
	Browser       browser.Config `json:"browser"`
}
