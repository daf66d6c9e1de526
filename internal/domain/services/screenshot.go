package services

import "context"

// ScreenshotTrigger starts screenshot capture of a deployed app.
// Implementations run fire-and-forget: the deploy operation's success is
// independent of the capture outcome, and failures are logged only.
type ScreenshotTrigger interface {
	TriggerCapture(appID, url string)
}

// ObjectStore is the object-storage boundary used for screenshot uploads.
// Persistent storage itself is an external collaborator; only this
// read/write contract belongs to the core.
type ObjectStore interface {
	// Upload stores bytes under key and returns a publicly reachable URL.
	Upload(ctx context.Context, key string, data []byte) (string, error)
}
