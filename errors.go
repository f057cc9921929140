package guardkit

import "errors"

var (
	// ErrCSRFMissing is an exported constant or variable used by the defense pipeline.
	ErrCSRFMissing = errors.New("csrf token missing")
	// ErrCSRFMismatch is an exported constant or variable used by the defense pipeline.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrRateLimited is an exported constant or variable used by the defense pipeline.
	ErrRateLimited = errors.New("rate limited")
	// ErrCaptchaRejected is an exported constant or variable used by the defense pipeline.
	ErrCaptchaRejected = errors.New("captcha verification rejected")
	// ErrCaptchaUnavailable is an exported constant or variable used by the defense pipeline.
	ErrCaptchaUnavailable = errors.New("captcha provider unavailable")
	// ErrStoreUnavailable is an exported constant or variable used by the defense pipeline.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrPipelineNotReady is an exported constant or variable used by the defense pipeline.
	ErrPipelineNotReady = errors.New("pipeline not initialized")
)
