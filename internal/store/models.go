package store

import (
	"strings"
	"time"
)

// SessionStatus represents the lifecycle of a survey session.
type SessionStatus string

const (
	StatusRecording          SessionStatus = "recording"
	StatusPaused             SessionStatus = "paused"
	StatusStopped            SessionStatus = "stopped"
	StatusPublishing         SessionStatus = "publishing"
	StatusPublished          SessionStatus = "published"
	StatusPartiallyPublished SessionStatus = "partially_published"
)

var allStatuses = []SessionStatus{
	StatusRecording,
	StatusPaused,
	StatusStopped,
	StatusPublishing,
	StatusPublished,
	StatusPartiallyPublished,
}

var statusSet = func() map[SessionStatus]struct{} {
	set := make(map[SessionStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []SessionStatus {
	cp := make([]SessionStatus, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known SessionStatus.
func ParseStatus(value string) (SessionStatus, bool) {
	normalized := SessionStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActive reports whether the status reflects an in-flight operation that
// only exists while a process is alive. Sessions found in an active status at
// startup were interrupted by a crash.
func (s SessionStatus) IsActive() bool {
	return s == StatusRecording || s == StatusPublishing
}

// CaptureSettings is the settings snapshot frozen onto a session when
// recording starts.
type CaptureSettings struct {
	Collector        string `json:"collector"`
	DeviceDescriptor string `json:"deviceDescriptor"`
	IntervalSeconds  int    `json:"intervalSeconds"`
	ImageQuality     int    `json:"imageQuality"`
}

// GPSFix is an optional location reading attached to a capture.
type GPSFix struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
	Stale    bool    `json:"stale"`
}

// AccelReading is an optional accelerometer sample attached to a capture.
type AccelReading struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Session is one bounded recording-to-publish unit of work.
//
// CaptureCount and TotalBytes are maintained atomically with capture inserts:
// at any observable point CaptureCount equals the number of persisted captures
// and TotalBytes the sum of their image sizes.
type Session struct {
	ID              string
	Name            string
	Status          SessionStatus
	CreatedAt       time.Time
	StartTime       time.Time
	LastCaptureTime *time.Time
	CaptureCount    int64
	TotalBytes      int64
	AvgImageSize    int64
	Duration        time.Duration
	Settings        CaptureSettings
}

// Capture is one timestamped unit of collected data belonging to a session.
// (SessionID, SequenceNum) pairs are unique; SequenceNum starts at 1 and is
// intended monotonic. Captures are mutated only to flip Published/PublishedURL.
type Capture struct {
	ID           int64
	SessionID    string
	SequenceNum  int64
	Timestamp    time.Time
	GPS          *GPSFix
	Accel        *AccelReading
	Image        []byte
	ImageSize    int64
	Published    bool
	PublishedURL string
}

// PublishState records durable progress for one session's publish job. It is
// written before the first network call and updated after every item, so a
// crash mid-publish leaves enough state to resume without re-uploading
// completed items.
type PublishState struct {
	SessionID      string
	PublishStarted time.Time
	TotalToUpload  int
	Completed      int
	Failed         int
	InProgress     bool
	CompletedAt    *time.Time
}
