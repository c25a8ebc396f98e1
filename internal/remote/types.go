package remote

import "time"

// ContentInfo describes content at a remote path.
type ContentInfo struct {
	Path    string
	SHA     string
	URL     string
	Content []byte
}

// RateLimitStatus reports remaining API quota.
type RateLimitStatus struct {
	Remaining int
	Limit     int
	Reset     time.Time
}

// RepoInfo describes the target repository and the token's access to it.
type RepoInfo struct {
	FullName      string
	DefaultBranch string
	Private       bool
	CanPush       bool
}
