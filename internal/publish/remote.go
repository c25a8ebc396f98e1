package publish

import (
	"context"

	"roadlog/internal/remote"
)

// RemoteClient is the slice of the contents API the publish pipeline
// consumes. *remote.Client satisfies it; tests supply fakes.
type RemoteClient interface {
	CheckIdentity(ctx context.Context) (string, error)
	CheckRepoAccess(ctx context.Context) (*remote.RepoInfo, error)
	RateLimit(ctx context.Context) (*remote.RateLimitStatus, error)
	GetContent(ctx context.Context, path string) (*remote.ContentInfo, error)
	PutContent(ctx context.Context, path, message string, data []byte, sha string) (*remote.ContentInfo, error)
}

// IndexMerger folds a finished session into the shared coverage index.
// Failures are logged and swallowed by the coordinator; publish success never
// depends on the merge.
type IndexMerger interface {
	Merge(ctx context.Context, sessionID string) error
}
