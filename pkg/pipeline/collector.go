package pipeline

import (
	"context"

	"github.com/sfdaycarelist/directory/pkg/daycares"
)

// Collector fetches one page of raw records from a source per call.
//
// The cursor is an opaque resume position: "" starts from the
// beginning, and the returned next cursor resumes after this page. An
// empty page with next == "" is clean termination. On error, a
// non-empty next means the page could not be fetched but the pass can
// continue from next; an error with next == "" is fatal for the source.
type Collector interface {
	// Source identifies which source this collector feeds.
	Source() daycares.SourceID

	// Collect fetches the page at cursor.
	Collect(ctx context.Context, cursor string) (records []daycares.RawRecord, next string, err error)
}
