package dtube

import (
	"log/slog"

	"github.com/lysyi3m/dtube-pinner/app/steem"
)

// TrackedCategory is the category DTube publishes its video posts under.
const TrackedCategory = "dtube"

// Flags selects which of the four hashes get pinned.
type Flags struct {
	Snaphash     bool
	Spritehash   bool
	Videohash    bool
	Video480hash bool
}

// Extractor turns a post into the list of hashes to pin. It keeps no state and
// is safe for concurrent use.
type Extractor struct {
	flags  Flags
	logger *slog.Logger
}

func NewExtractor(flags Flags, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		flags:  flags,
		logger: logger,
	}
}

// WithLogger returns a copy of e that logs schema errors to logger.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	return NewExtractor(e.flags, logger)
}

// Result is how a post was classified by Extract.
type Result string

const (
	ResultTracked     Result = "tracked"
	ResultSkipped     Result = "skipped"
	ResultSchemaError Result = "schema_error"
)

// Extract returns the enabled, non-empty hashes of a DTube post in the order
// snaphash, spritehash, videohash, video480hash. Posts outside the tracked
// category and posts with unparsable metadata yield nothing.
func (e *Extractor) Extract(post steem.Post) ([]string, Result) {
	if post.Category != TrackedCategory {
		return nil, ResultSkipped
	}

	meta, err := ParseMetadata(post.JSONMetadata)
	if err != nil {
		e.logger.Warn("Couldn't deserialize dtube metadata",
			"post_id", post.ID,
			"author", post.Author,
			"permlink", post.Permlink,
			"json_metadata", post.JSONMetadata,
			"error", err)
		return nil, ResultSchemaError
	}

	candidates := []struct {
		enabled bool
		hash    string
	}{
		{e.flags.Snaphash, meta.Video.Info.Snaphash},
		{e.flags.Spritehash, meta.Video.Info.Spritehash},
		{e.flags.Videohash, meta.Video.Content.Videohash},
		{e.flags.Video480hash, meta.Video.Content.Video480hash},
	}

	var hashes []string
	for _, c := range candidates {
		if c.enabled && c.hash != "" {
			hashes = append(hashes, c.hash)
		}
	}

	return hashes, ResultTracked
}
