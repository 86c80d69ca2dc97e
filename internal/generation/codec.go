package generation

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeJobs serializes jobs into one opaque blob. Thumbnail bytes are
// stripped from every job before encoding: a thumbnail is never trustworthy
// across a restart, and dropping it is what keeps the blob small. The input
// jobs are cloned first and never mutated.
func EncodeJobs(jobs []*Job) ([]byte, error) {
	stripped := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		c := j.Clone()
		c.ThumbnailBytes = nil
		stripped = append(stripped, *c)
	}

	blob, err := msgpack.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jobs: %w", err)
	}
	return blob, nil
}

// DecodeJobs deserializes a blob written by EncodeJobs. Fields absent from
// the blob decode to their zero values, which is the whole backward
// compatibility story: there is no schema version in the blob itself. An
// empty blob decodes to no jobs.
func DecodeJobs(blob []byte) ([]*Job, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	var decoded []Job
	if err := msgpack.Unmarshal(blob, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode jobs blob: %w", err)
	}

	jobs := make([]*Job, 0, len(decoded))
	for i := range decoded {
		j := decoded[i]
		if j.Sources == nil {
			j.Sources = []Source{}
		}
		if j.Recipes == nil {
			j.Recipes = []Recipe{}
		}
		jobs = append(jobs, &j)
	}
	return jobs, nil
}

// EncodeSnapshot composes active and completed into the persisted blob,
// applying the steady-state strip-and-cap policy: the completed list is
// truncated to completedCap (both lists are most-recent-first, so truncation
// drops the oldest), thumbnails are stripped, and if the encoded blob still
// exceeds sizeCap more completed jobs are dropped until it fits or none
// remain. Zero caps disable the respective bound.
func EncodeSnapshot(active, completed []*Job, completedCap, sizeCap int) ([]byte, error) {
	if completedCap > 0 && len(completed) > completedCap {
		completed = completed[:completedCap]
	}

	for {
		blob, err := EncodeJobs(append(append([]*Job(nil), active...), completed...))
		if err != nil {
			return nil, err
		}
		if sizeCap <= 0 || len(blob) <= sizeCap || len(completed) == 0 {
			return blob, nil
		}
		completed = completed[:len(completed)-1]
	}
}
