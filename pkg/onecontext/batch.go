package onecontext

import (
	"fmt"
	"os"
)

// DefaultBatchBytes is the cumulative size used to split large uploads.
const DefaultBatchBytes int64 = 4 * 1024 * 1024

// SplitBatches groups files, in order, into consecutive batches whose total
// size stays within maxBytes. A file larger than maxBytes travels alone.
// Each batch is meant for its own UploadFiles call.
func SplitBatches(files []File, maxBytes int64) ([][]File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultBatchBytes
	}

	var (
		batches [][]File
		current []File
		size    int64
	)
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f.Path, err)
		}
		if len(current) > 0 && size+info.Size() > maxBytes {
			batches = append(batches, current)
			current, size = nil, 0
		}
		current = append(current, f)
		size += info.Size()
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}
