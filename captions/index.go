package captions

import (
	"math"
	"sort"

	"binge-player/models"
)

const (
	// bucketsPerSecond sets the 100ms quantization of the bucket map.
	bucketsPerSecond = 10
	// maxCueBuckets caps the buckets one cue may claim (10 minutes). Longer
	// cues are only reachable through search.
	maxCueBuckets = 10 * 60 * bucketsPerSecond
)

// Lookup resolves the caption text active at a playback time.
type Lookup interface {
	Query(t float64) string
	Len() int
}

// Index is a read-only lookup structure over a fixed cue set. It is built
// once per caption track and replaced wholesale on track switch.
type Index struct {
	cues    []models.Cue // sorted by StartTime, stable
	maxEnd  []float64    // maxEnd[i] = max EndTime of cues[0..i]
	buckets map[int64]int
	long    []int // ascending indexes of cues too long for the bucket map
}

// Build sorts the cues and claims 100ms buckets for each of them. A bucket
// already claimed by an earlier cue in sort order is never overwritten.
// Build cost is bounded by the cue count, not by cue timestamps.
func Build(cues []models.Cue) *Index {
	sorted := make([]models.Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	idx := &Index{
		cues:    sorted,
		maxEnd:  make([]float64, len(sorted)),
		buckets: make(map[int64]int),
	}

	running := math.Inf(-1)
	for i, c := range sorted {
		running = math.Max(running, c.EndTime)
		idx.maxEnd[i] = running

		if (c.EndTime-c.StartTime)*bucketsPerSecond >= maxCueBuckets {
			idx.long = append(idx.long, i)
			continue
		}
		for b := bucketOf(c.StartTime); b <= bucketOf(c.EndTime); b++ {
			if _, claimed := idx.buckets[b]; !claimed {
				idx.buckets[b] = i
			}
		}
	}

	return idx
}

// Query returns the text of the cue covering t, or "" when none does.
func (x *Index) Query(t float64) string {
	if x == nil || len(x.cues) == 0 || math.IsNaN(t) {
		return ""
	}

	if i, ok := x.buckets[bucketOf(t)]; ok && x.cues[i].Covers(t) {
		// an unbucketed cue earlier in sort order still takes precedence
		for _, j := range x.long {
			if j >= i {
				break
			}
			if x.cues[j].Covers(t) {
				return x.cues[j].Text
			}
		}
		return x.cues[i].Text
	}

	if i := x.search(t); i >= 0 {
		return x.cues[i].Text
	}
	return ""
}

// search returns the earliest cue in sort order covering t, or -1.
func (x *Index) search(t float64) int {
	// last cue starting at or before t
	hi := sort.Search(len(x.cues), func(i int) bool {
		return x.cues[i].StartTime > t
	}) - 1

	found := -1
	for i := hi; i >= 0; i-- {
		if x.maxEnd[i] < t {
			break
		}
		if x.cues[i].Covers(t) {
			found = i
		}
	}
	return found
}

// Len returns the number of indexed cues.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.cues)
}

// Cues returns a copy of the sorted cue set.
func (x *Index) Cues() []models.Cue {
	if x == nil {
		return nil
	}
	out := make([]models.Cue, len(x.cues))
	copy(out, x.cues)
	return out
}

func bucketOf(t float64) int64 {
	return int64(math.Floor(t * bucketsPerSecond))
}
