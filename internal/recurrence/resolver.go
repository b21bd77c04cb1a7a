package recurrence

import (
	"github.com/mkovalev/dayboard/internal/storage"
)

// Resolve overlays stored exceptions on generated occurrences. An exception
// marked deleted suppresses its occurrence; an override start time replaces
// the presented time without changing the occurrence's identity. The input
// order is preserved.
func Resolve(occurrences []storage.Occurrence, exceptions []storage.Exception) []storage.ResolvedOccurrence {
	index := make(map[int64]storage.Exception, len(exceptions))
	for _, x := range exceptions {
		index[x.OriginalTime.UTC().UnixNano()] = x
	}

	out := make([]storage.ResolvedOccurrence, 0, len(occurrences))
	for _, o := range occurrences {
		resolved := storage.ResolvedOccurrence{
			EventID:      o.EventID,
			OriginalTime: o.StartTime,
			StartTime:    o.StartTime,
		}
		if x, ok := index[o.StartTime.UTC().UnixNano()]; ok {
			if x.Deleted {
				continue
			}
			if x.StartTime != nil {
				resolved.StartTime = *x.StartTime
			}
			override := x
			resolved.Override = &override
		}
		out = append(out, resolved)
	}
	return out
}
