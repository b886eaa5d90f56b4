package session

// AssignSpeakers corrects the speaker labels of fragments from a fresh set
// of diarized segments.
//
// A fragment and a segment overlap iff the segment does not end at or
// before the fragment starts and does not start at or after the fragment
// ends. Each fragment takes the label of the overlapping segment with the
// largest overlap duration; ties keep the first-encountered segment. A
// fragment with no overlapping segment keeps its current label, so earlier
// provisional labels survive sparse diarization rather than failing.
//
// Fragments are modified in place. Call this for the whole batch every
// time a new diarization result arrives: fast-path fragments carry no
// diarization information of their own.
func AssignSpeakers(fragments []Fragment, segments []Segment) {
	for i := range fragments {
		frag := &fragments[i]
		bestOverlap := 0.0
		bestLabel := ""
		for _, seg := range segments {
			if seg.End <= frag.Start || seg.Start >= frag.End {
				continue
			}
			overlap := min(frag.End, seg.End) - max(frag.Start, seg.Start)
			if overlap > bestOverlap {
				bestOverlap = overlap
				bestLabel = seg.Speaker
			}
		}
		if bestLabel != "" {
			frag.Speaker = bestLabel
		} else if frag.Speaker == "" {
			frag.Speaker = ProvisionalSpeaker
		}
	}
}
