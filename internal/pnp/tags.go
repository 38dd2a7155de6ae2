package pnp

import "bytes"

// Structural tag markers as they appear in PNP files, byte-for-byte
// including the vendor's padding. The markers are plain ASCII chosen by the
// vendor to be unlikely to occur as measurement data, so matching is exact
// byte equality with no case folding and no partial matches.
var (
	TagMod    = []byte("MOD    ")   // Minute ventilation, 3 letters + 4 spaces
	TagMvl    = []byte("MVL    ")   // Max voluntary ventilation, 3 letters + 4 spaces
	TagZhel   = []byte("* ZhEL *")  // Resting vital capacity
	TagProbe1 = []byte("* FZhEL* ") // Forced capacity probe 1
	TagProbe2 = []byte("* FZhE1* ") // Forced capacity probe 2
	TagProbe3 = []byte("* FZhE2* ") // Forced capacity probe 3
)

// allTags lists every known structural tag.
var allTags = [][]byte{TagMod, TagMvl, TagZhel, TagProbe1, TagProbe2, TagProbe3}

// anchorTags are the tags the ambient triplet is physically adjacent to in
// the vendor layout: the ventilation blocks and the probe blocks.
var anchorTags = [][]byte{TagMod, TagMvl, TagProbe1, TagProbe2, TagProbe3}

// HasKnownTag reports whether any structural tag occurs in buf. Used by
// callers that need to sniff whether a buffer is a PNP capture at all.
func HasKnownTag(buf []byte) bool {
	for _, tag := range allTags {
		if bytes.Contains(buf, tag) {
			return true
		}
	}
	return false
}

// findTag returns the offset of the first occurrence of tag in buf,
// or -1 when the tag is not present.
func findTag(buf, tag []byte) int {
	return bytes.Index(buf, tag)
}

// nextTagAfter returns the smallest offset >= from at which any known tag
// other than self occurs, or -1 when none follows. Used to bound
// variable-length payloads such as the MOD volume-time curve.
func nextTagAfter(buf []byte, from int, self []byte) int {
	if from < 0 || from > len(buf) {
		return -1
	}
	next := -1
	for _, tag := range allTags {
		if bytes.Equal(tag, self) {
			continue
		}
		idx := bytes.Index(buf[from:], tag)
		if idx < 0 {
			continue
		}
		if next < 0 || from+idx < next {
			next = from + idx
		}
	}
	return next
}

// anchorPositions returns the offsets of every anchor tag present in buf.
func anchorPositions(buf []byte) []int {
	var positions []int
	for _, tag := range anchorTags {
		if idx := bytes.Index(buf, tag); idx >= 0 {
			positions = append(positions, idx)
		}
	}
	return positions
}
