package version

import (
	"strconv"
	"strings"
)

// Current is the running agent version. Overridable at build time with
// -ldflags "-X github.com/rfcampos/sitewatch/pkg/version.Current=...".
var Current = "1.3.0"

// Compare orders two dotted version strings numerically per segment.
// Missing segments count as zero, so "1.3" == "1.3.0". A leading "v" is
// ignored. Non-numeric segments fall back to string comparison.
func Compare(a, b string) int {
	as := segments(a)
	bs := segments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, aok := segment(as, i)
		bv, bok := segment(bs, i)

		if aok && bok {
			if av != bv {
				if av < bv {
					return -1
				}
				return 1
			}
			continue
		}

		// Non-numeric segment on either side: compare raw strings.
		ar := rawSegment(as, i)
		br := rawSegment(bs, i)
		if ar != br {
			if ar < br {
				return -1
			}
			return 1
		}
	}

	return 0
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate, current string) bool {
	return Compare(candidate, current) > 0
}

func segments(v string) []string {
	v = strings.TrimSpace(strings.TrimPrefix(v, "v"))
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func segment(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, true
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0, false
	}
	return n, true
}

func rawSegment(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}
