package feed

// Per-author caps. The first relaxAuthorCapAfter accepted results allow at
// most initialAuthorCap chirps per author; later results allow relaxedAuthorCap.
const (
	initialAuthorCap    = 3
	relaxedAuthorCap    = 5
	relaxAuthorCapAfter = 20
)

// LimitDiversity walks ordered results and keeps at most maxResults of them,
// skipping any chirp whose author is already at the current cap. Skipped
// chirps are not reconsidered. Relative order is preserved.
func LimitDiversity(scored []ChirpScore, maxResults int) []ChirpScore {
	out := make([]ChirpScore, 0, min(max(maxResults, 0), len(scored)))
	if maxResults <= 0 {
		return out
	}

	perAuthor := make(map[string]int)
	for _, s := range scored {
		if len(out) >= maxResults {
			break
		}
		limit := initialAuthorCap
		if len(out) >= relaxAuthorCapAfter {
			limit = relaxedAuthorCap
		}
		author := s.Chirp.AuthorID
		if perAuthor[author] >= limit {
			continue
		}
		perAuthor[author]++
		out = append(out, s)
	}
	return out
}
