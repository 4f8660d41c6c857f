package progression

// BadgeDef ties a badge to the point total that unlocks it.
type BadgeDef struct {
	Name        string
	Description string
	Icon        string
	Threshold   int
}

// BadgeLadder is checked highest first; a single submission awards at most the
// highest newly crossed badge. Lower tiers skipped in one jump are not
// back-filled.
var BadgeLadder = []BadgeDef{
	{Name: "Gold Guardian", Description: "Earn 1000 points", Icon: "🏆", Threshold: 1000},
	{Name: "Silver Sentinel", Description: "Earn 500 points", Icon: "🥈", Threshold: 500},
	{Name: "Bronze Beginner", Description: "Earn 100 points", Icon: "🥉", Threshold: 100},
}

// NextBadge returns the highest badge whose threshold the post-update point
// total has crossed and that the holder does not already own. The has
// predicate makes repeat checks a no-op, so awards stay idempotent.
func NextBadge(points int, has func(name string) bool) (BadgeDef, bool) {
	for _, def := range BadgeLadder {
		if points >= def.Threshold {
			if has(def.Name) {
				// Already holds this tier (or a re-check after award).
				return BadgeDef{}, false
			}
			return def, true
		}
	}
	return BadgeDef{}, false
}
