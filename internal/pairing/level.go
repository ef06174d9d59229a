package pairing

import (
	"fmt"
	"strings"
	"unicode"
)

// Tier is a normalized skill ranking: 'a' is the strongest, 'e' the weakest
// and 'n' means the player is unrated.
type Tier byte

const (
	TierA       Tier = 'a'
	TierB       Tier = 'b'
	TierC       Tier = 'c'
	TierD       Tier = 'd'
	TierE       Tier = 'e'
	TierUnrated Tier = 'n'
)

func (t Tier) String() string {
	return string(rune(t))
}

// Rank orders tiers from strongest (0) to unrated (5).
func (t Tier) Rank() int {
	if t.rated() {
		return int(t - TierA)
	}
	return int(TierE-TierA) + 1
}

func (t Tier) rated() bool {
	return t >= TierA && t <= TierE
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.rated() {
		return []byte{byte(TierUnrated)}, nil
	}
	return []byte{byte(t)}, nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	raw := strings.ToLower(strings.TrimSpace(string(text)))
	if len(raw) != 1 {
		return fmt.Errorf("invalid tier %q", string(text))
	}
	tier := Tier(raw[0])
	if !tier.rated() && tier != TierUnrated {
		return fmt.Errorf("invalid tier %q", string(text))
	}
	*t = tier
	return nil
}

// NormalizeLevel maps the free-text skill fields of a profile to a tier.
// The skill code wins when its first letter is a-e; otherwise the skill level
// must be exactly one of a-e. Anything else is unrated.
func NormalizeLevel(code, level string) Tier {
	for _, r := range strings.TrimSpace(code) {
		if !unicode.IsLetter(r) {
			continue
		}
		r = unicode.ToLower(r)
		if r >= rune(TierA) && r <= rune(TierE) {
			return Tier(r)
		}
		break
	}

	switch normalized := strings.ToLower(strings.TrimSpace(level)); normalized {
	case "a", "b", "c", "d", "e":
		return Tier(normalized[0])
	}
	return TierUnrated
}

// Gender is the gender attribute used by the mixed-gender policy.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
)

// ParseGender accepts the spellings found in member profiles and returns
// GenderUnknown for anything it does not recognize.
func ParseGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male", "man":
		return GenderMale
	case "f", "female", "woman":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

func (g Gender) Known() bool {
	return g == GenderMale || g == GenderFemale
}
