package assembly

import (
	"unicode/utf8"

	"dataassist/internal/types"
)

// imageTokenSurcharge is the flat per-image estimate. Real cost varies
// with dimensions; this is advisory only, used for logging and rough
// budget checks, never for hard truncation.
const imageTokenSurcharge = 1600

// estimateTokens approximates the bundle's token count as runes/4 plus
// a flat surcharge per image.
func estimateTokens(b *Bundle) int {
	runes := utf8.RuneCountInString(b.SystemPrompt)
	images := 0
	for _, m := range b.Messages {
		for _, p := range m.Parts {
			switch p.Type {
			case types.PartText:
				runes += utf8.RuneCountInString(p.Text)
			case types.PartImage:
				images++
			}
		}
	}
	for _, t := range b.Tools {
		runes += utf8.RuneCountInString(t.Description) + 200
	}
	return runes/4 + images*imageTokenSurcharge
}
