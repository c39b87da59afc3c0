package submission

import "github.com/C4T-BuT-S4D/slotwarden/internal/models"

type Decision int

const (
	// Accept awards the slot immediately.
	Accept Decision = iota
	// Confirm asks the member a yes/no question before awarding.
	Confirm
	// UseButtons rejects a message posted during a button slot.
	UseButtons
	// Empty rejects a text that has nothing left after sanitising.
	Empty
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Confirm:
		return "confirm"
	case UseButtons:
		return "use_buttons"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Classify decides what to do with content posted while slot is active.
// Text bodies are expected to be sanitised already.
func Classify(slot *models.Slot, c Content) Decision {
	if slot.Type == models.SlotTypeButton {
		return UseButtons
	}

	switch v := c.(type) {
	case Text:
		if v.Body == "" {
			return Empty
		}
		if models.MatchesKeyword(v.Body, slot.KeywordList()) {
			return Accept
		}
		return Confirm
	case Photo:
		if models.MatchesKeyword(Sanitize(v.Caption), slot.KeywordList()) {
			return Accept
		}
		return Confirm
	default:
		return Confirm
	}
}
