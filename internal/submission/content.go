package submission

import (
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
)

// Content is what a member posted. It is one of Text, Photo, Media or Button.
type Content interface {
	Activity() models.ActivityType
	// Summary is the short text stored in the activity log.
	Summary() string
	// File returns the Telegram file id, empty for text.
	File() string

	sealed()
}

type Text struct {
	Body string
}

func (Text) Activity() models.ActivityType { return models.ActivityText }
func (t Text) Summary() string             { return t.Body }
func (Text) File() string                  { return "" }
func (Text) sealed()                       {}

type Photo struct {
	FileID  string
	Caption string
}

func (Photo) Activity() models.ActivityType { return models.ActivityPhoto }
func (p Photo) Summary() string             { return p.Caption }
func (p Photo) File() string                { return p.FileID }
func (Photo) sealed()                       {}

// Media covers every other attachment kind: video, document, sticker, animation, voice and video note.
type Media struct {
	Kind     models.ActivityType
	FileID   string
	FileName string
	Caption  string
}

func (m Media) Activity() models.ActivityType { return m.Kind }
func (m Media) File() string                  { return m.FileID }
func (Media) sealed()                         {}

func (m Media) Summary() string {
	if m.Caption != "" {
		return m.Caption
	}
	return fmt.Sprintf("[%s]", m.Kind)
}

// Category is the storage folder for persisted files of this content.
func Category(c Content) string {
	switch c.Activity() {
	case models.ActivityPhoto:
		return "photos"
	case models.ActivityVideo, models.ActivityVideoNote, models.ActivityAnimation:
		return "videos"
	case models.ActivityVoice:
		return "voice"
	case models.ActivitySticker:
		return "stickers"
	default:
		return "documents"
	}
}

// Button is an inline button press, logged like any other completion.
type Button struct {
	Label string
}

func (Button) Activity() models.ActivityType { return models.ActivityButton }
func (b Button) Summary() string             { return b.Label }
func (Button) File() string                  { return "" }
func (Button) sealed()                       {}
