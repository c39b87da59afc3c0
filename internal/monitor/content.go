package monitor

import (
	"strings"

	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"gopkg.in/telebot.v4"
)

// contentOf maps a chat message onto a submission. It returns nil for kinds that are never scored.
func contentOf(msg *telebot.Message) submission.Content {
	switch {
	case msg.Photo != nil:
		return submission.Photo{FileID: msg.Photo.FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return submission.Media{Kind: models.ActivityVideo, FileID: msg.Video.FileID, FileName: msg.Video.FileName, Caption: msg.Caption}
	case msg.Animation != nil:
		return submission.Media{Kind: models.ActivityAnimation, FileID: msg.Animation.FileID, FileName: msg.Animation.FileName, Caption: msg.Caption}
	case msg.Document != nil:
		return submission.Media{Kind: models.ActivityDocument, FileID: msg.Document.FileID, FileName: msg.Document.FileName, Caption: msg.Caption}
	case msg.Sticker != nil:
		return submission.Media{Kind: models.ActivitySticker, FileID: msg.Sticker.FileID}
	case msg.Voice != nil:
		return submission.Media{Kind: models.ActivityVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}
	case msg.VideoNote != nil:
		return submission.Media{Kind: models.ActivityVideoNote, FileID: msg.VideoNote.FileID}
	case msg.Text != "":
		return submission.Text{Body: msg.Text}
	default:
		return nil
	}
}

// commandOf returns the command a message invokes, without the slash and bot mention.
// The reply keyboard buttons count as their commands.
func commandOf(text string) (string, bool) {
	switch strings.TrimSpace(text) {
	case engine.ButtonMyScore:
		return "points", true
	case engine.ButtonTimeSheet:
		return "schedule", true
	}
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, _, _ = strings.Cut(name, "@")
	name = strings.ToLower(name)
	return name, name != ""
}
