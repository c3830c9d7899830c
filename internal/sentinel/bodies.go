package sentinel

import (
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
)

// extractBodies walks a parsed MIME entity and returns the text and
// HTML bodies. Attachments and other dispositions are skipped; nothing
// downstream reads them.
func extractBodies(entity *message.Entity) (string, string) {
	var text, html string

	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				break // skip faulty parts
			}

			disposition, _, _ := part.Header.ContentDisposition()
			if disposition == "attachment" {
				continue
			}

			partMediaType, _, _ := part.Header.ContentType()

			body, err := io.ReadAll(part.Body)
			if err != nil {
				slog.Warn("Failed to read part body", "error", err)
				continue
			}

			switch partMediaType {
			case "text/plain":
				text = string(body)
			case "text/html":
				html = string(body)
			}
		}

		return text, html
	}

	// Single-part message: plain text or HTML directly.
	body, err := io.ReadAll(entity.Body)
	if err != nil {
		slog.Error("Failed to read body", "error", err)
		return "", ""
	}

	switch mediaType {
	case "text/plain":
		text = string(body)
	case "text/html":
		html = string(body)
	}

	return text, html
}
