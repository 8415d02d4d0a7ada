// Media capability routing
package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// Transcriber converts a voice recording to text. Implementations live
// outside this module.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ImageDescriber produces a text description of an image.
type ImageDescriber interface {
	Describe(ctx context.Context, image []byte) (string, error)
}

// MediaRouter unifies text, voice and image turns into a single text turn
// for the pipeline. Either capability may be nil when not configured.
type MediaRouter struct {
	transcriber Transcriber
	describer   ImageDescriber
}

func NewMediaRouter(transcriber Transcriber, describer ImageDescriber) *MediaRouter {
	return &MediaRouter{transcriber: transcriber, describer: describer}
}

// ExtractContent returns the turn text. Image turns are tagged with an
// [image] prefix so the analyzer can pick the image_analysis scenario.
func (r *MediaRouter) ExtractContent(ctx context.Context, req *models.TurnRequest) (string, error) {
	switch {
	case len(req.VoiceData) > 0:
		if r.transcriber == nil {
			return "", errors.New("voice messages are not supported: no transcriber configured")
		}
		text, err := r.transcriber.Transcribe(ctx, req.VoiceData)
		if err != nil {
			return "", errors.Wrap(err, "transcribe voice message")
		}
		return text, nil

	case len(req.ImageData) > 0:
		if r.describer == nil {
			return "", errors.New("images are not supported: no image describer configured")
		}
		description, err := r.describer.Describe(ctx, req.ImageData)
		if err != nil {
			return "", errors.Wrap(err, "describe image")
		}
		parts := []string{"[image]", description}
		if caption := strings.TrimSpace(req.Caption); caption != "" {
			parts = append(parts, caption)
		}
		return strings.Join(parts, " "), nil

	default:
		text := strings.TrimSpace(req.Content)
		if text == "" {
			return "", errors.New("empty turn")
		}
		return text, nil
	}
}
