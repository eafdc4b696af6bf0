// Package imaging decodes page images ahead of display.
package imaging

import (
	"bytes"
	"context"
	"image"
	"log/slog"

	// Decoders for every extension the scanner allow-lists.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/starford/raido/internal/models"
)

// Prefetch dereferences and decodes an ordered batch of image refs so their
// bytes are warm when the reader gets to them. Best-effort: individual
// failures are logged and skipped, and the caller is never failed. Returns
// how many pages decoded cleanly.
func Prefetch(ctx context.Context, refs []models.ImageRef, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	decoded := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return decoded
		}
		data, err := ref.Bytes()
		if err != nil {
			logger.Warn("prefetch: read failed",
				slog.String("page", ref.Name), slog.String("error", err.Error()))
			continue
		}
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			logger.Warn("prefetch: decode failed",
				slog.String("page", ref.Name), slog.String("error", err.Error()))
			continue
		}
		decoded++
	}
	return decoded
}
