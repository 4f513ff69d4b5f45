// Package photo normalises profile photos into small JPEG data URLs.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	// Registered decoders for uploaded photos.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// Size is the width and height of a processed photo.
	Size = 200
	// Quality is the JPEG quality of a processed photo.
	Quality = 85
	// maxPixels bounds the source image so decoding cannot exhaust memory.
	maxPixels = 40_000_000
)

var ErrInvalidImage = errors.New("invalid image")

// Process decodes a base64 image, with or without a data URL prefix, scales it
// to Size by Size and returns it as a JPEG data URL.
func Process(data string) (string, error) {
	if strings.HasPrefix(data, "data:image") {
		_, payload, ok := strings.Cut(data, ",")
		if !ok {
			return "", fmt.Errorf("%w: missing data", ErrInvalidImage)
		}
		data = payload
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return "", fmt.Errorf("%w: %dx%d is out of bounds", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
