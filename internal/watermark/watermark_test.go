package watermark

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/text"
)

func TestStampBottomRight(t *testing.T) {
	s, err := New(Options{URL: "https://example.com/v/42", Size: 64, Margin: 4}, nil)
	require.NoError(t, err)

	b := s.Layer().Bounds()
	require.GreaterOrEqual(t, b.Dx(), 64)

	canvas := imaging.NewCanvas(320, 240, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, false)
	s.Apply(canvas)

	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, canvas.Img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, canvas.Img.NRGBAAt(319, 239), "margin stays clear")

	// Finder patterns put dark modules in the stamp's top-left corner.
	assert.Equal(t, color.NRGBA{A: 255}, canvas.Img.NRGBAAt(320-4-b.Dx(), 240-4-b.Dy()))
}

func TestStampWithCaption(t *testing.T) {
	txt, err := text.NewRenderer("")
	require.NoError(t, err)

	qrOnly, err := New(Options{URL: "https://example.com", Size: 64}, nil)
	require.NoError(t, err)
	captioned, err := New(Options{URL: "https://example.com", Caption: "made with scene2video", Size: 64, Margin: 8}, txt)
	require.NoError(t, err)

	assert.Greater(t, captioned.Layer().Bounds().Dy(), qrOnly.Layer().Bounds().Dy())
}

func TestStampOpacity(t *testing.T) {
	s, err := New(Options{URL: "https://example.com", Size: 64, Opacity: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(128), s.Layer().Img.Pix[3])
}

func TestStampNeedsContent(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.Error(t, err)

	_, err = New(Options{Caption: "hi"}, nil)
	assert.Error(t, err)
}
