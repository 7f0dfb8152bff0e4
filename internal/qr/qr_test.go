package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_Levels(t *testing.T) {
	tests := map[string]qrcode.RecoveryLevel{
		"L": qrcode.Low,
		"M": qrcode.Medium,
		"Q": qrcode.High,
		"H": qrcode.Highest,
		"":  qrcode.Medium,
		"x": qrcode.Medium,
	}
	for in, want := range tests {
		assert.Equal(t, want, NewRenderer(0, in, "").level, "level %q", in)
	}
	assert.Equal(t, 256, NewRenderer(0, "M", "").size)
}

func TestRedeemURL(t *testing.T) {
	r := NewRenderer(128, "M", "https://app.example.com/accept-invite?ref=qr")
	got, err := r.RedeemURL("ABCDEFGHJK")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/accept-invite?code=ABCDEFGHJK&ref=qr", got)
}

func TestInvitePNG(t *testing.T) {
	r := NewRenderer(128, "H", "https://app.example.com/accept-invite")
	data, err := r.InvitePNG("ABCDEFGHJK")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}
