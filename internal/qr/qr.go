// Package qr renders invite links as QR code images.
package qr

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// Renderer renders PNG QR codes pointing at the invite redemption page.
type Renderer struct {
	size          int
	level         qrcode.RecoveryLevel
	redeemBaseURL string
}

// NewRenderer creates a Renderer. recoveryLevel is one of L, M, Q, H; anything
// else uses M. size <= 0 uses 256 pixels.
func NewRenderer(size int, recoveryLevel, redeemBaseURL string) *Renderer {
	var level qrcode.RecoveryLevel
	switch recoveryLevel {
	case "L":
		level = qrcode.Low
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}
	if size <= 0 {
		size = 256
	}
	return &Renderer{size: size, level: level, redeemBaseURL: redeemBaseURL}
}

// RedeemURL returns the link encoded for an invite code.
func (r *Renderer) RedeemURL(code string) (string, error) {
	u, err := url.Parse(r.redeemBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse redeem base url: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InvitePNG renders the redemption link of code as a PNG image.
func (r *Renderer) InvitePNG(code string) ([]byte, error) {
	link, err := r.RedeemURL(code)
	if err != nil {
		return nil, err
	}
	q, err := qrcode.New(link, r.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := q.PNG(r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}
