// Package display previews icons inline in terminals that speak the kitty
// graphics protocol.
package display

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	// chunkSize is the protocol's maximum payload per escape sequence.
	chunkSize = 4096
)

// Fetcher resolves an icon URL (data URI or remote) to image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

type Displayer struct {
	out     io.Writer
	fetcher Fetcher
}

func New(out io.Writer, fetcher Fetcher) *Displayer {
	return &Displayer{out: out, fetcher: fetcher}
}

// Show fetches the icon behind imageURL and draws it.
func (d *Displayer) Show(ctx context.Context, imageURL string) error {
	data, err := d.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return err
	}
	if err := WriteKitty(d.out, data); err != nil {
		return fmt.Errorf("failed to draw image: %w", err)
	}
	_, err = fmt.Fprintln(d.out)
	return err
}

// WriteKitty transmits PNG data as one or more kitty graphics escape
// sequences. Every chunk but the last carries m=1.
func WriteKitty(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	for first := true; len(encoded) > 0; first = false {
		n := min(chunkSize, len(encoded))
		chunk := encoded[:n]
		encoded = encoded[n:]
		more := len(encoded) > 0

		var params []string
		if first {
			params = append(params, "a=T", "f=100", "q=2")
		}
		if more {
			params = append(params, "m=1")
		} else if !first {
			params = append(params, "m=0")
		}

		if _, err := fmt.Fprintf(w, "%s%s;%s%s", escapeStart, strings.Join(params, ","), chunk, escapeEnd); err != nil {
			return err
		}
	}
	return nil
}

// Supported reports whether the terminal described by the environment
// renders kitty graphics.
func Supported(getenv func(string) string) bool {
	switch strings.ToLower(getenv("TERM_PROGRAM")) {
	case "kitty", "ghostty", "wezterm", "iterm.app":
		return true
	}
	if getenv("KITTY_WINDOW_ID") != "" || getenv("ITERM_SESSION_ID") != "" {
		return true
	}
	term := strings.ToLower(getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
