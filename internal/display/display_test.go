package display

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type fakeFetcher struct {
	data []byte
	err  error
}

func (f fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

func TestShow(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, fakeFetcher{data: []byte("icon bytes")})

	if err := d.Show(context.Background(), "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, escapeStart+"a=T,f=100,q=2;") {
		t.Errorf("output prefix = %q", out)
	}
	if !strings.Contains(out, base64.StdEncoding.EncodeToString([]byte("icon bytes"))) {
		t.Error("payload missing")
	}
	if !strings.HasSuffix(out, escapeEnd+"\n") {
		t.Error("output should end with terminator and newline")
	}
}

func TestShow_FetchError(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("no image")
	d := New(&buf, fakeFetcher{err: want})

	if err := d.Show(context.Background(), ""); !errors.Is(err, want) {
		t.Errorf("Show() error = %v, want %v", err, want)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q on fetch failure", buf.String())
	}
}

func TestWriteKitty_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKitty(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestWriteKitty_Chunked(t *testing.T) {
	var buf bytes.Buffer
	data := bytes.Repeat([]byte("x"), chunkSize*2)
	if err := WriteKitty(&buf, data); err != nil {
		t.Fatal(err)
	}

	seqs := strings.Split(strings.TrimSuffix(buf.String(), escapeEnd), escapeEnd)
	if len(seqs) < 3 {
		t.Fatalf("got %d sequences, want at least 3", len(seqs))
	}

	var payload strings.Builder
	for i, s := range seqs {
		params, chunk, ok := strings.Cut(strings.TrimPrefix(s, escapeStart), ";")
		if !ok {
			t.Fatalf("sequence %d has no payload separator", i)
		}
		if len(chunk) > chunkSize {
			t.Errorf("chunk %d is %d bytes", i, len(chunk))
		}
		payload.WriteString(chunk)

		switch {
		case i == 0:
			if params != "a=T,f=100,q=2,m=1" {
				t.Errorf("first params = %q", params)
			}
		case i == len(seqs)-1:
			if params != "m=0" {
				t.Errorf("last params = %q", params)
			}
		default:
			if params != "m=1" {
				t.Errorf("middle params = %q", params)
			}
		}
	}

	if payload.String() != base64.StdEncoding.EncodeToString(data) {
		t.Error("reassembled payload differs")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"kitty program", map[string]string{"TERM_PROGRAM": "kitty"}, true},
		{"iterm", map[string]string{"TERM_PROGRAM": "iTerm.app"}, true},
		{"kitty window", map[string]string{"KITTY_WINDOW_ID": "1"}, true},
		{"ghostty term", map[string]string{"TERM": "xterm-ghostty"}, true},
		{"plain xterm", map[string]string{"TERM": "xterm-256color"}, false},
		{"empty", map[string]string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := Supported(getenv); got != tt.want {
				t.Errorf("Supported() = %v, want %v", got, tt.want)
			}
		})
	}
}
