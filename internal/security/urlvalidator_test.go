package security

import (
	"errors"
	"net/netip"
	"testing"
)

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		strict  bool
		wantErr error
	}{
		{"openai blob", "https://oaidalleapiprodscus.blob.core.windows.net/img.png", true, nil},
		{"google storage", "https://storage.googleapis.com/bucket/icon.png", true, nil},
		{"any host when lenient", "https://example.com/icon.png", false, nil},
		{"unknown host when strict", "https://example.com/icon.png", true, ErrUntrustedHost},
		{"lookalike host", "https://evilstorage.googleapis.com.example.com/icon.png", true, ErrUntrustedHost},
		{"plain http", "http://storage.googleapis.com/icon.png", false, ErrInvalidScheme},
		{"file scheme", "file:///etc/passwd", false, ErrInvalidScheme},
		{"loopback", "https://127.0.0.1/icon.png", false, ErrPrivateIP},
		{"rfc1918", "https://10.0.0.1/icon.png", false, ErrPrivateIP},
		{"metadata endpoint", "https://169.254.169.254/latest", false, ErrPrivateIP},
		{"ipv6 loopback", "https://[::1]/icon.png", false, ErrPrivateIP},
		{"mapped loopback", "https://[::ffff:127.0.0.1]/icon.png", false, ErrPrivateIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageURL(tt.url, tt.strict)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateImageURL(%q) error = %v", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateImageURL(%q) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSetSkipValidation(t *testing.T) {
	SetSkipValidation(true)
	defer SetSkipValidation(false)

	if err := ValidateImageURL("http://127.0.0.1:8080/icon.png", true); err != nil {
		t.Errorf("ValidateImageURL() with checks disabled = %v", err)
	}
}

func TestBlocked(t *testing.T) {
	tests := map[string]bool{
		"127.0.0.1":      true,
		"10.255.255.255": true,
		"172.31.0.1":     true,
		"192.168.1.1":    true,
		"0.0.0.0":        true,
		"100.64.0.1":     true,
		"198.18.0.1":     true,
		"203.0.113.9":    true,
		"224.0.0.1":      true,
		"250.1.2.3":      true,
		"fe80::1":        true,
		"fd00::1":        true,
		"8.8.8.8":        false,
		"20.150.38.228":  false,
		"2606:4700::1":   false,
	}

	for ip, want := range tests {
		if got := blocked(netip.MustParseAddr(ip)); got != want {
			t.Errorf("blocked(%s) = %v, want %v", ip, got, want)
		}
	}
}
