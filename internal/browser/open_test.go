package browser

import (
	"slices"
	"testing"
)

func TestCommand(t *testing.T) {
	const url = "https://discord.com/oauth2/authorize?client_id=1"

	tests := []struct {
		goos string
		want []string
	}{
		{"darwin", []string{"open", url}},
		{"linux", []string{"xdg-open", url}},
		{"freebsd", []string{"xdg-open", url}},
		{"windows", []string{"rundll32", "url.dll,FileProtocolHandler", url}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := command(tt.goos, url)
			if err != nil {
				t.Fatalf("command() error = %v", err)
			}
			// Args[0] is the name as given, before PATH lookup.
			if !slices.Equal(cmd.Args, tt.want) {
				t.Errorf("command() args = %v, want %v", cmd.Args, tt.want)
			}
		})
	}
}

func TestCommandUnsupported(t *testing.T) {
	if _, err := command("plan9", "https://example.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
