package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version information",
	Annotations: localOnly,
	Run: func(cmd *cobra.Command, args []string) {
		version, commit := buildVersion()

		if JSONOutput() {
			info := map[string]string{
				"version":    version,
				"commit":     commit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
				"os":         runtime.GOOS,
				"arch":       runtime.GOARCH,
			}
			if cfg != nil {
				info["backend"] = cfg.Backend.BaseURL
			}
			out, _ := json.MarshalIndent(info, "", "  ")
			fmt.Println(string(out))
			return
		}

		fmt.Printf("riffcord %s\n", version)
		if Verbose() {
			fmt.Printf("  commit:     %s\n", commit)
			fmt.Printf("  built:      %s\n", BuildDate)
			fmt.Printf("  go version: %s\n", runtime.Version())
			fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
			if cfg != nil && cfg.Backend.BaseURL != "" {
				fmt.Printf("  backend:    %s\n", cfg.Backend.BaseURL)
			}
		}
	},
}

// buildVersion prefers ldflags values and falls back to the module build
// info, so `go install` builds report something useful.
func buildVersion() (version, commit string) {
	version, commit = Version, Commit
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	if commit == "unknown" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				commit = s.Value
			}
		}
	}
	return version, commit
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
