package main

import (
	"fmt"
	"runtime"
	rtdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type buildInfo struct {
	Version   string
	GitCommit string
	BuildTime string
	Modified  bool
	GoVersion string
	Platform  string
}

// readBuildInfo fills anything the linker flags left unset from the VCS
// stamp the go tool embeds in the binary.
func readBuildInfo(info *rtdebug.BuildInfo, ok bool) buildInfo {
	b := buildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if !ok || info == nil {
		return b
	}
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.GitCommit == "unknown" {
				b.GitCommit = s.Value
				if len(b.GitCommit) > 12 {
					b.GitCommit = b.GitCommit[:12]
				}
			}
		case "vcs.time":
			if b.BuildTime == "unknown" {
				b.BuildTime = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		b := readBuildInfo(rtdebug.ReadBuildInfo())
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, b.Version)
			return
		}
		commit := b.GitCommit
		if b.Modified {
			commit += "-dirty"
		}
		fmt.Fprintf(out, "meridian %s\n", b.Version)
		fmt.Fprintf(out, "  Git commit: %s\n", commit)
		fmt.Fprintf(out, "  Build time: %s\n", b.BuildTime)
		fmt.Fprintf(out, "  Go:         %s %s\n", b.GoVersion, b.Platform)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	rootCmd.AddCommand(versionCmd)
}
