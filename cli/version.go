package cli

import (
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Version is replaced by LD flags.
var Version = ""

// VersionAction is the corresponding Action for 'version'.
func VersionAction(c *cli.Context) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("error reading build info")
	}
	if c.Bool(debugFlag) {
		printf(c.App.Writer, "%s", info.String())
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := "?"
	if rev, ok := settings["vcs.revision"]; ok && len(rev) >= 8 {
		revision = rev[:8]
		if settings["vcs.modified"] == "true" {
			revision += "+"
		}
	}
	version := Version
	if version == "" {
		version = "(dev)"
	}
	printf(c.App.Writer, "Version %s Git=%s Go=%s", version, revision, info.GoVersion)
	return nil
}
