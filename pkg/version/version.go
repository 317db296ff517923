// Package version reports build metadata. The variables are set at link
// time, for example:
//
//	go build -ldflags "-X github.com/inercia/go-baski/pkg/version.version=v0.3.0"
//
// When they are not set, the VCS stamps recorded by the Go toolchain are used.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/gosuri/uitable"
)

var (
	version   = "v0.0.0-dev"
	commit    = ""
	buildDate = ""
	dirty     = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get collects the build metadata.
func Get() Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		Dirty:     dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				if dirty == "" {
					info.Dirty = s.Value == "true"
				}
			}
		}
	}
	return info
}

func (i Info) String() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}

// JSON returns the metadata as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding version info: %w", err)
	}
	return string(data), nil
}

// Text renders the metadata as an aligned table.
func (i Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.Separator = " "
	table.MaxColWidth = 80

	table.AddRow("version:", i.String())
	if i.Commit != "" {
		table.AddRow("commit:", i.Commit)
	}
	if i.BuildDate != "" {
		table.AddRow("built:", i.BuildDate)
	}
	table.AddRow("go:", i.GoVersion)
	table.AddRow("platform:", i.Platform)
	return table.String()
}
