package version

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"text/template"

	"github.com/spf13/cobra"
)

// Template field labels
const (
	VersionLabel   = "Version:"
	CommitLabel    = "Git commit:"
	BuiltLabel     = "Built:"
	GoVersionLabel = "Go version:"
	OSArchLabel    = "OS/Arch:"
)

const (
	OutputText = "text"
	OutputJSON = "json"
)

var versionTemplate = `
 ` + VersionLabel + `	{{.Version}}
 ` + CommitLabel + `	{{.GitCommit}}
 ` + BuiltLabel + `		{{.BuildTime}}
 ` + GoVersionLabel + `	{{.GoVersion}}
 ` + OSArchLabel + `	{{.Os}}/{{.Arch}}
`

type versionInfo struct {
	// build-time info
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	// client machine info
	GoVersion string `json:"go_version"`
	Os        string `json:"os"`
	Arch      string `json:"arch"`
}

type respVersionInfo struct {
	Info *versionInfo
}

func (v *respVersionInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Info)
}

func (v *respVersionInfo) MarshalText() ([]byte, error) {
	tmpl, err := template.New("version").Parse(versionTemplate)
	if err != nil {
		return nil, fmt.Errorf("template parsing error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v.Info); err != nil {
		return nil, fmt.Errorf("template executing error: %w", err)
	}
	return buf.Bytes(), nil
}

func currentInfo() *respVersionInfo {
	return &respVersionInfo{
		Info: &versionInfo{
			Version:   getVersion(),
			GitCommit: getCommit(),
			BuildTime: getBuildTimeDisplay(),
			GoVersion: runtime.Version(),
			Os:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		},
	}
}

// String is a one-line version summary for logs.
func String() string {
	info := currentInfo().Info
	return fmt.Sprintf("%s (%s)", info.Version, info.GitCommit)
}

func NewVersionCmd() *cobra.Command {
	var output string

	var cmd = &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := currentInfo()

			var (
				out []byte
				err error
			)
			switch output {
			case OutputJSON:
				out, err = resp.MarshalJSON()
				out = append(out, '\n')
			case OutputText:
				out, err = resp.MarshalText()
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputText, "output format (text|json)")

	return cmd
}
