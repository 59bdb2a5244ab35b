// Package schedule installs spinpost as a periodic launchd agent.
package schedule

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// Label identifies the launchd agent
const Label = "com.spinpost.agent"

// DefaultInterval runs an ingest every six hours, well inside the
// recently-played window
const DefaultInterval = 6 * 60 * 60

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{xml .BinaryPath}}</string>
{{- range .Args}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
	<key>StartInterval</key>
	<integer>{{.IntervalSeconds}}</integer>
	<key>RunAtLoad</key>
	<{{if .RunAtLoad}}true{{else}}false{{end}}/>
	<key>StandardOutPath</key>
	<string>{{xml .LogPath}}/spinpost.log</string>
	<key>StandardErrorPath</key>
	<string>{{xml .LogPath}}/spinpost.err</string>
	<key>WorkingDirectory</key>
	<string>{{xml .WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

// PlistConfig holds the configuration for generating a launchd plist
type PlistConfig struct {
	Label            string
	BinaryPath       string
	Args             []string // arguments after the binary, e.g. --ingest-only
	IntervalSeconds  int
	RunAtLoad        bool
	LogPath          string
	WorkingDirectory string
}

var tmpl = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": escapeXML,
}).Parse(plistTemplate))

// GeneratePlist renders a launchd plist for cfg
func GeneratePlist(cfg PlistConfig) (string, error) {
	if cfg.Label == "" {
		cfg.Label = Label
	}
	if cfg.IntervalSeconds <= 0 {
		return "", fmt.Errorf("interval must be positive, got %d", cfg.IntervalSeconds)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to execute plist template: %w", err)
	}

	return buf.String(), nil
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// GetPlistPath returns the path where the plist should be installed
func GetPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

// GetDefaultLogPath returns the default directory for agent logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "spinpost", "logs"), nil
}

// Launchctl drives launchctl for the current user's GUI domain
type Launchctl struct {
	// run executes a command and returns its combined output
	run func(name string, args ...string) ([]byte, error)
	uid int
}

// NewLaunchctl returns a Launchctl for the current user
func NewLaunchctl() *Launchctl {
	return &Launchctl{
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
		uid: os.Getuid(),
	}
}

func (l *Launchctl) domain() string {
	return fmt.Sprintf("gui/%d", l.uid)
}

// Bootstrap loads the agent at plistPath
func (l *Launchctl) Bootstrap(plistPath string) error {
	output, err := l.run("launchctl", "bootstrap", l.domain(), plistPath)
	if err != nil {
		if out := strings.TrimSpace(string(output)); out != "" {
			return fmt.Errorf("launchctl bootstrap failed: %s", out)
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}
	return nil
}

// Bootout unloads the agent. An agent that is not loaded is not an error;
// launchctl's message is returned as a warning instead.
func (l *Launchctl) Bootout(label string) (warning string, err error) {
	output, err := l.run("launchctl", "bootout", l.domain()+"/"+label)
	if err != nil {
		if out := strings.TrimSpace(string(output)); out != "" {
			return out, nil
		}
		return "", fmt.Errorf("failed to run launchctl bootout: %w", err)
	}
	return "", nil
}
