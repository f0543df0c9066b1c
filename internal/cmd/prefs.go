package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lumenhub/lumend/internal/configpaths"
	"github.com/lumenhub/lumend/prefs"

	toml "github.com/pelletier/go-toml"
	"golang.org/x/term"
)

// PrefsCommand groups operations on the per-serial preference store, for
// inspecting or clearing a device's persisted state without running the
// full daemon.
type PrefsCommand struct {
	Show  PrefsShow  `cmd:"" help:"Print a device's persisted preference record"`
	Reset PrefsReset `cmd:"" help:"Delete a device's persisted preference record"`
}

// PrefsShow prints one serial's preference record.
type PrefsShow struct {
	Serial string `arg:"" help:"Device serial number"`
	Format string `help:"Output format" enum:"json,toml" default:"json"`
}

// Run loads and prints the record for Serial.
func (c *PrefsShow) Run() error {
	dir, err := configpaths.DefaultPrefsDir()
	if err != nil {
		return err
	}
	cfg, err := prefs.LoadFromDir(dir, c.Serial)
	if err != nil {
		return err
	}
	record := cfg.Snapshot()

	var data []byte
	switch strings.ToLower(c.Format) {
	case "toml":
		data, err = toml.Marshal(record)
	default:
		data, err = json.MarshalIndent(record, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("prefs show: marshal: %w", err)
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

// PrefsReset deletes one serial's persisted preference record. This is
// destructive and irreversible, so it confirms interactively unless Yes
// is set; without Yes, a non-terminal stdin makes it fail instead of
// prompting.
type PrefsReset struct {
	Serial string `arg:"" help:"Device serial number"`
	Yes    bool   `help:"Skip the interactive confirmation prompt" default:"false"`
}

// Run deletes the serial's preference file after confirming.
func (c *PrefsReset) Run() error {
	if !c.Yes {
		ok, err := confirm(fmt.Sprintf("Delete all persisted preferences for %q?", c.Serial))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("aborted: use --yes to skip confirmation in non-interactive contexts")
		}
	}

	dir, err := configpaths.DefaultPrefsDir()
	if err != nil {
		return err
	}
	cfg, err := prefs.LoadFromDir(dir, c.Serial)
	if err != nil {
		return err
	}
	return cfg.Delete()
}

// confirm prompts y/N on stdout/stdin, refusing to block forever when
// stdin isn't an interactive terminal (e.g. run from a script or CI).
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to confirm non-interactively")
	}
	fmt.Fprintf(os.Stdout, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
