package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TickTockBent/charlotte/internal/browser"
)

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

// DoctorCmd prints the resolved configuration, the detected browser
// executable, and whether a managed CDP endpoint is already reachable
// on the configured port.
func DoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and browser availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDoctor()
			return nil
		},
	}
	return cmd
}

func runDoctor() {
	fmt.Println("Charlotte Doctor")
	fmt.Println("================")
	fmt.Println()

	var results []checkResult
	results = append(results, checkConfig()...)
	results = append(results, checkBrowser()...)

	okCount, warnCount, errCount := 0, 0, 0
	for _, r := range results {
		switch r.status {
		case "ok":
			fmt.Printf("[ok]   %s: %s\n", r.name, r.message)
			okCount++
		case "warn":
			fmt.Printf("[warn] %s: %s\n", r.name, r.message)
			warnCount++
		default:
			fmt.Printf("[err]  %s: %s\n", r.name, r.message)
			errCount++
		}
	}

	fmt.Println()
	fmt.Printf("%d ok, %d warnings, %d errors\n", okCount, warnCount, errCount)
}

func checkConfig() []checkResult {
	var results []checkResult

	path := configPath
	if path == "" {
		resolved, err := browser.DefaultConfigPath()
		if err != nil {
			results = append(results, checkResult{"Config Path", "error", err.Error()})
			return results
		}
		path = resolved
	}
	results = append(results, checkResult{"Config Path", "ok", path})

	raw, err := browser.LoadConfig(path)
	if err != nil {
		results = append(results, checkResult{"Config File", "error", err.Error()})
		return results
	}
	cfg, err := browser.ResolveConfig(raw)
	if err != nil {
		results = append(results, checkResult{"Config Resolve", "error", err.Error()})
		return results
	}

	results = append(results, checkResult{
		"Config",
		"ok",
		fmt.Sprintf("cdpPort=%d controlPort=%d headless=%v snapshotDepth=%d", cfg.CDPPort, cfg.ControlPort, cfg.Headless, cfg.SnapshotDepth),
	})
	results = append(results, checkResult{"Workspace Root", "ok", cfg.AllowedWorkspaceRoot})
	results = append(results, checkResult{"Screenshot Dir", "ok", cfg.ScreenshotDir})
	return results
}

func checkBrowser() []checkResult {
	var results []checkResult

	path := configPath
	if path == "" {
		if resolved, err := browser.DefaultConfigPath(); err == nil {
			path = resolved
		}
	}
	raw, err := browser.LoadConfig(path)
	if err != nil {
		return results
	}
	cfg, err := browser.ResolveConfig(raw)
	if err != nil {
		return results
	}

	exe, err := browser.FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		results = append(results, checkResult{
			"Browser Executable",
			"error",
			fmt.Sprintf("no Chromium-based browser found: %v", err),
		})
		return results
	}
	results = append(results, checkResult{
		"Browser Executable",
		"ok",
		fmt.Sprintf("%s (%s)", exe.Path, exe.Kind),
	})

	cdpURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.CDPPort)
	if browser.IsChromeReachable(cdpURL, time.Second) {
		results = append(results, checkResult{"CDP Endpoint", "ok", fmt.Sprintf("reachable at %s", cdpURL)})
	} else {
		results = append(results, checkResult{"CDP Endpoint", "warn", fmt.Sprintf("not reachable at %s (will launch on first use)", cdpURL)})
	}
	return results
}
