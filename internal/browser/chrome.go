package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome   BrowserKind = "chrome"
	BrowserBrave    BrowserKind = "brave"
	BrowserEdge     BrowserKind = "edge"
	BrowserChromium BrowserKind = "chromium"
	BrowserCanary   BrowserKind = "canary"
	BrowserCustom   BrowserKind = "custom"
)

// BrowserExecutable represents a found browser binary.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

// RunningChrome represents a running managed Chrome instance.
type RunningChrome struct {
	PID         int
	Executable  *BrowserExecutable
	UserDataDir string
	CDPPort     int
	StartedAt   time.Time
	cmd         *exec.Cmd
}

// FindChromeExecutable finds a Chrome/Chromium browser on the system.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	if exe := detectDefaultChromium(); exe != nil {
		return exe, nil
	}

	switch runtime.GOOS {
	case "darwin":
		return findChromeMac(), nil
	case "linux":
		return findChromeLinux(), nil
	case "windows":
		return findChromeWindows(), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsChromeReachable checks if Chrome's CDP endpoint is responding.
func IsChromeReachable(cdpURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, "GET", versionURL, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GetChromeWebSocketURL gets the CDP WebSocket URL from a running Chrome.
func GetChromeWebSocketURL(cdpURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, "GET", versionURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", err
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("no webSocketDebuggerUrl in response")
	}
	return version.WebSocketDebuggerURL, nil
}

// LaunchChrome launches a managed Chrome instance with CDP enabled.
func LaunchChrome(cfg *ResolvedConfig) (*RunningChrome, error) {
	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return nil, err
	}
	if exe == nil {
		return nil, fmt.Errorf("no supported browser found (Chrome/Brave/Edge/Chromium)")
	}

	if err := os.MkdirAll(cfg.UserDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user data dir: %w", err)
	}

	args := buildChromeArgs(cfg.UserDataDir, cfg.CDPPort, cfg)

	cmd := exec.Command(exe.Path, args...)
	cmd.Env = append(os.Environ(), "HOME="+os.Getenv("HOME"))
	setChromeProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	running := &RunningChrome{
		PID:         cmd.Process.Pid,
		Executable:  exe,
		UserDataDir: cfg.UserDataDir,
		CDPPort:     cfg.CDPPort,
		StartedAt:   time.Now(),
		cmd:         cmd,
	}

	cdpURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.CDPPort)
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if IsChromeReachable(cdpURL, 500*time.Millisecond) {
			return running, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	killChromeProcessGroup(cmd, true)
	return nil, fmt.Errorf("chrome CDP did not start on port %d within 15s", cfg.CDPPort)
}

// StopChrome stops a running Chrome instance, escalating to SIGKILL after timeout.
func StopChrome(running *RunningChrome, timeout time.Duration) error {
	if running.cmd == nil || running.cmd.Process == nil {
		return nil
	}

	killChromeProcessGroup(running.cmd, false)

	done := make(chan error, 1)
	go func() {
		done <- running.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		killChromeProcessGroup(running.cmd, true)
		return nil
	}
}

func buildChromeArgs(userDataDir string, cdpPort int, cfg *ResolvedConfig) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", cdpPort),
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--disable-features=Translate,MediaRouter",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--password-store=basic",
	}

	if cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if cfg.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}

	args = append(args, "about:blank")
	return args
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func findChromeMac() *BrowserExecutable {
	candidates := []struct {
		kind BrowserKind
		path string
	}{
		{BrowserChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		{BrowserChrome, filepath.Join(os.Getenv("HOME"), "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
		{BrowserBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
		{BrowserEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
		{BrowserChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
		{BrowserCanary, "/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary"},
	}
	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}

func findChromeLinux() *BrowserExecutable {
	candidates := []struct {
		kind BrowserKind
		path string
	}{
		{BrowserChrome, "/usr/bin/google-chrome"},
		{BrowserChrome, "/usr/bin/google-chrome-stable"},
		{BrowserChrome, "/usr/bin/chrome"},
		{BrowserBrave, "/usr/bin/brave-browser"},
		{BrowserBrave, "/usr/bin/brave-browser-stable"},
		{BrowserBrave, "/snap/bin/brave"},
		{BrowserEdge, "/usr/bin/microsoft-edge"},
		{BrowserEdge, "/usr/bin/microsoft-edge-stable"},
		{BrowserChromium, "/usr/bin/chromium"},
		{BrowserChromium, "/usr/bin/chromium-browser"},
		{BrowserChromium, "/snap/bin/chromium"},
	}
	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}

func findChromeWindows() *BrowserExecutable {
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = "C:\\Program Files"
	}

	type candidate struct {
		kind BrowserKind
		path string
	}
	var candidates []candidate

	if localAppData != "" {
		candidates = append(candidates,
			candidate{BrowserChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserBrave, filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			candidate{BrowserEdge, filepath.Join(localAppData, "Microsoft", "Edge", "Application", "msedge.exe")},
			candidate{BrowserCanary, filepath.Join(localAppData, "Google", "Chrome SxS", "Application", "chrome.exe")},
		)
	}
	candidates = append(candidates,
		candidate{BrowserChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{BrowserEdge, filepath.Join(programFiles, "Microsoft", "Edge", "Application", "msedge.exe")},
	)

	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}
		}
	}
	return nil
}

// detectDefaultChromium tries to detect the system's default Chromium-based browser.
func detectDefaultChromium() *BrowserExecutable {
	switch runtime.GOOS {
	case "darwin":
		return detectDefaultChromiumMac()
	case "linux":
		return detectDefaultChromiumLinux()
	case "windows":
		return detectDefaultChromiumWindows()
	default:
		return nil
	}
}

func detectDefaultChromiumMac() *BrowserExecutable {
	cmd := exec.Command("osascript", "-e", `
		use framework "AppKit"
		set ws to current application's NSWorkspace's sharedWorkspace()
		set defaultBrowser to ws's URLForApplicationToOpenURL:(current application's NSURL's URLWithString:"https://")
		if defaultBrowser is missing value then return ""
		set bundlePath to defaultBrowser's |path|() as text
		return bundlePath
	`)
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	bundlePath := strings.TrimSpace(string(out))
	if bundlePath == "" {
		return nil
	}

	chromiumBundles := map[string]BrowserKind{
		"Google Chrome.app":        BrowserChrome,
		"Google Chrome Canary.app": BrowserCanary,
		"Brave Browser.app":        BrowserBrave,
		"Microsoft Edge.app":       BrowserEdge,
		"Chromium.app":             BrowserChromium,
		"Arc.app":                  BrowserChromium,
		"Vivaldi.app":              BrowserChromium,
		"Opera.app":                BrowserChromium,
	}

	for name, kind := range chromiumBundles {
		if strings.Contains(bundlePath, name) {
			exeName := strings.TrimSuffix(name, ".app")
			exePath := filepath.Join(bundlePath, "Contents", "MacOS", exeName)
			if fileExists(exePath) {
				return &BrowserExecutable{Kind: kind, Path: exePath}
			}
		}
	}
	return nil
}

func detectDefaultChromiumLinux() *BrowserExecutable {
	cmd := exec.Command("xdg-settings", "get", "default-web-browser")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	desktopID := strings.TrimSpace(string(out))
	if desktopID == "" {
		return nil
	}

	chromiumDesktops := map[string]BrowserKind{
		"google-chrome.desktop":        BrowserChrome,
		"google-chrome-stable.desktop": BrowserChrome,
		"brave-browser.desktop":        BrowserBrave,
		"microsoft-edge.desktop":       BrowserEdge,
		"chromium.desktop":             BrowserChromium,
		"chromium-browser.desktop":     BrowserChromium,
	}

	kind, ok := chromiumDesktops[desktopID]
	if !ok {
		return nil
	}

	exe := findChromeLinux()
	if exe != nil {
		exe.Kind = kind
	}
	return exe
}

func detectDefaultChromiumWindows() *BrowserExecutable {
	cmd := exec.Command("reg", "query",
		"HKCU\\Software\\Microsoft\\Windows\\Shell\\Associations\\UrlAssociations\\http\\UserChoice",
		"/v", "ProgId")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	output := string(out)
	if strings.Contains(output, "ChromeHTML") {
		return findChromeWindows()
	}
	if strings.Contains(output, "MSEdgeHTM") {
		exe := findChromeWindows()
		if exe != nil && exe.Kind == BrowserEdge {
			return exe
		}
	}
	return nil
}
