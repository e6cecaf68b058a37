package updater

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"evidence-stamp/internal/config"
)

// Version is set during build via ldflags
var Version = "dev"

const (
	defaultAPIBase = "https://api.github.com"
	assetPrefix    = "evidence-stamp"
	exeName        = "evidence-stamp.exe"
	userAgent      = "EvidenceStamp-Updater"
)

var ErrNoCompatibleAsset = errors.New("no compatible release asset")

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	Body        string        `json:"body"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt time.Time     `json:"published_at"`
	Assets      []GitHubAsset `json:"assets"`
}

// GitHubAsset represents a release asset
type GitHubAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type"`
}

// Updater checks GitHub releases of update.owner/update.repo and stages new builds
type Updater struct {
	owner      string
	repo       string
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewUpdater(cfg *config.Config, logger *zap.Logger) *Updater {
	timeout := cfg.Update.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Updater{
		owner:   cfg.Update.Owner,
		repo:    cfg.Update.Repo,
		apiBase: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CheckForUpdate returns the latest release when it is newer than Version, or nil
func (u *Updater) CheckForUpdate(ctx context.Context) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", u.apiBase, u.owner, u.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // No releases available
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}

	if release.Draft || release.Prerelease {
		return nil, nil
	}
	if !isNewerVersion(release.TagName, Version) {
		return nil, nil
	}

	return &release, nil
}

// GetDownloadAsset finds the zip for the current platform
func GetDownloadAsset(release *GitHubRelease, goos, goarch string) *GitHubAsset {
	expected := fmt.Sprintf("%s-%s-%s.zip", assetPrefix, goos, goarch)
	for i := range release.Assets {
		if release.Assets[i].Name == expected {
			return &release.Assets[i]
		}
	}

	// Fall back to any zip naming the OS
	for i := range release.Assets {
		name := strings.ToLower(release.Assets[i].Name)
		if strings.Contains(name, goos) && strings.HasSuffix(name, ".zip") {
			return &release.Assets[i]
		}
	}
	return nil
}

// DownloadUpdate downloads asset into a temp file and returns its path
func (u *Updater) DownloadUpdate(ctx context.Context, asset *GitHubAsset, progressFn func(downloaded, total int64)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", assetPrefix+"-update-*.zip")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	w := &progressWriter{w: tmpFile, total: asset.Size, fn: progressFn}
	if _, err := io.Copy(w, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to download update: %w", err)
	}

	return tmpFile.Name(), nil
}

type progressWriter struct {
	w     io.Writer
	done  int64
	total int64
	fn    func(downloaded, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
	return n, err
}

// VerifyChecksum compares the SHA-256 of filePath with expected. An empty
// expected checksum skips the check.
func VerifyChecksum(filePath, expected string) error {
	if expected == "" {
		return nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// ApplyUpdate extracts zipPath and writes apply-update.bat next to the
// running executable. The script swaps the binary while the service is stopped.
func (u *Updater) ApplyUpdate(zipPath, serviceName string) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}

	installDir := filepath.Dir(exePath)
	stageDir := filepath.Join(installDir, ".update")
	backupDir := filepath.Join(installDir, ".backup")
	for _, dir := range []string{stageDir, backupDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	if err := extractZip(zipPath, stageDir); err != nil {
		return "", fmt.Errorf("failed to extract update: %w", err)
	}

	newExe, err := findExecutable(stageDir)
	if err != nil {
		return "", err
	}
	backupExe := filepath.Join(backupDir, fmt.Sprintf("evidence-stamp-%s.exe.bak", Version))

	script := fmt.Sprintf(`@echo off
echo Applying Evidence Stamp update...
timeout /t 3 /nobreak > nul
net stop %[1]s 2>nul
if exist "%[2]s" move /y "%[2]s" "%[3]s"
copy /y "%[4]s" "%[2]s"
net start %[1]s
rmdir /s /q "%[5]s"
del "%%~f0"
`, serviceName, exePath, backupExe, newExe, stageDir)

	scriptPath := filepath.Join(installDir, "apply-update.bat")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		return "", err
	}

	u.logger.Info("Update staged",
		zap.String("script", scriptPath),
		zap.String("executable", newExe),
	)
	return scriptPath, nil
}

// findExecutable looks for the service binary at the top of dir or one level down
func findExecutable(dir string) (string, error) {
	direct := filepath.Join(dir, exeName)
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name(), exeName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found in update archive", exeName)
}

// CheckAndUpdate performs a full update check and stage cycle
func (u *Updater) CheckAndUpdate(ctx context.Context, serviceName string) error {
	u.logger.Info("Checking for updates", zap.String("current", Version))

	release, err := u.CheckForUpdate(ctx)
	if err != nil {
		return err
	}
	if release == nil {
		u.logger.Info("Already running the latest version")
		return nil
	}

	asset := GetDownloadAsset(release, runtime.GOOS, runtime.GOARCH)
	if asset == nil {
		return fmt.Errorf("%s/%s: %w", runtime.GOOS, runtime.GOARCH, ErrNoCompatibleAsset)
	}

	u.logger.Info("Downloading update",
		zap.String("version", release.TagName),
		zap.String("asset", asset.Name),
		zap.Int64("size_bytes", asset.Size),
	)
	zipPath, err := u.DownloadUpdate(ctx, asset, nil)
	if err != nil {
		return err
	}
	defer os.Remove(zipPath)

	_, err = u.ApplyUpdate(zipPath, serviceName)
	return err
}

// isNewerVersion compares dotted versions numerically; a leading "v" is ignored
func isNewerVersion(remote, current string) bool {
	remoteParts := strings.Split(strings.TrimPrefix(remote, "v"), ".")
	currentParts := strings.Split(strings.TrimPrefix(current, "v"), ".")

	for i := 0; i < len(remoteParts) && i < len(currentParts); i++ {
		r, rerr := strconv.Atoi(remoteParts[i])
		c, cerr := strconv.Atoi(currentParts[i])
		if rerr != nil || cerr != nil {
			// Non-numeric (e.g. "dev"): anything released is newer
			return cerr != nil && rerr == nil
		}
		if r != c {
			return r > c
		}
	}

	return len(remoteParts) > len(currentParts)
}

// extractZip extracts a zip file to destDir, rejecting entries that escape it
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		if !strings.HasPrefix(filepath.Clean(fpath), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, dst string) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
