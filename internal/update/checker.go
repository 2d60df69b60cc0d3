package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

const (
	RepoOwner = "Zacy-Sokach"
	RepoName  = "PolyTutor"
	Repo      = RepoOwner + "/" + RepoName

	defaultAPIBase = "https://api.github.com"
)

type ReleaseInfo struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result 一次版本检查的结果
type Result struct {
	Current   string
	Latest    string
	Available bool
	URL       string
}

type Checker struct {
	client  *http.Client
	apiBase string
}

func NewChecker() *Checker {
	return &Checker{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		apiBase: defaultAPIBase,
	}
}

// WithAPIBase 替换 GitHub API 地址，测试时指向本地服务
func (c *Checker) WithAPIBase(base string) *Checker {
	c.apiBase = strings.TrimRight(base, "/")
	return c
}

func (c *Checker) GetLatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, Repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &release, nil
}

// CheckForUpdate 对比当前版本与最新发布版本，dev 构建总是视为可更新
func (c *Checker) CheckForUpdate(ctx context.Context, currentVersion string) (*Result, error) {
	release, err := c.GetLatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	url := release.HTMLURL
	if url == "" {
		url = GetDownloadURL(release.TagName)
	}
	return &Result{
		Current:   currentVersion,
		Latest:    release.TagName,
		Available: currentVersion == "dev" || compareVersions(currentVersion, release.TagName) < 0,
		URL:       url,
	}, nil
}

func GetDownloadURL(version string) string {
	binaryName := fmt.Sprintf("polytutor-%s-%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", Repo, version, binaryName)
}

func compareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		var p1, p2 int
		fmt.Sscanf(parts1[i], "%d", &p1)
		fmt.Sscanf(parts2[i], "%d", &p2)

		if p1 < p2 {
			return -1
		}
		if p1 > p2 {
			return 1
		}
	}

	if len(parts1) < len(parts2) {
		return -1
	}
	if len(parts1) > len(parts2) {
		return 1
	}
	return 0
}
