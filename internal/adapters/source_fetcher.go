package adapters

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/ports"
	"stackforge/internal/shared"
	"stackforge/internal/types"
)

const (
	defaultFetchRetries    = 3
	defaultFetchRetryDelay = 500 * time.Millisecond
	defaultFetchTimeout    = 5 * time.Minute
	maxFetchRetryDelay     = 10 * time.Second
)

var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz", ".tar"}

// SourceFetcher keeps downloaded sources in a cache laid out as
// <source path>/<first letter>/<name>/<file>, verifies their checksums and
// unpacks them into the build directory.
type SourceFetcher struct {
	SourcePath string
	Client     *http.Client
	Retries    int
	RetryDelay time.Duration
}

func NewSourceFetcher(sourcePath string, timeout time.Duration, retries int) SourceFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if retries <= 0 {
		retries = defaultFetchRetries
	}
	return SourceFetcher{
		SourcePath: sourcePath,
		Client:     &http.Client{Timeout: timeout},
		Retries:    retries,
		RetryDelay: defaultFetchRetryDelay,
	}
}

func (f SourceFetcher) Fetch(ctx context.Context, target types.BuildTarget, dir string) error {
	if len(target.Sources) == 0 {
		return nil
	}
	if strings.TrimSpace(f.SourcePath) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source path is empty")
	}
	expand := strings.NewReplacer("%(name)s", target.Spec.Name, "%(version)s", target.Spec.Version)
	for _, source := range target.Sources {
		filename := expand.Replace(source.Filename)
		cached, err := f.ensureCached(ctx, target.Spec.Name, filename, source)
		if err != nil {
			return err
		}
		if err := unpack(ctx, cached, dir); err != nil {
			return err
		}
	}
	return nil
}

// CachePath is where filename of package name is kept.
func (f SourceFetcher) CachePath(name string, filename string) string {
	if name == "" {
		return filepath.Join(f.SourcePath, filename)
	}
	letter := strings.ToLower(name[:1])
	return filepath.Join(f.SourcePath, letter, name, filename)
}

func (f SourceFetcher) ensureCached(ctx context.Context, name string, filename string, source types.SourceFile) (string, error) {
	path := f.CachePath(name, filename)
	if _, err := os.Stat(path); err == nil {
		if err := verifyChecksum(path, source.Checksum); err != nil {
			return "", err
		}
		log.Ctx(ctx).Debug().Str("path", path).Msg("using cached source")
		return path, nil
	}
	if len(source.URLs) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("source %s is not cached and has no source urls", filename))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create source directory").
			WithCause(err)
	}
	var lastErr error
	for _, base := range source.URLs {
		url := strings.TrimRight(base, "/") + "/" + filename
		if err := f.download(ctx, url, path); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("source download failed")
			lastErr = err
			continue
		}
		if err := verifyChecksum(path, source.Checksum); err != nil {
			_ = os.Remove(path)
			lastErr = err
			continue
		}
		log.Ctx(ctx).Info().Str("url", url).Str("path", path).Msg("source downloaded")
		return path, nil
	}
	return "", lastErr
}

func (f SourceFetcher) download(ctx context.Context, url string, path string) error {
	retries := f.Retries
	if retries <= 0 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retry, err := f.downloadOnce(ctx, url, path)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == retries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.retryDelay(attempt)):
		}
	}
	return lastErr
}

func (f SourceFetcher) downloadOnce(ctx context.Context, url string, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to create source request").
			WithCause(err)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("source download failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return retry, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("source download failed").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, url, strings.TrimSpace(string(body))))
	}
	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create source file").
			WithCause(err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read source body").
			WithCause(err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write source file").
			WithCause(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move source into cache").
			WithCause(err)
	}
	return false, nil
}

func (f SourceFetcher) retryDelay(attempt int) time.Duration {
	delay := f.RetryDelay * time.Duration(1<<attempt)
	if delay > maxFetchRetryDelay {
		delay = maxFetchRetryDelay
	}
	return delay
}

// verifyChecksum accepts md5 (32 hex digits) and sha256 (64 hex digits).
// An empty checksum is not verified.
func verifyChecksum(path string, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if expected == "" {
		return nil
	}
	var h hash.Hash
	switch len(expected) {
	case 32:
		h = md5.New()
	case 64:
		h = sha256.New()
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported checksum %q", expected))
	}
	file, err := os.Open(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open source for checksum").
			WithCause(err)
	}
	defer file.Close()
	if _, err := io.Copy(h, file); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read source for checksum").
			WithCause(err)
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", filepath.Base(path), expected, actual))
	}
	return nil
}

// unpack extracts tarballs into dir with tar and copies anything else.
func unpack(ctx context.Context, path string, dir string) error {
	lower := strings.ToLower(path)
	for _, suffix := range archiveSuffixes {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		cmd := exec.CommandContext(ctx, "tar", "-xf", path, "-C", dir)
		if output, err := cmd.CombinedOutput(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to unpack %s", filepath.Base(path))).
				WithCause(shared.CommandError(output, err))
		}
		return nil
	}
	return copyFile(path, filepath.Join(dir, filepath.Base(path)))
}

func copyFile(srcPath string, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open source file").
			WithCause(err)
	}
	defer src.Close()
	dest, err := os.Create(destPath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create destination file").
			WithCause(err)
	}
	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to copy file").
			WithCause(err)
	}
	if err := dest.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close destination file").
			WithCause(err)
	}
	return nil
}

var _ ports.SourceFetcherPort = SourceFetcher{}
