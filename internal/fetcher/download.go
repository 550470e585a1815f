package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/ghasset-go/internal/domain"
	"github.com/quantmind-br/ghasset-go/internal/utils"
)

// Download streams url into dest. The body is written to a temporary file
// next to dest and renamed into place only after a complete transfer, so a
// failed attempt never leaves a partial file at dest. Retryable failures are
// retried with backoff; redirects are followed.
func (c *Client) Download(ctx context.Context, url string, headers map[string]string, dest string, timeout time.Duration) error {
	if dest == "" {
		return domain.ErrEmptyDestination
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := c.logger.WithURL(url)
	start := time.Now()

	err := c.retrier.Retry(ctx, func() error {
		return WriteFileAtomically(dest, func(f *os.File) error {
			return c.streamTo(ctx, url, headers, f)
		})
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("dest", dest).
		Dur("elapsed", time.Since(start)).
		Msg("download complete")
	return nil
}

// streamTo performs one GET and copies the body into w
func (c *Client) streamTo(ctx context.Context, url string, headers map[string]string, w io.Writer) error {
	req, err := c.newRequest(ctx, url, headers)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if c.showProgress {
		bar := utils.NewBytesProgressBar(resp.ContentLength, utils.DescDownloading)
		defer bar.Finish()
		w = io.MultiWriter(w, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		// A transfer cut short mid-body is worth another attempt.
		return &domain.RetryableError{
			Err: &domain.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("stream body: %w", err)},
		}
	}

	return nil
}

// WriteFileAtomically writes a file to outPath by writing to a temporary file in the
// destination directory and then renaming it into place.
func WriteFileAtomically(outPath string, write func(f *os.File) error) error {
	if outPath == "" {
		return domain.ErrEmptyDestination
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ghasset-*.partial")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Removing after a successful rename is a no-op.
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
