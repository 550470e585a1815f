package utils

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// Standard progress bar descriptions
const (
	DescDownloading = "Downloading"
	DescBatch       = "Assets"
)

// NewProgressBar creates a consistently styled item-count progress bar.
//
// A negative total switches to spinner mode for unknown totals.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	} else {
		opts = append(opts,
			progressbar.OptionShowIts(),
		)
	}

	return progressbar.NewOptions(total, opts...)
}

// NewBytesProgressBar creates a byte-count progress bar for a transfer of
// total bytes. Use -1 when the server sent no Content-Length.
//
// The bar implements io.Writer, so it can sit in an io.MultiWriter next to
// the destination file:
//
//	bar := utils.NewBytesProgressBar(resp.ContentLength, utils.DescDownloading)
//	defer bar.Finish()
//	io.Copy(io.MultiWriter(f, bar), resp.Body)
func NewBytesProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65_000_000),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = os.Stderr.WriteString("\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
