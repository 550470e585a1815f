package domain

// CommonOptions contains shared options for a download run.
type CommonOptions struct {
	Verbose  bool
	DryRun   bool
	Force    bool
	Progress bool
}

// DefaultCommonOptions returns CommonOptions with default values.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{Progress: true}
}
