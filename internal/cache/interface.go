package cache

import (
	"github.com/quantmind-br/ghasset-go/internal/domain"
)

// Ensure BadgerCache implements domain.Cache
var _ domain.Cache = (*BadgerCache)(nil)

// Options contains cache configuration options
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
	// Namespace is prepended to every hashed key, see GenerateKeyWithPrefix
	Namespace string
}

// DefaultOptions returns default cache options
func DefaultOptions() Options {
	return Options{
		Directory: "",
		InMemory:  false,
		Logger:    false,
		Namespace: PrefixRelease,
	}
}
