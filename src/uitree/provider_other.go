//go:build !windows && !linux

package uitree

type unsupportedProvider struct{}

func newPlatformProvider() Provider { return unsupportedProvider{} }

func (unsupportedProvider) RootChildren() ([]Element, error) { return nil, ErrUnavailable }

func (unsupportedProvider) Children(Handle) ([]Element, error) { return nil, ErrUnavailable }
