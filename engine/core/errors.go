package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

var (
	ErrNoSuitableDevice = errors.New("no physical device meets the requirements")
	ErrNoMemoryType     = errors.New("no compatible memory type")
	ErrInvalidAsset     = errors.New("invalid asset")
	ErrAssetNotFound    = errors.New("asset not found")
)

// VulkanError is returned for every non-success result of a graphics API
// call that is not handled locally. Code holds the symbolic result name.
type VulkanError struct {
	Op     string
	Code   string
	Result int32
	File   string
	Line   int
}

func (e *VulkanError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Code, e.Result)
	}
	return fmt.Sprintf("%s failed: %s (%d) at %s:%d", e.Op, e.Code, e.Result, e.File, e.Line)
}

// NewVulkanError builds a VulkanError and records the location of the
// caller that observed the failing result.
func NewVulkanError(op, code string, result int32) error {
	err := &VulkanError{
		Op:     op,
		Code:   code,
		Result: result,
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		err.File = filepath.Base(file)
		err.Line = line
	}
	return err
}

// IsVulkanError reports whether err wraps a VulkanError.
func IsVulkanError(err error) bool {
	var ve *VulkanError
	return errors.As(err, &ve)
}
