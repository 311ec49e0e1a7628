package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingCall() error {
	return NewVulkanError("vkQueueSubmit", "VK_ERROR_DEVICE_LOST", -4)
}

func TestVulkanErrorLocation(t *testing.T) {
	err := failingCall()
	var ve *VulkanError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", ve.Code)
	assert.Equal(t, int32(-4), ve.Result)
	assert.Equal(t, "errors_test.go", ve.File)
	assert.Contains(t, err.Error(), "vkQueueSubmit failed: VK_ERROR_DEVICE_LOST (-4) at errors_test.go:")
}

func TestIsVulkanErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", failingCall())
	assert.True(t, IsVulkanError(wrapped))
	assert.False(t, IsVulkanError(ErrInvalidAsset))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}
