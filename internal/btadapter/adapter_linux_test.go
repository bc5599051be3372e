//go:build linux

package btadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceInfoStringFormatsColonNotation(t *testing.T) {
	d := DeviceInfo{DevID: 0, MAC: [6]byte{0xFF, 0xEE, 0x11, 0x22, 0x1B, 0x00}}
	assert.Equal(t, "00:1b:22:11:ee:ff", d.String())
}
