package usbgadget_test

import (
	"encoding/binary"
	"testing"

	"github.com/rosettapad/rosettapad/internal/usbgadget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDescriptorsHeader(t *testing.T) {
	blob := usbgadget.BuildDescriptors()
	require.True(t, len(blob) > 20)

	magic := binary.LittleEndian.Uint32(blob[0:4])
	assert.Equal(t, uint32(0x3), magic)

	totalLen := binary.LittleEndian.Uint32(blob[4:8])
	assert.Equal(t, uint32(len(blob)), totalLen)

	flags := binary.LittleEndian.Uint32(blob[8:12])
	assert.Equal(t, uint32(0x1|0x2), flags)
}

func TestBuildStringsHeader(t *testing.T) {
	blob := usbgadget.BuildStrings()
	magic := binary.LittleEndian.Uint32(blob[0:4])
	assert.Equal(t, uint32(0x3), magic)

	count := binary.LittleEndian.Uint32(blob[8:12])
	assert.Equal(t, uint32(1), count)
}

func TestReportDescriptorNonEmpty(t *testing.T) {
	rd := usbgadget.ReportDescriptor()
	assert.NotEmpty(t, rd)
	assert.Equal(t, uint8(0x05), rd[0], "starts with usage page item")
}
