// Package config defines rosettapad's CLI/config surface: a single kong
// root command loaded from flags, environment variables, and a layered
// JSON/YAML/TOML config file, mirroring the teacher's own
// kong.Parse/kong.Configuration chain.
package config

import "time"

// CLI is the root command. kong.Parse in cmd/rosettapad populates every
// field needed to start the orchestrator; there are no subcommands, unlike the teacher's
// multi-subcommand surface, since rosettapad only ever does one thing.
type CLI struct {
	Config string `help:"Path to a config file (JSON/YAML/TOML)" env:"ROSETTAPAD_CONFIG"`

	DualSense DualSenseConfig `embed:"" prefix:"dualsense-"`
	USB       USBConfig       `embed:"" prefix:"usb-"`
	BT        BTConfig        `embed:"" prefix:"bt-"`
	Pairing   PairingConfig   `embed:"" prefix:"pairing-"`
	Lightbar  LightbarConfig  `embed:"" prefix:"lightbar-"`
	Log       LogConfig       `embed:"" prefix:"log-"`

	TouchpadAsRightStick bool `help:"Map touchpad drags to the right stick instead of leaving it idle" default:"false" env:"ROSETTAPAD_TOUCHPAD_AS_STICK"`
}

// DualSenseConfig selects which hidraw device to read, or enables
// autodiscovery by vendor/product ID.
type DualSenseConfig struct {
	Path         string `help:"hidraw device path (e.g. /dev/hidraw3); empty enables autodiscovery" env:"ROSETTAPAD_DUALSENSE_PATH"`
	Autodiscover bool   `help:"Scan /dev/hidraw* for a DualSense if --dualsense-path is unset" default:"true" env:"ROSETTAPAD_DUALSENSE_AUTODISCOVER"`
}

// USBConfig controls the FunctionFS gadget mount.
type USBConfig struct {
	FFSDir string `help:"FunctionFS mount directory for the ds3 function" default:"/dev/ffs-ds3" env:"ROSETTAPAD_USB_FFS_DIR"`
}

// BTConfig controls the Bluetooth adapter and send-discipline tunables.
type BTConfig struct {
	AdapterIndex        int `help:"HCI adapter index to configure and bind (hciN)" default:"0" env:"ROSETTAPAD_BT_ADAPTER"`
	MaxConsecutiveDrops int `help:"Disconnect after this many consecutive EAGAIN sends on the interrupt channel" default:"10" env:"ROSETTAPAD_BT_MAX_CONSECUTIVE_DROPS"`
}

// PairingConfig locates the persisted pairing record.
type PairingConfig struct {
	File string `help:"Path to the persisted pairing record" default:"/etc/rosettapad/pairing.conf" env:"ROSETTAPAD_PAIRING_FILE"`
}

// LightbarConfig locates the lightbar IPC JSON file.
type LightbarConfig struct {
	File         string        `help:"Path to the lightbar IPC JSON file" default:"/tmp/rosettapad/lightbar_state.json" env:"ROSETTAPAD_LIGHTBAR_FILE"`
	PollInterval time.Duration `help:"How often to re-read the lightbar IPC file" default:"500ms" env:"ROSETTAPAD_LIGHTBAR_POLL_INTERVAL"`
}

// LogConfig mirrors the teacher's logging flags.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"ROSETTAPAD_LOG_LEVEL"`
	File    string `help:"Log file path; empty logs to stdout/stderr" env:"ROSETTAPAD_LOG_FILE"`
	RawFile string `help:"Raw HID/L2CAP packet dump file; empty disables raw logging unless level is trace" env:"ROSETTAPAD_LOG_RAW_FILE"`
}
