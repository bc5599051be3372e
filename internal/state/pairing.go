package state

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// PairingRecord is the persisted PS3<->local MAC pairing (spec.md 3).
// Its presence changes startup behaviour: internal/app checks Loaded
// before deciding whether to wait for a USB pairing handshake or attempt
// a direct BT connection.
type PairingRecord struct {
	ConsoleMAC [6]byte
	LocalMAC   [6]byte
	Loaded     bool
}

// Fingerprint returns a short, non-reversible identifier for logging the
// pairing record without printing a real MAC address into log files.
func (r PairingRecord) Fingerprint() string {
	sum := blake2b.Sum256(append(r.ConsoleMAC[:], r.LocalMAC[:]...))
	return fmt.Sprintf("%x", sum[:4])
}

func formatMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("pairing: malformed MAC %q", s)
	}
	for i, p := range parts {
		var b int
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil {
			return mac, fmt.Errorf("pairing: malformed MAC octet %q: %w", p, err)
		}
		mac[i] = byte(b)
	}
	return mac, nil
}

// LoadPairingRecord reads path's KEY=VALUE pairing file. A missing file
// is not an error — it just means no pairing has happened yet.
func LoadPairingRecord(path string) (PairingRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return PairingRecord{}, nil
	}
	if err != nil {
		return PairingRecord{}, err
	}
	defer f.Close()

	var rec PairingRecord
	var haveConsole, haveLocal bool

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "PS3_MAC":
			mac, err := parseMAC(strings.TrimSpace(val))
			if err != nil {
				return PairingRecord{}, err
			}
			rec.ConsoleMAC = mac
			haveConsole = true
		case "LOCAL_MAC":
			mac, err := parseMAC(strings.TrimSpace(val))
			if err != nil {
				return PairingRecord{}, err
			}
			rec.LocalMAC = mac
			haveLocal = true
		}
	}
	if err := sc.Err(); err != nil {
		return PairingRecord{}, err
	}

	rec.Loaded = haveConsole && haveLocal
	return rec, nil
}

// SavePairingRecord rewrites path atomically: write to a temp file in
// the same directory, then rename over the target, so a crash mid-write
// never leaves a half-written pairing file behind.
func SavePairingRecord(path string, rec PairingRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".pairing-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	content := fmt.Sprintf("PS3_MAC=%s\nLOCAL_MAC=%s\n", formatMAC(rec.ConsoleMAC), formatMAC(rec.LocalMAC))
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
