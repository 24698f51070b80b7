package transport

import (
	"strings"

	"go.bug.st/serial"
)

// usbPortPatterns are the device name fragments a USB serial bridge shows
// up under across platforms.
var usbPortPatterns = []string{"ttyUSB", "ttyACM", "ttyAMA", "COM"}

// DetectPorts lists serial ports that look like USB bridges, in the
// order the platform enumerates them.
func DetectPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	candidates := filterUSBPorts(ports)
	if len(candidates) == 0 {
		return nil, ErrNoPortsFound
	}
	return candidates, nil
}

func filterUSBPorts(ports []string) []string {
	var out []string
	for _, p := range ports {
		for _, pat := range usbPortPatterns {
			if strings.Contains(p, pat) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
