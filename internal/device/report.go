package device

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteReport prints host APIs followed by every device's default
// configuration, one block per device.
func WriteReport(w io.Writer, hosts []HostAPI, devices []Info) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Found %d Host API(s):\n", len(hosts))
	for i, api := range hosts {
		fmt.Fprintf(&b, "  [%d] %s (devices: %d)\n", i, api.Name, api.DeviceCount)
	}

	fmt.Fprintf(&b, "\n=== All Devices (%d) ===\n", len(devices))
	for _, dev := range devices {
		b.WriteString("\n")
		fmt.Fprintf(&b, "device index                : %d%s\n", dev.Index, defaultMarkers(dev))
		fmt.Fprintf(&b, "name                        : %s\n", dev.Name)
		fmt.Fprintf(&b, "hostApi                     : %s\n", dev.HostAPI)
		fmt.Fprintf(&b, "max input channels          : %d\n", dev.MaxInputChannels)
		fmt.Fprintf(&b, "max output channels         : %d\n", dev.MaxOutputChannels)
		fmt.Fprintf(&b, "default low input latency   : %f\n", seconds(dev.DefaultLowInputLatency))
		fmt.Fprintf(&b, "default low output latency  : %f\n", seconds(dev.DefaultLowOutputLatency))
		fmt.Fprintf(&b, "default high input latency  : %f\n", seconds(dev.DefaultHighInputLatency))
		fmt.Fprintf(&b, "default high output latency : %f\n", seconds(dev.DefaultHighOutputLatency))
		fmt.Fprintf(&b, "default sample rate         : %f\n", dev.DefaultSampleRate)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func defaultMarkers(dev Info) string {
	marker := ""
	if dev.IsDefaultInput {
		marker += " [DEFAULT INPUT]"
	}
	if dev.IsDefaultOutput {
		marker += " [DEFAULT OUTPUT]"
	}
	return marker
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}
