package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrNotFound is returned when a selector matches no usable device.
var ErrNotFound = errors.New("device not found")

// Info 设备信息（与 traverse 输出字段一一对应）
type Info struct {
	Index                    int
	Name                     string
	HostAPI                  string
	MaxInputChannels         int
	MaxOutputChannels        int
	DefaultLowInputLatency   time.Duration
	DefaultLowOutputLatency  time.Duration
	DefaultHighInputLatency  time.Duration
	DefaultHighOutputLatency time.Duration
	DefaultSampleRate        float64
	IsDefaultInput           bool
	IsDefaultOutput          bool

	// PA is the underlying PortAudio handle, nil for devices built by hand.
	PA *portaudio.DeviceInfo
}

// Channels returns the maximum channel count in the given direction.
func (d Info) Channels(input bool) int {
	if input {
		return d.MaxInputChannels
	}
	return d.MaxOutputChannels
}

func (d Info) LowLatency(input bool) time.Duration {
	if input {
		return d.DefaultLowInputLatency
	}
	return d.DefaultLowOutputLatency
}

func (d Info) HighLatency(input bool) time.Duration {
	if input {
		return d.DefaultHighInputLatency
	}
	return d.DefaultHighOutputLatency
}

type HostAPI struct {
	Name        string
	DeviceCount int
}

// Catalog lists the audio devices of the host.
type Catalog interface {
	HostAPIs() ([]HostAPI, error)
	Devices() ([]Info, error)
}

// PortAudioCatalog reads devices from PortAudio. The library must already be
// initialized by the caller.
type PortAudioCatalog struct{}

func NewPortAudioCatalog() *PortAudioCatalog {
	return &PortAudioCatalog{}
}

func (PortAudioCatalog) HostAPIs() ([]HostAPI, error) {
	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("get host APIs: %w", err)
	}
	result := make([]HostAPI, 0, len(apis))
	for _, api := range apis {
		result = append(result, HostAPI{Name: api.Name, DeviceCount: len(api.Devices)})
	}
	return result, nil
}

func (PortAudioCatalog) Devices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}

	// 没有默认设备不算错误（例如只有输出的机器）
	defaultInput, _ := portaudio.DefaultInputDevice()
	defaultOutput, _ := portaudio.DefaultOutputDevice()

	result := make([]Info, 0, len(devices))
	for i, dev := range devices {
		result = append(result, fromPortAudio(i, dev, defaultInput, defaultOutput))
	}
	return result, nil
}

func fromPortAudio(index int, dev, defaultInput, defaultOutput *portaudio.DeviceInfo) Info {
	info := Info{
		Index:                    index,
		Name:                     dev.Name,
		MaxInputChannels:         dev.MaxInputChannels,
		MaxOutputChannels:        dev.MaxOutputChannels,
		DefaultLowInputLatency:   dev.DefaultLowInputLatency,
		DefaultLowOutputLatency:  dev.DefaultLowOutputLatency,
		DefaultHighInputLatency:  dev.DefaultHighInputLatency,
		DefaultHighOutputLatency: dev.DefaultHighOutputLatency,
		DefaultSampleRate:        dev.DefaultSampleRate,
		IsDefaultInput:           sameDevice(dev, defaultInput) && dev.MaxInputChannels > 0,
		IsDefaultOutput:          sameDevice(dev, defaultOutput) && dev.MaxOutputChannels > 0,
		PA:                       dev,
	}
	info.HostAPI = hostAPIName(dev)
	return info
}

// sameDevice matches by name within a host API; the same name often shows up
// once per host API.
func sameDevice(dev, other *portaudio.DeviceInfo) bool {
	if other == nil {
		return false
	}
	if dev == other {
		return true
	}
	return dev.Name == other.Name && hostAPIName(dev) == hostAPIName(other)
}

func hostAPIName(dev *portaudio.DeviceInfo) string {
	if dev.HostApi == nil {
		return ""
	}
	return dev.HostApi.Name
}

// Resolve picks a device by numeric index or by case-insensitive name
// substring. An empty selector means the default device for the direction.
// The chosen device must have channels in the requested direction.
func Resolve(devices []Info, selector string, input bool) (Info, error) {
	direction := "output"
	if input {
		direction = "input"
	}

	selector = strings.TrimSpace(selector)
	if selector == "" {
		for _, dev := range devices {
			if (input && dev.IsDefaultInput) || (!input && dev.IsDefaultOutput) {
				return dev, nil
			}
		}
		return Info{}, fmt.Errorf("no default %s device: %w", direction, ErrNotFound)
	}

	if idx, err := strconv.ParseInt(selector, 0, 32); err == nil {
		for _, dev := range devices {
			if dev.Index != int(idx) {
				continue
			}
			if dev.Channels(input) <= 0 {
				return Info{}, fmt.Errorf("device %d (%s) has no %s channels", dev.Index, dev.Name, direction)
			}
			return dev, nil
		}
		return Info{}, fmt.Errorf("device index %d: %w", idx, ErrNotFound)
	}

	needle := strings.ToLower(selector)
	for _, dev := range devices {
		if dev.Channels(input) > 0 && strings.Contains(strings.ToLower(dev.Name), needle) {
			return dev, nil
		}
	}
	return Info{}, fmt.Errorf("no %s device matching %q: %w", direction, selector, ErrNotFound)
}
