package cli

import (
	"context"

	"github.com/gordonklaus/portaudio"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/stream"
)

// backend 音频引擎抽象，测试中替换为 fake
type backend interface {
	Initialize() error
	Terminate() error
	device.Catalog
	CheckSupport(o stream.Options, dev device.Info) error
	Play(ctx context.Context, o stream.Options, dev device.Info) (stream.Stats, error)
	Record(ctx context.Context, o stream.Options, dev device.Info) (stream.Stats, error)
}

type portAudioBackend struct {
	device.Catalog
}

func newPortAudioBackend() *portAudioBackend {
	return &portAudioBackend{Catalog: device.NewPortAudioCatalog()}
}

func (portAudioBackend) Initialize() error {
	return portaudio.Initialize()
}

func (portAudioBackend) Terminate() error {
	return portaudio.Terminate()
}

func (portAudioBackend) CheckSupport(o stream.Options, dev device.Info) error {
	return stream.CheckSupport(o, dev)
}

func (portAudioBackend) Play(ctx context.Context, o stream.Options, dev device.Info) (stream.Stats, error) {
	return stream.Play(ctx, o, dev)
}

func (portAudioBackend) Record(ctx context.Context, o stream.Options, dev device.Info) (stream.Stats, error) {
	return stream.Record(ctx, o, dev)
}
