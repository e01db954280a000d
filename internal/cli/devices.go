package cli

import (
	"github.com/spf13/cobra"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/stream"
)

func (a *app) traverseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "traverse",
		Short: "List host APIs and every audio device with its default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAudio(func() error {
				hosts, err := a.backend.HostAPIs()
				if err != nil {
					return err
				}
				devices, err := a.backend.Devices()
				if err != nil {
					return err
				}
				return device.WriteReport(cmd.OutOrStdout(), hosts, devices)
			})
		},
	}
}

func (a *app) testFormatCommand() *cobra.Command {
	f := &streamFlags{}
	cmd := &cobra.Command{
		Use:   "test_format [DEVICE]",
		Short: "Check whether a stream with the given parameters can be opened",
		Long: `Check whether a stream with the given parameters can be opened.

DEVICE is a device index (as printed by traverse) or part of a device name;
the default device is used when it is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := stream.Output
			if f.input {
				dir = stream.Input
			}
			return a.runStream(cmd, args, f, dir, true)
		},
	}
	f.bindFormat(cmd)
	cmd.Flags().BoolVar(&f.input, "input", false, "check a capture stream instead of a playback stream")
	return cmd
}
