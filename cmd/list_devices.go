package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/voxray/compute"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	backends, err := newBackends(ctx.GlobalString("backend"), 0)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Platform", "Backend", "Name", "Vendor", "Device", "Type", "Compute units", "Clock (MHz)"})

	var platformIndex, deviceCount int
	for _, backend := range backends {
		platforms, err := backend.Platforms()
		if err != nil {
			logger.Warningf("%s backend: %v", backend.Name(), err)
			continue
		}
		for _, p := range platforms {
			for _, dev := range p.Devices {
				table.Append([]string{
					fmt.Sprintf("%02d", platformIndex),
					backend.Name(),
					p.Name,
					p.Vendor,
					dev.Name,
					dev.Type.String(),
					fmt.Sprintf("%d", dev.ComputeUnits),
					clockString(dev),
				})
				deviceCount++
			}
			platformIndex++
		}
	}
	table.SetFooter([]string{"", "", "", "", "", "", "TOTAL", fmt.Sprintf("%d", deviceCount)})
	table.Render()

	logger.Noticef("system provides %d compute platform(s)\n%s", platformIndex, buf.String())
	return nil
}

func clockString(dev compute.DeviceInfo) string {
	if dev.ClockMHz == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", dev.ClockMHz)
}
