package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/achilleasa/voxray/volume"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/stat"
)

// Display dataset properties and per-timestep histogram statistics.
func DatasetInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing dataset file argument")
	}

	reader := volume.NewReader()
	if err := reader.Read(ctx.Args().First()); err != nil {
		return err
	}
	props, err := reader.Properties()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Descriptor", props.DatFileName},
		{"Raw files", strings.Join(props.RawFileNames, ", ")},
		{"Resolution", fmt.Sprintf("%d x %d x %d", props.Resolution[0], props.Resolution[1], props.Resolution[2])},
		{"Timesteps", fmt.Sprintf("%d", props.Timesteps())},
		{"Slice thickness", fmt.Sprintf("%g %g %g", props.SliceThickness[0], props.SliceThickness[1], props.SliceThickness[2])},
		{"Format", props.Format.String()},
		{"Channel order", props.ChannelOrder.String()},
		{"Byte order", props.ByteOrder.String()},
		{"Value range", fmt.Sprintf("[%g, %g]", props.MinValue, props.MaxValue)},
	})
	table.Render()
	logger.Noticef("dataset properties\n%s", buf.String())

	buf.Reset()
	table = tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Timestep", "Voxels", "Mean", "Std. dev", "Median", "Empty bin 0 (%)"})
	for t := 0; t < props.Timesteps(); t++ {
		hist, err := reader.Histogram(t)
		if err != nil {
			return err
		}
		s := summarizeHistogram(hist)
		table.Append([]string{
			fmt.Sprintf("%d", t),
			fmt.Sprintf("%d", s.count),
			fmt.Sprintf("%.2f", s.mean),
			fmt.Sprintf("%.2f", s.stdDev),
			fmt.Sprintf("%.0f", s.median),
			fmt.Sprintf("%.1f", s.emptyPercent),
		})
	}
	table.Render()
	logger.Noticef("histogram statistics (bin units)\n%s", buf.String())
	return nil
}

type histogramSummary struct {
	count        uint64
	mean         float64
	stdDev       float64
	median       float64
	emptyPercent float64
}

// Treat the histogram as a weighted sample of its bin indices.
func summarizeHistogram(hist volume.Histogram) histogramSummary {
	bins := make([]float64, len(hist))
	weights := make([]float64, len(hist))
	for i, n := range hist {
		bins[i] = float64(i)
		weights[i] = float64(n)
	}

	s := histogramSummary{count: hist.Sum()}
	if s.count == 0 {
		return s
	}
	s.mean, s.stdDev = stat.MeanStdDev(bins, weights)
	s.median = stat.Quantile(0.5, stat.Empirical, bins, weights)
	s.emptyPercent = 100 * weights[0] / float64(s.count)
	return s
}
