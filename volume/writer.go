package volume

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteDataset writes payload to <basePath>.raw together with a matching
// <basePath>.dat descriptor and returns both paths. The payload must already
// be in normalized little-endian form.
func WriteDataset(basePath string, props Properties, payload []byte) (string, string, error) {
	datPath, rawPath := basePath+".dat", basePath+".raw"

	if err := props.Validate(); err != nil {
		return "", "", datasetErr("write", datPath, err)
	}
	if len(payload) < props.TimestepSize() {
		return "", "", datasetErr("write", rawPath, ErrPayloadTooSmall)
	}

	if err := os.WriteFile(rawPath, payload[:props.TimestepSize()], 0644); err != nil {
		return "", "", datasetErr("write", rawPath, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ObjectFileName: \t%s\n", filepath.Base(rawPath))
	fmt.Fprintf(&buf, "Resolution: \t\t%d %d %d\n", props.Resolution[0], props.Resolution[1], props.Resolution[2])
	fmt.Fprintf(&buf, "SliceThickness: \t%s %s %s\n",
		formatDecimal(props.SliceThickness[0]),
		formatDecimal(props.SliceThickness[1]),
		formatDecimal(props.SliceThickness[2]),
	)
	fmt.Fprintf(&buf, "Format: \t\t\t%s\n", props.Format)
	if props.ChannelOrder != ChannelR {
		fmt.Fprintf(&buf, "ChannelOrder: \t\t%s\n", props.ChannelOrder)
	}

	if err := os.WriteFile(datPath, buf.Bytes(), 0644); err != nil {
		return "", "", datasetErr("write", datPath, err)
	}
	return datPath, rawPath, nil
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
