package volume

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The parsed content of a .dat descriptor along with flags recording which
// optional declarations were present.
type descriptor struct {
	props Properties

	haveThickness bool
	timesteps     int
}

func (d *descriptor) haveResolution() bool {
	return d.props.Resolution[0] > 0 && d.props.Resolution[1] > 0 && d.props.Resolution[2] > 0
}

// Parse a line-oriented, whitespace-tokenized dataset descriptor. Keys are
// matched against the first token of each line so both "Resolution:" and
// "Resolution" are accepted. Unknown keys are ignored.
func parseDescriptor(r io.Reader, name string) (*descriptor, error) {
	d := &descriptor{
		props: Properties{
			DatFileName: name,
		},
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}

		key := tokens[0]
		var err error
		switch {
		case strings.Contains(key, "ObjectFileName") && len(tokens) > 1:
			d.props.RawFileNames = d.props.RawFileNames[:0]
			for _, tok := range tokens[1:] {
				if !strings.Contains(tok, "ObjectFileName") {
					d.props.RawFileNames = append(d.props.RawFileNames, tok)
				}
			}
			d.props.Resolution[3] = len(d.props.RawFileNames)
		case strings.Contains(key, "Resolution") && len(tokens) > 3:
			for i := 1; i < len(tokens) && i < 5; i++ {
				if d.props.Resolution[i-1], err = strconv.Atoi(tokens[i]); err != nil {
					break
				}
			}
		case strings.Contains(key, "SliceThickness") && len(tokens) > 3:
			for i := 1; i < 4; i++ {
				if d.props.SliceThickness[i-1], err = parseDecimal(tokens[i]); err != nil {
					break
				}
			}
			d.haveThickness = true
		case strings.Contains(key, "ByteOrder") || strings.Contains(key, "Endianness"):
			if len(tokens) > 1 {
				d.props.ByteOrder, err = ParseByteOrder(tokens[1])
			}
		case strings.Contains(key, "Format") && len(tokens) > 1:
			d.props.Format, err = ParseScalarFormat(tokens[1])
		case (strings.Contains(key, "ChannelOrder") || strings.Contains(key, "ObjectModel")) && len(tokens) > 1:
			d.props.ChannelOrder, err = ParseChannelOrder(tokens[1])
		case strings.Contains(key, "Nodes") && len(tokens) > 1:
			d.props.NodeFileName = tokens[1]
		case (strings.Contains(key, "TimeSeries") || strings.Contains(key, "TimeSteps")) && len(tokens) > 1:
			d.timesteps, err = strconv.Atoi(tokens[1])
		}

		if err != nil {
			return nil, datasetErr("parse", name, fmt.Errorf("line %d: %w", lineNum, err))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, datasetErr("parse", name, err)
	}

	if len(d.props.RawFileNames) == 0 {
		return nil, datasetErr("parse", name, ErrMissingObjectFileName)
	}

	if d.timesteps < d.props.Resolution[3] {
		d.timesteps = d.props.Resolution[3]
	}
	if len(d.props.RawFileNames) < d.timesteps {
		names, err := synthesizeFileNames(d.props.RawFileNames[0], d.timesteps)
		if err != nil {
			return nil, datasetErr("parse", name, err)
		}
		d.props.RawFileNames = names
	}
	d.props.Resolution[3] = len(d.props.RawFileNames)

	return d, nil
}

// Parse a float that may use ',' as its decimal separator.
func parseDecimal(tok string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
}

// Generate count file names by incrementing the trailing numeric run of the
// first name, e.g. "head_t08.raw" -> "head_t09.raw", "head_t10.raw".
func synthesizeFileNames(first string, count int) ([]string, error) {
	end := strings.LastIndexAny(first, "0123456789") + 1
	if end == 0 {
		return nil, fmt.Errorf("cannot derive time series file names from %q", first)
	}
	start := end - 1
	for start > 0 && first[start-1] >= '0' && first[start-1] <= '9' {
		start--
	}

	number, err := strconv.Atoi(first[start:end])
	if err != nil {
		return nil, fmt.Errorf("cannot derive time series file names from %q: %w", first, err)
	}
	width := end - start
	prefix, suffix := first[:start], first[end:]

	names := make([]string, count)
	names[0] = first
	for i := 1; i < count; i++ {
		names[i] = fmt.Sprintf("%s%0*d%s", prefix, width, number+i, suffix)
	}
	return names, nil
}
