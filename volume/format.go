package volume

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ScalarFormat identifies the storage type of a single voxel sample.
type ScalarFormat uint8

// Supported scalar formats.
const (
	UnknownFormat ScalarFormat = iota
	UChar
	UShort
	Float
)

func (f ScalarFormat) String() string {
	switch f {
	case UChar:
		return "UCHAR"
	case UShort:
		return "USHORT"
	case Float:
		return "FLOAT"
	}
	return "UNKNOWN"
}

// BytesPerSample returns the size of a single channel sample or 0 for an
// unknown format.
func (f ScalarFormat) BytesPerSample() int {
	switch f {
	case UChar:
		return 1
	case UShort:
		return 2
	case Float:
		return 4
	}
	return 0
}

// Parse a descriptor format name.
func ParseScalarFormat(name string) (ScalarFormat, error) {
	switch strings.ToUpper(name) {
	case "UCHAR":
		return UChar, nil
	case "USHORT":
		return UShort, nil
	case "FLOAT":
		return Float, nil
	}
	return UnknownFormat, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Map a sample size in bytes to the matching format.
func formatForSampleSize(bytes int) (ScalarFormat, error) {
	switch bytes {
	case 1:
		return UChar, nil
	case 2:
		return UShort, nil
	case 4:
		return Float, nil
	}
	return UnknownFormat, fmt.Errorf("%w: %d bytes per voxel", ErrUnknownFormat, bytes)
}

// ChannelOrder describes the per-voxel channel layout.
type ChannelOrder uint8

// Supported channel layouts.
const (
	ChannelR ChannelOrder = iota
	ChannelRG
	ChannelRGBA
	ChannelARGB
	ChannelBGRA
)

func (o ChannelOrder) String() string {
	switch o {
	case ChannelRG:
		return "RG"
	case ChannelRGBA:
		return "RGBA"
	case ChannelARGB:
		return "ARGB"
	case ChannelBGRA:
		return "BGRA"
	}
	return "R"
}

// Channels returns the number of samples stored per voxel.
func (o ChannelOrder) Channels() int {
	switch o {
	case ChannelRG:
		return 2
	case ChannelRGBA, ChannelARGB, ChannelBGRA:
		return 4
	}
	return 1
}

// Parse a descriptor channel order / object model name.
func ParseChannelOrder(name string) (ChannelOrder, error) {
	switch strings.ToUpper(name) {
	case "R", "I":
		return ChannelR, nil
	case "RG":
		return ChannelRG, nil
	case "RGBA":
		return ChannelRGBA, nil
	case "ARGB":
		return ChannelARGB, nil
	case "BGRA":
		return ChannelBGRA, nil
	}
	return ChannelR, fmt.Errorf("%w: %q", ErrUnknownChannelOrder, name)
}

// ByteOrder of a raw payload on disk. Normalized payloads are always little endian.
type ByteOrder uint8

// Supported byte orders.
const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "BIG"
	}
	return "LITTLE"
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Parse a descriptor byte order name.
func ParseByteOrder(name string) (ByteOrder, error) {
	switch strings.ToUpper(name) {
	case "LITTLE", "LITTLE_ENDIAN", "LE":
		return LittleEndian, nil
	case "BIG", "BIG_ENDIAN", "BE":
		return BigEndian, nil
	}
	return LittleEndian, fmt.Errorf("volume: unknown byte order %q", name)
}
