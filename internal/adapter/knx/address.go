package knx

import (
	"fmt"
	"strconv"
	"strings"
)

// IndividualAddress identifies a device on the bus in area.line.device form.
//
//   - Area:   0-15 (4 bits)
//   - Line:   0-15 (4 bits)
//   - Device: 0-255 (8 bits)
type IndividualAddress struct {
	Area   uint8
	Line   uint8
	Device uint8
}

const (
	maxArea   = 15
	maxLine   = 15
	maxDevice = 255

	maxMain     = 31
	maxMiddle   = 7
	maxSub3     = 255
	maxSub2     = 2047
	maxFreeAddr = 65535
)

func ParseIndividualAddress(s string) (IndividualAddress, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return IndividualAddress{}, fmt.Errorf("%w: expected area.line.device, got %q", ErrInvalidIndividualAddress, s)
	}
	area, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || area > maxArea {
		return IndividualAddress{}, fmt.Errorf("%w: area must be 0-%d, got %q", ErrInvalidIndividualAddress, maxArea, parts[0])
	}
	line, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || line > maxLine {
		return IndividualAddress{}, fmt.Errorf("%w: line must be 0-%d, got %q", ErrInvalidIndividualAddress, maxLine, parts[1])
	}
	device, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil || device > maxDevice {
		return IndividualAddress{}, fmt.Errorf("%w: device must be 0-%d, got %q", ErrInvalidIndividualAddress, maxDevice, parts[2])
	}
	return IndividualAddress{
		Area:   uint8(area),
		Line:   uint8(line),
		Device: uint8(device),
	}, nil
}

func (ia IndividualAddress) String() string {
	return fmt.Sprintf("%d.%d.%d", ia.Area, ia.Line, ia.Device)
}

// ToUint16 packs the address as AAAA LLLL DDDD DDDD.
func (ia IndividualAddress) ToUint16() uint16 {
	return uint16(ia.Area)<<12 | uint16(ia.Line)<<8 | uint16(ia.Device)
}

type GroupAddressLevel int

const (
	GroupAddressFree GroupAddressLevel = iota + 1
	GroupAddressShort
	GroupAddressLong
)

// GroupAddress is a 16 bit group address. Level only affects formatting.
type GroupAddress struct {
	Raw   uint16
	Level GroupAddressLevel
}

// ParseGroupAddress accepts the 3-level (main/middle/sub), 2-level
// (main/sub) and free (0-65535) notations.
func ParseGroupAddress(s string) (GroupAddress, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		raw, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return GroupAddress{}, fmt.Errorf("%w: free address must be 0-%d, got %q", ErrInvalidGroupAddress, maxFreeAddr, s)
		}
		return GroupAddress{Raw: uint16(raw), Level: GroupAddressFree}, nil
	case 2:
		main, err := parseGroupPart(parts[0], maxMain, "main", s)
		if err != nil {
			return GroupAddress{}, err
		}
		sub, err := parseGroupPart(parts[1], maxSub2, "sub", s)
		if err != nil {
			return GroupAddress{}, err
		}
		return GroupAddress{Raw: uint16(main<<11 | sub), Level: GroupAddressShort}, nil
	case 3:
		main, err := parseGroupPart(parts[0], maxMain, "main", s)
		if err != nil {
			return GroupAddress{}, err
		}
		middle, err := parseGroupPart(parts[1], maxMiddle, "middle", s)
		if err != nil {
			return GroupAddress{}, err
		}
		sub, err := parseGroupPart(parts[2], maxSub3, "sub", s)
		if err != nil {
			return GroupAddress{}, err
		}
		return GroupAddress{Raw: uint16(main<<11 | middle<<8 | sub), Level: GroupAddressLong}, nil
	default:
		return GroupAddress{}, fmt.Errorf("%w: %q", ErrInvalidGroupAddress, s)
	}
}

func parseGroupPart(part string, max uint64, name, s string) (uint64, error) {
	v, err := strconv.ParseUint(part, 10, 16)
	if err != nil || v > max {
		return 0, fmt.Errorf("%w: %s group must be 0-%d, got %q", ErrInvalidGroupAddress, name, max, s)
	}
	return v, nil
}

func (ga GroupAddress) Main() uint8 {
	return uint8(ga.Raw >> 11 & 0x1F)
}

func (ga GroupAddress) Middle() uint8 {
	return uint8(ga.Raw >> 8 & 0x07)
}

func (ga GroupAddress) String() string {
	switch ga.Level {
	case GroupAddressFree:
		return strconv.Itoa(int(ga.Raw))
	case GroupAddressShort:
		return fmt.Sprintf("%d/%d", ga.Main(), ga.Raw&0x07FF)
	default:
		return fmt.Sprintf("%d/%d/%d", ga.Main(), ga.Middle(), ga.Raw&0xFF)
	}
}
