package goodwe

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type ModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// registerBlock is a contiguous range of holding registers read in one request.
type registerBlock struct {
	start uint16
	count uint16
}

func (reader ModbusClient) readString(address uint16, size uint16) (string, error) {
	raw, err := reader.readRawBytes(address, size, modbus.HOLDING_REGISTER)
	if err != nil {
		return "", err
	}
	if f := bytes.IndexByte(raw, 0x00); f >= 0 {
		raw = raw[:f]
	}
	return strings.TrimSpace(string(raw)), nil
}

func (reader ModbusClient) readRegister(addr uint16, regType modbus.RegType) (uint16, error) {
	defer RecordTimer("ReadRegister", reader.instrument)()
	return reader.client.ReadRegister(addr, regType)
}

func (reader ModbusClient) readRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", reader.instrument)()
	return reader.client.ReadRegisters(addr, quantity, regType)
}

func (reader ModbusClient) readRawBytes(addr uint16, quantity uint16, regType modbus.RegType) ([]byte, error) {
	defer RecordTimer("ReadRawBytes", reader.instrument)()
	return reader.client.ReadRawBytes(addr, quantity, regType)
}

// readBlocks reads every block and returns the words keyed by register address.
func (reader ModbusClient) readBlocks(blocks []registerBlock) (map[uint16]uint16, error) {
	words := make(map[uint16]uint16)
	for _, blk := range blocks {
		regs, err := reader.readRegisters(blk.start, blk.count, modbus.HOLDING_REGISTER)
		if err != nil {
			return nil, err
		}
		for i, w := range regs {
			words[blk.start+uint16(i)] = w
		}
	}
	return words, nil
}

func decodeRegister(words map[uint16]uint16, addr uint16, encoding int, scale float64) (float64, bool) {
	hi, ok := words[addr]
	if !ok {
		return 0, false
	}
	var raw float64
	switch encoding {
	case EncodingU16:
		raw = float64(hi)
	case EncodingS16:
		raw = float64(int16(hi))
	case EncodingU32, EncodingS32:
		lo, ok := words[addr+1]
		if !ok {
			return 0, false
		}
		v := uint32(hi)<<16 | uint32(lo)
		if encoding == EncodingS32 {
			raw = float64(int32(v))
		} else {
			raw = float64(v)
		}
	default:
		return 0, false
	}
	if scale == 0 {
		scale = 1
	}
	return roundTo(raw*scale, 3), true
}

func roundTo(value float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(value*p) / p
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func debugLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if logger == nil {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus timing", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}
