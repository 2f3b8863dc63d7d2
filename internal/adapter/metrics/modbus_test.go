package metrics

import (
	"testing"
	"time"

	"github.com/berfenger/hassbridge/pkg/goodwe"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestModbusTimings(t *testing.T) {

	timings := NewModbusTimings()
	inst := timings.Instrument()

	inst.RecordTime("ReadRegisters", 20*time.Millisecond)
	done := goodwe.RecordTimer("ReadRegister", []goodwe.ModbusInstrument{*inst})
	done()

	assert.Equal(t, 2, testutil.CollectAndCount(timings, "hassbridge_modbus_read_seconds"))
}
