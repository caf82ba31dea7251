package apdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIINFieldSetAndQuery(t *testing.T) {
	var f IINField
	assert.False(t, f.DeviceRestart())

	f.SetDeviceRestart(true)
	f.SetNeedTime(true)
	assert.True(t, f.DeviceRestart())
	assert.True(t, f.NeedTime())
	assert.False(t, f.ObjectUnknown())

	f.SetDeviceRestart(false)
	assert.False(t, f.DeviceRestart())
	assert.True(t, f.NeedTime())
}

func TestIINFieldBitsDoNotOverlap(t *testing.T) {
	var f IINField
	f.SetBroadcast(true)
	f.SetClass1Events(true)
	f.SetClass2Events(true)
	f.SetClass3Events(true)
	f.SetNeedTime(true)
	f.SetLocalControl(true)
	f.SetDeviceTrouble(true)
	f.SetDeviceRestart(true)
	f.SetNoFuncSupport(true)
	f.SetObjectUnknown(true)
	f.SetParameterError(true)
	f.SetBufferOverflow(true)
	f.SetAlreadyExecuting(true)
	f.SetConfigCorrupt(true)

	assert.True(t, f.Broadcast())
	assert.True(t, f.ConfigCorrupt())
	assert.True(t, f.AlreadyExecuting())
}
