package outstation

import (
	"testing"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	class0 []apdu.ObjectBlock
	ranges map[uint8][]apdu.ObjectBlock
}

func (f *fakeSource) ReadRange(group, variation uint8, r apdu.Range) ([]apdu.ObjectBlock, error) {
	if blocks, ok := f.ranges[group]; ok {
		return blocks, nil
	}
	return nil, apdu.ErrUnsupportedObject
}

func (f *fakeSource) ReadClass0() []apdu.ObjectBlock { return f.class0 }

func newTestEngine() (*Engine, *eventbuffer.Buffer, *fakeCommandHandler) {
	events := eventbuffer.New(map[eventbuffer.Class]int{
		eventbuffer.Class1: 10, eventbuffer.Class2: 10, eventbuffer.Class3: 10,
	})
	cmd := &fakeCommandHandler{selectStatus: StatusSuccess}
	sbo := NewSBOHandler(cmd, 5_000_000)
	src := &fakeSource{ranges: map[uint8][]apdu.ObjectBlock{}}
	e := NewEngine(Config{UnsolHoldUs: 1000, NeedTimeIntervalUs: 0}, src, events, sbo)
	return e, events, cmd
}

func TestDeviceRestartSetOnBootClearedByWrite(t *testing.T) {
	e, _, _ := newTestEngine()
	assert.True(t, e.IIN().DeviceRestart())

	req := apdu.Fragment{Function: apdu.FuncWrite, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 80, Variation: 1}, Data: []byte{0x00}},
	}}
	resp := e.HandleRequest(req)
	require.Len(t, resp, 1)
	assert.False(t, e.IIN().DeviceRestart())
}

func TestWriteNonZeroRestartBitSetsParameterError(t *testing.T) {
	e, _, _ := newTestEngine()
	req := apdu.Fragment{Function: apdu.FuncWrite, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 80, Variation: 1}, Data: []byte{0x01}},
	}}
	resp := e.HandleRequest(req)
	require.Len(t, resp, 1)
	assert.True(t, resp[0].IIN.ParameterError())
}

func TestColdRestartRespondsWithRestartTimeAndRearmsDeviceRestart(t *testing.T) {
	e, _, _ := newTestEngine()
	req := apdu.Fragment{Function: apdu.FuncWrite, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 80, Variation: 1}, Data: []byte{0x00}},
	}}
	e.HandleRequest(req)
	require.False(t, e.IIN().DeviceRestart())

	resp := e.HandleRequest(apdu.Fragment{Function: apdu.FuncColdRestart})
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Objects, 1)
	obj := resp[0].Objects[0]
	assert.EqualValues(t, 52, obj.Header.Group)
	assert.EqualValues(t, 2, obj.Header.Variation)
	require.Len(t, obj.Data, 2)
	assert.True(t, e.IIN().DeviceRestart())
}

func TestWarmRestartRespondsWithoutRearmingDeviceRestart(t *testing.T) {
	e, _, _ := newTestEngine()
	req := apdu.Fragment{Function: apdu.FuncWrite, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 80, Variation: 1}, Data: []byte{0x00}},
	}}
	e.HandleRequest(req)

	resp := e.HandleRequest(apdu.Fragment{Function: apdu.FuncWarmRestart})
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Objects, 1)
	assert.False(t, e.IIN().DeviceRestart())
}

func TestUnknownFunctionSetsNoFuncSupport(t *testing.T) {
	e, _, _ := newTestEngine()
	resp := e.HandleRequest(apdu.Fragment{Function: apdu.FunctionCode(0x7F)})
	require.Len(t, resp, 1)
	assert.True(t, resp[0].IIN.NoFuncSupport())
}

func TestSelectThenOperateViaEngine(t *testing.T) {
	e, _, cmd := newTestEngine()
	selReq := apdu.Fragment{Function: apdu.FuncSelect, Control: apdu.Control{Seq: 1}, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 12, Variation: 1, Qualifier: apdu.QualUint8StartStop,
			Range: apdu.Range{Kind: apdu.RangeStartStop, Start: 5, Stop: 5}}, Data: []byte{0x41, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}}
	e.HandleRequest(selReq)

	opReq := apdu.Fragment{Function: apdu.FuncOperate, Control: apdu.Control{Seq: 2}, Objects: selReq.Objects}
	resp := e.HandleRequest(opReq)
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Objects, 1)
	assert.Equal(t, byte(StatusSuccess), resp[0].Objects[0].Data[len(resp[0].Objects[0].Data)-1])
	assert.Equal(t, []uint16{5}, cmd.operated)
}

func TestDirectOperateInvokesHandlerImmediately(t *testing.T) {
	e, _, cmd := newTestEngine()
	req := apdu.Fragment{Function: apdu.FuncDirectOperate, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 12, Variation: 1, Range: apdu.Range{Start: 9, Stop: 9}},
			Data: []byte{0x00}},
	}}
	resp := e.HandleRequest(req)
	require.Len(t, resp, 1)
	assert.Equal(t, []uint16{9}, cmd.operated)
}

func TestEnableUnsolicitedThenEventTriggersResponseAfterHold(t *testing.T) {
	e, events, _ := newTestEngine()
	enableReq := apdu.Fragment{Function: apdu.FuncEnableUnsolicited, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 60, Variation: 2}},
	}}
	e.HandleRequest(enableReq)

	events.Update(1, eventbuffer.Class1, eventbuffer.Value{Group: 2, Variation: 1, Flags: 0x01, Int: 1})

	assert.Nil(t, e.Poll(500)) // hold timer not yet elapsed

	frags := e.Poll(600)
	require.Len(t, frags, 1)
	assert.Equal(t, apdu.FuncUnsolicitedResponse, frags[0].Function)
	require.Len(t, frags[0].Objects, 1)

	e.HandleRequest(apdu.Fragment{Function: apdu.FuncConfirm})
	assert.False(t, events.HasPending(eventbuffer.Class1))
}

func TestStartupNullUnsolicitedFiresBeforeNormalOperation(t *testing.T) {
	e, events, _ := newTestEngine()
	e.EnableStartupUnsolicited()

	frags := e.Poll(10)
	require.Len(t, frags, 1)
	assert.Equal(t, apdu.FuncUnsolicitedResponse, frags[0].Function)
	assert.Empty(t, frags[0].Objects)

	// Further polls produce nothing until the master confirms.
	events.Update(1, eventbuffer.Class1, eventbuffer.Value{Group: 2, Variation: 1, Int: 1})
	assert.Nil(t, e.Poll(10_000))

	e.HandleRequest(apdu.Fragment{Function: apdu.FuncConfirm})
	assert.Nil(t, e.Poll(1)) // unsolicited not enabled for class1 yet
}

func TestReadClass0DelegatesToPointSource(t *testing.T) {
	e, _, _ := newTestEngine()
	src := e.db.(*fakeSource)
	src.class0 = []apdu.ObjectBlock{{Header: apdu.Header{Group: 1, Variation: 2}, Data: []byte{0x01}}}

	req := apdu.Fragment{Function: apdu.FuncRead, Objects: []apdu.ObjectBlock{
		{Header: apdu.Header{Group: 60, Variation: 1}},
	}}
	resp := e.HandleRequest(req)
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Objects, 1)
	assert.EqualValues(t, 1, resp[0].Objects[0].Header.Group)
}
