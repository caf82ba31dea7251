package outstation

import (
	"encoding/binary"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/dnp3core/godnp3/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// Config configures an Engine instance.
type Config struct {
	NeedTimeIntervalUs uint64
	UnsolHoldUs        uint64
	UnsolMaxEvents     int
	MaxFragmentBytes   int
	RestartDelayMs     uint16
}

// Engine dispatches incoming request fragments, maintains the IIN
// field, and drives the unsolicited response heartbeat. It holds no
// transport reference: every public method returns the response
// fragment(s) to send, following the same side-effects-as-return-values
// shape as pkg/link.Link and pkg/app.Channel.
type Engine struct {
	cfg    Config
	db     PointSource
	events *eventbuffer.Buffer
	sbo    *SBOHandler

	iin apdu.IINField

	unsolEnabled map[eventbuffer.Class]bool
	unsolTimerUs uint64
	unsolArmed   bool
	unsolSeq     uint8
	needStartup  bool
	awaitingConf bool

	needTimeTimerUs uint64
	outSeq          uint8

	log *log.Entry
}

// NewEngine builds an Engine over db/events/sbo. device_restart starts
// set, as it does on every outstation boot, until the master writes it
// clear.
func NewEngine(cfg Config, db PointSource, events *eventbuffer.Buffer, sbo *SBOHandler) *Engine {
	if cfg.UnsolMaxEvents <= 0 {
		cfg.UnsolMaxEvents = 10
	}
	if cfg.MaxFragmentBytes <= 0 || cfg.MaxFragmentBytes > transport.MaxAPDUSize {
		cfg.MaxFragmentBytes = transport.MaxAPDUSize
	}
	if cfg.RestartDelayMs == 0 {
		cfg.RestartDelayMs = 1000
	}
	e := &Engine{
		cfg:          cfg,
		db:           db,
		events:       events,
		sbo:          sbo,
		unsolEnabled: make(map[eventbuffer.Class]bool),
		log:          log.WithField("component", "outstation"),
	}
	e.iin.SetDeviceRestart(true)
	return e
}

// IIN returns the current, live-computed IIN field: the sticky bits plus
// the class-event bits recomputed from the live event buffer state.
func (e *Engine) IIN() apdu.IINField {
	f := e.iin
	f.SetClass1Events(e.events.HasPending(eventbuffer.Class1))
	f.SetClass2Events(e.events.HasPending(eventbuffer.Class2))
	f.SetClass3Events(e.events.HasPending(eventbuffer.Class3))
	f.SetBufferOverflow(e.events.OverflowAny())
	return f
}

// EnableStartupUnsolicited arms the null-unsolicited heartbeat sent once
// after link-up when unsolicited reporting is configured on.
func (e *Engine) EnableStartupUnsolicited() {
	e.needStartup = true
}

// HandleRequest dispatches one parsed request fragment and returns the
// response fragment(s) to transmit.
func (e *Engine) HandleRequest(frag apdu.Fragment) []apdu.Fragment {
	e.outSeq = frag.Control.Seq
	switch frag.Function {
	case apdu.FuncRead:
		return e.handleRead(frag)
	case apdu.FuncWrite:
		return e.handleWrite(frag)
	case apdu.FuncSelect:
		return e.handleSelectOperate(frag, true)
	case apdu.FuncOperate:
		return e.handleSelectOperate(frag, false)
	case apdu.FuncDirectOperate:
		return e.handleDirectOperate(frag, true)
	case apdu.FuncDirectOperateNR:
		return e.handleDirectOperate(frag, false)
	case apdu.FuncEnableUnsolicited:
		return e.handleUnsolicitedConfig(frag, true)
	case apdu.FuncDisableUnsolicited:
		return e.handleUnsolicitedConfig(frag, false)
	case apdu.FuncColdRestart:
		return e.handleRestart(true)
	case apdu.FuncWarmRestart:
		return e.handleRestart(false)
	case apdu.FuncConfirm:
		e.onConfirm(frag)
		return nil
	default:
		iin := e.IIN()
		iin.SetNoFuncSupport(true)
		return e.respond(nil, iin, false)
	}
}

func (e *Engine) handleRead(frag apdu.Fragment) []apdu.Fragment {
	var objects []apdu.ObjectBlock
	iin := e.IIN()

	for _, block := range frag.Objects {
		h := block.Header
		switch {
		case h.Group == 60:
			objects = append(objects, e.readClass(h.Variation)...)
		default:
			blocks, err := e.db.ReadRange(h.Group, h.Variation, h.Range)
			if err != nil {
				e.log.Warnf("read group %d var %d: %v", h.Group, h.Variation, err)
				iin.SetObjectUnknown(true)
				continue
			}
			objects = append(objects, blocks...)
		}
	}
	return e.respond(objects, iin, false)
}

func (e *Engine) readClass(variation uint8) []apdu.ObjectBlock {
	switch variation {
	case 1:
		return e.db.ReadClass0()
	case 2:
		return e.drainClassEvents(eventbuffer.Class1)
	case 3:
		return e.drainClassEvents(eventbuffer.Class2)
	case 4:
		return e.drainClassEvents(eventbuffer.Class3)
	default:
		return nil
	}
}

func (e *Engine) drainClassEvents(class eventbuffer.Class) []apdu.ObjectBlock {
	e.events.Select(class, e.cfg.UnsolMaxEvents)
	var objects []apdu.ObjectBlock
	for _, r := range e.events.Selected(class) {
		objects = append(objects, encodeEvent(r))
	}
	return objects
}

func (e *Engine) handleWrite(frag apdu.Fragment) []apdu.Fragment {
	iin := e.IIN()
	for _, block := range frag.Objects {
		switch {
		case block.Header.Group == 80 && block.Header.Variation == 1:
			if len(block.Data) >= 1 && block.Data[0] == 0 {
				e.iin.SetDeviceRestart(false)
			} else {
				iin.SetParameterError(true)
			}
		case block.Header.Group == 50 && block.Header.Variation == 1:
			if !e.iin.NeedTime() {
				iin.SetParameterError(true)
				continue
			}
			e.iin.SetNeedTime(false)
			e.needTimeTimerUs = 0
		default:
			iin.SetObjectUnknown(true)
		}
	}
	return e.respond(nil, iin, false)
}

func (e *Engine) handleSelectOperate(frag apdu.Fragment, isSelect bool) []apdu.Fragment {
	iin := e.IIN()
	var objects []apdu.ObjectBlock
	for _, block := range frag.Objects {
		idx := uint16(block.Header.Range.Start)
		var status CommandStatus
		if isSelect {
			status = e.sbo.Select(block.Header.Group, idx, frag.Control.Seq, block.Header.Qualifier, block.Data)
		} else {
			status = e.sbo.Operate(block.Header.Group, idx, frag.Control.Seq, block.Header.Qualifier, block.Data)
		}
		objects = append(objects, echoCommand(block, status))
	}
	return e.respond(objects, iin, false)
}

func (e *Engine) handleDirectOperate(frag apdu.Fragment, needEcho bool) []apdu.Fragment {
	iin := e.IIN()
	var objects []apdu.ObjectBlock
	for _, block := range frag.Objects {
		idx := uint16(block.Header.Range.Start)
		status := e.sbo.DirectOperate(block.Header.Group, idx, block.Data)
		if needEcho {
			objects = append(objects, echoCommand(block, status))
		}
	}
	if !needEcho {
		return nil
	}
	return e.respond(objects, iin, false)
}

func echoCommand(block apdu.ObjectBlock, status CommandStatus) apdu.ObjectBlock {
	data := append([]byte(nil), block.Data...)
	if len(data) > 0 {
		data[len(data)-1] = byte(status)
	}
	return apdu.ObjectBlock{Header: block.Header, Data: data}
}

func (e *Engine) handleUnsolicitedConfig(frag apdu.Fragment, enable bool) []apdu.Fragment {
	iin := e.IIN()
	for _, block := range frag.Objects {
		if block.Header.Group != 60 {
			iin.SetObjectUnknown(true)
			continue
		}
		class := variationToClass(block.Header.Variation)
		if class == eventbuffer.ClassNone {
			iin.SetObjectUnknown(true)
			continue
		}
		e.unsolEnabled[class] = enable
		if enable {
			e.unsolArmed = true
		}
	}
	return e.respond(nil, iin, false)
}

// handleRestart answers a COLD_RESTART/WARM_RESTART request with a group
// 52 variation 2 RESTART_TIME object carrying the delay, in
// milliseconds, until the restart takes effect. A cold restart also
// re-arms the device_restart IIN bit, since the point of the request is
// for the outstation to come back as freshly booted.
func (e *Engine) handleRestart(cold bool) []apdu.Fragment {
	if cold {
		e.iin.SetDeviceRestart(true)
	}
	delay := make([]byte, 2)
	binary.LittleEndian.PutUint16(delay, e.cfg.RestartDelayMs)
	obj := apdu.ObjectBlock{
		Header: apdu.Header{Group: 52, Variation: 2, Qualifier: apdu.QualUint8Cnt,
			Range: apdu.Range{Kind: apdu.RangeCount, Qualifier: apdu.QualUint8Cnt, Count: 1}},
		Data: delay,
	}
	return e.respond([]apdu.ObjectBlock{obj}, e.IIN(), false)
}

func variationToClass(variation uint8) eventbuffer.Class {
	switch variation {
	case 2:
		return eventbuffer.Class1
	case 3:
		return eventbuffer.Class2
	case 4:
		return eventbuffer.Class3
	default:
		return eventbuffer.ClassNone
	}
}

// Poll advances internal timers: need_time scheduling and the
// unsolicited hold timer. It returns an unsolicited response fragment
// when one becomes due.
func (e *Engine) Poll(elapsedUs uint64) []apdu.Fragment {
	if e.cfg.NeedTimeIntervalUs > 0 {
		e.needTimeTimerUs += elapsedUs
		if e.needTimeTimerUs >= e.cfg.NeedTimeIntervalUs {
			e.iin.SetNeedTime(true)
		}
	}

	if e.awaitingConf {
		return nil
	}

	if e.needStartup {
		e.needStartup = false
		e.awaitingConf = true
		return e.respond(nil, e.IIN(), true)
	}

	anyPending := e.events.HasPending(eventbuffer.Class1) && e.unsolEnabled[eventbuffer.Class1] ||
		e.events.HasPending(eventbuffer.Class2) && e.unsolEnabled[eventbuffer.Class2] ||
		e.events.HasPending(eventbuffer.Class3) && e.unsolEnabled[eventbuffer.Class3]

	if !anyPending {
		e.unsolTimerUs = 0
		return nil
	}
	e.unsolTimerUs += elapsedUs
	if e.unsolTimerUs < e.cfg.UnsolHoldUs {
		return nil
	}
	e.unsolTimerUs = 0

	var objects []apdu.ObjectBlock
	for _, class := range []eventbuffer.Class{eventbuffer.Class1, eventbuffer.Class2, eventbuffer.Class3} {
		if !e.unsolEnabled[class] {
			continue
		}
		objects = append(objects, e.drainClassEvents(class)...)
	}
	e.awaitingConf = true
	return e.respond(objects, e.IIN(), true)
}

// onConfirm processes a CONFIRM fragment closing out a pending
// unsolicited response: its events are marked written and purged.
func (e *Engine) onConfirm(frag apdu.Fragment) {
	if !e.awaitingConf {
		return
	}
	e.awaitingConf = false
	e.events.MarkSelectedWritten()
	e.events.ClearWritten()
}

// OnUnsolicitedFailure is called when an unsolicited response's transmit
// or confirm wait failed, returning its events to pending for retry.
func (e *Engine) OnUnsolicitedFailure() {
	e.awaitingConf = false
	e.events.Deselect()
}

func (e *Engine) respond(objects []apdu.ObjectBlock, iin apdu.IINField, unsolicited bool) []apdu.Fragment {
	fc := apdu.FuncResponse
	if unsolicited {
		fc = apdu.FuncUnsolicitedResponse
	}
	return buildResponseFragments(objects, fc, iin, e.nextSeq(unsolicited), e.cfg.MaxFragmentBytes)
}

func (e *Engine) nextSeq(unsolicited bool) uint8 {
	if unsolicited {
		seq := e.unsolSeq
		e.unsolSeq = (e.unsolSeq + 1) % 16
		return seq
	}
	// A solicited response echoes the SEQ of the request it answers.
	return e.outSeq
}
