// Command dnp3outstation runs a minimal DNP3 outstation over a TCP
// listener: one binary input point and one counter, both writable only
// by the simulated environment, plus a CROB command that flips the
// binary point. It exists to exercise the full byte-to-engine pipeline
// end to end, the same role the teacher's examples/basic demonstrates
// for a CANopen network.
package main

import (
	"net"
	"os"
	"time"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/dnp3core/godnp3/pkg/config"
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/dnp3core/godnp3/pkg/link"
	"github.com/dnp3core/godnp3/pkg/outstation"
	"github.com/dnp3core/godnp3/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// memoryPoints is a toy two-point database: one binary input at index 0
// and one counter at index 0, plus a CROB handler that toggles the
// binary point and pushes a class 1 event for it.
type memoryPoints struct {
	binary  bool
	counter uint32
	events  *eventbuffer.Buffer
}

func (m *memoryPoints) ReadRange(group, variation uint8, r apdu.Range) ([]apdu.ObjectBlock, error) {
	switch group {
	case 1:
		return []apdu.ObjectBlock{m.binaryBlock()}, nil
	case 20:
		return []apdu.ObjectBlock{m.counterBlock()}, nil
	default:
		return nil, apdu.ErrUnsupportedObject
	}
}

func (m *memoryPoints) ReadClass0() []apdu.ObjectBlock {
	return []apdu.ObjectBlock{m.binaryBlock(), m.counterBlock()}
}

func (m *memoryPoints) binaryBlock() apdu.ObjectBlock {
	flags := byte(0x01) // online
	if m.binary {
		flags |= 0x80
	}
	return apdu.ObjectBlock{
		Header: apdu.Header{Group: 1, Variation: 2, Qualifier: apdu.QualUint8StartStop,
			Range: apdu.Range{Kind: apdu.RangeStartStop, Qualifier: apdu.QualUint8StartStop, Start: 0, Stop: 0}},
		Data: []byte{flags},
	}
}

func (m *memoryPoints) counterBlock() apdu.ObjectBlock {
	data := []byte{0x01, byte(m.counter), byte(m.counter >> 8), byte(m.counter >> 16), byte(m.counter >> 24)}
	return apdu.ObjectBlock{
		Header: apdu.Header{Group: 20, Variation: 1, Qualifier: apdu.QualUint8StartStop,
			Range: apdu.Range{Kind: apdu.RangeStartStop, Qualifier: apdu.QualUint8StartStop, Start: 0, Stop: 0}},
		Data: data,
	}
}

func (m *memoryPoints) Select(group uint8, index uint16, payload []byte) outstation.CommandStatus {
	if group != 12 || index != 0 {
		return outstation.StatusOutOfRange
	}
	return outstation.StatusSuccess
}

func (m *memoryPoints) Operate(group uint8, index uint16, payload []byte) outstation.CommandStatus {
	status := m.DirectOperate(group, index, payload)
	return status
}

func (m *memoryPoints) DirectOperate(group uint8, index uint16, payload []byte) outstation.CommandStatus {
	if group != 12 || index != 0 || len(payload) == 0 {
		return outstation.StatusOutOfRange
	}
	m.binary = !m.binary
	flags := byte(0x01)
	if m.binary {
		flags |= 0x80
	}
	m.events.Update(0, eventbuffer.Class1, eventbuffer.Value{Group: 2, Variation: 1, Flags: flags})
	return outstation.StatusSuccess
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfgPath := "dnp3outstation.ini"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Warn("could not load config, using defaults")
		cfg = config.Default()
	}

	listener, err := net.Listen("tcp", ":20000")
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}
	defer listener.Close()
	log.Info("dnp3outstation listening on :20000")

	conn, err := listener.Accept()
	if err != nil {
		log.WithError(err).Fatal("accept failed")
	}
	defer conn.Close()

	events := eventbuffer.New(map[eventbuffer.Class]int{
		eventbuffer.Class1: cfg.Outstation.EventBufferClass1,
		eventbuffer.Class2: cfg.Outstation.EventBufferClass2,
		eventbuffer.Class3: cfg.Outstation.EventBufferClass3,
	})
	points := &memoryPoints{events: events}
	sbo := outstation.NewSBOHandler(points, uint64(cfg.Outstation.SelectTimeoutMs)*1000)
	engine := outstation.NewEngine(outstation.Config{
		UnsolHoldUs:      uint64(cfg.Outstation.UnsolPackTimerMs) * 1000,
		MaxFragmentBytes: cfg.App.MaxFragmentSize,
	}, points, events, sbo)

	lnk := link.New(link.Config{
		LocalAddress:  cfg.Link.LocalAddress,
		RemoteAddress: cfg.Link.RemoteAddress,
		IsMaster:      false,
		NumRetry:      cfg.Link.NumRetry,
		AckTimeoutUs:  uint32(cfg.Link.AckTimeoutMs) * 1000,
	})
	reasm := transport.NewReassembler(cfg.App.MaxFragmentSize)

	runOutstation(conn, lnk, reasm, engine, sbo)
}

func runOutstation(conn net.Conn, lnk *link.Link, reasm *transport.Reassembler, engine *outstation.Engine, sbo *outstation.SBOHandler) {
	incoming := make(chan []byte, 16)
	go pumpReads(conn, incoming)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var rxBuf []byte

	apply := func(actions []link.Action) {
		for _, a := range actions {
			switch a.Kind {
			case link.ActionSendFrame:
				_, _ = conn.Write(a.Frame)
			case link.ActionDeliverPayload:
				handleTransportSegment(a.Payload, conn, reasm, engine, lnk)
			}
		}
	}

	for {
		select {
		case chunk, ok := <-incoming:
			if !ok {
				return
			}
			rxBuf = append(rxBuf, chunk...)
			for {
				header, payload, n, err := link.ParseFrame(rxBuf)
				if err != nil || n == 0 {
					break
				}
				rxBuf = rxBuf[n:]
				apply(lnk.HandleFrame(header, payload))
			}

		case <-ticker.C:
			apply(lnk.Poll(100_000))
			sbo.Poll(100_000)
			for _, frag := range engine.Poll(100_000) {
				sendFragment(conn, lnk, frag)
			}
		}
	}
}

func handleTransportSegment(payload []byte, conn net.Conn, reasm *transport.Reassembler, engine *outstation.Engine, lnk *link.Link) {
	if len(payload) == 0 {
		return
	}
	hdr := transport.DecodeHeader(payload[0])
	apduBytes, complete := reasm.Accept(hdr, payload[1:])
	if !complete {
		return
	}
	frag, err := apdu.Decode(apduBytes)
	if err != nil {
		log.WithError(err).Warn("apdu decode failed")
		return
	}
	for _, resp := range engine.HandleRequest(frag) {
		sendFragment(conn, lnk, resp)
	}
}

func sendFragment(conn net.Conn, lnk *link.Link, frag apdu.Fragment) {
	var raw []byte
	if apdu.IsResponseFunction(frag.Function) {
		raw = apdu.EncodeResponse(frag.Control, frag.Function, frag.IIN, frag.Objects)
	} else {
		raw = apdu.EncodeRequest(frag.Control, frag.Function, frag.Objects)
	}
	for _, seg := range transport.SegmentAPDU(raw, 0) {
		segPayload := append([]byte{seg.Header.Encode()}, seg.Payload...)
		for _, a := range lnk.Transmit(segPayload, false) {
			if a.Kind == link.ActionSendFrame && conn != nil {
				_, _ = conn.Write(a.Frame)
			}
		}
	}
}

func pumpReads(conn net.Conn, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}
