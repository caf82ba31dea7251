// Command dnp3master connects to a single outstation over TCP and runs
// an integrity poll at the configured integrity rate, printing every point it reads
// and every event it receives. It exercises the full byte-to-scheduler
// pipeline from the opposite end of cmd/dnp3outstation, the same way
// the teacher's examples/master demonstrates a CANopen NMT master
// against examples/basic's slave node.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dnp3core/godnp3/pkg/apdu"
	"github.com/dnp3core/godnp3/pkg/config"
	"github.com/dnp3core/godnp3/pkg/eventbuffer"
	"github.com/dnp3core/godnp3/pkg/link"
	"github.com/dnp3core/godnp3/pkg/master"
	"github.com/dnp3core/godnp3/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// wireSender implements master.RequestSender by encoding the
// corresponding request APDU and pushing it through the link layer;
// the actual read results arrive later, asynchronously, through the
// response path in run().
type wireSender struct {
	lnk    *link.Link
	conn   net.Conn
	seq    uint8
	onSend func()
}

func (w *wireSender) send(fc apdu.FunctionCode, objects []apdu.ObjectBlock) bool {
	ctrl := apdu.Control{Fir: true, Fin: true, Seq: w.seq & 0x0F}
	w.seq++
	raw := apdu.EncodeRequest(ctrl, fc, objects)
	for _, seg := range transport.SegmentAPDU(raw, 0) {
		payload := append([]byte{seg.Header.Encode()}, seg.Payload...)
		for _, a := range w.lnk.Transmit(payload, false) {
			if a.Kind == link.ActionSendFrame {
				_, _ = w.conn.Write(a.Frame)
			}
		}
	}
	if w.onSend != nil {
		w.onSend()
	}
	return true
}

func (w *wireSender) SendDisableUnsolicited(classMask uint8) bool {
	return w.send(apdu.FuncDisableUnsolicited, classScanObjects(classMask))
}

func (w *wireSender) SendEnableUnsolicited(classMask uint8) bool {
	return w.send(apdu.FuncEnableUnsolicited, classScanObjects(classMask))
}

func (w *wireSender) RunIntegrityPoll() bool {
	return w.send(apdu.FuncRead, classScanObjects(0x0F))
}

func (w *wireSender) RunClassScan(class eventbuffer.Class) bool {
	return w.send(apdu.FuncRead, classScanObjects(classBit(class)))
}

func classBit(c eventbuffer.Class) uint8 {
	switch c {
	case eventbuffer.Class1:
		return 0x01
	case eventbuffer.Class2:
		return 0x02
	case eventbuffer.Class3:
		return 0x04
	default:
		return 0
	}
}

// classScanObjects builds a group-60 class-poll request: one qualifier
// 0x06 (all objects) header per class bit set in mask, plus class 0
// when the integrity bit (bit3) is set.
func classScanObjects(mask uint8) []apdu.ObjectBlock {
	var objs []apdu.ObjectBlock
	add := func(variation uint8) {
		objs = append(objs, apdu.ObjectBlock{Header: apdu.Header{Group: 60, Variation: variation, Qualifier: 0x06}})
	}
	if mask&0x08 != 0 {
		add(1) // class 0
	}
	if mask&0x01 != 0 {
		add(2)
	}
	if mask&0x02 != 0 {
		add(3)
	}
	if mask&0x04 != 0 {
		add(4)
	}
	return objs
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	addr := "127.0.0.1:20000"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	cfgPath := "dnp3master.ini"
	if len(os.Args) > 2 {
		cfgPath = os.Args[2]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Warn("could not load config, using defaults")
		cfg = config.Default()
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("dial failed")
	}
	defer conn.Close()
	log.Infof("dnp3master connected to %s", addr)

	lnk := link.New(link.Config{
		LocalAddress:  cfg.Link.LocalAddress,
		RemoteAddress: cfg.Link.RemoteAddress,
		IsMaster:      true,
		NumRetry:      cfg.Link.NumRetry,
		AckTimeoutUs:  uint32(cfg.Link.AckTimeoutMs) * 1000,
	})
	sender := &wireSender{lnk: lnk, conn: conn}
	m := master.NewMaster(master.Config{
		IntegrityRateUs: uint64(cfg.Master.IntegrityRateMs) * 1000,
		TaskRetryRateUs: uint64(cfg.Master.TaskRetryRateMs) * 1000,
		EnableUnsol:     cfg.Master.EnableUnsol,
		UnsolClassMask:  cfg.Outstation.UnsolClassMask,
		UnsolOnStartup:  cfg.Master.UnsolOnStartup,
	}, sender)

	reasm := transport.NewReassembler(cfg.App.MaxFragmentSize)

	// A TEST_LINK_STATES frame goes out and the master's startup sequence
	// starts at once, without waiting for the link to answer; the channel
	// monitor is not used here.
	for _, a := range lnk.TestLink() {
		if a.Kind == link.ActionSendFrame {
			_, _ = conn.Write(a.Frame)
		}
	}
	m.LinkUp()

	run(conn, lnk, reasm, m)
}

func run(conn net.Conn, lnk *link.Link, reasm *transport.Reassembler, m *master.Master) {
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
			case link.ActionNotifySuccess:
				m.LinkUp()
			case link.ActionNotifyFailure:
				m.LinkDown()
			case link.ActionDeliverPayload:
				handleSegment(a.Payload, reasm)
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
			m.Poll(100_000)
		}
	}
}

func handleSegment(payload []byte, reasm *transport.Reassembler) {
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
	printResponse(frag)
}

func printResponse(frag apdu.Fragment) {
	for _, obj := range frag.Objects {
		fmt.Printf("group=%d variation=%d range=%v bytes=%x\n", obj.Header.Group, obj.Header.Variation, obj.Header.Range, obj.Data)
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
