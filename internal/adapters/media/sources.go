package media

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

const (
	maxDatagram    = 1 << 16
	rtspRetryDelay = 2 * time.Second
)

// UDPSrc receives RTP datagrams on address:port. The socket is bound while the element is out of
// the null state; packets flow only while playing.
type UDPSrc struct {
	*element

	smu     sync.Mutex
	conn    net.PacketConn
	done    chan struct{}
	packets atomic.Uint64
}

func (s *UDPSrc) setProperty(key, value string) error {
	if key == "port" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("invalid port %q", value)
		}
	}
	return nil
}

func (s *UDPSrc) start() error {
	addr := net.JoinHostPort(s.prop("address", "0.0.0.0"), s.prop("port", "5004"))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	s.smu.Lock()
	s.conn, s.done = conn, done
	s.smu.Unlock()
	log.Info().Str("module", "media").Str("element", s.name).Str("addr", conn.LocalAddr().String()).Msg("udp source listening")
	go s.loop(conn, done)
	return nil
}

func (s *UDPSrc) loop(conn net.PacketConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Error().Err(err).Str("module", "media").Str("element", s.name).Msg("udp read")
			}
			return
		}
		if !s.playing() {
			continue
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(append([]byte(nil), buf[:n]...)); err != nil {
			log.Debug().Err(err).Str("module", "media").Str("element", s.name).Msg("dropping non-RTP datagram")
			continue
		}
		s.packets.Add(1)
		s.emit(pkt)
	}
}

func (s *UDPSrc) stop() {
	s.smu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.smu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-done
}

// LocalAddr is the bound socket address, nil while stopped.
func (s *UDPSrc) LocalAddr() net.Addr {
	s.smu.Lock()
	defer s.smu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *UDPSrc) Packets() uint64 { return s.packets.Load() }

// RTSPSrc pulls the first video media of an RTSP stream with gortsplib and reconnects on failure.
type RTSPSrc struct {
	*element

	cancel  context.CancelFunc
	done    chan struct{}
	packets atomic.Uint64
}

func (s *RTSPSrc) setProperty(key, value string) error {
	switch key {
	case "location":
		if _, err := base.ParseURL(value); err != nil {
			return err
		}
	case "latency":
		if _, err := strconv.Atoi(value); err != nil {
			return err
		}
	}
	return nil
}

func (s *RTSPSrc) start() error {
	location, ok := s.Property("location")
	if !ok {
		return errors.New("rtspsrc needs a location")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, location)
	return nil
}

func (s *RTSPSrc) loop(ctx context.Context, location string) {
	defer close(s.done)
	for {
		err := s.run(ctx, location)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("module", "media").Str("element", s.name).Str("location", location).Msg("rtsp source stopped, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(rtspRetryDelay):
		}
	}
}

func (s *RTSPSrc) run(ctx context.Context, location string) error {
	u, err := base.ParseURL(location)
	if err != nil {
		return err
	}
	c := gortsplib.Client{}
	if err := c.Start(u.Scheme, u.Host); err != nil {
		return err
	}
	defer c.Close()

	desc, _, err := c.Describe(u)
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}
	var medi *description.Media
	for _, m := range desc.Medias {
		if m.Type == description.MediaTypeVideo && len(m.Formats) > 0 {
			medi = m
			break
		}
	}
	if medi == nil {
		return errors.New("stream has no video media")
	}
	if _, err := c.Setup(desc.BaseURL, medi, 0, 0); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	c.OnPacketRTP(medi, medi.Formats[0], func(pkt *rtp.Packet) {
		if !s.playing() {
			return
		}
		s.packets.Add(1)
		s.emit(pkt)
	})
	if _, err := c.Play(nil); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	log.Info().
		Str("module", "media").
		Str("element", s.name).
		Str("location", location).
		Str("codec", medi.Formats[0].Codec()).
		Msg("rtsp source playing")

	waitErr := make(chan error, 1)
	go func() { waitErr <- c.Wait() }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-waitErr:
		return err
	}
}

func (s *RTSPSrc) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

func (s *RTSPSrc) Packets() uint64 { return s.packets.Load() }
