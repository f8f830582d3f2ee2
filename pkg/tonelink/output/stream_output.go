package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/tonelink/config"
	"github.com/norasector/tonelink/pkg/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const receiveChannels = 8

// EventUDPOutput streams chat events as length-prefixed protobuf Structs to
// every configured destination.
type EventUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan chat.Event
	metrics  api.WriteAPI
}

func NewEventUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *EventUDPOutput {
	return &EventUDPOutput{
		dests:    dests,
		recvChan: make(chan chat.Event, receiveChannels),
		metrics:  metrics,
	}
}

func (s *EventUDPOutput) Receive() chan<- chat.Event {
	return s.recvChan
}

// EventToProtobuf flattens an event into a Struct. The log snapshot is
// reduced to its counters. Received text can hold arbitrary bytes, so invalid
// UTF-8 is replaced before it reaches the Struct.
func EventToProtobuf(evt chat.Event) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"direction":   evt.Direction.String(),
		"timestamp":   evt.Message.Timestamp.UnixNano(),
		"sender":      validUTF8(evt.Message.Sender),
		"recipient":   validUTF8(evt.Message.Recipient),
		"text":        validUTF8(evt.Message.Text),
		"log_count":   evt.Snapshot.Count,
		"write_index": evt.Snapshot.WriteIndex,
	})
}

func validUTF8(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// EncodeEvent returns the wire form of evt: a little-endian uint16 length
// followed by the marshaled Struct.
func EncodeEvent(evt chat.Event) ([]byte, error) {
	pb, err := EventToProtobuf(evt)
	if err != nil {
		return nil, err
	}
	encoded, err := proto.Marshal(pb)
	if err != nil {
		return nil, fmt.Errorf("error marshaling protobuf: %w", err)
	}
	if len(encoded) > 0xffff {
		return nil, fmt.Errorf("encoded event too large: %d bytes", len(encoded))
	}

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
		return nil, fmt.Errorf("error encoding header size: %w", err)
	}
	msgBuf.Write(encoded)
	return msgBuf.Bytes(), nil
}

// DecodeEvent reverses EncodeEvent.
func DecodeEvent(b []byte) (*structpb.Struct, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("short message: %d bytes", len(b))
	}
	size := int(binary.LittleEndian.Uint16(b))
	if len(b)-2 < size {
		return nil, fmt.Errorf("truncated message: want %d bytes, have %d", size, len(b)-2)
	}
	ret := &structpb.Struct{}
	if err := proto.Unmarshal(b[2:2+size], ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *EventUDPOutput) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {
		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("stream output starting")
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}

	eg.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case evt := <-s.recvChan:
				encoded, err := EncodeEvent(evt)
				if err != nil {
					log.Warn().Err(err).Msg("error encoding event")
					continue
				}

				success := true
				var bytesWritten int
				for _, destAddr := range destAddrs {
					bytesWritten, err = conn.WriteToUDP(encoded, destAddr)
					if err != nil {
						log.Error().Err(err).Msg("error writing")
						success = false
					}
				}

				go s.metrics.WritePoint(influxdb2.NewPoint("tonelink.event.sent",
					map[string]string{
						"direction": evt.Direction.String(),
					},
					map[string]interface{}{
						"bytes_written":  bytesWritten,
						"encoded_length": len(encoded),
						"sent":           util.BoolField(success),
						"dropped":        util.BoolField(!success),
					}, time.Now()))
			}
		}
	})

	return eg.Wait()
}
