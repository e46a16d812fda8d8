package alaris

import (
	"context"
	"fmt"
	"strconv"
)

// commandExecutor is the slice of Session a Syringe needs, letting tests
// substitute a scripted fake instead of a real serial link.
type commandExecutor interface {
	Exec(ctx context.Context, body []byte) ([]byte, error)
}

var _ commandExecutor = (*Session)(nil)

// Syringe is the Alaris-side counterpart to device.Syringe: the same
// rate/volume operations, expressed over the caret-delimited frame format
// instead of the Fresenius one.
type Syringe struct {
	session commandExecutor
	channel string
}

// NewSyringe builds a Syringe addressing the given pump channel (e.g. "A").
func NewSyringe(session commandExecutor, channel string) *Syringe {
	return &Syringe{session: session, channel: channel}
}

func (s *Syringe) exec(ctx context.Context, msgType string, fields ...string) ([]byte, error) {
	parts := [][]byte{[]byte(msgType), []byte(s.channel)}
	for _, f := range fields {
		parts = append(parts, []byte(f))
	}
	return s.session.Exec(ctx, Join(parts))
}

// ReadRate requests the current infusion rate in mL/h.
func (s *Syringe) ReadRate(ctx context.Context) (float64, error) {
	reply, err := s.exec(ctx, MsgInfRate, "?")
	if err != nil {
		return 0, err
	}
	return parseRateReply(reply)
}

// SetRate commands a new infusion rate in mL/h.
func (s *Syringe) SetRate(ctx context.Context, mlPerHour float64) error {
	_, err := s.exec(ctx, MsgInfRate, strconv.FormatFloat(mlPerHour, 'f', 1, 64))
	return err
}

// ReadVolume requests the infused volume in mL.
func (s *Syringe) ReadVolume(ctx context.Context) (float64, error) {
	reply, err := s.exec(ctx, MsgInfVol, "?")
	if err != nil {
		return 0, err
	}
	return parseVolumeReply(reply)
}

func parseRateReply(body []byte) (float64, error) {
	fields := Fields(body)
	if len(fields) < 3 {
		return 0, fmt.Errorf("alaris: malformed rate reply %q", body)
	}
	return strconv.ParseFloat(string(fields[2]), 64)
}

func parseVolumeReply(body []byte) (float64, error) {
	fields := Fields(body)
	if len(fields) < 3 {
		return 0, fmt.Errorf("alaris: malformed volume reply %q", body)
	}
	return strconv.ParseFloat(string(fields[2]), 64)
}
