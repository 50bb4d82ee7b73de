package spool

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskbuddy/printcore/adapter"
	"github.com/deskbuddy/printcore/pace"
	"github.com/deskbuddy/printcore/raster"
)

// State is the transport session's position in its lifecycle:
// Idle -> Opening -> Sending -> (Cancelling) -> Feeding -> Idle.
type State int32

const (
	Idle State = iota
	Opening
	Sending
	Cancelling
	Feeding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Sending:
		return "sending"
	case Cancelling:
		return "cancelling"
	case Feeding:
		return "feeding"
	default:
		return "unknown"
	}
}

// Options are the tunables of a transport session. The pacing constants are
// empirical; expose them through configuration rather than assuming these
// suit a different printer model.
type Options struct {
	// BandHeight is the maximum rows per raster command.
	BandHeight int

	// Pacer computes the inter-band settle delay.
	Pacer pace.Pacer

	// FeedLines is the number of paper-feed commands sent during
	// finalization, on every path that got the device open.
	FeedLines int

	// RetryPause is the pause before the single retry of a failed send.
	RetryPause time.Duration
}

// session owns the device connection for the duration of one job.
type session struct {
	open     OpenFunc
	opts     Options
	log      zerolog.Logger
	setState func(State)
}

// run executes one print job against the target. The device is released
// unconditionally on every exit path once it has been opened.
func (s *session) run(job Job, target adapter.Target) Result {
	s.setState(Opening)
	defer s.setState(Idle)

	// Slice before touching the device: a job that cannot be banded must not
	// open a connection it would then have to feed and release.
	bands, err := raster.Slice(job.Raster, s.opts.BandHeight)
	if err != nil {
		return Result{Outcome: SendFailed, Detail: err.Error()}
	}

	dev, err := s.open(target)
	if err != nil {
		s.log.Error().Err(err).Stringer("target", target).Msg("failed to open device")
		return Result{Outcome: DeviceUnavailable, Detail: err.Error()}
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("failed to close device")
		}
	}()

	res := Result{
		Outcome: Success,
		Detail:  fmt.Sprintf("printed %d bands", len(bands)),
	}

	s.setState(Sending)
	for i, band := range bands {
		// Cancellation is polled only between bands; latency is bounded by
		// one band's send-plus-pace time.
		if job.Cancel != nil && job.Cancel.IsSet() {
			s.setState(Cancelling)
			s.log.Info().Int("band", i).Msg("job cancelled")
			res = Result{
				Outcome: Cancelled,
				Detail:  fmt.Sprintf("cancelled after %d of %d bands", i, len(bands)),
			}
			break
		}

		if err := retryOnce(s.opts.RetryPause, func() error {
			return dev.WriteBand(band)
		}); err != nil {
			s.log.Error().Err(err).Int("band", i).Msg("send failed after retry")
			res = Result{
				Outcome: SendFailed,
				Detail:  fmt.Sprintf("band %d of %d: %v", i, len(bands), err),
			}
			break
		}

		time.Sleep(s.opts.Pacer.Delay(band.Coverage()))
	}

	// Feeding is best-effort: a failed feed line must not keep the session
	// from releasing the device.
	s.setState(Feeding)
	for i := 0; i < s.opts.FeedLines; i++ {
		if err := dev.Feed(); err != nil {
			s.log.Warn().Err(err).Int("line", i).Msg("feed failed")
		}
	}

	return res
}

// retryOnce runs fn, and on failure retries exactly once after the pause.
func retryOnce(pause time.Duration, fn func() error) error {
	if err := fn(); err == nil {
		return nil
	}
	time.Sleep(pause)
	return fn()
}
