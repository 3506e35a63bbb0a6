package session

import (
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/shot"
)

// accumulator fuses one burst of device frames (E8/D4/ED/EF, ended by
// PROCESSED) into a single ShotData, or discards the burst, per the
// component design's tie-break and use_partial rules.
type accumulator struct {
	source     string
	nextNumber int

	early *shot.Ball // E8
	final *shot.Ball // D4, wins over early; last D4 wins
	club  *shot.Club
	spin  *shot.Spin
}

func newAccumulator(source string) *accumulator {
	return &accumulator{source: source, nextNumber: 1}
}

// Feed applies one frame to the in-progress burst. On a PROCESSED
// frame it resolves the burst per policy/mode and returns the
// resulting ShotData (incrementing shot_number) or, if the burst must
// be discarded, ok is false.
func (a *accumulator) Feed(frame Frame, policy config.UsePartialPolicy, mode gamestate.Mode) (shot.Data, bool) {
	switch frame.Kind {
	case FrameE8:
		a.early = frame.Ball
		return shot.Data{}, false
	case FrameD4:
		a.final = frame.Ball
		return shot.Data{}, false
	case FrameED:
		a.club = frame.Club
		return shot.Data{}, false
	case FrameEF:
		a.spin = frame.Spin
		return shot.Data{}, false
	case FrameProcessed:
		return a.resolve(policy, mode)
	default:
		return shot.Data{}, false
	}
}

func (a *accumulator) resolve(policy config.UsePartialPolicy, mode gamestate.Mode) (shot.Data, bool) {
	defer a.reset()

	if a.final != nil {
		data := shot.Data{
			Source:     a.source,
			ShotNumber: a.nextNumber,
			Ball:       *a.final,
			Club:       a.club,
			Spin:       a.spin,
			Estimated:  false,
		}
		a.nextNumber++
		return data, true
	}

	if a.early != nil && allowsPartial(policy, mode) {
		data := shot.Data{
			Source:     a.source,
			ShotNumber: a.nextNumber,
			Ball:       *a.early,
			Club:       a.club,
			Spin:       a.spin,
			Estimated:  true,
		}
		a.nextNumber++
		return data, true
	}

	return shot.Data{}, false
}

func (a *accumulator) reset() {
	a.early, a.final, a.club, a.spin = nil, nil, nil, nil
}

func allowsPartial(policy config.UsePartialPolicy, mode gamestate.Mode) bool {
	switch policy {
	case config.UsePartialAlways:
		return true
	case config.UsePartialChippingOnly:
		return mode == gamestate.ModeChipping
	case config.UsePartialNever, "":
		return false
	default:
		return false
	}
}
