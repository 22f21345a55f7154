package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/signal"
)

// keyPollMs is how long the display waits for a key each frame.
const keyPollMs = 1

// Run processes frames until the quit key, the end of the camera stream or
// ctx cancellation. It returns nil on every normal stop.
//
// Per frame:
//  1. Detect hands (or reuse the previous ones when the motion gate says nothing moved)
//  2. Extract controls and send them
//  3. Read an audio block and turn it into spectrum bars
//  4. Draw, show and publish the frame
func (a *App) Run(ctx context.Context) error {
	logger.Infof(ctx, "controller loop started, press 'q' in the window to stop")
	for {
		if err := ctx.Err(); err != nil {
			logger.Infof(ctx, "controller loop cancelled")
			return nil
		}

		frame, err := a.deps.Camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrFrameUnavailable) {
				logger.Infof(ctx, "camera stream ended")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		quit := a.step(ctx, frame)
		frame.Close()
		if quit {
			logger.Infof(ctx, "quit key pressed")
			return nil
		}
	}
}

// step runs one iteration on frame and reports whether the quit key was pressed.
func (a *App) step(ctx context.Context, frame *gocv.Mat) bool {
	start := time.Now()
	m := a.deps.Metrics

	hands := a.detect(ctx, frame)
	observations, _ := a.tracker.Process(handPoints(hands, frame.Cols(), frame.Rows()))
	controls := signal.ControlsFrom(observations, a.tracker.State())

	if err := a.deps.Sink.Send(controls); err != nil {
		logger.Warnf(ctx, "send controls: %v", err)
		if m != nil {
			m.SinkErrors.Inc()
		}
	}

	bars := a.analyzer.Bars(a.readAudio(ctx), a.barCount)

	a.renderer.Draw(frame, observations, controls, bars)
	a.deps.Display.Show(frame)

	if a.deps.Feed != nil {
		if err := a.deps.Feed.Publish(frame, controls); err != nil {
			logger.Debugf(ctx, "publish frame: %v", err)
		}
	}
	if m != nil {
		m.ObserveFrame(controls, time.Since(start))
	}

	key := a.deps.Display.PollKey(keyPollMs)
	return key == 'q' || key == 'Q'
}

// detect returns this frame's hands. A detector error counts as no hands.
func (a *App) detect(ctx context.Context, frame *gocv.Mat) []detector.HandLandmarks {
	m := a.deps.Metrics

	if !a.gate.ShouldDetect(frame) {
		if m != nil {
			m.DetectSkipped.Inc()
		}
		return a.lastHands
	}

	hands, err := a.deps.Detector.Detect(frame)
	if err != nil {
		logger.Debugf(ctx, "detect hands: %v", err)
		if m != nil {
			m.DetectErrors.Inc()
		}
		hands = nil
	}
	a.lastHands = hands
	return hands
}

// readAudio returns the next block, or silence when the read fails.
func (a *App) readAudio(ctx context.Context) []int16 {
	block, err := a.deps.Tap.Read()
	if err != nil {
		logger.Debugf(ctx, "read audio: %v", err)
		if m := a.deps.Metrics; m != nil {
			m.AudioErrors.Inc()
		}
		return make([]int16, a.deps.Tap.BlockSize())
	}
	return block
}

// handPoints projects the landmarks the controller uses into pixel space.
func handPoints(hands []detector.HandLandmarks, width, height int) []signal.HandPoints {
	if len(hands) == 0 {
		return nil
	}
	points := make([]signal.HandPoints, len(hands))
	for i := range hands {
		thumb, index, wrist := hands[i].Keypoints(width, height)
		points[i] = signal.HandPoints{
			ThumbTip:   thumb,
			IndexTip:   index,
			Wrist:      wrist,
			Handedness: signal.ParseHandedness(hands[i].Handedness),
		}
	}
	return points
}
