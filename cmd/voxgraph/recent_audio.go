package main

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/audiocore/capture"
)

// recentAudioBuffer retains a rolling window of the "stream" subcommand's
// synthesized output so the debug server can serve it back out on
// request, adapting the teacher's capture.CircularBuffer -- a live
// microphone-capture ring in its original role -- into an output-side
// scrollback (spec.md §6 debug surface).
type recentAudioBuffer struct {
	cb         *capture.CircularBuffer
	sampleRate int
}

func newRecentAudioBuffer(window time.Duration, sampleRate int) (*recentAudioBuffer, error) {
	cb, err := capture.NewCircularBuffer(window, audiocore.AudioFormat{
		SampleRate: sampleRate,
		Channels:   1,
		BitDepth:   16,
		Encoding:   "pcm_s16le",
	}, nil)
	if err != nil {
		return nil, err
	}
	return &recentAudioBuffer{cb: cb, sampleRate: sampleRate}, nil
}

// write appends a chunk of float32 samples in [-1, 1] to the ring,
// converting to the buffer's 16-bit PCM encoding.
func (r *recentAudioBuffer) write(samples []float32) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}
	return r.cb.Write(buf)
}

// registerRoute adds GET /recent-audio?seconds=N, serving the last N
// seconds (default: the ring's full window) of retained output as WAV.
func (r *recentAudioBuffer) registerRoute(e *echo.Echo) {
	e.GET("/recent-audio", func(c echo.Context) error {
		window := r.cb.GetDuration()
		if s := c.QueryParam("seconds"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				if requested := time.Duration(n) * time.Second; requested < window {
					window = requested
				}
			}
		}

		end := time.Now()
		data, err := r.cb.ReadSegment(end.Add(-window), end)
		if err != nil {
			return c.String(http.StatusNotFound, err.Error()+"\n")
		}

		c.Response().Header().Set(echo.HeaderContentType, "audio/wav")
		c.Response().WriteHeader(http.StatusOK)

		enc := wav.NewEncoder(c.Response(), r.sampleRate, 16, 1, 1)
		ints := make([]int, len(data)/2)
		for i := range ints {
			ints[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
		ib := &audio.IntBuffer{
			Data:   ints,
			Format: &audio.Format{SampleRate: r.sampleRate, NumChannels: 1},
		}
		if err := enc.Write(ib); err != nil {
			return err
		}
		return enc.Close()
	})
}
