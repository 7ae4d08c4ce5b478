package session

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/game/state"
)

const replayVersion = 1

// Frame is one recorded state of a match. State holds the gob-encoded
// snapshot so frames survive pending decisions and continuations.
type Frame struct {
	Sequence int64
	Label    string
	Checksum string
	State    []byte
}

// Decode rebuilds the recorded state and verifies its checksum.
func (f Frame) Decode() (*state.State, error) {
	st, err := state.Decode(f.State)
	if err != nil {
		return nil, err
	}
	if f.Checksum != "" && !state.VerifyChecksum(st, f.Checksum) {
		return nil, fmt.Errorf("frame %d: checksum mismatch", f.Sequence)
	}
	return st, nil
}

// Replay is the ordered list of frames recorded for one match, with a
// playback cursor.
type Replay struct {
	MatchID string

	mu     sync.RWMutex
	frames []Frame
	cursor int
}

// NewReplay creates an empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{MatchID: matchID}
}

// Record appends a frame for st.
func (r *Replay) Record(sequence int64, label string, st *state.State) error {
	data, err := state.Encode(st)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, Frame{
		Sequence: sequence,
		Label:    label,
		Checksum: state.Checksum(st),
		State:    data,
	})
	return nil
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = 0
}

// Next returns the frame under the cursor and advances it.
func (r *Replay) Next() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor >= len(r.frames) {
		return Frame{}, false
	}
	f := r.frames[r.cursor]
	r.cursor++
	return f, true
}

// Previous moves the cursor back and returns that frame.
func (r *Replay) Previous() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor == 0 {
		return Frame{}, false
	}
	r.cursor--
	return r.frames[r.cursor], true
}

// Skip moves the cursor by count frames, clamped to the recorded range.
func (r *Replay) Skip(count int) (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return Frame{}, false
	}
	r.cursor = max(0, min(r.cursor+count, len(r.frames)-1))
	return r.frames[r.cursor], true
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// At returns frame i.
func (r *Replay) At(i int) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.frames) {
		return Frame{}, false
	}
	return r.frames[i], true
}

// Frames returns a copy of all frames.
func (r *Replay) Frames() []Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Frame(nil), r.frames...)
}

type replayHeader struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	FrameCount int
}

// ReplayPath returns the file a replay of matchID is saved to.
func ReplayPath(directory, matchID string) string {
	return filepath.Join(directory, matchID+".replay")
}

// SaveToFile writes the replay as a gzip-compressed gob stream into
// directory.
func (r *Replay) SaveToFile(directory string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := ReplayPath(directory, r.MatchID)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	header := replayHeader{
		MatchID:    r.MatchID,
		Timestamp:  time.Now().UTC(),
		Version:    replayVersion,
		FrameCount: len(r.frames),
	}
	if err := enc.Encode(&header); err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}
	for i := range r.frames {
		if err := enc.Encode(&r.frames[i]); err != nil {
			return "", fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return path, nil
}

// LoadReplayFile reads a replay written by SaveToFile.
func LoadReplayFile(path string) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", header.Version)
	}

	replay := NewReplay(header.MatchID)
	for i := 0; i < header.FrameCount; i++ {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.frames = append(replay.frames, f)
	}
	return replay, nil
}

// Recorder keeps replays for the matches that have recording enabled.
type Recorder struct {
	logger  *zap.Logger
	saveDir string

	mu      sync.RWMutex
	replays map[string]*Replay
	enabled map[string]bool
}

// NewRecorder creates a recorder saving into saveDir.
func NewRecorder(logger *zap.Logger, saveDir string) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:  logger,
		saveDir: saveDir,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
	}
}

// StartRecording begins (or restarts) recording matchID.
func (rr *Recorder) StartRecording(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[matchID] = NewReplay(matchID)
	rr.enabled[matchID] = true
	rr.logger.Info("started replay recording", zap.String("match_id", matchID))
}

// StopRecording stops recording matchID and keeps what was recorded.
func (rr *Recorder) StopRecording(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[matchID] = false
}

// IsRecording reports whether matchID is being recorded.
func (rr *Recorder) IsRecording(matchID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.enabled[matchID]
}

// Record appends a frame when recording is enabled for matchID.
func (rr *Recorder) Record(matchID string, sequence int64, label string, st *state.State) {
	rr.mu.RLock()
	enabled := rr.enabled[matchID]
	replay := rr.replays[matchID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}
	if err := replay.Record(sequence, label, st); err != nil {
		rr.logger.Warn("failed to record replay frame",
			zap.String("match_id", matchID),
			zap.Int64("sequence", sequence),
			zap.Error(err),
		)
		return
	}
	rr.logger.Debug("recorded replay frame",
		zap.String("match_id", matchID),
		zap.String("label", label),
		zap.Int("frame_count", replay.Size()),
	)
}

// Replay returns the in-memory replay of matchID.
func (rr *Recorder) Replay(matchID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	replay, ok := rr.replays[matchID]
	return replay, ok
}

// Save writes the replay of matchID to disk and drops it from memory.
func (rr *Recorder) Save(matchID string) (string, error) {
	rr.mu.Lock()
	replay, ok := rr.replays[matchID]
	if !ok {
		rr.mu.Unlock()
		return "", fmt.Errorf("no replay found for match %s", matchID)
	}
	delete(rr.replays, matchID)
	delete(rr.enabled, matchID)
	rr.mu.Unlock()

	path, err := replay.SaveToFile(rr.saveDir)
	if err != nil {
		return "", fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("match_id", matchID),
		zap.Int("frame_count", replay.Size()),
		zap.String("path", path),
	)
	return path, nil
}

// Load reads the saved replay of matchID from the recorder's directory.
func (rr *Recorder) Load(matchID string) (*Replay, error) {
	return LoadReplayFile(ReplayPath(rr.saveDir, matchID))
}

// Clear drops the replay of matchID without saving it.
func (rr *Recorder) Clear(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, matchID)
	delete(rr.enabled, matchID)
}
