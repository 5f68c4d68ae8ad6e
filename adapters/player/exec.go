package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

// DefaultCommand decodes MP3 from stdin.
const DefaultCommand = "mpg123 -q -"

var _ domain.Player = (*ExecPlayer)(nil)

// ExecPlayer plays audio by piping it into a local command. A command that is not
// installed is the terminal equivalent of a browser refusing to autoplay.
type ExecPlayer struct {
	name   string
	args   []string
	events chan domain.PlaybackEvent
}

func NewExecPlayer(command string) (*ExecPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	return &ExecPlayer{
		name:   fields[0],
		args:   fields[1:],
		events: make(chan domain.PlaybackEvent, 8),
	}, nil
}

// Play starts the command and returns; the outcome arrives on Events.
func (p *ExecPlayer) Play(ctx context.Context, artifact domain.AudioArtifact, mode domain.PlaybackMode) error {
	path, err := exec.LookPath(p.name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s not installed", domain.ErrPlaybackBlocked, p.name)
		}
		return err
	}

	cmd := exec.CommandContext(ctx, path, p.args...)
	cmd.Stdin = bytes.NewReader(artifact.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", p.name, err)
	}
	p.emit(ctx, domain.PlaybackEvent{ArtifactID: artifact.ID, Kind: domain.PlaybackStarted, Mode: mode})

	go func() {
		ev := domain.PlaybackEvent{ArtifactID: artifact.ID, Kind: domain.PlaybackEnded, Mode: mode}
		if err := cmd.Wait(); err != nil {
			log.WithCtx(ctx).Warn("Player command failed",
				zap.String("artifact_id", artifact.ID),
				zap.String("stderr", strings.TrimSpace(stderr.String())),
				zap.Error(err))
			ev.Kind = domain.PlaybackFailed
			ev.Detail = err.Error()
		}
		p.emit(ctx, ev)
	}()
	return nil
}

func (p *ExecPlayer) Events() <-chan domain.PlaybackEvent {
	return p.events
}

func (p *ExecPlayer) emit(ctx context.Context, ev domain.PlaybackEvent) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
