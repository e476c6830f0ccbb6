package speech

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultCommand is a French voice of espeak-ng reading from stdin.
var DefaultCommand = []string{"espeak-ng", "-v", "fr", "--stdin"}

// CommandPlayer pipes the text into an external text-to-speech program. The process is
// killed when the playback context is canceled.
type CommandPlayer struct {
	Command []string
}

var _ Player = (*CommandPlayer)(nil)

// NewCommandPlayer parses a command line such as "say -v Thomas". An empty line selects
// DefaultCommand.
func NewCommandPlayer(commandLine string) *CommandPlayer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		fields = DefaultCommand
	}
	return &CommandPlayer{Command: fields}
}

func (c *CommandPlayer) Play(ctx context.Context, text string) error {
	if len(c.Command) == 0 {
		return errors.New("no speech command configured")
	}
	path, err := exec.LookPath(c.Command[0])
	if err != nil {
		return errors.Wrapf(err, "speech command %s not found", c.Command[0])
	}

	cmd := exec.CommandContext(ctx, path, c.Command[1:]...)
	cmd.Stdin = strings.NewReader(text)
	log.Debug().Strs("command", c.Command).Int("chars", len(text)).Msg("Starting speech playback")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "speech command failed")
	}
	return nil
}
