package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

// DockerSandbox runs the compiler inside a container built from Image. The
// scratch directory is bind-mounted at the same path, so file arguments
// resolve identically on both sides.
type DockerSandbox struct {
	cli    *client.Client
	image  string
	logger *zerolog.Logger
}

func NewDockerSandbox(image string, logger *zerolog.Logger) (*DockerSandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerSandbox{cli: cli, image: image, logger: logger}, nil
}

func (s *DockerSandbox) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	timeout := cfg.timeout()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Security: Limit PID count to prevent fork bombs
	pidsLimit := int64(64)

	command := cfg.Command
	containerConf := &container.Config{
		Image:           s.image,
		Cmd:             cfg.Args,
		Tty:             false,
		NetworkDisabled: true,
		WorkingDir:      cfg.Dir,
		User:            hostUser(),
	}
	if command != "" {
		containerConf.Entrypoint = []string{command}
	} else {
		command = s.image
	}

	startTime := time.Now()
	resp, err := s.cli.ContainerCreate(runCtx, containerConf, &container.HostConfig{
		Binds:       []string{cfg.Dir + ":" + cfg.Dir},
		NetworkMode: "none",
		Resources: container.Resources{
			PidsLimit: &pidsLimit,
		},
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
	}, nil, nil, "")
	if err != nil {
		if e := s.interrupted(ctx, runCtx, command, timeout); e != nil {
			return nil, e
		}
		s.logger.Error().Err(err).Str("image", s.image).Msg("failed to create container")
		return nil, &SpawnError{Command: command, Err: fmt.Errorf("create container: %w", err)}
	}
	// Force removal also kills a container that outlived its timeout.
	defer func() {
		if err := s.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			s.logger.Warn().Err(err).Str("container", resp.ID).Msg("failed to remove container")
		}
	}()

	if err := s.cli.ContainerStart(runCtx, resp.ID, container.StartOptions{}); err != nil {
		if e := s.interrupted(ctx, runCtx, command, timeout); e != nil {
			return nil, e
		}
		s.logger.Error().Err(err).Str("container", resp.ID).Msg("failed to start container")
		return nil, &SpawnError{Command: command, Err: fmt.Errorf("start container: %w", err)}
	}

	statusCh, errCh := s.cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)

	var exitCode int64
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container wait: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	case err := <-errCh:
		if e := s.interrupted(ctx, runCtx, command, timeout); e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("failed to wait for container: %w", err)
	}
	duration := time.Since(startTime)

	logs, err := s.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	stdout := newCappedBuffer(cfg.maxOutput())
	stderr := newCappedBuffer(cfg.maxOutput())
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return nil, fmt.Errorf("failed to capture container output: %w", err)
	}

	s.logger.Debug().Str("container", resp.ID).Int64("exit_code", exitCode).Msg("container finished")

	return &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  int(exitCode),
		Success:   exitCode == 0,
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  duration,
	}, nil
}

// interrupted reports why runCtx ended, or nil if it is still live.
func (s *DockerSandbox) interrupted(parent, runCtx context.Context, command string, timeout time.Duration) error {
	if runCtx.Err() == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	s.logger.Warn().Str("command", command).Dur("timeout", timeout).Msg("container timed out")
	return &TimeoutError{Command: command, Timeout: timeout}
}

// hostUser maps the container user to the service's own uid and gid so the
// compiler can read the 0600 scratch files and write beside them with all
// capabilities dropped.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}

func (s *DockerSandbox) EnsureImage(ctx context.Context) error {
	_, _, err := s.cli.ImageInspectWithRaw(ctx, s.image)
	if err == nil {
		return nil // Image already exists
	}

	s.logger.Info().Str("image", s.image).Msg("pulling docker image")
	reader, err := s.cli.ImagePull(ctx, s.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", s.image, err)
	}
	defer reader.Close()

	// Important: must consume the reader to finish the pull
	_, _ = io.Copy(io.Discard, reader)

	s.logger.Info().Str("image", s.image).Msg("successfully pulled docker image")
	return nil
}

func (s *DockerSandbox) Close() error {
	return s.cli.Close()
}
