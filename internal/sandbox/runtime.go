package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxMessageSize bounds the response a child may send.
const maxMessageSize = 4 << 20

// ErrNoResponse is returned when the child exits without sending a message.
var ErrNoResponse = errors.New("sandbox: process exited without a response")

// Runtime executes an extraction script and returns the JSON message it
// sent back. Implementations must stop the script when ctx is done.
type Runtime interface {
	Run(ctx context.Context, script []byte) ([]byte, error)
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, script []byte) ([]byte, error)

// Run calls f.
func (f RuntimeFunc) Run(ctx context.Context, script []byte) ([]byte, error) {
	return f(ctx, script)
}

// NodeRuntime runs scripts with Node.js, each in its own process group.
type NodeRuntime struct {
	// Binary is the node executable (default: "node").
	Binary string

	// Dir is the working directory of the child.
	Dir string

	// Env are additional environment variables.
	Env []string

	// GracePeriod is how long a cancelled child gets between SIGTERM and
	// SIGKILL (default: 2s).
	GracePeriod time.Duration
}

// Run writes script to a temporary file and executes it.
func (r *NodeRuntime) Run(ctx context.Context, script []byte) ([]byte, error) {
	file, err := os.CreateTemp("", "pagefiles-*.cjs")
	if err != nil {
		return nil, err
	}
	defer os.Remove(file.Name())

	if _, err := file.Write(script); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}

	channel, err := newResultChannel()
	if err != nil {
		return nil, err
	}
	defer channel.close()

	binary := r.Binary
	if binary == "" {
		binary = "node"
	}

	cmd := exec.CommandContext(ctx, binary, file.Name())
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = io.Discard

	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, n: 64 << 10}

	group := newProcessGroup(cmd)
	cmd.Cancel = group.terminate
	cmd.WaitDelay = r.GracePeriod
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	channel.attach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	group.started()
	channel.started()

	waitErr := cmd.Wait()
	// Reap anything the script left behind before reading the channel.
	group.kill()

	out, readErr := channel.read()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if readErr != nil {
		return nil, readErr
	}
	if len(bytes.TrimSpace(out)) == 0 {
		if waitErr != nil {
			return nil, fmt.Errorf("%s: %w: %s", binary, waitErr, summarize(stderr.String(), 5))
		}
		return nil, ErrNoResponse
	}
	return out, nil
}

// resultChannel carries the child's single response.
type resultChannel interface {
	attach(cmd *exec.Cmd)
	started()
	read() ([]byte, error)
	close()
}

// pipeChannel hands the child the write end of a pipe as fd 3.
type pipeChannel struct {
	r, w *os.File
}

func newPipeChannel() (*pipeChannel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &pipeChannel{r: r, w: w}, nil
}

func (c *pipeChannel) attach(cmd *exec.Cmd) {
	cmd.ExtraFiles = []*os.File{c.w}
}

func (c *pipeChannel) started() {
	c.w.Close()
	c.w = nil
}

func (c *pipeChannel) read() ([]byte, error) {
	if c.w != nil {
		c.w.Close()
		c.w = nil
	}
	// A descendant outside the process group may still hold the write end.
	_ = c.r.SetReadDeadline(time.Now().Add(time.Second))
	out, err := io.ReadAll(io.LimitReader(c.r, maxMessageSize))
	if errors.Is(err, os.ErrDeadlineExceeded) {
		err = nil
	}
	return out, err
}

func (c *pipeChannel) close() {
	if c.w != nil {
		c.w.Close()
	}
	c.r.Close()
}

// fileChannel has the child write its response to a temporary file named by
// PAGEFILES_RESULT_FILE.
type fileChannel struct {
	path string
}

func newFileChannel() (*fileChannel, error) {
	f, err := os.CreateTemp("", "pagefiles-result-*.json")
	if err != nil {
		return nil, err
	}
	f.Close()
	return &fileChannel{path: f.Name()}, nil
}

func (c *fileChannel) attach(cmd *exec.Cmd) {
	cmd.Env = append(cmd.Env, "PAGEFILES_RESULT_FILE="+c.path)
}

func (c *fileChannel) started() {}

func (c *fileChannel) read() ([]byte, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxMessageSize))
}

func (c *fileChannel) close() {
	os.Remove(c.path)
}

type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	chunk := p
	if len(chunk) > l.n {
		chunk = chunk[:l.n]
	}
	l.n -= len(chunk)
	if _, err := l.w.Write(chunk); err != nil {
		return 0, err
	}
	return len(p), nil
}

// summarize returns the last n meaningful lines of a Node.js stderr dump,
// leaving out stack frames and the version banner.
func summarize(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "at ") || strings.HasPrefix(trimmed, "Node.js v") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
