package motion

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// closeGrace is how long Close waits for the process to exit on its own.
const closeGrace = 2 * time.Second

// ProcessConfig describes the external classifier program.
type ProcessConfig struct {
	Command       string
	Args          []string
	Env           []string
	MinConfidence float64
}

// ProcessClassifier implements Classifier with an external program. Samples
// are written to its stdin as JSON lines and classifications are read back
// from its stdout, one JSON object per line.
type ProcessClassifier struct {
	*dispatcher

	logger *zap.Logger
	cmd    *exec.Cmd

	mu     sync.Mutex
	stdin  io.WriteCloser
	enc    *json.Encoder
	closed bool

	done    chan struct{}
	waitErr error
}

// NewProcessClassifier starts the classifier program.
func NewProcessClassifier(cfg ProcessConfig, logger *zap.Logger) (*ProcessClassifier, error) {
	if cfg.Command == "" {
		return nil, errors.New("classifier command is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start classifier %s: %w", cfg.Command, err)
	}

	p := &ProcessClassifier{
		dispatcher: newDispatcher(cfg.MinConfidence),
		logger:     logger.Named("motion"),
		cmd:        cmd,
		stdin:      stdin,
		enc:        json.NewEncoder(stdin),
		done:       make(chan struct{}),
	}

	go p.readLoop(stdout)

	p.logger.Info("classifier started",
		zap.String("command", cfg.Command),
		zap.Int("pid", cmd.Process.Pid),
	)

	return p, nil
}

// Accumulate writes one sample to the classifier.
func (p *ProcessClassifier) Accumulate(s Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.enc.Encode(s); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// OnMovement subscribes h to classifications whose top label is label.
func (p *ProcessClassifier) OnMovement(label string, h Handler) {
	p.subscribe(label, h)
}

// Close closes the classifier's stdin and waits for it to exit, killing it
// if it does not.
func (p *ProcessClassifier) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	p.stdin.Close()
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(closeGrace):
		p.logger.Warn("classifier did not exit, killing it")
		_ = p.cmd.Process.Kill()
		<-p.done
	}

	return p.waitErr
}

// Done is closed once the classifier process has exited.
func (p *ProcessClassifier) Done() <-chan struct{} {
	return p.done
}

func (p *ProcessClassifier) readLoop(stdout io.Reader) {
	defer close(p.done)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var c Classification
		if err := json.Unmarshal(line, &c); err != nil {
			p.logger.Warn("unparsable classification", zap.ByteString("line", line), zap.Error(err))
			continue
		}
		p.dispatch(c)
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("classifier output ended", zap.Error(err))
	}

	p.waitErr = p.cmd.Wait()

	p.mu.Lock()
	closed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !closed {
		p.logger.Error("classifier exited unexpectedly", zap.Error(p.waitErr))
	}
}
