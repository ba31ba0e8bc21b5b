package tts

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// processSpeaker runs one speech subprocess at a time and turns its exit into
// listener events. The eSpeak, say and SAPI engines are built on it.
type processSpeaker struct {
	name     string
	mutex    sync.Mutex
	run      *processRun
	listener Listener
}

type processRun struct {
	id       uint64
	cmd      *exec.Cmd
	canceled bool
}

func newProcessSpeaker(name string) *processSpeaker {
	return &processSpeaker{name: name, listener: nopListener{}}
}

func (p *processSpeaker) setListener(l Listener) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if l == nil {
		l = nopListener{}
	}
	p.listener = l
}

func (p *processSpeaker) start(id uint64, cmd *exec.Cmd) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.run != nil {
		return fmt.Errorf("%s: %w", p.name, ErrBusy)
	}

	run := &processRun{id: id, cmd: cmd}
	if err := run.cmd.Start(); err != nil {
		return fmt.Errorf("%s: failed to start: %w", p.name, err)
	}
	p.run = run

	go p.wait(run)
	return nil
}

func (p *processSpeaker) wait(run *processRun) {
	p.mutex.Lock()
	listener := p.listener
	p.mutex.Unlock()

	listener.OnStart(run.id)
	err := run.cmd.Wait()

	p.mutex.Lock()
	canceled := run.canceled
	if p.run == run {
		p.run = nil
	}
	listener = p.listener
	p.mutex.Unlock()

	switch {
	case canceled:
		listener.OnError(run.id, ReasonInterrupted)
	case err != nil:
		logrus.WithError(err).WithField("engine", p.name).Warn("Speech process failed")
		listener.OnError(run.id, ReasonSynthesisFailed)
	default:
		listener.OnEnd(run.id)
	}
}

func (p *processSpeaker) cancel() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.run == nil {
		return nil
	}

	p.run.canceled = true
	if p.run.cmd.Process != nil {
		if err := p.run.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("%s: failed to stop: %w", p.name, err)
		}
	}
	p.run = nil
	return nil
}

func (p *processSpeaker) speaking() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.run != nil
}
