package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/GriffinCanCode/framecap/internal/capture"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/query"
)

type fakeClient struct {
	startErr error
	status   capture.Status
	frames   []query.FrameRecord
}

func (f *fakeClient) Start(context.Context) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return capture.MsgStarted, nil
}

func (f *fakeClient) Stop(context.Context) (string, error) { return capture.MsgStopped, nil }

func (f *fakeClient) Status(context.Context) (capture.Status, error) { return f.status, nil }

func (f *fakeClient) RecentFrames(context.Context) ([]query.FrameRecord, error) {
	return f.frames, nil
}

func (f *fakeClient) AllFrames(context.Context) ([]query.FrameRecord, error) {
	return f.frames, nil
}

func TestRunCommandStartStop(t *testing.T) {
	var out bytes.Buffer
	c := &fakeClient{}

	if err := runCommand(context.Background(), c, "start", &out, false); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if err := runCommand(context.Background(), c, "stop", &out, false); err != nil {
		t.Fatalf("stop error = %v", err)
	}

	want := capture.MsgStarted + "\n" + capture.MsgStopped + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunCommandConflictPropagates(t *testing.T) {
	var out bytes.Buffer
	c := &fakeClient{startErr: apperrors.New(apperrors.CodeAlreadyRunning, capture.MsgAlreadyRunning)}

	err := runCommand(context.Background(), c, "start", &out, false)
	ae, ok := apperrors.As(err)
	if !ok || !ae.IsConflict() {
		t.Fatalf("err = %v, want conflict", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want empty", out.String())
	}
}

func TestRunCommandStatus(t *testing.T) {
	var out bytes.Buffer
	c := &fakeClient{status: capture.Status{IsCapturing: true, FramesCount: 7}}

	if err := runCommand(context.Background(), c, "status", &out, false); err != nil {
		t.Fatalf("status error = %v", err)
	}
	if got := out.String(); got != "capturing, 7 frames in memory\n" {
		t.Errorf("output = %q", got)
	}

	out.Reset()
	if err := runCommand(context.Background(), c, "status", &out, true); err != nil {
		t.Fatalf("status --json error = %v", err)
	}
	var st capture.Status
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if st != c.status {
		t.Errorf("status = %+v, want %+v", st, c.status)
	}
}

func TestRunCommandFrames(t *testing.T) {
	var out bytes.Buffer
	c := &fakeClient{frames: []query.FrameRecord{
		{Timestamp: "20240101_120001", Image: "AAAA", Path: "frames/frame_20240101_120001.png"},
		{Timestamp: "20240101_120000", Image: "AAAA", Path: "frames/frame_20240101_120000.png"},
	}}

	if err := runCommand(context.Background(), c, "recent", &out, false); err != nil {
		t.Fatalf("recent error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "20240101_120001") {
		t.Errorf("first line = %q", lines[0])
	}
	if strings.Contains(out.String(), "AAAA") {
		t.Error("text output should not include image payloads")
	}
	if lines[2] != "2 frames" {
		t.Errorf("summary = %q, want %q", lines[2], "2 frames")
	}
}

func TestRunCommandUnknown(t *testing.T) {
	err := runCommand(context.Background(), &fakeClient{}, "pause", &bytes.Buffer{}, false)
	if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Errorf("err = %v, want INVALID_ARGUMENT", err)
	}
}
