// framecapctl controls a running framecap server over gRPC.
//
// Usage:
//
//	framecapctl [--addr host:port] [--timeout 5s] [--json] <start|stop|status|recent|all>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/framecap/internal/capture"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/frames"
	"github.com/GriffinCanCode/framecap/internal/query"
	"github.com/GriffinCanCode/framecap/internal/rpc"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		// Conflicts are answers, not faults.
		if ae, ok := apperrors.As(err); ok && ae.IsConflict() {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var addr string
	var timeout time.Duration
	var asJSON bool
	var capacity int

	fs := pflag.NewFlagSet("framecapctl", pflag.ContinueOnError)
	fs.StringVarP(&addr, "addr", "a", "localhost:50051", "framecap gRPC address")
	fs.DurationVarP(&timeout, "timeout", "t", 5*time.Second, "per-call timeout")
	fs.BoolVar(&asJSON, "json", false, "print raw JSON")
	fs.IntVar(&capacity, "capacity", frames.DefaultCapacity, "server frame capacity, sizes the response limit for recent and all")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: framecapctl [flags] <start|stop|status|recent|all>\n\n%s", fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return apperrors.New(apperrors.CodeInvalidArgument, "expected exactly one command")
	}

	client, err := rpc.Dial(addr, rpc.WithCapacity(capacity))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return runCommand(ctx, client, fs.Arg(0), out, asJSON)
}

// controlClient is the subset of rpc.Client the commands use.
type controlClient interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
	Status(ctx context.Context) (capture.Status, error)
	RecentFrames(ctx context.Context) ([]query.FrameRecord, error)
	AllFrames(ctx context.Context) ([]query.FrameRecord, error)
}

func runCommand(ctx context.Context, c controlClient, cmd string, out io.Writer, asJSON bool) error {
	switch cmd {
	case "start":
		return printMessage(out, asJSON)(c.Start(ctx))
	case "stop":
		return printMessage(out, asJSON)(c.Stop(ctx))
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(out).Encode(st)
		}
		state := "idle"
		if st.IsCapturing {
			state = "capturing"
		}
		_, err = fmt.Fprintf(out, "%s, %d frames in memory\n", state, st.FramesCount)
		return err
	case "recent":
		list, err := c.RecentFrames(ctx)
		if err != nil {
			return err
		}
		return printFrames(out, list, asJSON)
	case "all":
		list, err := c.AllFrames(ctx)
		if err != nil {
			return err
		}
		return printFrames(out, list, asJSON)
	default:
		return apperrors.Newf(apperrors.CodeInvalidArgument, "unknown command %q", cmd)
	}
}

func printMessage(out io.Writer, asJSON bool) func(string, error) error {
	return func(msg string, err error) error {
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(out).Encode(rpc.Result{Status: "success", Message: msg})
		}
		_, err = fmt.Fprintln(out, msg)
		return err
	}
}

// printFrames lists frames without their image payloads unless JSON is requested.
func printFrames(out io.Writer, list []query.FrameRecord, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(rpc.FramesResult{Frames: list})
	}
	for _, f := range list {
		if _, err := fmt.Fprintf(out, "%s  %s  %d bytes\n", f.Timestamp, f.Path, len(f.Image)*3/4); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%d frames\n", len(list))
	return err
}
