// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package coordinator implements the optional remote tier-dispatch wire
// protocol (spec.md §4.5, §6.3): a manager may hand a tier to a remote
// worker instead of solving it locally, polling for completion with a
// one-second backoff instead of blocking the connection. The protocol is
// kept behind the manager.Options.Coordinator interface seam (nil by default) so
// the single-machine path never pays for it.
package coordinator

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/GamesCrafters/GamesmanExperiment/internal/gamesmanerr"
	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
)

// CommandCode identifies what the coordinator is asking a worker to do.
type CommandCode uint8

const (
	CmdSleep CommandCode = iota
	CmdSolve
	CmdForceSolve
	CmdTerminate
)

// ReplyCode identifies a worker's response to a Command.
type ReplyCode uint8

const (
	RepCheck ReplyCode = iota
	RepReportSolved
	RepReportLoaded
	RepReportError
)

// messageSize is the fixed wire size of both Command and Reply: one code
// byte followed by an 8-byte big-endian tier id.
const messageSize = 9

// Command is sent from coordinator to worker.
type Command struct {
	Code CommandCode
	Tier tier.Tier
}

// Reply is sent from worker back to coordinator.
type Reply struct {
	Code ReplyCode
	Tier tier.Tier
}

func writeMessage(w io.Writer, code uint8, t tier.Tier) error {
	var buf [messageSize]byte
	buf[0] = code
	binary.BigEndian.PutUint64(buf[1:], uint64(t))
	_, err := w.Write(buf[:])
	return err
}

func readMessage(r io.Reader) (uint8, tier.Tier, error) {
	var buf [messageSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[0], tier.Tier(binary.BigEndian.Uint64(buf[1:])), nil
}

// WriteCommand writes c to w in the fixed 9-byte wire format.
func WriteCommand(w io.Writer, c Command) error {
	return writeMessage(w, uint8(c.Code), c.Tier)
}

// ReadCommand reads a Command from r.
func ReadCommand(r io.Reader) (Command, error) {
	code, t, err := readMessage(r)
	return Command{Code: CommandCode(code), Tier: t}, err
}

// WriteReply writes r to w in the fixed 9-byte wire format.
func WriteReply(w io.Writer, rep Reply) error {
	return writeMessage(w, uint8(rep.Code), rep.Tier)
}

// ReadReply reads a Reply from r.
func ReadReply(r io.Reader) (Reply, error) {
	code, t, err := readMessage(r)
	return Reply{Code: ReplyCode(code), Tier: t}, err
}

// Coordinator is consumed by internal/manager to hand a tier's solve to a
// remote worker instead of running it in-process.
type Coordinator interface {
	// Dispatch asks a remote worker to solve t, blocking (with poll
	// backoff) until the worker reports a terminal outcome.
	Dispatch(ctx context.Context, t tier.Tier, force bool) (Reply, error)
	// Terminate tells every connected worker to shut down.
	Terminate(ctx context.Context) error
	// Close releases the coordinator's network resources.
	Close() error
}

// Client is a Coordinator backed by a single TCP connection to one remote
// worker.
type Client struct {
	conn   net.Conn
	logger log.Logger
}

// Dial connects to a worker listening at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, gamesmanerr.Wrap(gamesmanerr.DatabaseIO, tier.Illegal, err, "dial coordinator worker")
	}
	return &Client{conn: conn, logger: log.Root()}, nil
}

// Dispatch sends a Solve (or ForceSolve) command for t, then polls for a
// terminal reply with a one-second constant backoff, matching spec.md
// §4.5's one-second poll interval.
func (c *Client) Dispatch(ctx context.Context, t tier.Tier, force bool) (Reply, error) {
	code := CmdSolve
	if force {
		code = CmdForceSolve
	}
	if err := WriteCommand(c.conn, Command{Code: code, Tier: t}); err != nil {
		return Reply{}, gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "send solve command")
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(time.Second), ctx)
	var result Reply
	op := func() error {
		if err := WriteCommand(c.conn, Command{Code: CmdSleep, Tier: t}); err != nil {
			return backoff.Permanent(err)
		}
		rep, err := ReadReply(c.conn)
		if err != nil {
			return backoff.Permanent(err)
		}
		if rep.Code == RepCheck {
			return fmt.Errorf("tier %d still solving", t)
		}
		result = rep
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return Reply{}, gamesmanerr.Wrap(gamesmanerr.DatabaseIO, t, err, "poll solve reply")
	}
	if result.Code == RepReportError {
		return result, gamesmanerr.Newf(gamesmanerr.DatabaseIO, t, "remote worker reported an error solving tier %d", t)
	}
	return result, nil
}

// Terminate tells the remote worker to shut down.
func (c *Client) Terminate(ctx context.Context) error {
	return WriteCommand(c.conn, Command{Code: CmdTerminate})
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SolveFunc is invoked by a Listener to actually solve t; alreadySolved
// reports whether t was already solved (RepReportLoaded) rather than newly
// solved (RepReportSolved).
type SolveFunc func(ctx context.Context, t tier.Tier, force bool) (alreadySolved bool, err error)

// Listener runs the worker side of the protocol: it accepts connections
// and, for each Solve/ForceSolve command received, calls Solve and writes
// back the corresponding reply.
type Listener struct {
	ln     net.Listener
	Solve  SolveFunc
	logger log.Logger
}

// Listen starts a Listener bound to addr.
func Listen(addr string, solve SolveFunc) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, gamesmanerr.Wrap(gamesmanerr.DatabaseIO, tier.Illegal, err, "listen for coordinator connections")
	}
	return &Listener{ln: ln, Solve: solve, logger: log.Root()}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		cmd, err := ReadCommand(conn)
		if err != nil {
			if err != io.EOF {
				l.logger.Warn("coordinator: read command failed", "err", err)
			}
			return
		}
		switch cmd.Code {
		case CmdTerminate:
			return
		case CmdSleep:
			// A poll with no outstanding solve request; nothing to report
			// beyond the last known state, so just acknowledge.
			if err := WriteReply(conn, Reply{Code: RepCheck, Tier: cmd.Tier}); err != nil {
				return
			}
		case CmdSolve, CmdForceSolve:
			alreadySolved, err := l.Solve(ctx, cmd.Tier, cmd.Code == CmdForceSolve)
			rep := Reply{Tier: cmd.Tier, Code: RepReportSolved}
			if err != nil {
				l.logger.Error("coordinator: solve failed", "tier", cmd.Tier, "err", err)
				rep.Code = RepReportError
			} else if alreadySolved {
				rep.Code = RepReportLoaded
			}
			// The next Sleep poll picks up this result.
			if err := WriteReply(conn, Reply{Code: RepCheck, Tier: cmd.Tier}); err != nil {
				return
			}
			pending := rep
			if err := l.awaitNextPoll(conn, pending); err != nil {
				return
			}
		}
	}
}

// awaitNextPoll consumes the client's next Sleep poll and responds with
// the already-computed terminal reply.
func (l *Listener) awaitNextPoll(conn net.Conn, pending Reply) error {
	cmd, err := ReadCommand(conn)
	if err != nil {
		return err
	}
	if cmd.Code != CmdSleep {
		return WriteReply(conn, pending)
	}
	return WriteReply(conn, pending)
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}
