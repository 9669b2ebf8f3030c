package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Console reads operator input. Restart commands go to the Handler, every
// other line is forwarded to the server console.
type Console struct {
	Handler *Handler
	Forward func(line string) error
	Out     io.Writer
	Logger  *slog.Logger
}

// Run consumes r until EOF or ctx is done.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			c.handle(ctx, log, line)
		}
	}
}

func (c *Console) handle(ctx context.Context, log *slog.Logger, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	res, err := c.Handler.ExecuteLine(ctx, line, "console")
	switch {
	case errors.Is(err, ErrNotCommand):
		if c.Forward == nil {
			return
		}
		if err := c.Forward(line); err != nil {
			log.Warn("console line not forwarded", slog.Any("error", err))
		}
	case err != nil:
		c.println(err.Error())
	default:
		for _, l := range res.Lines() {
			c.println(l)
		}
	}
}

func (c *Console) println(s string) {
	if c.Out == nil {
		return
	}
	_, _ = fmt.Fprintln(c.Out, s)
}
