package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OCAP2/tactical/internal/dispatcher"
	"github.com/OCAP2/tactical/internal/util"
)

// readCommands dispatches one command per line of r until r is exhausted or
// ctx is done. Results and errors are written to out.
func readCommands(ctx context.Context, r io.Reader, d *dispatcher.Dispatcher, out io.Writer, logger *slog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("Error reading commands", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			name, args := util.SplitCommand(line)
			if name == "" {
				continue
			}
			result, err := d.Dispatch(dispatcher.Request{Command: name, Args: args, Received: time.Now()})
			if err != nil {
				fmt.Fprintf(out, "%s error: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "%s %v\n", name, result)
		}
	}
}
