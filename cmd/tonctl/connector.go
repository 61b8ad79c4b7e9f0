package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/web3-frozen/ton-storefront/internal/transfer"
)

// promptConnector shows the transfer request on the terminal and asks the
// user to approve it. Approval hands the request to the user's wallet;
// anything but "y" or "yes" declines.
type promptConnector struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptConnector) SendTransaction(ctx context.Context, req transfer.Request) error {
	raw, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	fmt.Fprintf(p.out, "%s\nSend this transaction? [y/N] ", raw)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return nil
		}
		return transfer.ErrUserDeclined
	}
}
