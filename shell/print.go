// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"errors"
	"fmt"

	"github.com/signalgrid/sigctl/broker"
)

// Printer renders command responses through the shared sink. Every
// handler reports through it, so response formatting and the error
// taxonomy live in exactly one place.
type Printer struct {
	sink   *Sink
	styles Styles
}

// NewPrinter couples a sink with a palette.
func NewPrinter(sink *Sink, styles Styles) *Printer {
	return &Printer{sink: sink, styles: styles}
}

// Sink exposes the underlying sink for callers that format their own
// blocks (subscription sessions).
func (p *Printer) Sink() *Sink { return p.sink }

// OK prints the accepted-response line for a command.
func (p *Printer) OK(command string) {
	p.OKf(command, "OK")
}

// OKf prints an accepted-response line with a custom message.
func (p *Printer) OKf(command, format string, args ...any) {
	p.sink.Block(fmt.Sprintf("%s %s\n",
		p.styles.Tag.Render("["+command+"]"),
		p.styles.OK.Render(fmt.Sprintf(format, args...))))
}

// Errorf prints a command failure.
func (p *Printer) Errorf(command, format string, args ...any) {
	p.sink.Block(fmt.Sprintf("%s %s\n",
		p.styles.Tag.Render("["+command+"]"),
		p.styles.Error.Render(fmt.Sprintf(format, args...))))
}

// Infof prints an informational aside not tied to success or failure.
func (p *Printer) Infof(format string, args ...any) {
	p.sink.Block(p.styles.Info.Render(fmt.Sprintf(format, args...)) + "\n")
}

// Linef prints an unstyled output line (values, tables).
func (p *Printer) Linef(format string, args ...any) {
	p.sink.Block(fmt.Sprintf(format, args...) + "\n")
}

// ClientError renders any error from the broker client according to
// the shared taxonomy: a remote rejection shows the broker's code and
// message, a transport failure shows the connection detail, and a
// local failure shows the client-side message. Handlers call this for
// every client error instead of matching variants themselves.
func (p *Printer) ClientError(command string, err error) {
	var statusErr *broker.StatusError
	if errors.As(err, &statusErr) {
		p.Errorf(command, "Status %d: %s", statusErr.Code, statusErr.Message)
		return
	}
	var connErr *broker.ConnectionError
	if errors.As(err, &connErr) {
		p.Errorf(command, "%s", connErr.Error())
		return
	}
	var fnErr *broker.FunctionError
	if errors.As(err, &fnErr) {
		p.Errorf(command, "Error: %s", fnErr.Message)
		return
	}
	p.Errorf(command, "%v", err)
}
