// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// DialFunc constructs a Client for one endpoint URI. The client is not
// connected yet; the caller drives Connect.
type DialFunc func(uri *url.URL) (Client, error)

var (
	transportsMu sync.Mutex
	transports   = make(map[string]DialFunc)
)

// RegisterTransport makes a transport available to Dial under the
// given URI scheme. Registering the same scheme twice panics, like a
// duplicate database/sql driver.
func RegisterTransport(scheme string, dial DialFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	if _, dup := transports[scheme]; dup {
		panic("broker: RegisterTransport called twice for scheme " + scheme)
	}
	transports[scheme] = dial
}

// Dial parses the endpoint URI and hands it to the transport
// registered for its scheme. The memory scheme is built in; network
// transports register themselves from their own packages.
func Dial(uri string) (Client, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, &FunctionError{Message: fmt.Sprintf("invalid endpoint %q: %v", uri, err)}
	}

	transportsMu.Lock()
	dial, ok := transports[parsed.Scheme]
	transportsMu.Unlock()
	if !ok {
		return nil, &FunctionError{
			Message: fmt.Sprintf("no transport for scheme %q (available: %v)", parsed.Scheme, registeredSchemes()),
		}
	}
	return dial(parsed)
}

func registeredSchemes() []string {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	schemes := make([]string, 0, len(transports))
	for scheme := range transports {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}
