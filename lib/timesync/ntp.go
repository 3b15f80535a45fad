// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// DefaultNTPTimeout bounds an NTP query when the context carries no
// deadline.
const DefaultNTPTimeout = 5 * time.Second

// NTPSource queries an NTP server.
type NTPSource struct {
	// Host is the server name or address, with an optional port.
	Host string
}

// ServerTime sends one NTP query. The context's deadline, when set,
// becomes the query timeout; the ntp package has no other
// cancellation hook.
func (n NTPSource) ServerTime(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	timeout := DefaultNTPTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return time.Time{}, context.DeadlineExceeded
		}
	}

	response, err := ntp.QueryWithOptions(n.Host, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, fmt.Errorf("querying ntp server %s: %w", n.Host, err)
	}
	if err := response.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("ntp server %s: %w", n.Host, err)
	}
	return response.Time, nil
}
