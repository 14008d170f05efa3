// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package action

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Target is the external handler the setup flow opens, usually a URL scheme
// of the automation app, e.g. shortcuts://import-shortcut?url=...&name=NoteWall
type Target struct {
	url *url.URL
}

var (
	ErrInvalidTarget = errors.New("invalid external action target")
)

// NewTarget parses rawURL and merges params into its query string. The URL
// must carry a scheme since it is handed to the platform opener as is.
func NewTarget(rawURL string, params map[string]string) (Target, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Target{}, fmt.Errorf("%w: no URL configured", ErrInvalidTarget)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s", ErrInvalidTarget, err.Error())
	}
	if u.Scheme == "" {
		return Target{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidTarget, rawURL)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			if strings.TrimSpace(k) == "" || v == "" {
				continue
			}
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return Target{url: u}, nil
}

func (t Target) IsZero() bool {
	return t.url == nil
}

func (t Target) Scheme() string {
	if t.url == nil {
		return ""
	}
	return t.url.Scheme
}

func (t Target) String() string {
	if t.url == nil {
		return ""
	}
	return t.url.String()
}
